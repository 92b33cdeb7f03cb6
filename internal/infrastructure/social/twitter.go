package social

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/chainsocial/social-api/internal/core/domain"
	"github.com/chainsocial/social-api/internal/core/ports"
)

const DefaultTwitterURL = "https://api.twitter.com"

// Twitter reads accounts and tweets from the Twitter v2 API.
type Twitter struct {
	baseURL string
	header  http.Header
	t       *transport
}

func NewTwitter(baseURL, bearerToken string, opts Options, log zerolog.Logger) *Twitter {
	if baseURL == "" {
		baseURL = DefaultTwitterURL
	}
	h := http.Header{}
	h.Set("Authorization", "Bearer "+bearerToken)
	return &Twitter{
		baseURL: strings.TrimRight(baseURL, "/"),
		header:  h,
		t:       newTransport(opts, log.With().Str("platform", "twitter").Logger()),
	}
}

type twitterUserResponse struct {
	Data *struct {
		ID              string `json:"id"`
		Username        string `json:"username"`
		ProfileImageURL string `json:"profile_image_url"`
	} `json:"data"`
}

type twitterTweetsResponse struct {
	Data []struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	} `json:"data"`
}

func (c *Twitter) FetchAccount(ctx context.Context, username string) (*ports.SocialAccount, error) {
	u := fmt.Sprintf("%s/2/users/by/username/%s?user.fields=profile_image_url", c.baseURL, url.PathEscape(username))

	var resp twitterUserResponse
	if err := c.t.getJSON(ctx, u, c.header, &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return nil, domain.ErrPeopleNotFound
	}
	return &ports.SocialAccount{
		ID:              resp.Data.ID,
		Username:        resp.Data.Username,
		ProfileImageURL: resp.Data.ProfileImageURL,
	}, nil
}

func (c *Twitter) FetchRecentPosts(ctx context.Context, account *ports.SocialAccount) ([]domain.SocialPost, error) {
	u := fmt.Sprintf("%s/2/users/%s/tweets?max_results=%d", c.baseURL, url.PathEscape(account.ID), postsLimit)

	var resp twitterTweetsResponse
	if err := c.t.getJSON(ctx, u, c.header, &resp); err != nil {
		return nil, err
	}
	posts := make([]domain.SocialPost, 0, len(resp.Data))
	for _, tw := range resp.Data {
		posts = append(posts, domain.SocialPost{ID: tw.ID, Text: tw.Text})
	}
	return posts, nil
}
