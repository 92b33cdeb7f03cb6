package social

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/chainsocial/social-api/internal/core/domain"
	"github.com/chainsocial/social-api/internal/core/ports"
)

const DefaultFacebookURL = "https://graph.facebook.com/v18.0"

// Facebook reads pages and their posts from the Graph API.
type Facebook struct {
	baseURL     string
	accessToken string
	t           *transport
}

func NewFacebook(baseURL, accessToken string, opts Options, log zerolog.Logger) *Facebook {
	if baseURL == "" {
		baseURL = DefaultFacebookURL
	}
	return &Facebook{
		baseURL:     strings.TrimRight(baseURL, "/"),
		accessToken: accessToken,
		t:           newTransport(opts, log.With().Str("platform", "facebook").Logger()),
	}
}

type facebookProfileResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Picture struct {
		Data struct {
			URL string `json:"url"`
		} `json:"data"`
	} `json:"picture"`
}

type facebookPostsResponse struct {
	Data []struct {
		ID      string `json:"id"`
		Message string `json:"message"`
	} `json:"data"`
}

func (c *Facebook) FetchAccount(ctx context.Context, username string) (*ports.SocialAccount, error) {
	q := url.Values{}
	q.Set("fields", "id,name,picture")
	q.Set("access_token", c.accessToken)
	u := fmt.Sprintf("%s/%s?%s", c.baseURL, url.PathEscape(username), q.Encode())

	var resp facebookProfileResponse
	if err := c.t.getJSON(ctx, u, nil, &resp); err != nil {
		return nil, err
	}
	if resp.ID == "" {
		return nil, domain.ErrPeopleNotFound
	}
	return &ports.SocialAccount{
		ID:              resp.ID,
		Username:        username,
		ProfileImageURL: resp.Picture.Data.URL,
	}, nil
}

func (c *Facebook) FetchRecentPosts(ctx context.Context, account *ports.SocialAccount) ([]domain.SocialPost, error) {
	q := url.Values{}
	q.Set("fields", "id,message")
	q.Set("limit", fmt.Sprint(postsLimit))
	q.Set("access_token", c.accessToken)
	u := fmt.Sprintf("%s/%s/posts?%s", c.baseURL, url.PathEscape(account.ID), q.Encode())

	var resp facebookPostsResponse
	if err := c.t.getJSON(ctx, u, nil, &resp); err != nil {
		return nil, err
	}
	posts := make([]domain.SocialPost, 0, len(resp.Data))
	for _, p := range resp.Data {
		posts = append(posts, domain.SocialPost{ID: p.ID, Text: p.Message})
	}
	return posts, nil
}
