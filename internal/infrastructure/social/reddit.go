package social

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/chainsocial/social-api/internal/core/domain"
	"github.com/chainsocial/social-api/internal/core/ports"
)

const DefaultRedditURL = "https://oauth.reddit.com"

// Reddit reads users and their submissions from the Reddit JSON API.
type Reddit struct {
	baseURL string
	header  http.Header
	t       *transport
}

func NewReddit(baseURL, token, userAgent string, opts Options, log zerolog.Logger) *Reddit {
	if baseURL == "" {
		baseURL = DefaultRedditURL
	}
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	if userAgent != "" {
		h.Set("User-Agent", userAgent)
	}
	return &Reddit{
		baseURL: strings.TrimRight(baseURL, "/"),
		header:  h,
		t:       newTransport(opts, log.With().Str("platform", "reddit").Logger()),
	}
}

type redditAboutResponse struct {
	Data struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		IconImg string `json:"icon_img"`
	} `json:"data"`
}

type redditListingResponse struct {
	Data struct {
		Children []struct {
			Data struct {
				ID       string `json:"id"`
				Title    string `json:"title"`
				SelfText string `json:"selftext"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

func (c *Reddit) FetchAccount(ctx context.Context, username string) (*ports.SocialAccount, error) {
	u := fmt.Sprintf("%s/user/%s/about.json", c.baseURL, url.PathEscape(username))

	var resp redditAboutResponse
	if err := c.t.getJSON(ctx, u, c.header, &resp); err != nil {
		return nil, err
	}
	if resp.Data.ID == "" {
		return nil, domain.ErrPeopleNotFound
	}
	return &ports.SocialAccount{
		ID:       resp.Data.ID,
		Username: resp.Data.Name,
		// Reddit returns icon urls html-escaped.
		ProfileImageURL: html.UnescapeString(resp.Data.IconImg),
	}, nil
}

// FetchRecentPosts returns the latest submissions. The title and body are
// joined so a proof in either is found.
func (c *Reddit) FetchRecentPosts(ctx context.Context, account *ports.SocialAccount) ([]domain.SocialPost, error) {
	u := fmt.Sprintf("%s/user/%s/submitted.json?limit=%d", c.baseURL, url.PathEscape(account.Username), postsLimit)

	var resp redditListingResponse
	if err := c.t.getJSON(ctx, u, c.header, &resp); err != nil {
		return nil, err
	}
	posts := make([]domain.SocialPost, 0, len(resp.Data.Children))
	for _, child := range resp.Data.Children {
		posts = append(posts, domain.SocialPost{
			ID:   child.Data.ID,
			Text: strings.TrimSpace(child.Data.Title + " " + child.Data.SelfText),
		})
	}
	return posts, nil
}
