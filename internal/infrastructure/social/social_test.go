package social

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/chainsocial/social-api/internal/core/domain"
	"github.com/chainsocial/social-api/internal/core/ports"
)

func testOptions() Options {
	return Options{Timeout: time.Second, MaxRetries: 2, RatePerSecond: 100}
}

func TestTwitter_FetchAccountAndPosts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/2/users/by/username/alice":
			_, _ = w.Write([]byte(`{"data":{"id":"42","username":"alice","profile_image_url":"https://img/a.png"}}`))
		case "/2/users/42/tweets":
			_, _ = w.Write([]byte(`{"data":[{"id":"t1","text":"hello"},{"id":"t2","text":"I am verifying my account with key 0xabc"}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewTwitter(srv.URL, "tok", testOptions(), zerolog.Nop())

	acc, err := c.FetchAccount(context.Background(), "alice")
	require.NoError(t, err)
	require.Equal(t, &ports.SocialAccount{ID: "42", Username: "alice", ProfileImageURL: "https://img/a.png"}, acc)

	posts, err := c.FetchRecentPosts(context.Background(), acc)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	require.Equal(t, "t2", posts[1].ID)
}

func TestTwitter_UnknownAccount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewTwitter(srv.URL, "tok", testOptions(), zerolog.Nop()).FetchAccount(context.Background(), "ghost")
	require.ErrorIs(t, err, domain.ErrPeopleNotFound)
}

func TestTransport_RetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"data":{"id":"r1","name":"bob","icon_img":"https://img/b.png?a=1&amp;b=2"}}`))
	}))
	defer srv.Close()

	acc, err := NewReddit(srv.URL, "", "agent", testOptions(), zerolog.Nop()).FetchAccount(context.Background(), "bob")
	require.NoError(t, err)
	require.Equal(t, int32(3), atomic.LoadInt32(&calls))
	require.Equal(t, "https://img/b.png?a=1&b=2", acc.ProfileImageURL)
}

func TestTransport_DoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := NewReddit(srv.URL, "", "agent", testOptions(), zerolog.Nop()).FetchAccount(context.Background(), "bob")
	require.ErrorIs(t, err, domain.ErrExternalService)
	require.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestReddit_FetchRecentPostsJoinsTitleAndBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/user/bob/submitted.json", r.URL.Path)
		require.Equal(t, "agent", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(`{"data":{"children":[{"data":{"id":"p1","title":"proof","selftext":"key 0xabc"}}]}}`))
	}))
	defer srv.Close()

	posts, err := NewReddit(srv.URL, "", "agent", testOptions(), zerolog.Nop()).
		FetchRecentPosts(context.Background(), &ports.SocialAccount{ID: "r1", Username: "bob"})
	require.NoError(t, err)
	require.Equal(t, []domain.SocialPost{{ID: "p1", Text: "proof key 0xabc"}}, posts)
}

func TestFacebook_FetchAccountAndPosts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "secret", r.URL.Query().Get("access_token"))
		switch r.URL.Path {
		case "/carol":
			_, _ = w.Write([]byte(`{"id":"f1","name":"Carol","picture":{"data":{"url":"https://img/c.png"}}}`))
		case "/f1/posts":
			_, _ = w.Write([]byte(`{"data":[{"id":"f1_1","message":"hi"}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewFacebook(srv.URL, "secret", testOptions(), zerolog.Nop())
	acc, err := c.FetchAccount(context.Background(), "carol")
	require.NoError(t, err)
	require.Equal(t, "f1", acc.ID)
	require.Equal(t, "https://img/c.png", acc.ProfileImageURL)

	posts, err := c.FetchRecentPosts(context.Background(), acc)
	require.NoError(t, err)
	require.Equal(t, []domain.SocialPost{{ID: "f1_1", Text: "hi"}}, posts)
}

func TestTransport_KeepsAccessTokenOutOfLogsAndErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	var buf bytes.Buffer
	log := zerolog.New(&buf).Level(zerolog.DebugLevel)

	_, err := NewFacebook(srv.URL, "fb-secret-token", testOptions(), log).FetchAccount(context.Background(), "carol")
	require.ErrorIs(t, err, domain.ErrExternalService)
	require.Contains(t, buf.String(), "social request failed")
	require.NotContains(t, buf.String(), "fb-secret-token")
	require.NotContains(t, err.Error(), "fb-secret-token")

	// Transport failures wrap a *url.Error that embeds the request URL.
	closed := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	closed.Close()
	buf.Reset()

	_, err = NewFacebook(closed.URL, "fb-secret-token", testOptions(), log).FetchAccount(context.Background(), "carol")
	require.ErrorIs(t, err, domain.ErrExternalService)
	require.NotContains(t, buf.String(), "fb-secret-token")
	require.NotContains(t, err.Error(), "fb-secret-token")
}

func TestRedactURL(t *testing.T) {
	require.Equal(t, "https://graph.example/carol", redactURL("https://graph.example/carol?fields=id&access_token=x"))
	require.Equal(t, "https://graph.example/carol", redactURL("https://graph.example/carol#frag"))
	require.Equal(t, "https://graph.example/carol", redactURL("https://graph.example/carol"))
}
