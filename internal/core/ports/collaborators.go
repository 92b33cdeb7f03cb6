package ports

import (
	"context"

	"github.com/chainsocial/social-api/internal/core/domain"
)

// CurrencyService keeps per-user currency balances.
type CurrencyService interface {
	SeedBalances(ctx context.Context, userID, networkID string) error
	RefreshBalance(ctx context.Context, userID, networkID string) error
	GrantSignupReward(ctx context.Context, walletID string, walletType domain.WalletType) error
}

// ConnectionService manages social graph edges between users.
type ConnectionService interface {
	CreateDefaultConnection(ctx context.Context, userID string) error
}

// ActivityLog records user activity. Callers never wait on it.
type ActivityLog interface {
	Record(ctx context.Context, entry domain.ActivityEntry) error
}

// SocialAccount is the persona descriptor a platform returns for a username.
type SocialAccount struct {
	ID              string
	Username        string
	ProfileImageURL string
}

// SocialReader is a read-only client of one social platform.
type SocialReader interface {
	FetchAccount(ctx context.Context, username string) (*SocialAccount, error)
	FetchRecentPosts(ctx context.Context, account *SocialAccount) ([]domain.SocialPost, error)
}
