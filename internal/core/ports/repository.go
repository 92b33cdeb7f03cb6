package ports

import (
	"context"

	"github.com/chainsocial/social-api/internal/core/domain"
)

// IdentityRepository defines persistence of users, wallets and networks.
type IdentityRepository interface {
	WalletExists(ctx context.Context, address string) (bool, error)
	NetworkExists(ctx context.Context, id string) (bool, error)
	// FindNetwork returns domain.ErrUnknownNetwork when id is not registered.
	FindNetwork(ctx context.Context, id string) (*domain.Network, error)
	// FindUserByUsername returns domain.ErrUserNotFound when no user matches exactly.
	FindUserByUsername(ctx context.Context, username string) (*domain.User, error)
	// FindWalletWithOwner resolves a wallet by (id, type) together with its
	// owning user; an empty walletType matches any type. Returns
	// domain.ErrWalletNotFound when either is missing.
	FindWalletWithOwner(ctx context.Context, id string, walletType domain.WalletType) (*domain.Wallet, *domain.User, error)
	// CreateUser persists user and its first wallet. The returned user carries its ID.
	CreateUser(ctx context.Context, user *domain.User, wallet *domain.Wallet) (*domain.User, error)
	UpdateUserNonce(ctx context.Context, userID string, nonce int64) error
	// SetPrimaryWallet demotes every wallet of userID and promotes the
	// wallets of walletType.
	SetPrimaryWallet(ctx context.Context, userID string, walletType domain.WalletType) error
	// SeedSettings creates the default settings records of a new user.
	SeedSettings(ctx context.Context, userID string) error
}

// PeopleRepository persists social personas and their wallet links.
type PeopleRepository interface {
	// FindPeople returns domain.ErrPeopleNotFound when the persona is unknown.
	FindPeople(ctx context.Context, platform domain.Platform, platformAccountID string) (*domain.People, error)
	FindPeopleByID(ctx context.Context, id string) (*domain.People, error)
	CreatePeople(ctx context.Context, people *domain.People) (*domain.People, error)
	// FindCredential returns domain.ErrCredentialNotFound when no link exists.
	FindCredential(ctx context.Context, userID, peopleID string) (*domain.UserCredential, error)
	FindCredentialByPlatform(ctx context.Context, userID string, platform domain.Platform) (*domain.UserCredential, error)
	// UpsertCredential inserts or updates the link keyed by (UserID, PeopleID).
	UpsertCredential(ctx context.Context, cred *domain.UserCredential) (*domain.UserCredential, error)
	DeleteCredential(ctx context.Context, id string) error
}

// PostRepository reads imported posts holding escrowed tips.
type PostRepository interface {
	FindEscrowPosts(ctx context.Context, filter domain.PostFilter) ([]*domain.Post, error)
}
