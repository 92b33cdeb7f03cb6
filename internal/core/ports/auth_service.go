package ports

import (
	"context"

	"github.com/chainsocial/social-api/internal/core/domain"
)

// WalletInput describes the wallet a new account signs up with.
type WalletInput struct {
	Address   string
	Type      domain.WalletType
	NetworkID string
}

// SignupInput carries everything needed to register an account.
type SignupInput struct {
	Name     string
	Username string
	Wallet   WalletInput
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	Token  string
	User   *domain.User
	Wallet *domain.Wallet
}

type AuthService interface {
	Signup(ctx context.Context, input SignupInput) (*domain.User, error)
	Login(ctx context.Context, variant domain.LoginVariant, cred domain.Credential) (*LoginResult, error)
	Nonce(ctx context.Context, walletID string) (int64, error)
}

// SocialVerifier proves and re-checks wallet ownership of social accounts.
type SocialVerifier interface {
	Verify(ctx context.Context, publicKey, username string, platform domain.Platform) (bool, error)
	VerifyLink(ctx context.Context, userID, peopleID string) bool
}

// SignatureVerifier checks a wallet signature over message.
type SignatureVerifier interface {
	Verify(walletType domain.WalletType, address, message string, proof domain.SignatureProof) error
}

// AccessKeyResolver reports whether publicKey is registered as an access
// key of a named chain account served by the RPC node at rpcURL.
type AccessKeyResolver interface {
	HasAccessKey(ctx context.Context, rpcURL, accountID, publicKey string) (bool, error)
}

// TokenIssuer mints session tokens for authenticated users.
type TokenIssuer interface {
	Issue(user *domain.User, wallet *domain.Wallet) (string, error)
}
