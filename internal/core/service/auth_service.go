package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/chainsocial/social-api/internal/core/domain"
	"github.com/chainsocial/social-api/internal/core/ports"
)

const (
	maxNameLength = 22
	// nonceCeiling bounds generated nonces to values a JavaScript client
	// can represent exactly.
	nonceCeiling = 1 << 48
)

// loginFailureKinds maps login failure causes to the kind callers see.
// Causes not listed surface as unauthorized.
var loginFailureKinds = map[*domain.Error]domain.Kind{
	domain.ErrForbidden: domain.KindForbidden,
}

// AuthDeps groups the collaborators of AuthService.
type AuthDeps struct {
	Repo        ports.IdentityRepository
	Verifier    ports.SignatureVerifier
	Tokens      ports.TokenIssuer
	Currency    ports.CurrencyService
	Connections ports.ConnectionService
	Activity    ports.ActivityLog
	Tasks       ports.TaskQueue
	// AccessKeys binds the primary key of a two-part credential to its sub
	// account. Sub-account logins are rejected when nil.
	AccessKeys ports.AccessKeyResolver
}

// AuthService implements wallet signup and nonce challenge-response login.
type AuthService struct {
	AuthDeps
	addresses *AddressValidator
	gate      *PermissionGate
	log       zerolog.Logger
}

func NewAuthService(deps AuthDeps, log zerolog.Logger) *AuthService {
	return &AuthService{
		AuthDeps:  deps,
		addresses: NewAddressValidator(deps.Repo),
		gate:      NewPermissionGate(),
		log:       log,
	}
}

// Signup registers a user with its first wallet. Bootstrap records are
// created in the background once the account exists; their failure never
// undoes the signup.
func (s *AuthService) Signup(ctx context.Context, in ports.SignupInput) (*domain.User, error) {
	exists, err := s.Repo.WalletExists(ctx, in.Wallet.Address)
	if err != nil {
		return nil, fmt.Errorf("signup: %w", err)
	}
	if exists {
		return nil, domain.ErrDuplicateWallet
	}

	known, err := s.Repo.NetworkExists(ctx, in.Wallet.NetworkID)
	if err != nil {
		return nil, fmt.Errorf("signup: %w", err)
	}
	if !known {
		return nil, domain.ErrUnknownNetwork
	}

	_, err = s.Repo.FindUserByUsername(ctx, in.Username)
	switch {
	case err == nil:
		return nil, domain.ErrDuplicateUsername
	case !errors.Is(err, domain.ErrUserNotFound):
		return nil, fmt.Errorf("signup: %w", err)
	}

	if _, err := s.addresses.Validate(ctx, in.Wallet.Address, in.Wallet.NetworkID); err != nil {
		return nil, err
	}
	if err := ValidateUsername(in.Username); err != nil {
		return nil, err
	}

	nonce, err := newNonce(0)
	if err != nil {
		return nil, fmt.Errorf("signup: %w", err)
	}

	now := time.Now().UTC()
	user := &domain.User{
		Username:    in.Username,
		Name:        truncate(in.Name, maxNameLength),
		Nonce:       nonce,
		Permissions: []domain.Permission{domain.PermissionUser},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	wallet := &domain.Wallet{
		ID:        in.Wallet.Address,
		Type:      in.Wallet.Type,
		NetworkID: in.Wallet.NetworkID,
		Primary:   true,
		CreatedAt: now,
	}

	created, err := s.Repo.CreateUser(ctx, user, wallet)
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("user_id", created.ID).Str("wallet", wallet.ID).Msg("user signed up")
	s.afterSignup(created, wallet)

	return created, nil
}

func (s *AuthService) afterSignup(user *domain.User, wallet *domain.Wallet) {
	userID := user.ID

	s.submit(userID, "seed_settings", []string{userID}, func(ctx context.Context) error {
		return s.Repo.SeedSettings(ctx, userID)
	})
	s.submit(userID, "seed_balances", []string{userID, wallet.NetworkID}, func(ctx context.Context) error {
		return s.Currency.SeedBalances(ctx, userID, wallet.NetworkID)
	})
	s.submit(userID, "signup_reward", []string{wallet.ID}, func(ctx context.Context) error {
		return s.Currency.GrantSignupReward(ctx, wallet.ID, wallet.Type)
	})
	s.submit(userID, "default_connection", []string{userID}, func(ctx context.Context) error {
		return s.Connections.CreateDefaultConnection(ctx, userID)
	})
	s.submit(userID, "record_activity", []string{string(domain.ActivityNewUser), userID}, func(ctx context.Context) error {
		return s.Activity.Record(ctx, domain.ActivityEntry{
			Type:          domain.ActivityNewUser,
			UserID:        userID,
			ReferenceID:   userID,
			ReferenceType: "user",
			CreatedAt:     time.Now().UTC(),
		})
	})
}

// Login verifies a signed nonce challenge and issues a session token.
// Every rejection is reported as a *domain.AccessError; the underlying
// cause is logged but only its message reaches the caller.
//
// Nonce rotation happens in the background after the response, so two
// concurrent logins may both be accepted with the same nonce.
func (s *AuthService) Login(ctx context.Context, variant domain.LoginVariant, cred domain.Credential) (*ports.LoginResult, error) {
	wallet, user, err := s.authenticate(ctx, variant, cred)
	if err != nil {
		s.log.Warn().
			Err(err).
			Str("wallet", cred.WalletID()).
			Str("variant", variant.String()).
			Msg("login rejected")
		return nil, accessError(err)
	}

	token, err := s.Tokens.Issue(user, wallet)
	if err != nil {
		return nil, fmt.Errorf("login: issue session: %w", err)
	}

	s.afterLogin(user, cred)

	return &ports.LoginResult{Token: token, User: user, Wallet: wallet}, nil
}

func (s *AuthService) authenticate(ctx context.Context, variant domain.LoginVariant, cred domain.Credential) (*domain.Wallet, *domain.User, error) {
	primary, sub := cred.SplitAddress()

	if cred.Nonce <= 0 {
		return nil, nil, domain.ErrInvalidNonce
	}

	known, err := s.Repo.NetworkExists(ctx, cred.NetworkID)
	if err != nil {
		return nil, nil, err
	}
	if !known {
		return nil, nil, domain.ErrUnknownNetwork
	}

	wallet, user, err := s.Repo.FindWalletWithOwner(ctx, cred.WalletID(), cred.WalletType)
	if err != nil {
		if errors.Is(err, domain.ErrWalletNotFound) || errors.Is(err, domain.ErrUserNotFound) {
			return nil, nil, domain.ErrUnauthorizedCredential
		}
		return nil, nil, err
	}

	if cred.Nonce != user.Nonce {
		return nil, nil, domain.ErrInvalidNonce
	}

	if sub != "" {
		if err := s.bindSubAccount(ctx, cred.NetworkID, sub, primary); err != nil {
			return nil, nil, err
		}
	}

	if err := s.Verifier.Verify(wallet.Type, primary, domain.ChallengeMessage(cred.Nonce), cred.Signature); err != nil {
		return nil, nil, err
	}

	if !s.gate.Check(variant, user.Permissions) {
		return nil, nil, domain.ErrForbidden
	}

	return wallet, user, nil
}

// bindSubAccount checks that primary is an access key of the sub account,
// so a valid signature by primary speaks for the sub account's wallet.
func (s *AuthService) bindSubAccount(ctx context.Context, networkID, sub, primary string) error {
	if s.AccessKeys == nil {
		return fmt.Errorf("%w: sub accounts not supported", domain.ErrUnauthorizedCredential)
	}
	network, err := s.Repo.FindNetwork(ctx, networkID)
	if err != nil {
		return err
	}
	ok, err := s.AccessKeys.HasAccessKey(ctx, network.RPCURL, sub, primary)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrExternalService, err)
	}
	if !ok {
		return fmt.Errorf("%w: key is not registered for %s", domain.ErrSignatureVerification, sub)
	}
	return nil
}

// afterLogin keys its tasks by the consumed nonce: one login per nonce
// triggers the side effects once.
func (s *AuthService) afterLogin(user *domain.User, cred domain.Credential) {
	userID := user.ID
	consumed := strconv.FormatInt(user.Nonce, 10)

	next, err := newNonce(user.Nonce)
	if err != nil {
		s.log.Error().Err(err).Str("user_id", userID).Msg("generate nonce")
	}

	s.submit(userID, "refresh_balance", []string{userID, consumed}, func(ctx context.Context) error {
		return s.Currency.RefreshBalance(ctx, userID, cred.NetworkID)
	})
	if err == nil {
		s.submit(userID, "rotate_nonce", []string{userID, consumed}, func(ctx context.Context) error {
			return s.Repo.UpdateUserNonce(ctx, userID, next)
		})
	}
	s.submit(userID, "set_primary_wallet", []string{userID, consumed}, func(ctx context.Context) error {
		return s.Repo.SetPrimaryWallet(ctx, userID, cred.WalletType)
	})
}

// Nonce returns the current challenge for the owner of walletID, or 0 when
// the wallet is not registered.
func (s *AuthService) Nonce(ctx context.Context, walletID string) (int64, error) {
	_, user, err := s.Repo.FindWalletWithOwner(ctx, walletID, "")
	if err != nil {
		if errors.Is(err, domain.ErrWalletNotFound) || errors.Is(err, domain.ErrUserNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return user.Nonce, nil
}

func (s *AuthService) submit(shardKey, name string, key []string, run func(ctx context.Context) error) {
	s.Tasks.Submit(ports.Task{
		ID:       ports.TaskID(name, key...),
		Name:     name,
		ShardKey: shardKey,
		Run:      run,
	})
}

func accessError(err error) *domain.AccessError {
	var ae *domain.AccessError
	if errors.As(err, &ae) {
		return ae
	}
	kind := domain.KindUnauthorized
	var de *domain.Error
	if errors.As(err, &de) {
		if mapped, ok := loginFailureKinds[de]; ok {
			kind = mapped
		}
	}
	return &domain.AccessError{Kind: kind, Cause: err}
}

// newNonce returns a random positive nonce different from previous.
func newNonce(previous int64) (int64, error) {
	for {
		n, err := rand.Int(rand.Reader, big.NewInt(nonceCeiling-1))
		if err != nil {
			return 0, err
		}
		if v := n.Int64() + 1; v != previous {
			return v, nil
		}
	}
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
