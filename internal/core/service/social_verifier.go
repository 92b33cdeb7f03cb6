package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/chainsocial/social-api/internal/core/domain"
	"github.com/chainsocial/social-api/internal/core/ports"
)

// ProofPhrase is the text clients post ahead of their public key. VerifyLink
// relies on it having exactly seven words so the key is token 7.
const ProofPhrase = "I am verifying my account with key"

// proofKeyToken is the whitespace-split index the key occupies in a post
// that starts with ProofPhrase.
const proofKeyToken = 7

// sweepTaskTimeout bounds one sweep attempt. Each post may wait for a
// transfer to be mined, which alone can take minutes.
const sweepTaskTimeout = 30 * time.Minute

// Sweeper moves escrowed tips to a verified wallet.
type Sweeper interface {
	Sweep(ctx context.Context, target string, filter domain.PostFilter) error
}

// SocialVerifier links social personas to wallets after checking that the
// persona published the wallet's public key. A nil sweeper disables escrow
// settlement.
type SocialVerifier struct {
	people  ports.PeopleRepository
	readers map[domain.Platform]ports.SocialReader
	sweeper Sweeper
	tasks   ports.TaskQueue
	log     zerolog.Logger
}

func NewSocialVerifier(
	people ports.PeopleRepository,
	readers map[domain.Platform]ports.SocialReader,
	sweeper Sweeper,
	tasks ports.TaskQueue,
	log zerolog.Logger,
) *SocialVerifier {
	return &SocialVerifier{
		people:  people,
		readers: readers,
		sweeper: sweeper,
		tasks:   tasks,
		log:     log,
	}
}

// Verify looks for publicKey in the recent posts of username on platform.
// When found, the persona is linked to the wallet and tips escrowed for
// the persona's posts are swept to it in the background. Escrow lives on
// an EVM chain, so wallets of other chains are linked without a sweep.
func (v *SocialVerifier) Verify(ctx context.Context, publicKey, username string, platform domain.Platform) (bool, error) {
	reader, ok := v.readers[platform]
	if !ok {
		return false, fmt.Errorf("%w: %s", domain.ErrInvalidPlatform, platform)
	}

	account, err := reader.FetchAccount(ctx, username)
	if err != nil {
		return false, err
	}
	posts, err := reader.FetchRecentPosts(ctx, account)
	if err != nil {
		return false, err
	}

	found := false
	for _, p := range posts {
		if strings.Contains(p.Text, publicKey) {
			found = true
			break
		}
	}
	if !found {
		return false, domain.ErrProofNotFound
	}

	persona := &domain.People{
		Platform:          platform,
		PlatformAccountID: account.ID,
		Username:          account.Username,
		ProfileImageURL:   account.ProfileImageURL,
	}
	cred, err := v.LinkCredential(ctx, persona, publicKey)
	if err != nil {
		return false, err
	}

	v.log.Info().
		Str("wallet", publicKey).
		Str("platform", string(platform)).
		Str("platform_account_id", account.ID).
		Msg("social account verified")

	if v.sweeper == nil {
		return true, nil
	}
	if !isEVMAddress(publicKey) {
		v.log.Info().Str("wallet", publicKey).Msg("escrow sweep skipped for non-evm wallet")
		return true, nil
	}
	filter := domain.PostFilter{
		Platform:          platform,
		PlatformAccountID: account.ID,
		ExcludeWallet:     publicKey,
	}
	v.tasks.Submit(ports.Task{
		ID:       ports.TaskID("escrow_sweep", publicKey, cred.PeopleID),
		Name:     "escrow_sweep",
		ShardKey: publicKey,
		Timeout:  sweepTaskTimeout,
		Run: func(ctx context.Context) error {
			return v.sweeper.Sweep(ctx, publicKey, filter)
		},
	})

	return true, nil
}

// LinkCredential links persona to the wallet publicKey. Repeating the call
// with the same inputs leaves a single link.
func (v *SocialVerifier) LinkCredential(ctx context.Context, persona *domain.People, publicKey string) (*domain.UserCredential, error) {
	people, err := v.people.FindPeople(ctx, persona.Platform, persona.PlatformAccountID)
	if err != nil && !errors.Is(err, domain.ErrPeopleNotFound) {
		return nil, err
	}

	claimed, err := v.people.FindCredentialByPlatform(ctx, publicKey, persona.Platform)
	switch {
	case err == nil:
		if people == nil || claimed.PeopleID != people.ID {
			return nil, domain.ErrPlatformAlreadyClaimed
		}
	case !errors.Is(err, domain.ErrCredentialNotFound):
		return nil, err
	}

	if people == nil {
		persona.ID = uuid.NewString()
		persona.CreatedAt = time.Now().UTC()
		if people, err = v.people.CreatePeople(ctx, persona); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	cred, err := v.people.FindCredential(ctx, publicKey, people.ID)
	switch {
	case err == nil:
		cred.IsLogin = true
		cred.UpdatedAt = now
	case errors.Is(err, domain.ErrCredentialNotFound):
		cred = &domain.UserCredential{
			ID:        uuid.NewString(),
			UserID:    publicKey,
			PeopleID:  people.ID,
			Platform:  people.Platform,
			IsLogin:   true,
			CreatedAt: now,
			UpdatedAt: now,
		}
	default:
		return nil, err
	}

	return v.people.UpsertCredential(ctx, cred)
}

// VerifyLink re-checks a stored link against the persona's live posts.
// The key is expected at token 7, right after ProofPhrase; this is a
// positional heuristic tied to that phrase and breaks if clients reword
// it. A link that is no longer backed by a post is deleted. Errors are
// logged and reported as false.
func (v *SocialVerifier) VerifyLink(ctx context.Context, userID, peopleID string) bool {
	ok, err := v.verifyLink(ctx, userID, peopleID)
	if err != nil {
		v.log.Warn().Err(err).Str("user_id", userID).Str("people_id", peopleID).Msg("verify link failed")
		return false
	}
	return ok
}

func (v *SocialVerifier) verifyLink(ctx context.Context, userID, peopleID string) (bool, error) {
	cred, err := v.people.FindCredential(ctx, userID, peopleID)
	if err != nil {
		return false, err
	}
	people, err := v.people.FindPeopleByID(ctx, peopleID)
	if err != nil {
		return false, err
	}
	reader, ok := v.readers[people.Platform]
	if !ok {
		return false, fmt.Errorf("%w: %s", domain.ErrInvalidPlatform, people.Platform)
	}

	posts, err := reader.FetchRecentPosts(ctx, &ports.SocialAccount{
		ID:       people.PlatformAccountID,
		Username: people.Username,
	})
	if err != nil {
		return false, err
	}

	for _, p := range posts {
		tokens := strings.Fields(p.Text)
		if len(tokens) > proofKeyToken && tokens[proofKeyToken] == userID {
			return true, nil
		}
	}

	if err := v.people.DeleteCredential(ctx, cred.ID); err != nil {
		return false, err
	}
	v.log.Info().Str("user_id", userID).Str("people_id", peopleID).Msg("credential revoked")
	return false, nil
}
