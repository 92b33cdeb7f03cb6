package service

import (
	"context"
	"fmt"
	"math/big"

	"github.com/rs/zerolog"

	"github.com/chainsocial/social-api/internal/api/metrics"
	"github.com/chainsocial/social-api/internal/core/domain"
	"github.com/chainsocial/social-api/internal/core/ports"
)

// SweepReport summarises one sweep run.
type SweepReport struct {
	Posts       int
	Transferred int
	Skipped     int
	Failed      int
}

// Settlement moves escrowed post balances to verified wallets. It is the
// only component holding chain-signing material, through the key deriver.
type Settlement struct {
	posts ports.PostRepository
	chain ports.ChainClient
	keys  ports.KeyDeriver
	fee   *big.Int
	log   zerolog.Logger
}

// NewSettlement builds a Settlement. fee is the fixed network fee kept back
// from every transfer.
func NewSettlement(posts ports.PostRepository, chain ports.ChainClient, keys ports.KeyDeriver, fee *big.Int, log zerolog.Logger) *Settlement {
	if fee == nil {
		fee = new(big.Int)
	}
	return &Settlement{posts: posts, chain: chain, keys: keys, fee: fee, log: log}
}

// Sweep opens a chain connection, sweeps every post matching filter to
// target and closes the connection on every path. Per-post failures are
// only logged; connection and lookup failures and the end of ctx are
// returned.
func (s *Settlement) Sweep(ctx context.Context, target string, filter domain.PostFilter) error {
	conn, err := s.chain.Connect(ctx)
	if err != nil {
		return fmt.Errorf("sweep: connect: %w", err)
	}
	defer conn.Close()

	report, err := s.SweepWith(ctx, conn, target, filter)
	if err != nil {
		return err
	}

	s.log.Info().
		Str("target", target).
		Int("posts", report.Posts).
		Int("transferred", report.Transferred).
		Int("skipped", report.Skipped).
		Int("failed", report.Failed).
		Msg("escrow sweep finished")
	return nil
}

// SweepWith sweeps using a connection owned by the caller. Transfers run
// one at a time so the derived accounts never race on chain nonces; a
// failed post is logged and the rest are still processed. The loop stops
// once ctx is done and returns the partial report with ctx's error, so a
// retried sweep resumes with the posts still holding a balance.
func (s *Settlement) SweepWith(ctx context.Context, conn ports.ChainConn, target string, filter domain.PostFilter) (SweepReport, error) {
	filter.ExcludeWallet = target
	posts, err := s.posts.FindEscrowPosts(ctx, filter)
	if err != nil {
		return SweepReport{}, fmt.Errorf("sweep: find posts: %w", err)
	}

	report := SweepReport{Posts: len(posts)}
	for _, post := range posts {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("sweep: %w", err)
		}
		if post.WalletAddress == target {
			report.Skipped++
			metrics.SweepTransfersTotal.WithLabelValues("skipped").Inc()
			continue
		}
		moved, err := s.sweepPost(ctx, conn, post, target)
		switch {
		case err != nil:
			report.Failed++
			metrics.SweepTransfersTotal.WithLabelValues("failed").Inc()
			s.log.Error().Err(err).Str("post_id", post.ID).Str("target", target).Msg("escrow transfer failed")
		case moved:
			report.Transferred++
			metrics.SweepTransfersTotal.WithLabelValues("ok").Inc()
		default:
			report.Skipped++
			metrics.SweepTransfersTotal.WithLabelValues("skipped").Inc()
		}
	}
	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("sweep: %w", err)
	}
	return report, nil
}

func (s *Settlement) sweepPost(ctx context.Context, conn ports.ChainConn, post *domain.Post, target string) (bool, error) {
	signer, err := s.keys.DeriveKey(post.ID)
	if err != nil {
		return false, fmt.Errorf("derive key: %w", err)
	}

	balance, err := conn.Balance(ctx, signer.Address())
	if err != nil {
		return false, fmt.Errorf("balance of %s: %w", signer.Address(), err)
	}
	if balance.Sign() <= 0 {
		return false, nil
	}

	amount := new(big.Int).Sub(balance, s.fee)
	if amount.Sign() <= 0 {
		s.log.Debug().Str("post_id", post.ID).Str("balance", balance.String()).Msg("balance does not cover network fee")
		return false, nil
	}

	receipt, err := conn.Transfer(ctx, signer, target, amount)
	if err != nil {
		return false, fmt.Errorf("transfer from %s: %w", signer.Address(), err)
	}

	s.log.Info().
		Str("post_id", post.ID).
		Str("from", signer.Address()).
		Str("to", target).
		Str("amount", amount.String()).
		Str("tx_hash", receipt.TxHash).
		Msg("escrow transferred")
	return true, nil
}
