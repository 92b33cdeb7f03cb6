package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/chainsocial/social-api/internal/api"
	"github.com/chainsocial/social-api/internal/api/handler"
	"github.com/chainsocial/social-api/internal/core/domain"
	"github.com/chainsocial/social-api/internal/core/ports"
	"github.com/chainsocial/social-api/internal/core/service"
	"github.com/chainsocial/social-api/internal/infrastructure/chain/evm"
	"github.com/chainsocial/social-api/internal/infrastructure/chain/near"
	"github.com/chainsocial/social-api/internal/infrastructure/config"
	"github.com/chainsocial/social-api/internal/infrastructure/crypto"
	mongodb "github.com/chainsocial/social-api/internal/infrastructure/db/mongo"
	redisdb "github.com/chainsocial/social-api/internal/infrastructure/db/redis"
	"github.com/chainsocial/social-api/internal/infrastructure/queue"
	"github.com/chainsocial/social-api/internal/infrastructure/social"
	"github.com/chainsocial/social-api/pkg/logger"
)

const shutdownPeriod = 15 * time.Second

// @title                       Social API
// @version                     1.0
// @description                 Wallet authentication and social account verification.
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	ctx := context.Background()

	cfg, err := config.Load(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.Init(logger.ForEnv(cfg.Env, cfg.LogLevel, "social-api"))

	client, db, err := mongodb.Connect(ctx, mongodb.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database, AppName: "social-api"})
	if err != nil {
		log.Fatal().Err(err).Msg("connect mongodb")
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			log.Warn().Err(err).Msg("disconnect mongodb")
		}
	}()

	rdb, err := redisdb.Connect(ctx, redisdb.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
	if err != nil {
		log.Fatal().Err(err).Msg("connect redis")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Warn().Err(err).Msg("close redis")
		}
	}()

	identity := mongodb.NewIdentityRepository(db)
	people := mongodb.NewPeopleRepository(db)
	posts := mongodb.NewPostRepository(db)
	if err := mongodb.EnsureIndexes(ctx, identity, people, posts); err != nil {
		log.Fatal().Err(err).Msg("mongodb indexes")
	}

	runCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()

	dispatcher := queue.NewDispatcher(queue.Options{
		Workers:     cfg.Tasks.Workers,
		MaxAttempts: cfg.Tasks.MaxAttempts,
	}, redisdb.NewTaskLedger(rdb, 0), logger.Component("tasks"))
	dispatcher.Start(runCtx)

	authService := service.NewAuthService(service.AuthDeps{
		Repo:        identity,
		Verifier:    crypto.NewVerifier(),
		Tokens:      service.NewJWTIssuer(cfg.JWTSecret, cfg.TokenTTL),
		Currency:    mongodb.NewCurrencyStore(db, identity, cfg.SignupRewardAmount),
		Connections: mongodb.NewConnectionStore(db, cfg.OfficialAccount),
		Activity:    mongodb.NewActivityStore(db),
		Tasks:       dispatcher,
		AccessKeys:  near.NewAccessKeys(cfg.Chain.Timeout, logger.Component("near")),
	}, logger.Component("auth"))

	sweeper, err := newSweeper(cfg.Chain, posts, logger.Component("settlement"))
	if err != nil {
		log.Fatal().Err(err).Msg("configure settlement")
	}

	verifier := service.NewSocialVerifier(people, socialReaders(cfg.Social, log), sweeper, dispatcher, logger.Component("social"))

	e := api.NewRouter(api.Deps{
		Auth:   authService,
		Social: verifier,
		Checks: map[string]handler.Checker{
			"mongodb": handler.MongoChecker(db),
			"redis":   handler.RedisChecker(rdb),
		},
		JWTSecret: cfg.JWTSecret,
		Log:       log,
	})

	srvErrCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Msg("http server starting")
		srvErrCh <- e.Start(":" + cfg.Port)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-srvErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server error")
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownPeriod)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
	log.Info().Msg("server exited cleanly")
}

// newSweeper returns nil when no chain is configured, which disables
// escrow settlement after social verification.
func newSweeper(cfg config.ChainConfig, posts ports.PostRepository, log zerolog.Logger) (service.Sweeper, error) {
	if !cfg.Enabled() {
		log.Warn().Msg("chain not configured, escrow settlement disabled")
		return nil, nil
	}

	fee, err := cfg.Fee()
	if err != nil {
		return nil, err
	}
	deriver, err := evm.NewDeriver(cfg.Mnemonic, cfg.DerivationScheme, cfg.AddressFormat)
	if err != nil {
		return nil, err
	}
	chain := evm.NewClient(evm.Config{RPCURL: cfg.RPCURL, Fee: fee, Timeout: cfg.Timeout}, log)

	return service.NewSettlement(posts, chain, deriver, fee, log), nil
}

func socialReaders(cfg config.SocialConfig, log zerolog.Logger) map[domain.Platform]ports.SocialReader {
	opts := social.Options{
		Timeout:       cfg.Timeout,
		MaxRetries:    cfg.MaxRetries,
		RatePerSecond: cfg.RatePerSecond,
	}
	return map[domain.Platform]ports.SocialReader{
		domain.PlatformTwitter:  social.NewTwitter(cfg.TwitterURL, cfg.TwitterBearerToken, opts, log),
		domain.PlatformReddit:   social.NewReddit(cfg.RedditURL, cfg.RedditToken, cfg.RedditUserAgent, opts, log),
		domain.PlatformFacebook: social.NewFacebook(cfg.FacebookURL, cfg.FacebookAccessToken, opts, log),
	}
}
