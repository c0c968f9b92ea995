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

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-campaign-go/internal/auth"
	authrepo "github.com/ovaphlow/pitchfork/service-campaign-go/internal/auth/repo"
	"github.com/ovaphlow/pitchfork/service-campaign-go/internal/campaign"
	campaignrepo "github.com/ovaphlow/pitchfork/service-campaign-go/internal/campaign/repo"
	"github.com/ovaphlow/pitchfork/service-campaign-go/internal/config"
	"github.com/ovaphlow/pitchfork/service-campaign-go/internal/router"
	"github.com/ovaphlow/pitchfork/service-campaign-go/internal/storage/memory"
	"github.com/ovaphlow/pitchfork/service-campaign-go/internal/user"
	userrepo "github.com/ovaphlow/pitchfork/service-campaign-go/internal/user/repo"
	"github.com/ovaphlow/pitchfork/service-campaign-go/pkg/database"
	"github.com/ovaphlow/pitchfork/service-campaign-go/pkg/utilities"
)

// stores groups the persistence backends selected at startup.
type stores struct {
	users     user.Store
	campaigns campaign.Store
	denylist  auth.Denylist
	ping      func(context.Context) error
	close     func() error
}

func main() {
	// best-effort: without a .env file the real environment is used as is
	_ = godotenv.Load()

	lg, err := utilities.Init(utilities.ConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()

	sugar := lg.Sugar()
	sugar.Info("starting service-campaign-go")

	cfg, err := config.Load()
	if err != nil {
		sugar.Fatalf("config: %v", err)
	}

	dbCfg, err := database.ConfigFromEnv()
	if err != nil {
		sugar.Fatalf("db config: %v", err)
	}
	st, err := openStores(dbCfg, sugar)
	if err != nil {
		sugar.Fatalf("db connect: %v", err)
	}
	defer st.close()

	hasher, err := auth.NewBcryptHasher(cfg.BcryptCost)
	if err != nil {
		sugar.Fatalf("hasher: %v", err)
	}
	tokens, err := auth.NewTokenIssuer([]byte(cfg.JWTSecret), cfg.JWTTTL, cfg.JWTIssuer)
	if err != nil {
		sugar.Fatalf("token issuer: %v", err)
	}
	ids := utilities.NewIDGenerator(cfg.SnowflakeNode)

	gate := auth.NewGate(tokens, st.users, st.denylist, cfg.StoreTimeout, sugar)
	userSvc := user.NewUserService(st.users, hasher, tokens, ids, cfg.StoreTimeout)
	campaignSvc := campaign.NewService(st.campaigns, st.users, ids, cfg.StoreTimeout)

	handler := router.RegisterRoutes(sugar, router.Deps{
		Users:          user.NewHandler(userSvc, gate, sugar),
		Campaigns:      campaign.NewHandler(campaignSvc, sugar),
		Gate:           gate,
		AllowedOrigins: cfg.AllowedOrigins,
		Ping:           st.ping,
	})
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go pruneRevoked(ctx, st.denylist, cfg.PruneInterval, sugar)

	go func() {
		sugar.Infow("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalf("http server failed: %v", err)
		}
	}()

	<-ctx.Done()

	sugar.Info("shutting down")

	doneCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(doneCtx); err != nil {
		sugar.Warnf("http server shutdown failed: %v", err)
	}

	sugar.Info("goodbye")
}

func openStores(cfg database.Config, logger *zap.SugaredLogger) (*stores, error) {
	if cfg.InMemory() {
		logger.Warn("using in-memory store; data is lost on restart")
		m := memory.New()
		return &stores{
			users:     m.Users(),
			campaigns: m.Campaigns(),
			denylist:  m.Revoked(),
			ping:      m.Ping,
			close:     func() error { return nil },
		}, nil
	}

	sqlDB, err := database.Connect(cfg)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := database.Migrate(ctx, sqlDB); err != nil {
		sqlDB.Close()
		return nil, err
	}

	db := sqlx.NewDb(sqlDB, "postgres")
	return &stores{
		users:     userrepo.NewUserRepo(db),
		campaigns: campaignrepo.NewCampaignRepo(db),
		denylist:  authrepo.NewRevokedRepo(db),
		ping:      db.PingContext,
		close:     db.Close,
	}, nil
}

// pruneRevoked drops denylist entries whose tokens have expired anyway.
func pruneRevoked(ctx context.Context, d auth.Denylist, every time.Duration, logger *zap.SugaredLogger) {
	if every <= 0 {
		return
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			pctx, cancel := context.WithTimeout(ctx, 30*time.Second)
			n, err := d.Prune(pctx)
			cancel()
			if err != nil {
				logger.Warnw("prune revoked tokens failed", "err", err)
				continue
			}
			if n > 0 {
				logger.Debugw("pruned revoked tokens", "count", n)
			}
		}
	}
}
