package bootstrap

import (
	"context"
	"crypto/x509"
	"database/sql"
	"fmt"
	"log"
	"strings"

	"github.com/gin-gonic/gin"

	"ballot-backend/internal/ballots"
	"ballot-backend/internal/extract"
	"ballot-backend/internal/pdfsig"
	"ballot-backend/internal/services/health"
	"ballot-backend/internal/shared/config"
	"ballot-backend/internal/shared/server"
	"ballot-backend/internal/shared/storage/db"
	"ballot-backend/internal/tokens"
)

// maxExtractPages bounds text extraction. Declarations are one or two pages.
const maxExtractPages = 20

// App holds shared dependencies.
type App struct {
	Config        config.Config
	Router        *gin.Engine
	DB            *sql.DB
	Votes         ballots.Store
	Tokens        tokens.Store
	Issuer        *tokens.Issuer
	Policy        ballots.Policy
	Pipeline      *ballots.Pipeline
	BallotHandler *ballots.Handler
	TokenHandler  *tokens.Handler
	Health        *health.Service

	closers []func() error
}

// Build prepares dependencies and wires routes.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	ctx := context.Background()

	app := &App{Config: cfg}
	if err := app.buildVotes(ctx); err != nil {
		return nil, err
	}
	if err := app.buildTokens(ctx); err != nil {
		app.Close()
		return nil, err
	}
	pipeline, err := BuildPipeline(cfg, app.Votes)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Pipeline = pipeline
	app.Policy = pipeline.Policy()

	app.BallotHandler = ballots.NewHandler(pipeline, app.Votes, app.Issuer, cfg.MaxUploadBytes)
	app.TokenHandler = tokens.NewHandler(app.Issuer)
	// A nil *sql.DB must not become a non-nil Pinger.
	if app.DB != nil {
		app.Health = health.NewService(app.DB)
	} else {
		app.Health = health.NewService(nil)
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:        cfg,
		Health:        app.Health,
		BallotHandler: app.BallotHandler,
		TokenHandler:  app.TokenHandler,
	})
	log.Printf("bootstrap: env=%s %s", cfg.Env, app.Policy)
	return app, nil
}

// BuildPipeline assembles the validation pipeline from configuration. The
// CLI uses it without a router.
func BuildPipeline(cfg config.Config, votes ballots.Store) (*ballots.Pipeline, error) {
	signers, err := ballots.NewSignerAllowList(cfg.AllowedSigners)
	if err != nil {
		return nil, err
	}
	if signers.Len() == 0 {
		return nil, fmt.Errorf("ALLOWED_SIGNERS must list at least one signer")
	}

	var roots *x509.CertPool
	if strings.TrimSpace(cfg.TrustRootsFile) != "" {
		roots, err = pdfsig.LoadRoots(cfg.TrustRootsFile)
		if err != nil {
			return nil, fmt.Errorf("load trust roots: %w", err)
		}
	}

	policy := ballots.Policy{
		Signers:        signers,
		Salt:           cfg.SaltKey,
		AllowUpdate:    cfg.AllowVoteUpdate,
		SkipTokenCheck: cfg.Debug && cfg.Env != "production",
	}
	if policy.SkipTokenCheck {
		log.Printf("bootstrap: DEBUG set; poll token text check is bypassed")
	}
	return ballots.NewPipeline(policy, pdfsig.NewValidator(roots), extract.PDFExtractor{MaxPages: maxExtractPages}, votes), nil
}

func (a *App) buildVotes(ctx context.Context) error {
	sqlDB, dialect, err := buildDB(ctx, a.Config)
	if err != nil {
		return err
	}
	if sqlDB == nil {
		a.Votes = ballots.NewMemoryRepo()
		return nil
	}
	a.DB = sqlDB
	a.closers = append(a.closers, sqlDB.Close)
	a.Votes = ballots.NewSQLRepo(sqlDB, dialect)
	return nil
}

func (a *App) buildTokens(ctx context.Context) error {
	if strings.TrimSpace(a.Config.RedisURL) == "" {
		a.Tokens = tokens.NewMemoryStore()
	} else {
		store, err := tokens.NewRedisStore(ctx, a.Config.RedisURL)
		if err != nil {
			if !config.IsDevLike(a.Config.Env) {
				return err
			}
			log.Printf("bootstrap: redis unavailable; using in-memory poll tokens: %v", err)
			a.Tokens = tokens.NewMemoryStore()
		} else {
			a.Tokens = store
			a.closers = append(a.closers, store.Close)
		}
	}
	a.Issuer = tokens.NewIssuer(a.Tokens, a.Config.PollTokenTTL)
	return nil
}

// buildDB connects and migrates when DATABASE_URL is set. Dev-like
// environments fall back to memory when the database is unreachable.
func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, db.Dialect, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if config.IsDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory vote store")
			return nil, "", nil
		}
		return nil, "", fmt.Errorf("DATABASE_URL is required")
	}

	target, err := db.ParseURL(cfg.DatabaseURL)
	if err != nil {
		return nil, "", err
	}
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
	if err == nil {
		if err = db.RunMigrations(ctx, sqlDB, target.Dialect); err != nil {
			_ = sqlDB.Close()
			err = fmt.Errorf("run migrations: %w", err)
		}
	}
	if err != nil {
		if config.IsDevLike(cfg.Env) {
			log.Printf("bootstrap: database unavailable; using in-memory vote store: %v", err)
			return nil, "", nil
		}
		return nil, "", err
	}
	return sqlDB, target.Dialect, nil
}

// Close releases the database and token store connections.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Printf("bootstrap: close: %v", err)
		}
	}
	a.closers = nil
}
