package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gofiber/fiber/v2"
	portal "github.com/goliatone/go-portal"
	"github.com/goliatone/go-portal/config"
	"github.com/goliatone/go-portal/logging"
	"github.com/goliatone/go-portal/marketplace"
	"github.com/goliatone/go-portal/middleware/jwtware"
	"github.com/goliatone/go-portal/storage"
	"github.com/goliatone/go-router"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/driver/sqliteshim"
)

type App struct {
	config  *config.Config
	logger  *logging.ZapLogger
	bunDB   *bun.DB
	repo    portal.RepositoryManager
	srv     router.Server[*fiber.App]
	auther  *portal.RouteAuthenticator
	apiAuth portal.Authenticator
	store   *storage.S3Store
}

func (a *App) GetLogger(name string) portal.Logger {
	return a.logger.Named(name)
}

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	lgr, err := logging.New(cfg.App.Name, cfg.App.Debug)
	if err != nil {
		panic(fmt.Sprintf("Failed to build logger: %v", err))
	}
	defer lgr.Sync()

	app := &App{
		config: cfg,
		logger: lgr,
	}

	if err := WithPersistence(ctx, app); err != nil {
		panic(err)
	}

	if err := WithHTTPServer(ctx, app); err != nil {
		panic(err)
	}

	if err := WithHTTPAuth(ctx, app); err != nil {
		panic(err)
	}

	if err := WithStorage(ctx, app); err != nil {
		panic(err)
	}

	if err := WithMarketplace(ctx, app); err != nil {
		panic(err)
	}

	lgr.Info("listening on %s", cfg.Server.Addr())
	app.srv.Serve(cfg.Server.Addr())

	WaitExitSignal()
}

func WithPersistence(ctx context.Context, app *App) error {
	cfg := app.config.Database

	var sqldb *sql.DB
	var err error

	switch cfg.Driver {
	case "postgres":
		sqldb = sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.DSN)))
		if err := portal.RunMigrations(ctx, sqldb, "postgres"); err != nil {
			return err
		}
		app.bunDB = bun.NewDB(sqldb, pgdialect.New())
	default:
		sqldb, err = sql.Open(sqliteshim.ShimName, cfg.DSN)
		if err != nil {
			return err
		}
		if err := portal.RunMigrations(ctx, sqldb, "sqlite3"); err != nil {
			return err
		}
		app.bunDB = bun.NewDB(sqldb, sqlitedialect.New())
	}

	app.repo = portal.NewRepositoryManager(app.bunDB)

	return app.repo.Validate()
}

func WithHTTPServer(ctx context.Context, app *App) error {
	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return router.DefaultFiberOptions(fiber.New(fiber.Config{
			AppName:       app.config.App.Name,
			UnescapePath:  true,
			StrictRouting: false,
		}))
	})

	srv.Router().Get("/health", func(ctx router.Context) error {
		return ctx.JSON(router.StatusOK, map[string]any{
			"status": "up",
		})
	})

	app.srv = srv

	return nil
}

// userTrackerAdapter narrows the Users repository to the tracker
// interface the identity provider wants.
type userTrackerAdapter struct {
	users portal.Users
}

func (a userTrackerAdapter) GetByIdentifier(ctx context.Context, identifier string) (*portal.User, error) {
	return a.users.GetByIdentifier(ctx, identifier)
}

func (a userTrackerAdapter) TrackAttemptedLogin(ctx context.Context, user *portal.User) error {
	return a.users.TrackAttemptedLogin(ctx, user)
}

func (a userTrackerAdapter) TrackSucccessfulLogin(ctx context.Context, user *portal.User) error {
	return a.users.TrackSucccessfulLogin(ctx, user)
}

func WithHTTPAuth(ctx context.Context, app *App) error {
	cfg := app.config.Auth

	userProvider := portal.NewUserProvider(userTrackerAdapter{users: app.repo.Users()})
	userProvider.WithLogger(app.GetLogger("auth:prv"))

	authenticator := portal.NewAuthenticator(userProvider, cfg)
	authenticator.WithLogger(app.GetLogger("auth"))

	// The API surface mints short lived bearer tokens against the same
	// signing material.
	apiAuth := portal.NewAuthenticator(userProvider, app.config.APIAuth)
	apiAuth.WithLogger(app.GetLogger("auth:api"))
	app.apiAuth = apiAuth

	httpAuth, err := portal.NewHTTPAuthenticator(authenticator, cfg)
	if err != nil {
		return err
	}
	httpAuth.WithLogger(app.GetLogger("auth:http"))
	app.auther = httpAuth

	apiErrHandler := httpAuth.MakeAPIAuthErrorHandler()
	clientErrHandler := httpAuth.MakeClientRouteAuthErrorHandler(false)

	// One access middleware covers both surfaces: the cookie extractor
	// serves the portal, the bearer header serves the API. Public routes
	// go on the allow list; role checks live in the handlers.
	allowed := append([]string{
		"/",
		"/health",
		"/auth/login",
		"/auth/register",
		"/auth/logout",
	}, marketplace.PublicPaths()...)

	app.srv.Router().Use(jwtware.New(jwtware.Config{
		Filter: jwtware.AllowPaths(allowed...),
		ErrorHandler: func(c router.Context, err error) error {
			if strings.HasPrefix(c.Path(), "/api/") {
				return apiErrHandler(c, err)
			}
			return clientErrHandler(c, err)
		},
		TokenValidator:  portal.NewTokenValidator(authenticator.TokenService()),
		AuthScheme:      cfg.GetAuthScheme(),
		ContextKey:      cfg.GetContextKey(),
		TokenLookup:     "cookie:auth-token,header:Authorization",
		ContextEnricher: portal.ContextEnricherAdapter,
	}))

	portal.RegisterAuthRoutes(app.srv.Router().Group("/"),
		func(ac *portal.AuthController) *portal.AuthController {
			ac.Debug = app.config.App.Debug
			ac.Auther = httpAuth
			ac.Repo = app.repo
			ac.Logger = app.GetLogger("auth:ctrl")
			ac.ContextKey = cfg.GetContextKey()
			return ac
		})

	return nil
}

func WithStorage(ctx context.Context, app *App) error {
	cfg := app.config.S3

	store, err := storage.NewS3Store(ctx, storage.S3Config{
		Region:    cfg.Region,
		Endpoint:  cfg.Endpoint,
		Bucket:    cfg.Bucket,
		BucketURL: cfg.BucketURL,
		AccessKey: cfg.AccessKey,
		SecretKey: cfg.SecretKey,
	})
	if err != nil {
		return err
	}
	app.store = store

	files := storage.NewFilesRepository(app.bunDB)

	controller := storage.NewFilesController(files, store,
		func(c *storage.FilesController) *storage.FilesController {
			c.Logger = app.GetLogger("files")
			c.ContextKey = app.config.Auth.GetContextKey()
			return c
		})
	storage.RegisterFileRoutes(app.srv.Router(), controller)

	admin := storage.NewAdminController(files, store, app.repo.Users(),
		func(c *storage.AdminController) *storage.AdminController {
			c.Logger = app.GetLogger("admin")
			c.ContextKey = app.config.Auth.GetContextKey()
			return c
		})
	storage.RegisterAdminRoutes(app.srv.Router(), admin)

	return nil
}

func WithMarketplace(ctx context.Context, app *App) error {
	providers := marketplace.NewProvidersRepository(app.bunDB)
	states := marketplace.NewStatesRepository(app.bunDB)
	cities := marketplace.NewCitiesRepository(app.bunDB)

	mailer := marketplace.NewResendMailer(app.config.Email.ResendAPIKey, app.config.Email.From)

	service := marketplace.NewProviderService(app.repo, providers, mailer)
	service.WithLogger(app.GetLogger("market:svc"))

	controller := marketplace.NewController(
		func(c *marketplace.Controller) *marketplace.Controller {
			c.Logger = app.GetLogger("market")
			c.Repo = app.repo
			c.Service = service
			c.Providers = providers
			c.States = states
			c.Cities = cities
			c.Auth = app.apiAuth
			c.Documents = app.store
			c.ContextKey = app.config.APIAuth.GetContextKey()
			return c
		})
	marketplace.RegisterRoutes(app.srv.Router(), controller)

	return nil
}

func WaitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}
