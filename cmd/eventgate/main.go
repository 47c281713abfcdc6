// eventgate: servicio de check-in de eventos con migración de guests a
// identidades durables.
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

	"github.com/spf13/cobra"

	"github.com/dropDatabas3/eventgate/internal/cache"
	"github.com/dropDatabas3/eventgate/internal/config"
	"github.com/dropDatabas3/eventgate/internal/conversion"
	"github.com/dropDatabas3/eventgate/internal/credential"
	"github.com/dropDatabas3/eventgate/internal/email"
	"github.com/dropDatabas3/eventgate/internal/guest"
	convertctrl "github.com/dropDatabas3/eventgate/internal/http/controllers/convert"
	credentialctrl "github.com/dropDatabas3/eventgate/internal/http/controllers/credential"
	guestctrl "github.com/dropDatabas3/eventgate/internal/http/controllers/guest"
	healthctrl "github.com/dropDatabas3/eventgate/internal/http/controllers/health"
	sessionctrl "github.com/dropDatabas3/eventgate/internal/http/controllers/session"
	"github.com/dropDatabas3/eventgate/internal/http/router"
	convertsvc "github.com/dropDatabas3/eventgate/internal/http/services/convert"
	"github.com/dropDatabas3/eventgate/internal/identity"
	"github.com/dropDatabas3/eventgate/internal/migration"
	"github.com/dropDatabas3/eventgate/internal/observability/logger"
	"github.com/dropDatabas3/eventgate/internal/rate"
	tokens "github.com/dropDatabas3/eventgate/internal/security/token"
	"github.com/dropDatabas3/eventgate/internal/session"
	"github.com/dropDatabas3/eventgate/internal/store/docstore"
	memstore "github.com/dropDatabas3/eventgate/internal/store/docstore/memory"
	pgstore "github.com/dropDatabas3/eventgate/internal/store/docstore/pg"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:     "eventgate",
		Short:   "Event check-in service with guest-to-account migration",
		Version: version,
	}
	root.AddCommand(serveCmd(), genSecretCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cfgPath)
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config YAML")
	return cmd
}

func genSecretCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gen-secret",
		Short: "Generate a signing secret suitable for session.secret",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := tokens.GenerateOpaqueToken(session.MinSecretLen)
			if err != nil {
				return err
			}
			fmt.Println(s)
			return nil
		},
	}
}

func serve(cfgPath string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger.Init(logger.Config{
		Env:         cfg.App.Env,
		Level:       cfg.Log.Level,
		ServiceName: "eventgate",
		Version:     version,
	})
	defer logger.Sync()
	log := logger.L()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Storage.
	var store docstore.Store
	switch cfg.Storage.Driver {
	case "pg":
		store, err = pgstore.Connect(ctx, cfg.Storage.DSN)
		if err != nil {
			return fmt.Errorf("connect pg: %w", err)
		}
	default:
		store = memstore.New()
	}
	defer store.Close()

	// Cache.
	var cacheCli cache.Client
	switch cfg.Cache.Driver {
	case "redis":
		cacheCli, err = cache.NewRedis(cache.Config{
			Driver:   "redis",
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
			Prefix:   cfg.Cache.Redis.Prefix,
		})
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
	default:
		cacheCli = cache.NewMemory(cfg.Cache.Redis.Prefix)
	}
	defer cacheCli.Close()

	// Email.
	var sender email.Sender
	if cfg.SMTP.Host != "" {
		sender = email.NewSMTPSender(email.SMTPConfig{
			Host:               cfg.SMTP.Host,
			Port:               cfg.SMTP.Port,
			Username:           cfg.SMTP.Username,
			Password:           cfg.SMTP.Password,
			From:               cfg.SMTP.From,
			TLSMode:            cfg.SMTP.TLS,
			InsecureSkipVerify: cfg.SMTP.InsecureSkipVerify,
		})
	} else {
		log.Warn("no SMTP host configured, verification emails are logged only")
		sender = email.EchoSender{}
	}

	// Core.
	provider := identity.NewStoreProvider(store)
	engine := migration.NewEngine(store)
	registry := conversion.NewRegistry(store, engine)
	credIndex := credential.NewIndex(store)
	guestSvc := guest.NewService(store, cacheCli)

	sessions, err := session.NewManager(session.Config{
		Secret:         cfg.Session.Secret,
		PreviousSecret: cfg.Session.PreviousSecret,
		Env:            cfg.App.Env,
		TTL:            cfg.SessionTTL(),
		CookieName:     cfg.Session.CookieName,
		CookieDomain:   cfg.Session.CookieDomain,
		Secure:         cfg.Session.Secure,
	}, store, provider)
	if err != nil {
		return fmt.Errorf("session manager: %w", err)
	}

	mailer := &email.VerificationMailer{Sender: sender, BaseURL: cfg.Email.BaseURL}
	convertService := convertsvc.NewService(convertsvc.Deps{
		Registry:  registry,
		Engine:    engine,
		Provider:  provider,
		Mailer:    mailer,
		EchoLinks: cfg.Email.DebugEchoLinks && cfg.App.Env != "prod",
	})

	// Rate limiters.
	var registerLimiter, convertLimiter rate.Limiter
	if cfg.Rate.Enabled {
		registerLimiter = rate.New(cacheCli, "rl:reg:",
			cfg.Rate.Register.Limit, config.Window(cfg.Rate.Register.Window, time.Minute))
		convertLimiter = rate.New(cacheCli, "rl:conv:",
			cfg.Rate.Convert.Limit, config.Window(cfg.Rate.Convert.Window, 10*time.Minute))
	}

	handler := router.New(router.Deps{
		Guest:           guestctrl.NewController(guestSvc),
		Convert:         convertctrl.NewController(convertService, sessions),
		Credential:      credentialctrl.NewController(credIndex, sessions),
		Session:         sessionctrl.NewController(sessions),
		Health:          healthctrl.NewController(store, cacheCli),
		Sessions:        sessions,
		RegisterLimiter: registerLimiter,
		ConvertLimiter:  convertLimiter,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", logger.String("addr", cfg.Server.Addr), logger.String("env", cfg.App.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
