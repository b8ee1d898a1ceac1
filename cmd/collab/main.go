package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gnhindia1-ui/collab/internal/auth"
	"github.com/gnhindia1-ui/collab/internal/config"
	"github.com/gnhindia1-ui/collab/internal/content"
	"github.com/gnhindia1-ui/collab/internal/db"
	"github.com/gnhindia1-ui/collab/internal/httpserver"
	"github.com/gnhindia1-ui/collab/internal/logging"
	"github.com/gnhindia1-ui/collab/internal/mail"
	"github.com/gnhindia1-ui/collab/internal/permissions"
	"github.com/gnhindia1-ui/collab/internal/products"
	"github.com/gnhindia1-ui/collab/internal/throttle"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	dbConn, err := db.Open(ctx, cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer dbConn.Close()

	if err := db.RunMigrations(ctx, dbConn); err != nil {
		log.Fatalf("run migrations: %v", err)
	}

	catalogConn, err := db.Open(ctx, cfg.CatalogDriver, cfg.CatalogDSN)
	if err != nil {
		log.Fatalf("open catalog db: %v", err)
	}
	defer catalogConn.Close()

	userStore := auth.NewStore(dbConn)
	if cfg.UsersPath != "" {
		n, err := userStore.SeedFromFile(ctx, cfg.UsersPath)
		if err != nil {
			log.Fatalf("seed users: %v", err)
		}
		if n > 0 {
			logger.Info("seeded bootstrap accounts", "count", n)
		}
	}

	permStore := permissions.NewStore(dbConn)
	if n, err := permStore.SeedFromFile(ctx, cfg.PermissionsPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("seed column permissions: %v", err)
	} else if n > 0 {
		logger.Info("seeded default column locks", "roles", n)
	}

	var mailer mail.Sender = mail.LogSender{Logger: logger}
	if cfg.SMTPHost != "" {
		smtp, err := mail.NewSMTPSender(mail.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.MailFrom,
		})
		if err != nil {
			log.Fatalf("smtp: %v", err)
		}
		mailer = smtp
	} else {
		logger.Warn("COLLAB_SMTP_HOST not set, password reset mail will not be delivered")
	}

	var limiter auth.ResetLimiter
	if cfg.RedisAddr != "" {
		rl, err := throttle.NewRedisLimiter(ctx, cfg.RedisAddr, "collab:reset:", int(cfg.ResetLimit), cfg.ResetWindow)
		if err != nil {
			log.Fatalf("reset limiter: %v", err)
		}
		defer rl.Close()
		limiter = rl
	}

	sessions := auth.NewSessions(cfg.SessionSecret, cfg.Production())
	authSvc := auth.NewService(userStore, sessions, mailer, limiter, cfg.BaseURL, logger)

	productStore := products.NewStore(catalogConn, cfg.CatalogTable)
	engine := permissions.NewEngine(permStore, productStore)

	var contentSvcs []*content.Service
	for _, k := range content.Kinds {
		contentSvcs = append(contentSvcs, content.NewService(content.NewStore(dbConn, k), userStore, cfg.EditPolicy))
	}

	handler := httpserver.NewRouter(httpserver.Deps{
		Logger:        logger,
		Metrics:       httpserver.NewMetrics("collab"),
		Auth:          authSvc,
		Permissions:   engine,
		Products:      productStore,
		Content:       contentSvcs,
		AllowedOrigin: cfg.BaseURL,
	})
	server := httpserver.New(cfg.HTTPAddr, handler, logger)
	logger.Info("configuration loaded",
		"db_driver", cfg.DBDriver,
		"catalog_driver", cfg.CatalogDriver,
		"edit_policy", cfg.EditPolicy.String(),
		"reset_throttle", limiter != nil,
	)

	go func() {
		if err := server.Start(); err != nil {
			log.Fatalf("http server: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
