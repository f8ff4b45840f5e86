package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/hrj2233/blog-app-api/auth"
	"github.com/hrj2233/blog-app-api/auth/provider/google"
	"github.com/hrj2233/blog-app-api/config"
	"github.com/hrj2233/blog-app-api/middleware/jwtware"
	"github.com/hrj2233/blog-app-api/notifier"
	"github.com/hrj2233/blog-app-api/otp"
	"github.com/hrj2233/blog-app-api/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()

	sqldb, err := sql.Open(sqliteshim.ShimName, cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	db := bun.NewDB(sqldb, sqlitedialect.New())

	if err := repository.CreateSchema(ctx, db); err != nil {
		log.Fatalf("create schema: %v", err)
	}

	users := repository.NewUsers(db)

	tokens, err := auth.NewTokenService(auth.TokenOptions{
		ActivationSecret: []byte(cfg.ActiveTokenSecret),
		AccessSecret:     []byte(cfg.AccessTokenSecret),
		RefreshSecret:    []byte(cfg.RefreshTokenSecret),
		ActivationTTL:    cfg.ActiveTokenTTL,
		AccessTTL:        cfg.AccessTokenTTL,
		RefreshTTL:       cfg.RefreshTokenTTL,
		Issuer:           cfg.TokenIssuer,
	}, nil)
	if err != nil {
		log.Fatalf("token service: %v", err)
	}

	email, err := notifier.NewEmail(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.EmailFrom)
	if err != nil {
		log.Fatalf("email notifier: %v", err)
	}

	sms := notifier.NewSMS(cfg.SMSAPIKey,
		notifier.WithSMSSender(cfg.SMSSender),
		notifier.WithSMSDryRun(cfg.SMSDryRun),
	)

	codes := otp.NewClient(cfg.OTPBaseURL, cfg.OTPAPIKey, otp.WithDryRun(cfg.OTPDryRun))

	opts := []auth.AuthenticatorOption{
		auth.WithBaseURL(cfg.BaseURL),
		auth.WithEmailNotifier(email),
		auth.WithSMSNotifier(sms),
		auth.WithOneTimeCodeService(codes),
	}

	if cfg.GoogleClientID != "" {
		verifier, err := google.NewVerifier(google.Config{ClientID: cfg.GoogleClientID})
		if err != nil {
			log.Fatalf("google verifier: %v", err)
		}
		opts = append(opts, auth.WithIdentityTokenVerifier(verifier))
	}

	auther := auth.NewAuthenticator(users, tokens, opts...)

	controller := auth.NewController(auther,
		auth.WithDebug(cfg.Debug),
		auth.WithRefreshCookieTTL(cfg.RefreshTokenTTL),
	)

	protect := jwtware.New(jwtware.Config{Verifier: tokens})

	app := fiber.New()
	api := app.Group("/api")
	controller.RegisterRoutes(api, protect)

	go func() {
		if err := app.Listen(cfg.HTTPAddr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	WaitExitSignal()

	if err := app.Shutdown(); err != nil {
		log.Printf("shutdown: %v", err)
	}
	if err := db.Close(); err != nil {
		log.Printf("close database: %v", err)
	}
}

// WaitExitSignal blocks until the process receives a termination signal.
func WaitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}
