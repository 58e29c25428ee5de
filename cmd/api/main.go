package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/identity-api/internal/config"
	"github.com/identity-api/internal/infrastructure/dynamo"
	s3infra "github.com/identity-api/internal/infrastructure/s3"
	"github.com/identity-api/internal/infrastructure/smtp"
	"github.com/identity-api/internal/infrastructure/sns"
	"github.com/identity-api/internal/infrastructure/token"
	transporthttp "github.com/identity-api/internal/transport/http"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()

	// Bootstrap the identities table (created if it doesn't exist).
	dynamoClient := dynamo.NewClient(cfg)
	dynamo.Bootstrap(context.Background(), dynamoClient, cfg.DynamoTableIdentities)

	tokens, err := token.NewProvider(cfg.JWTSecret)
	if err != nil {
		log.Fatalf("token provider: %v", err)
	}

	s3Client := s3infra.NewClient(cfg)
	avatarStore := s3infra.NewStore(s3Client, cfg.S3BucketName)

	mailer := smtp.NewMailer(cfg)

	// Registration and phone-channel dispatch depend on SMS delivery, so a
	// broken SNS setup is a startup failure, not a degraded mode.
	smsSender, err := sns.NewSender(cfg)
	if err != nil {
		log.Fatalf("sns sender: %v", err)
	}

	deps := &transporthttp.Deps{
		IdentityRepo: dynamo.NewIdentityRepo(dynamoClient, cfg.DynamoTableIdentities),
		AvatarStore:  avatarStore,
		Mailer:       mailer,
		SMSSender:    smsSender,
		Tokens:       tokens,
	}

	router := transporthttp.NewRouter(cfg, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (env=%s)", cfg.AppPort, cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}
