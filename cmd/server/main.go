// cmd/server/main.go
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

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/nulldental/license-server/internal/config"
	"github.com/nulldental/license-server/internal/database"
	"github.com/nulldental/license-server/internal/licensing"
	"github.com/nulldental/license-server/internal/router"
	"github.com/nulldental/license-server/internal/services"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	// Initialize database
	db, err := database.Initialize(cfg.Database)
	if err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	defer database.Close(db)

	// Run database migrations
	if err := database.RunMigrations(db); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	// Seed admin account and default settings
	if err := database.SeedInitialData(db, cfg); err != nil {
		log.Fatal("Failed to seed initial data:", err)
	}

	// Load or generate the license signing keypair
	keyStore, err := buildKeyStore(cfg)
	if err != nil {
		log.Fatal("Failed to initialize key storage:", err)
	}

	keys, err := licensing.NewKeyProvider(keyStore)
	if err != nil {
		log.Fatal("Failed to initialize signing keys:", err)
	}
	if keys.Degraded() {
		logrus.Warn("running with in-memory signing keys; issued licenses will not survive a restart")
	}

	codec := licensing.NewTokenCodec(keys, cfg.License.Issuer, cfg.License.Audience)

	// Set Gin mode
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize router
	r := router.Initialize(db, cfg, codec)

	// Daily sweep for licenses nearing the end of their support window
	expiryNotifier := services.NewNotificationService(db, cfg, services.NewSettingsService(db))
	go func() {
		expiryNotifier.SweepExpiringLicenses()
		for range time.Tick(24 * time.Hour) {
			expiryNotifier.SweepExpiringLicenses()
		}
	}()

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server:", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Create a deadline for shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Shutdown server
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}

func buildKeyStore(cfg *config.Config) (licensing.KeyStore, error) {
	if cfg.License.S3Bucket != "" {
		return licensing.NewS3KeyStore(
			cfg.License.S3Region,
			cfg.License.AWSAccessKeyID,
			cfg.License.AWSSecretKey,
			cfg.License.S3Bucket,
			cfg.License.S3Prefix,
		)
	}
	return licensing.NewFileKeyStore(cfg.License.KeysDir), nil
}
