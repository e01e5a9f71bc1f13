package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/DangLinWang11/tip-app-sub004/config"
	"github.com/DangLinWang11/tip-app-sub004/internal/database"
	"github.com/DangLinWang11/tip-app-sub004/internal/server"
	"github.com/DangLinWang11/tip-app-sub004/internal/service"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.New(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	redisClient, err := database.NewRedisClient(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}

	ctx := context.Background()
	s3Cfg, err := config.NewS3Config(ctx)
	if err != nil {
		log.Fatalf("Failed to initialize S3 client: %v", err)
	}
	if err := s3Cfg.SetupBucketPolicy(ctx); err != nil {
		// Without a public bucket policy, download URLs fall back to presigning.
		log.Printf("Could not apply public bucket policy, using presigned URLs: %v", err)
	}

	srv := server.New(cfg, db, redisClient, service.NewS3ObjectStore(s3Cfg))

	errChan := make(chan error, 1)
	go func() {
		log.Printf("Starting server on %s:%s", cfg.ServerHost, cfg.ServerPort)
		errChan <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		if err != nil {
			log.Fatalf("Server error: %v", err)
		}
	case sig := <-quit:
		log.Printf("Received signal: %v", sig)
	}

	log.Println("Shutting down server...")
	if err := srv.Shutdown(context.Background()); err != nil {
		log.Fatalf("Server shutdown error: %v", err)
	}
	log.Println("Server stopped")
}
