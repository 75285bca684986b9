package main

import (
	"context"
	"log"
	"time"

	"prodstudio/internal/config"
	"prodstudio/internal/database"
	"prodstudio/internal/modules/booking"
	"prodstudio/internal/pkg/lock"
	"prodstudio/internal/repository"
)

// sweep completes every active booking dated before today and exits.
// Meant for cron deployments that set COMPLETION_SWEEP_INTERVAL=0 on the API.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}()

	svc := booking.NewService(repository.NewBookingRepository(db), lock.NewMemoryLocker(), nil)
	n, err := booking.NewSweeper(svc, time.Hour).RunOnce(context.Background())
	if err != nil {
		log.Fatalf("booking sweep failed: %v", err)
	}
	log.Printf("booking sweep finished completed=%d", n)
}
