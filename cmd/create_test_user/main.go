package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"banana_clicker/internal/clock"
	"banana_clicker/internal/db"
	"banana_clicker/internal/domain"
	"banana_clicker/internal/game"
	"banana_clicker/internal/logger"
	"banana_clicker/internal/repository"
	"banana_clicker/internal/service"

	"github.com/joho/godotenv"
)

// Seeds a progress record and prints a token for it. Dev only.
func main() {
	userID := flag.Int64("user", 1234567890, "user id")
	balance := flag.Int64("balance", 0, "starting balance for a new record")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	_ = godotenv.Load()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		logger.Fatal("DATABASE_URL not set")
	}
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		logger.Fatal("JWT_SECRET not set")
	}

	ctx := context.Background()
	pool := db.Connect(ctx, dsn)
	defer pool.Close()

	repo := repository.NewProgressRepository(pool)
	existing, err := repo.Get(ctx, *userID)
	switch {
	case err == nil:
		logger.Info("progress already exists", "user_id", existing.UserID, "balance", existing.Balance)
	case errors.Is(err, repository.ErrNotFound):
		p := domain.NewUserProgress(*userID, clock.RealClock{}.Now())
		p.Balance = *balance
		game.Recompute(p)
		if err := repo.Upsert(ctx, p); err != nil {
			logger.Fatal("create progress failed", "error", err)
		}
		logger.Info("progress created", "user_id", p.UserID, "balance", p.Balance)
	default:
		logger.Fatal("load progress failed", "error", err)
	}

	service.InitJWT(secret)
	token, err := service.GenerateJWT(*userID, *ttl)
	if err != nil {
		logger.Fatal("failed to generate token", "error", err)
	}
	fmt.Println(token)
}
