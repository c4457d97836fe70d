package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"banana_clicker/internal/db"
	"banana_clicker/internal/logger"
	"banana_clicker/internal/migrations"

	"github.com/joho/godotenv"
)

func main() {
	apply := flag.Bool("apply", false, "apply migrations (default: list them)")
	flag.Parse()

	_ = godotenv.Load()
	logger.Init(os.Getenv("LOG_LEVEL"), false)

	if !*apply {
		names, err := migrations.Names()
		if err != nil {
			logger.Fatal("list migrations", "error", err)
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return
	}

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		logger.Fatal("DATABASE_URL not set")
	}

	ctx := context.Background()
	pool := db.Connect(ctx, dsn)
	defer pool.Close()

	applied, err := migrations.Apply(ctx, pool)
	if err != nil {
		logger.Fatal("migration failed", "error", err)
	}
	for _, name := range applied {
		fmt.Printf("applied %s\n", name)
	}
}
