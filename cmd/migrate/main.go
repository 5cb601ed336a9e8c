package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/mailmerge/internal/store"
)

func main() {
	_ = godotenv.Load()
	ctx := context.Background()

	dbURL := envOr("DATABASE_URL", "mailmerge.db")

	// Open applies any pending migrations before returning.
	db, err := store.Open(ctx, dbURL)
	if err != nil {
		slog.Error("migration failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	fmt.Println("migrations complete")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
