package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("ping database: %v", err)
	}

	seedUsers(ctx, pool)
	seedProducts(ctx, pool)

	log.Println("Seeding completed successfully!")
}

func seedUsers(ctx context.Context, pool *pgxpool.Pool) {
	users := []struct {
		Username string
		Password string
		Role     string
	}{
		{"admin", "admin-ganti-saya", "admin"},
		{"kasir", "kasir-ganti-saya", "kasir"},
	}

	fmt.Println("Seeding Users...")
	for _, u := range users {
		hash, err := argon2id.CreateHash(u.Password, argon2id.DefaultParams)
		if err != nil {
			log.Fatalf("hash password for %s: %v", u.Username, err)
		}
		_, err = pool.Exec(ctx, `
INSERT INTO users (username, password_hash, role)
VALUES ($1, $2, $3)
ON CONFLICT (username) DO NOTHING`, u.Username, hash, u.Role)
		if err != nil {
			log.Fatalf("seed user %s: %v", u.Username, err)
		}
	}
}

func seedProducts(ctx context.Context, pool *pgxpool.Pool) {
	// Paper stock is counted in rim, everything else in pcs.
	products := []struct {
		Name      string
		Barcode   string
		Category  string
		SellPrice int64
		CostPrice int64
		Stock     int
		Photocopy bool
	}{
		{"Fotocopy", "", "Jasa", 300, 0, 0, true},
		{"Kertas HVS A4 70gr", "8997011230014", "Kertas", 48000, 43000, 20, false},
		{"Kertas HVS F4 70gr", "8997011230021", "Kertas", 52000, 46500, 10, false},
		{"Pulpen Standard AE7", "8886365201117", "ATK", 2500, 1800, 144, false},
		{"Pensil 2B Faber-Castell", "8991907770026", "ATK", 4000, 3000, 60, false},
		{"Penghapus Joyko", "", "ATK", 2000, 1300, 40, false},
		{"Buku Tulis 38 Lembar", "8998989110013", "ATK", 4500, 3500, 120, false},
		{"Spidol Snowman Hitam", "8993212340015", "ATK", 8000, 6200, 24, false},
		{"Map Plastik", "", "ATK", 3000, 2000, 50, false},
		{"Amplop Putih", "", "ATK", 500, 300, 200, false},
		{"Lem Kertas Glukol", "", "ATK", 5000, 3800, 30, false},
	}

	fmt.Println("Seeding Products...")
	for _, p := range products {
		var barcode *string
		if p.Barcode != "" {
			barcode = &p.Barcode
		}
		_, err := pool.Exec(ctx, `
INSERT INTO products (name, barcode, category, sell_price, cost_price, stock, is_photocopy)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT DO NOTHING`, p.Name, barcode, p.Category, p.SellPrice, p.CostPrice, p.Stock, p.Photocopy)
		if err != nil {
			log.Fatalf("seed product %s: %v", p.Name, err)
		}
	}
}
