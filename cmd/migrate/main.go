package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	_ "github.com/lib/pq"

	"github.com/foodgram/foodgram/backend/config"
	"github.com/foodgram/foodgram/backend/internal/database"
)

func main() {
	rollback := flag.Bool("rollback", false, "Rollback the last migration")
	status := flag.Bool("status", false, "List migrations and whether they are applied")
	flag.Parse()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		cfg, err := config.LoadConfig()
		if err != nil {
			log.Fatalf("DATABASE_URL is not set and configuration failed to load: %v", err)
		}
		if cfg.Database.Driver != "postgres" {
			log.Fatalf("migrate only manages postgres databases, configured driver is %q", cfg.Database.Driver)
		}
		dsn = cfg.Database.DSN()
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS migrations (
			id SERIAL PRIMARY KEY,
			name VARCHAR(255) NOT NULL UNIQUE,
			applied_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		log.Fatalf("failed to create migrations table: %v", err)
	}

	migrations, err := database.Migrations()
	if err != nil {
		log.Fatalf("failed to load migrations: %v", err)
	}

	switch {
	case *status:
		printStatus(db, migrations)
	case *rollback:
		rollbackLast(db, migrations)
	default:
		applyAll(db, migrations)
	}
}

func isApplied(db *sql.DB, name string) bool {
	var applied bool
	if err := db.QueryRow("SELECT EXISTS (SELECT 1 FROM migrations WHERE name = $1)", name).Scan(&applied); err != nil {
		log.Fatalf("failed to check migration status: %v", err)
	}
	return applied
}

func printStatus(db *sql.DB, migrations []database.Migration) {
	for _, m := range migrations {
		state := "pending"
		if isApplied(db, m.Name) {
			state = "applied"
		}
		fmt.Printf("%-40s %s\n", m.Name, state)
	}
}

func applyAll(db *sql.DB, migrations []database.Migration) {
	for _, m := range migrations {
		if isApplied(db, m.Name) {
			fmt.Printf("Migration already applied: %s\n", m.Name)
			continue
		}

		fmt.Printf("Applying migration: %s\n", m.Name)
		err := inTx(db, func(tx *sql.Tx) error {
			if _, err := tx.Exec(m.Up); err != nil {
				return fmt.Errorf("failed to apply migration %s: %w", m.Name, err)
			}
			if _, err := tx.Exec("INSERT INTO migrations (name) VALUES ($1)", m.Name); err != nil {
				return fmt.Errorf("failed to record migration: %w", err)
			}
			return nil
		})
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("Successfully applied migration: %s\n", m.Name)
	}

	fmt.Println("All migrations applied successfully.")
}

func rollbackLast(db *sql.DB, migrations []database.Migration) {
	var last string
	err := db.QueryRow("SELECT name FROM migrations ORDER BY applied_at DESC, id DESC LIMIT 1").Scan(&last)
	if errors.Is(err, sql.ErrNoRows) {
		log.Fatal("No migrations to rollback")
	}
	if err != nil {
		log.Fatalf("failed to get last migration: %v", err)
	}

	var target *database.Migration
	for i := range migrations {
		if migrations[i].Name == last {
			target = &migrations[i]
			break
		}
	}
	if target == nil || target.Rollback == "" {
		log.Fatalf("no rollback script for migration %s", last)
	}

	err = inTx(db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(target.Rollback); err != nil {
			return fmt.Errorf("failed to execute rollback: %w", err)
		}
		if _, err := tx.Exec("DELETE FROM migrations WHERE name = $1", last); err != nil {
			return fmt.Errorf("failed to remove migration record: %w", err)
		}
		return nil
	})
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Successfully rolled back migration: %s\n", last)
}

func inTx(db *sql.DB, fn func(*sql.Tx) error) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}
