package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"

	"uplora/internal/config"
	"uplora/migrations"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
)

func main() {
	var (
		command = flag.String("command", "up", "migration command (up, down, status, version)")
		envFile = flag.String("env", ".env", "optional env file")
	)
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil {
		log.Printf("No %s file loaded, using environment", *envFile)
	}

	dbCfg := config.LoadDatabase()

	db, err := sql.Open("postgres", dbCfg.DSN())
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		log.Fatalf("Failed to set dialect: %v", err)
	}

	switch *command {
	case "up":
		if err := goose.Up(db, "."); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
		fmt.Println("Migrations applied successfully")
	case "down":
		if err := goose.Down(db, "."); err != nil {
			log.Fatalf("Failed to roll back migration: %v", err)
		}
		fmt.Println("Migration rolled back successfully")
	case "status":
		if err := goose.Status(db, "."); err != nil {
			log.Fatalf("Failed to get migration status: %v", err)
		}
	case "version":
		if err := goose.Version(db, "."); err != nil {
			log.Fatalf("Failed to get migration version: %v", err)
		}
	default:
		log.Fatalf("Unknown command: %s", *command)
	}
}
