package main

import (
	"errors"
	"flag"
	"log"

	"github.com/focusdeck/creditcore/internal/config"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

func main() {
	var command string
	var path string

	flag.StringVar(&command, "cmd", "up", "Migration command (up, down, version)")
	flag.StringVar(&path, "path", "file://migrations", "Migration source path")
	flag.Parse()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	m, err := migrate.New(path, cfg.Postgres.GetURL())
	if err != nil {
		log.Fatalf("failed to create migrate instance: %v", err)
	}
	defer m.Close()

	switch command {
	case "up":
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatalf("migration up failed: %v", err)
		}
		log.Println("migrations applied")

	case "down":
		if err := m.Steps(-1); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatalf("migration down failed: %v", err)
		}
		log.Println("rolled back one migration")

	case "version":
		version, dirty, err := m.Version()
		if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
			log.Fatalf("failed to get version: %v", err)
		}
		log.Printf("current version: %d (dirty: %t)", version, dirty)

	default:
		log.Fatalf("unknown command: %s (use: up, down, version)", command)
	}
}
