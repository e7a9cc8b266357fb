package main

import (
	"flag"
	"log"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

func main() {
	dir := flag.String("dir", envOr("MIGRATIONS_DIR", "migrations"), "goose migrations directory")
	flag.Parse()
	cmd := flag.Arg(0)
	if cmd == "" {
		cmd = "up"
	}

	l, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	l = l.With(zap.String("component", "migrator"), zap.String("dir", *dir))

	dbURL := os.Getenv("DB_DSN")
	if dbURL == "" {
		l.Fatal("DB_DSN is empty")
	}

	if err := goose.SetDialect("postgres"); err != nil {
		l.Fatal("set dialect", zap.Error(err))
	}
	db, err := goose.OpenDBWithDriver("pgx", dbURL)
	if err != nil {
		l.Fatal("open db", zap.Error(err))
	}
	defer db.Close()

	switch cmd {
	case "up":
		err = goose.Up(db, *dir)
	case "down":
		err = goose.Down(db, *dir)
	case "status":
		err = goose.Status(db, *dir)
	default:
		l.Fatal("unknown command", zap.String("cmd", cmd))
	}
	if err != nil {
		l.Fatal("migrate", zap.String("cmd", cmd), zap.Error(err))
	}
	l.Info("migrations done", zap.String("cmd", cmd))
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
