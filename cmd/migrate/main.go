package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/wichananm65/fullstack-starter/internal/config"
	"github.com/wichananm65/fullstack-starter/internal/database"
	"github.com/wichananm65/fullstack-starter/internal/logging"
)

func main() {
	steps := flag.Int("steps", 1, "number of migrations to roll back with down")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [-steps N] up|down|version\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat)
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	if err := run(cfg, log, flag.Arg(0), *steps); err != nil {
		log.WithError(err).Fatal("migration failed")
	}
}

func run(cfg *config.Config, log *logrus.Logger, command string, steps int) error {
	migrator, err := database.NewMigrator(cfg.DBDriver, cfg.DatabaseURL, log)
	if err != nil {
		return err
	}
	defer migrator.Close()

	switch command {
	case "up":
		return migrator.Up()
	case "down":
		return migrator.Down(steps)
	case "version":
		v, dirty, err := migrator.Version()
		if err != nil {
			return err
		}
		fmt.Printf("version %d (dirty: %t)\n", v, dirty)
		return nil
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}
