package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"usersvc/internal/config"
	"usersvc/internal/migrations"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [up|down|version]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	command := "up"
	if flag.NArg() > 0 {
		command = flag.Arg(0)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	dialect, err := migrations.ParseDialect(cfg.Database.Driver)
	if err != nil {
		logger.Fatalf("database driver: %v", err)
	}

	runner, err := migrations.NewRunner(dialect, cfg.Database.DSN, logger)
	if err != nil {
		logger.Fatalf("open migrations: %v", err)
	}
	defer runner.Close()

	switch command {
	case "up":
		err = runner.Up()
	case "down":
		err = runner.Down()
	case "version":
		var (
			version uint
			dirty   bool
		)
		version, dirty, err = runner.Version()
		if err == nil {
			logger.WithFields(logrus.Fields{"version": version, "dirty": dirty}).Info("schema version")
		}
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		logger.Fatalf("%s: %v", command, err)
	}
}
