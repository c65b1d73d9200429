package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"stickerchart/internal/backup"
	"stickerchart/internal/config"
	"stickerchart/internal/db"

	log "github.com/sirupsen/logrus"
)

func main() {
	setupLogging()
	exportPath := flag.String("export", "", "write a JSON backup of every table to this file")
	restorePath := flag.String("restore", "", "replace all data with the JSON backup in this file")
	flag.Parse()
	if *exportPath != "" && *restorePath != "" {
		log.Fatal("-export and -restore are mutually exclusive")
	}

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("failed to load config")
	}
	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	database, err := db.Open(db.ManagerConfig{Path: cfg.DatabasePath, BusyTimeout: cfg.DBBusyTimeout})
	if err != nil {
		log.WithError(err).Fatal("failed to open database")
	}
	defer database.Close()

	ctx := context.Background()
	from, to, err := db.Migrate(ctx, database)
	if err != nil {
		log.WithError(err).Fatal("migration failed")
	}
	if from == to {
		fmt.Printf("schema already at version %d\n", to)
	} else {
		fmt.Printf("schema migrated from version %d to %d\n", from, to)
	}

	runner := db.NewTxRunner(database)
	switch {
	case *exportPath != "":
		if err := exportTo(ctx, runner, *exportPath); err != nil {
			log.WithError(err).Fatal("export failed")
		}
		fmt.Printf("exported to %s\n", *exportPath)
	case *restorePath != "":
		if err := restoreFrom(ctx, runner, *restorePath); err != nil {
			log.WithError(err).Fatal("restore failed")
		}
		fmt.Printf("restored from %s\n", *restorePath)
	}
}

func exportTo(ctx context.Context, runner db.TxRunner, path string) error {
	snap, err := backup.Export(ctx, runner)
	if err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := backup.Encode(file, snap); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

func restoreFrom(ctx context.Context, runner db.TxRunner, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()
	snap, err := backup.Decode(file)
	if err != nil {
		return err
	}
	return backup.Restore(ctx, runner, snap)
}

func setupLogging() {
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	log.SetOutput(os.Stderr)
	log.SetLevel(log.InfoLevel)
}
