package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Windi-Fikriyansyah/handloom_be/internal/seed"
)

func runMigrate(cmd *cobra.Command, args []string) error {
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	if err := migrate(db); err != nil {
		return err
	}
	logger.Info("migration done", zap.String("driver", cfg.DBDriver))
	return nil
}

func runSeed(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	f, err := seed.ParseFile(seedFile)
	if err != nil {
		return err
	}

	s, err := buildServices(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer s.close()

	if err := migrate(s.db); err != nil {
		return err
	}

	res, err := seed.Loader{
		Auth:     s.auth,
		Profiles: s.profile,
		Catalog:  s.catalog,
		Log:      logger.Named("seed"),
	}.Apply(ctx, f)
	if err != nil {
		return err
	}
	logger.Info("seed applied",
		zap.String("file", seedFile),
		zap.Int("users", res.Users),
		zap.Int("products", res.Products),
		zap.Int("skipped", res.Skipped))
	return nil
}
