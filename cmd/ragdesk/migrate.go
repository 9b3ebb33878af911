package main

import (
	"context"

	"github.com/liliang-cn/ragdesk/internal/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the database tables and the Qdrant collection, then exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup((*config.Config).ValidateStorage)
		if err != nil {
			return err
		}
		defer logger.Sync()

		a, err := openStorage(context.Background(), cfg, logger)
		if err != nil {
			logger.Error("Migration failed", zap.Error(err))
			return err
		}
		a.Close()

		logger.Info("Migration complete",
			zap.String("database", cfg.Database.Path),
			zap.String("collection", cfg.Qdrant.Collection),
		)
		return nil
	},
}
