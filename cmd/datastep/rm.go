package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rm NAME...",
		Short: "Remove data sets",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			defer func() { _ = logger.Sync() }()

			lib, err := openLibrary(logger)
			if err != nil {
				return err
			}
			defer lib.Close()

			for _, name := range args {
				if err := lib.Dataset(name).Delete(); err != nil {
					logger.Errorw("Failed to remove data set.", "name", name, zap.Error(err))
					return err
				}
				logger.Infow("Removed data set", "name", name)
			}
			return nil
		},
	}
}
