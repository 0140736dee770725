package main

import (
	"github.com/bsm/datastep"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func newSortCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "sort IN OUT",
		Short: "Sort data set IN into OUT",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger().With("in", args[0], "out", args[1])
			defer func() { _ = logger.Sync() }()

			lib, err := openLibrary(logger)
			if err != nil {
				return err
			}
			defer lib.Close()

			if err := lib.Sort(args[0], args[1], &datastep.SortOptions{
				By:        viper.GetStringSlice("by"),
				InMemory:  viper.GetBool("in-memory"),
				SplitSize: viper.GetInt("split-size"),
				Logger:    logger,
			}); err != nil {
				logger.Errorw("Failed to sort data set.", zap.Error(err))
				return err
			}
			return nil
		},
	}

	flags := command.Flags()
	flags.StringSlice("by", nil, "Sort keys, primary key first") // --by=a,b --by=c
	flags.Bool("in-memory", false, "Sort in a single in-memory pass")
	flags.Int("split-size", 100000, "Rows per chunk of an external sort")
	_ = viper.BindPFlags(flags)
	return command
}
