package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/bsm/datastep"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configFile string

	command := &cobra.Command{
		Use:          "datastep",
		Short:        "Inspect, sort and remove datastep data sets",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configFile == "" {
				return nil
			}
			viper.SetConfigFile(configFile)
			if err := viper.ReadInConfig(); err != nil {
				return fmt.Errorf("failed to read config %q, %w", configFile, err)
			}
			return nil
		},
	}

	flags := command.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "Config file (yaml, json or toml)")
	flags.String("dir", ".", "Library directory")
	flags.String("compression", datastep.SnappyCompression.String(), "Compression codec for written data sets: snappy, none, zstd, gzip or lz4")
	flags.Int("flush-interval", 10000, "Number of rows between flushes of the data stream")
	flags.Bool("debug", false, "Enable debug logging")
	_ = viper.BindPFlags(flags)

	viper.SetEnvPrefix("DATASTEP")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	command.AddCommand(newSortCommand())
	command.AddCommand(newInfoCommand())
	command.AddCommand(newRemoveCommand())
	return command
}

func newLogger() *zap.SugaredLogger {
	config := zap.NewProductionConfig()
	if viper.GetBool("debug") {
		config = zap.NewDevelopmentConfig()
	}
	config.OutputPaths = []string{"stderr"}
	logger, err := config.Build()
	if err != nil {
		panic(err)
	}
	return logger.Named("datastep").Sugar()
}

func openLibrary(logger *zap.SugaredLogger) (*datastep.Library, error) {
	compression, err := datastep.ParseCompression(viper.GetString("compression"))
	if err != nil {
		return nil, err
	}
	return datastep.NewLibrary(viper.GetString("dir"), &datastep.Options{
		Compression:   compression,
		FlushInterval: viper.GetInt("flush-interval"),
		Logger:        logger,
	})
}
