package main

import (
	"context"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/avstrong/studystay/internal/app"
	"github.com/avstrong/studystay/internal/config"
	"github.com/avstrong/studystay/internal/logger"
)

func main() {
	l := logger.New(log.Default())

	var envFiles []string

	loadConfig := func() (*config.Config, error) {
		return config.Load(envFiles...)
	}

	rootCmd := &cobra.Command{
		Use:           "studystay",
		Short:         "Seat and bed booking service for reading rooms, hostels and cabins",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "dotenv files to load (default .env)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(_ *cobra.Command, _ []string) error {
			conf, err := loadConfig()
			if err != nil {
				return err
			}

			return app.Run(l, conf)
		},
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the database schema and seed demo data",
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf, err := loadConfig()
			if err != nil {
				return err
			}

			return app.Migrate(cmd.Context(), l, conf)
		},
	}

	rootCmd.AddCommand(serveCmd, migrateCmd)
	rootCmd.RunE = serveCmd.RunE

	var exitCode int

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		l.LogErrorf("Failed to run app: %v", err.Error())

		exitCode = 1
	}

	os.Exit(exitCode)
}
