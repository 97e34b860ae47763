package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"simcheck/internal/config"
	"simcheck/internal/logger"
	"simcheck/internal/workspace"
)

type app struct {
	cfg *config.Config
	log logger.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:          "simcheck",
		Short:        "Text similarity checker for student submissions",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			envFile, _ := cmd.Flags().GetString("env-file")
			cfg, err := config.Load(envFile)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("workspace") {
				cfg.Workspace, _ = cmd.Flags().GetString("workspace")
				if os.Getenv(config.EnvPrefix+"DB_PATH") == "" {
					cfg.DBPath = workspace.DatabasePath(cfg.Workspace)
				}
			}
			a.cfg = cfg
			a.log = logger.New(logger.Config{Level: cfg.LogLevel, JSON: cfg.LogJSON, Output: cmd.ErrOrStderr()})
			return nil
		},
	}
	root.PersistentFlags().String("env-file", ".env", "dotenv file to load before reading SIMCHECK_* variables")
	root.PersistentFlags().String("workspace", "", "workspace directory for the database and reports")

	root.AddCommand(
		checkCmd(a),
		submitCmd(a),
		recheckCmd(a),
		reportCmd(a),
	)
	return root
}
