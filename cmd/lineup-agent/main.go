package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aronetommaso/Fanta-Calcio-Agent/internal/config"
	"github.com/aronetommaso/Fanta-Calcio-Agent/internal/version"
)

// rootFlags are shared by every subcommand.
type rootFlags struct {
	env        string
	configPath string
	logLevel   string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:   "lineup-agent",
		Short: "Answer football lineup questions from scraped match reports",
		Long: `lineup-agent ingests a match report document into an in-memory vector index
and answers questions about starting lineups with a retrieval-augmented language model.`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version.Version, version.Commit, version.Date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flags.env, "env", config.GetEnv(), "environment name, selects config/<env>.yaml")
	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "explicit config file path")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "override logging.level")

	root.AddCommand(newChatCmd(flags), newServeCmd(flags), newIngestCmd(flags))
	return root
}

func (f *rootFlags) load() (config.Config, error) {
	var (
		cfg config.Config
		err error
	)
	if f.configPath != "" {
		cfg, err = config.LoadFile(f.configPath)
	} else {
		cfg, err = config.Load(f.env)
	}
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	if f.logLevel != "" {
		cfg.Logging.Level = f.logLevel
	}
	return cfg, nil
}
