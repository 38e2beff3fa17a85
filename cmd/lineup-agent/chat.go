package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/aronetommaso/Fanta-Calcio-Agent/internal/transport/repl"
	"github.com/aronetommaso/Fanta-Calcio-Agent/internal/transport/tui"
)

func newChatCmd(flags *rootFlags) *cobra.Command {
	var (
		source string
		useTUI bool
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Ingest the source document and start an interactive question loop",
		Long: `Ingests the configured document, then reads one question per line.
Type exit or quit (any case) to leave. --tui opens a full-screen chat when stdin is a terminal.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}

			interactive := useTUI && term.IsTerminal(int(os.Stdin.Fd()))
			opts := buildOptions{}
			if interactive {
				opts.logFile = cfg.Logging.File
				if opts.logFile == "" {
					opts.logFile = "lineup-agent.log"
				}
			}

			ctx := cmd.Context()
			a, err := newApp(ctx, flags.env, cfg, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.prepare(ctx, source); err != nil {
				a.logger.Error("Startup failed", zap.Error(err))
				return err
			}

			if interactive {
				return tui.Run(ctx, a.query, cfg.Retrieval.PreviewChars)
			}

			cmd.Println("Agent ready. Type 'exit' to quit.")
			loop := repl.New(a.query, repl.Config{PreviewChars: cfg.Retrieval.PreviewChars}, a.logger)
			return loop.Run(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&source, "source", "s", "", "document to ingest (overrides ingest.source)")
	cmd.Flags().BoolVar(&useTUI, "tui", false, "use the full-screen chat interface")
	return cmd
}
