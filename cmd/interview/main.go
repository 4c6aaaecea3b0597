package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var verbose bool

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
	}

	root := &cobra.Command{
		Use:   "interview <resume-id>",
		Short: "Run a timed AI interview session from the terminal",
		Long: "Connects to the interview backend with an already-issued resume id,\n" +
			"runs the timed question/answer session by text or voice, and shows the\n" +
			"hiring decision. Session state survives restarts.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInterview(cmd.Context(), args[0])
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentPreRun = func(*cobra.Command, []string) {
		level := zerolog.InfoLevel
		if verbose {
			level = zerolog.DebugLevel
		}
		zlog.Logger = zlog.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level)
	}

	root.AddCommand(newResetCmd(), newSummaryCmd())

	if err := root.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
