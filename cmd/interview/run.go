package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wangxuanyi/hireloop/client/internal/audio"
	"github.com/wangxuanyi/hireloop/client/internal/backend"
	"github.com/wangxuanyi/hireloop/client/internal/config"
	"github.com/wangxuanyi/hireloop/client/internal/model/interview"
	"github.com/wangxuanyi/hireloop/client/internal/session"
	"github.com/wangxuanyi/hireloop/client/internal/store"
)

// runInterview drives one interactive session on stdin/stdout. Typed lines
// are candidate answers; slash commands control recording and lifecycle.
func runInterview(ctx context.Context, resumeID string) error {
	orc, st, err := buildOrchestrator(resumeID)
	if err != nil {
		return err
	}
	defer st.Close()
	defer orc.Close()

	go renderEvents(orc)

	if err := orc.Start(ctx); err != nil {
		return err
	}

	fmt.Println("Type your answers. Commands: /record, /stop, /end, /reset, /quit")

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var cmdErr error
		switch line {
		case "/quit":
			return nil
		case "/record":
			cmdErr = orc.StartRecording(ctx)
			if cmdErr == nil {
				fmt.Println("recording... type /stop to send")
			}
		case "/stop":
			cmdErr = orc.StopRecording(ctx)
		case "/end":
			cmdErr = orc.EndInterview(ctx)
		case "/reset":
			cmdErr = orc.Reset(ctx)
		default:
			cmdErr = orc.SendText(ctx, line)
		}
		if cmdErr != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", cmdErr)
		}
	}
	return scanner.Err()
}

// buildOrchestrator assembles the orchestrator from configuration.
func buildOrchestrator(resumeID string) (*session.Orchestrator, store.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	client, err := backend.New(cfg.API.BaseURL, cfg.API.Timeout)
	if err != nil {
		return nil, nil, err
	}

	st, err := openStore(cfg)
	if err != nil {
		return nil, nil, err
	}

	recorder := audio.NewRecorder(audio.NewExecCaptureDevice(cfg.Audio.CaptureBinary), audio.WAVDecoder{})
	var player audio.Player = audio.ExecPlayer{}
	if cfg.Audio.Muted {
		player = audio.NopPlayer{}
	}

	orc := session.New(session.Config{
		ResumeID:      resumeID,
		BudgetSeconds: cfg.Session.BudgetSeconds,
		Muted:         cfg.Audio.Muted,
	}, client, st, recorder, player)

	return orc, st, nil
}

func openStore(cfg *config.Config) (store.Store, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Session.StatePath), 0o755); err != nil {
		return nil, err
	}
	return store.NewSQLiteStore(cfg.Session.StatePath)
}

// renderEvents prints the orchestrator's event stream.
func renderEvents(orc *session.Orchestrator) {
	for ev := range orc.Events() {
		switch ev.Kind {
		case session.EventPhase:
			switch ev.Phase {
			case session.PhaseAnalyzing:
				fmt.Println("-- analyzing your interview --")
			case session.PhaseActive:
				fmt.Println("-- interview active --")
			}
		case session.EventTurn:
			speaker := "You"
			if ev.Turn.Speaker == interview.SpeakerInterviewer {
				speaker = "Interviewer"
			}
			fmt.Printf("[%s] %s: %s\n", ev.Turn.Timestamp, speaker, ev.Turn.Content)
		case session.EventTick:
			if ev.Remaining > 0 && ev.Remaining%60 == 0 {
				fmt.Printf("-- %d minutes remaining --\n", ev.Remaining/60)
			}
			if ev.Remaining == 0 {
				fmt.Println("-- time is up --")
			}
		case session.EventNotice:
			fmt.Fprintf(os.Stderr, "notice: %v\n", ev.Err)
		case session.EventDecision:
			printDecision(*ev.Decision)
		}
	}
}

func printDecision(d interview.Decision) {
	verdict := "NOT HIRED"
	if d.Hired() {
		verdict = "HIRED"
	}
	fmt.Printf("\n==== %s ====\n", verdict)
	fmt.Printf("Technical depth:  %.0f/100\n", d.Scores.TechnicalDepth)
	fmt.Printf("Communication:    %.0f/100\n", d.Scores.Communication)
	fmt.Printf("Problem solving:  %.0f/100\n", d.Scores.ProblemSolving)
	fmt.Printf("Total:            %.0f/100\n", d.Scores.Total)
	if d.Reasons != "" {
		fmt.Printf("\n%s\n", d.Reasons)
	}
}

func newResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset <resume-id>",
		Short: "Clear the persisted session and start over",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.ClearDecision(cmd.Context(), args[0]); err != nil {
				return err
			}
			if err := st.ClearClock(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Println("session state cleared")
			return nil
		},
	}
}

func newSummaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary <resume-id>",
		Short: "Show the stored decision for a session, resolving it if needed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resumeID := args[0]
			if err := interview.ValidateResumeID(resumeID); err != nil {
				return err
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			client, err := backend.New(cfg.API.BaseURL, cfg.API.Timeout)
			if err != nil {
				return err
			}
			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			d, err := session.NewResolver(st, client).Resolve(cmd.Context(), resumeID)
			if err != nil {
				return err
			}
			printDecision(d)
			return nil
		},
	}
}
