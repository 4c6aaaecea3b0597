package audio

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/rs/zerolog/log"
)

// Player is the injected playback capability for synthesized interviewer
// speech. Playback failures are never fatal to the session.
type Player interface {
	Play(ctx context.Context, data []byte) error
}

// NopPlayer discards audio, used when output is muted.
type NopPlayer struct{}

func (NopPlayer) Play(context.Context, []byte) error { return nil }

// playerCandidates are tried in order; all of them accept a file argument.
var playerCandidates = [][]string{
	{"mpg123", "-q"},
	{"ffplay", "-nodisp", "-autoexit", "-loglevel", "quiet"},
	{"afplay"},
}

// ExecPlayer plays audio through the first available external player binary.
type ExecPlayer struct{}

func (ExecPlayer) Play(ctx context.Context, data []byte) error {
	f, err := os.CreateTemp("", "interview-audio-*.mp3")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	for _, candidate := range playerCandidates {
		if _, err := exec.LookPath(candidate[0]); err != nil {
			continue
		}
		args := append(append([]string(nil), candidate[1:]...), f.Name())
		cmd := exec.CommandContext(ctx, candidate[0], args...)
		if err := cmd.Run(); err != nil {
			log.Debug().Str("component", "audio").Str("player", candidate[0]).Err(err).Msg("playback failed")
			return err
		}
		return nil
	}
	return fmt.Errorf("audio: no playback binary found")
}
