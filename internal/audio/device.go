package audio

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	"github.com/rs/zerolog/log"
)

const captureChunkSize = 4096

// ExecCaptureDevice records from the system microphone by running an external
// capture binary (arecord by default) that writes WAV to stdout. It satisfies
// CaptureDevice; each Start owns the process until Stop kills it.
type ExecCaptureDevice struct {
	binary string
	args   []string

	mu  sync.Mutex
	cmd *exec.Cmd
}

// NewExecCaptureDevice builds a device around the named binary. An empty name
// selects arecord capturing mono 16 kHz signed 16-bit WAV.
func NewExecCaptureDevice(binary string) *ExecCaptureDevice {
	if binary == "" {
		binary = "arecord"
	}
	args := []string{"-q", "-f", "S16_LE", "-r", "16000", "-c", "1", "-t", "wav"}
	if binary != "arecord" {
		args = nil
	}
	return &ExecCaptureDevice{binary: binary, args: args}
}

func (d *ExecCaptureDevice) Start(ctx context.Context) (<-chan []byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cmd != nil {
		return nil, fmt.Errorf("capture process already running")
	}

	cmd := exec.CommandContext(ctx, d.binary, d.args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	d.cmd = cmd

	out := make(chan []byte)
	go func() {
		defer close(out)
		for {
			buf := make([]byte, captureChunkSize)
			n, err := stdout.Read(buf)
			if n > 0 {
				out <- buf[:n]
			}
			if err != nil {
				if err != io.EOF {
					log.Debug().Str("component", "audio").Err(err).Msg("capture stream closed")
				}
				return
			}
		}
	}()
	return out, nil
}

func (d *ExecCaptureDevice) Stop() error {
	d.mu.Lock()
	cmd := d.cmd
	d.cmd = nil
	d.mu.Unlock()
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	// arecord flushes the WAV header sizes on SIGINT; fall back to a hard
	// kill if the signal cannot be delivered.
	if err := cmd.Process.Signal(os.Interrupt); err != nil {
		_ = cmd.Process.Kill()
	}
	_ = cmd.Wait()
	return nil
}

// FileCaptureDevice replays a pre-recorded file as a single chunk, useful for
// machines without a microphone and for exercising the full voice path from
// the CLI.
type FileCaptureDevice struct {
	Path string
}

func (d *FileCaptureDevice) Start(_ context.Context) (<-chan []byte, error) {
	data, err := os.ReadFile(d.Path)
	if err != nil {
		return nil, err
	}
	out := make(chan []byte, 1)
	out <- data
	close(out)
	return out, nil
}

func (d *FileCaptureDevice) Stop() error { return nil }
