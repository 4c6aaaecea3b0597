package audio

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
)

// State tracks a recorder through one voice-capture cycle.
type State int

const (
	StateIdle State = iota
	StateRecording
	StateEncoding
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateEncoding:
		return "encoding"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var (
	// ErrCaptureDenied wraps a failed device acquisition. Surfaced to the
	// user, never retried automatically.
	ErrCaptureDenied = errors.New("audio: capture device unavailable")
	// ErrNotRecording is returned by Stop when no cycle is in flight.
	ErrNotRecording = errors.New("audio: not recording")
	// ErrAlreadyRecording is returned by Start during an active cycle.
	ErrAlreadyRecording = errors.New("audio: recording already in progress")
)

// CaptureDevice is the injected microphone capability. Start acquires the
// device and streams raw chunks until Stop releases it and closes the
// channel. A device is exclusively owned for the duration of one cycle.
type CaptureDevice interface {
	Start(ctx context.Context) (<-chan []byte, error)
	Stop() error
}

// Decoder is the injected capability that turns a raw captured buffer into
// waveform samples.
type Decoder interface {
	Decode(data []byte) (Waveform, error)
}

// WAVDecoder decodes buffers that are already PCM WAV, the format the exec
// capture devices produce.
type WAVDecoder struct{}

func (WAVDecoder) Decode(data []byte) (Waveform, error) {
	return DecodeWAV(data)
}

// Recorder drives the idle -> recording -> encoding -> idle cycle. The raw
// chunks live only for the duration of one cycle and are discarded after
// encoding.
type Recorder struct {
	device  CaptureDevice
	decoder Decoder

	mu     sync.Mutex
	state  State
	chunks [][]byte
	done   chan struct{}
}

// NewRecorder wires a recorder to its capture and decode capabilities.
func NewRecorder(device CaptureDevice, decoder Decoder) *Recorder {
	return &Recorder{
		device:  device,
		decoder: decoder,
		state:   StateIdle,
	}
}

// State reports the current cycle phase.
func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Start acquires the capture device and begins accumulating chunks in
// arrival order. A denied device leaves the recorder idle.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.state != StateIdle {
		r.mu.Unlock()
		return ErrAlreadyRecording
	}
	r.state = StateRecording
	r.chunks = nil
	r.done = make(chan struct{})
	r.mu.Unlock()

	stream, err := r.device.Start(ctx)
	if err != nil {
		r.mu.Lock()
		r.state = StateIdle
		close(r.done)
		r.mu.Unlock()
		return fmt.Errorf("%w: %v", ErrCaptureDenied, err)
	}

	go func() {
		defer close(r.done)
		for chunk := range stream {
			buf := make([]byte, len(chunk))
			copy(buf, chunk)
			r.mu.Lock()
			r.chunks = append(r.chunks, buf)
			r.mu.Unlock()
		}
	}()

	log.Debug().Str("component", "audio").Msg("recording started")
	return nil
}

// Stop is the only transition into encoding: it releases the device, joins
// the accumulated chunks, decodes them, and re-encodes the canonical WAV
// buffer. The device is released on every exit path; on decode failure the
// recording is discarded and the error is non-retryable.
func (r *Recorder) Stop() ([]byte, error) {
	r.mu.Lock()
	if r.state != StateRecording {
		r.mu.Unlock()
		return nil, ErrNotRecording
	}
	r.state = StateEncoding
	done := r.done
	r.mu.Unlock()

	stopErr := r.device.Stop()
	<-done

	r.mu.Lock()
	raw := joinChunks(r.chunks)
	r.chunks = nil
	r.state = StateIdle
	r.mu.Unlock()

	if stopErr != nil {
		return nil, fmt.Errorf("audio: release capture device: %w", stopErr)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty recording", ErrDecodeFailed)
	}

	wave, err := r.decoder.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}

	encoded, err := EncodeWAV(wave)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}

	log.Debug().
		Str("component", "audio").
		Int("bytes", len(encoded)).
		Float64("seconds", wave.Duration()).
		Msg("recording encoded")
	return encoded, nil
}

func joinChunks(chunks [][]byte) []byte {
	total := 0
	for _, c := range chunks {
		total += len(c)
	}
	out := make([]byte, 0, total)
	for _, c := range chunks {
		out = append(out, c...)
	}
	return out
}
