package audio

import (
	"context"
	"errors"
	"testing"
)

type fakeDevice struct {
	chunks    [][]byte
	startErr  error
	stream    chan []byte
	stopCalls int
}

func (d *fakeDevice) Start(context.Context) (<-chan []byte, error) {
	if d.startErr != nil {
		return nil, d.startErr
	}
	d.stream = make(chan []byte, len(d.chunks))
	for _, c := range d.chunks {
		d.stream <- c
	}
	return d.stream, nil
}

func (d *fakeDevice) Stop() error {
	d.stopCalls++
	if d.stream != nil {
		close(d.stream)
		d.stream = nil
	}
	return nil
}

type failingDecoder struct{}

func (failingDecoder) Decode([]byte) (Waveform, error) {
	return Waveform{}, errors.New("unsupported container")
}

func validWAV(t *testing.T) []byte {
	t.Helper()
	data, err := EncodeWAV(Waveform{SampleRate: 16000, Channels: 1, Samples: make([]float64, 800)})
	if err != nil {
		t.Fatalf("EncodeWAV err: %v", err)
	}
	return data
}

func TestRecorderFullCycle(t *testing.T) {
	raw := validWAV(t)
	device := &fakeDevice{chunks: [][]byte{raw[:100], raw[100:]}}
	rec := NewRecorder(device, WAVDecoder{})

	if rec.State() != StateIdle {
		t.Fatalf("initial state = %v", rec.State())
	}
	if err := rec.Start(context.Background()); err != nil {
		t.Fatalf("Start err: %v", err)
	}
	if rec.State() != StateRecording {
		t.Fatalf("state after start = %v", rec.State())
	}

	out, err := rec.Stop()
	if err != nil {
		t.Fatalf("Stop err: %v", err)
	}
	if rec.State() != StateIdle {
		t.Fatalf("state after stop = %v", rec.State())
	}
	if device.stopCalls != 1 {
		t.Fatalf("device stopped %d times, want 1", device.stopCalls)
	}

	h, err := DecodeWAVHeader(out)
	if err != nil {
		t.Fatalf("output is not valid WAV: %v", err)
	}
	if h.SampleRate != 16000 || h.Channels != 1 {
		t.Fatalf("unexpected output format %d/%d", h.SampleRate, h.Channels)
	}
}

func TestRecorderDeviceDenied(t *testing.T) {
	device := &fakeDevice{startErr: errors.New("permission denied")}
	rec := NewRecorder(device, WAVDecoder{})

	err := rec.Start(context.Background())
	if !errors.Is(err, ErrCaptureDenied) {
		t.Fatalf("expected ErrCaptureDenied, got %v", err)
	}
	if rec.State() != StateIdle {
		t.Fatalf("state after denial = %v, want idle", rec.State())
	}
}

func TestRecorderDecodeFailureReleasesDevice(t *testing.T) {
	device := &fakeDevice{chunks: [][]byte{{1, 2, 3, 4}}}
	rec := NewRecorder(device, failingDecoder{})

	if err := rec.Start(context.Background()); err != nil {
		t.Fatalf("Start err: %v", err)
	}
	_, err := rec.Stop()
	if !errors.Is(err, ErrDecodeFailed) {
		t.Fatalf("expected ErrDecodeFailed, got %v", err)
	}
	if device.stopCalls != 1 {
		t.Fatalf("device stopped %d times, want 1", device.stopCalls)
	}
	if rec.State() != StateIdle {
		t.Fatalf("state after decode failure = %v, want idle", rec.State())
	}
}

func TestRecorderGuards(t *testing.T) {
	raw := validWAV(t)
	device := &fakeDevice{chunks: [][]byte{raw}}
	rec := NewRecorder(device, WAVDecoder{})

	if _, err := rec.Stop(); !errors.Is(err, ErrNotRecording) {
		t.Fatalf("Stop while idle: expected ErrNotRecording, got %v", err)
	}
	if err := rec.Start(context.Background()); err != nil {
		t.Fatalf("Start err: %v", err)
	}
	if err := rec.Start(context.Background()); !errors.Is(err, ErrAlreadyRecording) {
		t.Fatalf("second Start: expected ErrAlreadyRecording, got %v", err)
	}
	if _, err := rec.Stop(); err != nil {
		t.Fatalf("Stop err: %v", err)
	}
}

func TestRecorderEmptyRecording(t *testing.T) {
	device := &fakeDevice{}
	rec := NewRecorder(device, WAVDecoder{})

	if err := rec.Start(context.Background()); err != nil {
		t.Fatalf("Start err: %v", err)
	}
	if _, err := rec.Stop(); !errors.Is(err, ErrDecodeFailed) {
		t.Fatalf("expected ErrDecodeFailed for empty recording, got %v", err)
	}
}
