// Package audio owns the voice-capture cycle: acquiring a capture device,
// accumulating raw chunks, decoding them into waveform samples, and encoding
// the canonical 16-bit PCM WAV container the backend accepts.
package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	wavHeaderSize = 44
	pcmFormat     = 1
	bitsPerSample = 16
)

// ErrDecodeFailed marks an unsupported or corrupt audio buffer. The recording
// cycle aborts and the user must re-record; nothing is retried.
var ErrDecodeFailed = errors.New("audio: decode failed")

// Waveform is decoded audio: interleaved samples in [-1,1].
type Waveform struct {
	SampleRate int
	Channels   int
	Samples    []float64
}

// Duration returns the waveform length in seconds.
func (w Waveform) Duration() float64 {
	if w.SampleRate <= 0 || w.Channels <= 0 {
		return 0
	}
	return float64(len(w.Samples)) / float64(w.SampleRate*w.Channels)
}

// Header is the decoded 44-byte RIFF/WAVE preamble.
type Header struct {
	RIFFSize      uint32
	Channels      int
	SampleRate    int
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	DataSize      uint32
}

// EncodeWAV renders a waveform as a 16-bit little-endian PCM WAV file with
// the exact 44-byte header layout:
//
//	"RIFF" | total-8 | "WAVE" | "fmt " | 16 | 1 | channels | rate |
//	byteRate | blockAlign | 16 | "data" | dataLen | samples...
//
// Samples are clipped to [-1,1]; negatives scale by 32768, non-negatives by
// 32767.
func EncodeWAV(w Waveform) ([]byte, error) {
	if w.SampleRate <= 0 {
		return nil, fmt.Errorf("audio: invalid sample rate %d", w.SampleRate)
	}
	if w.Channels <= 0 {
		return nil, fmt.Errorf("audio: invalid channel count %d", w.Channels)
	}

	dataSize := uint32(len(w.Samples) * 2)
	buf := make([]byte, wavHeaderSize+int(dataSize))

	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], 36+dataSize)
	copy(buf[8:12], "WAVE")

	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], pcmFormat)
	binary.LittleEndian.PutUint16(buf[22:24], uint16(w.Channels))
	binary.LittleEndian.PutUint32(buf[24:28], uint32(w.SampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(w.SampleRate*w.Channels*2))
	binary.LittleEndian.PutUint16(buf[32:34], uint16(w.Channels*2))
	binary.LittleEndian.PutUint16(buf[34:36], bitsPerSample)

	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], dataSize)

	for i, s := range w.Samples {
		if s < -1 {
			s = -1
		} else if s > 1 {
			s = 1
		}
		var v int16
		if s < 0 {
			v = int16(s * 32768)
		} else {
			v = int16(s * 32767)
		}
		binary.LittleEndian.PutUint16(buf[wavHeaderSize+2*i:], uint16(v))
	}

	return buf, nil
}

// DecodeWAVHeader parses the 44-byte preamble without touching sample data.
func DecodeWAVHeader(data []byte) (Header, error) {
	if len(data) < wavHeaderSize {
		return Header{}, fmt.Errorf("%w: %d bytes is shorter than a WAV header", ErrDecodeFailed, len(data))
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return Header{}, fmt.Errorf("%w: missing RIFF/WAVE tags", ErrDecodeFailed)
	}
	if string(data[12:16]) != "fmt " {
		return Header{}, fmt.Errorf("%w: missing fmt chunk", ErrDecodeFailed)
	}
	if format := binary.LittleEndian.Uint16(data[20:22]); format != pcmFormat {
		return Header{}, fmt.Errorf("%w: unsupported format %d", ErrDecodeFailed, format)
	}
	if string(data[36:40]) != "data" {
		return Header{}, fmt.Errorf("%w: missing data chunk", ErrDecodeFailed)
	}

	h := Header{
		RIFFSize:      binary.LittleEndian.Uint32(data[4:8]),
		Channels:      int(binary.LittleEndian.Uint16(data[22:24])),
		SampleRate:    int(binary.LittleEndian.Uint32(data[24:28])),
		ByteRate:      binary.LittleEndian.Uint32(data[28:32]),
		BlockAlign:    binary.LittleEndian.Uint16(data[32:34]),
		BitsPerSample: binary.LittleEndian.Uint16(data[34:36]),
		DataSize:      binary.LittleEndian.Uint32(data[40:44]),
	}
	if h.Channels <= 0 || h.SampleRate <= 0 {
		return Header{}, fmt.Errorf("%w: invalid channel count or sample rate", ErrDecodeFailed)
	}
	if h.BitsPerSample != bitsPerSample {
		return Header{}, fmt.Errorf("%w: only 16-bit PCM is supported, got %d bits", ErrDecodeFailed, h.BitsPerSample)
	}
	return h, nil
}

// DecodeWAV parses a complete 16-bit PCM WAV buffer back into a waveform.
func DecodeWAV(data []byte) (Waveform, error) {
	h, err := DecodeWAVHeader(data)
	if err != nil {
		return Waveform{}, err
	}
	body := data[wavHeaderSize:]
	// Streamed WAV (e.g. a capture process writing to a pipe) carries
	// placeholder sizes; trust the actual byte count in that case.
	if uint32(len(body)) > h.DataSize {
		body = body[:h.DataSize]
	}
	if len(body)%2 != 0 {
		body = body[:len(body)-1]
	}

	samples := make([]float64, len(body)/2)
	for i := range samples {
		v := int16(binary.LittleEndian.Uint16(body[2*i:]))
		if v < 0 {
			samples[i] = float64(v) / 32768
		} else {
			samples[i] = float64(v) / 32767
		}
	}
	return Waveform{
		SampleRate: h.SampleRate,
		Channels:   h.Channels,
		Samples:    samples,
	}, nil
}
