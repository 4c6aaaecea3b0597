package main

import (
	"flag"
	"log"
	"math"
	"os"

	"github.com/wangxuanyi/hireloop/client/internal/audio"
)

// wavprobe inspects or generates the WAV container the client submits for
// voice turns. With -in it prints the decoded header of an existing file;
// with -out it writes a test tone for exercising the voice pipeline.
func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	inPath := flag.String("in", "", "WAV file to inspect")
	outPath := flag.String("out", "", "write a generated test tone here")
	freq := flag.Float64("freq", 440, "tone frequency in Hz")
	seconds := flag.Float64("seconds", 1, "tone duration")
	rate := flag.Int("rate", 16000, "sample rate")

	flag.Parse()

	switch {
	case *inPath != "":
		inspect(*inPath)
	case *outPath != "":
		generate(*outPath, *freq, *seconds, *rate)
	default:
		flag.Usage()
		log.Fatal("specify -in <file> or -out <file>")
	}
}

func inspect(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("read %s: %v", path, err)
	}
	h, err := audio.DecodeWAVHeader(data)
	if err != nil {
		log.Fatalf("decode header: %v", err)
	}
	log.Printf("riff size:   %d", h.RIFFSize)
	log.Printf("channels:    %d", h.Channels)
	log.Printf("sample rate: %d", h.SampleRate)
	log.Printf("byte rate:   %d", h.ByteRate)
	log.Printf("block align: %d", h.BlockAlign)
	log.Printf("bits:        %d", h.BitsPerSample)
	log.Printf("data size:   %d", h.DataSize)
}

func generate(path string, freq, seconds float64, rate int) {
	n := int(seconds * float64(rate))
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = 0.5 * math.Sin(2*math.Pi*freq*float64(i)/float64(rate))
	}

	data, err := audio.EncodeWAV(audio.Waveform{SampleRate: rate, Channels: 1, Samples: samples})
	if err != nil {
		log.Fatalf("encode: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		log.Fatalf("write %s: %v", path, err)
	}
	log.Printf("wrote %d bytes to %s", len(data), path)
}
