package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config aggregates the client's settings.
type Config struct {
	API     APIConfig
	Session SessionConfig
	Audio   AudioConfig
}

// APIConfig describes how to reach the interview backend.
type APIConfig struct {
	BaseURL string
	Timeout time.Duration
}

// SessionConfig describes the interview session parameters.
type SessionConfig struct {
	BudgetSeconds int
	StatePath     string
}

// AudioConfig describes capture and playback behaviour.
type AudioConfig struct {
	CaptureBinary string
	Muted         bool
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	api, err := loadAPIConfig()
	if err != nil {
		return nil, err
	}

	session, err := loadSessionConfig()
	if err != nil {
		return nil, err
	}

	audio, err := loadAudioConfig()
	if err != nil {
		return nil, err
	}

	return &Config{API: api, Session: session, Audio: audio}, nil
}

func loadAPIConfig() (APIConfig, error) {
	timeout, err := parseOptionalIntEnv("INTERVIEW_REQUEST_TIMEOUT")
	if err != nil {
		return APIConfig{}, err
	}
	timeoutSeconds := 30
	if timeout != nil {
		if *timeout < 1 {
			return APIConfig{}, fmt.Errorf("INTERVIEW_REQUEST_TIMEOUT must be positive, got %d", *timeout)
		}
		timeoutSeconds = *timeout
	}

	return APIConfig{
		BaseURL: getEnvOrDefault("INTERVIEW_API_URL", "http://localhost:8000"),
		Timeout: time.Duration(timeoutSeconds) * time.Second,
	}, nil
}

func loadSessionConfig() (SessionConfig, error) {
	budget, err := parseOptionalIntEnv("INTERVIEW_BUDGET_SECONDS")
	if err != nil {
		return SessionConfig{}, err
	}
	budgetSeconds := 600
	if budget != nil {
		if *budget < 1 {
			return SessionConfig{}, fmt.Errorf("INTERVIEW_BUDGET_SECONDS must be positive, got %d", *budget)
		}
		budgetSeconds = *budget
	}

	statePath := strings.TrimSpace(os.Getenv("INTERVIEW_STATE_PATH"))
	if statePath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			statePath = "interview-state.db"
		} else {
			statePath = filepath.Join(home, ".hireloop", "sessions.db")
		}
	}

	return SessionConfig{
		BudgetSeconds: budgetSeconds,
		StatePath:     statePath,
	}, nil
}

func loadAudioConfig() (AudioConfig, error) {
	muted, err := parseBoolEnv("INTERVIEW_MUTE", false)
	if err != nil {
		return AudioConfig{}, err
	}
	return AudioConfig{
		CaptureBinary: strings.TrimSpace(os.Getenv("INTERVIEW_AUDIO_DEVICE")),
		Muted:         muted,
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
