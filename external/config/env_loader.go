package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	internalconfig "github.com/foxseedlab/voxqueue/internal/config"
	"github.com/foxseedlab/voxqueue/internal/transcriber"
	"github.com/joho/godotenv"
)

const defaultEnvFile = ".env"

type envConfig struct {
	Env                  string        `env:"ENV" envDefault:"production"`
	TranscribeAPIURL     string        `env:"TRANSCRIBE_API_URL,required"`
	TranscribeModel      string        `env:"TRANSCRIBE_MODEL" envDefault:"whisper"`
	TranscribePrompt     string        `env:"TRANSCRIBE_PROMPT"`
	RequestTimeout       time.Duration `env:"REQUEST_TIMEOUT" envDefault:"2m"`
	MaxRecordingDuration time.Duration `env:"MAX_RECORDING_DURATION" envDefault:"30s"`
	CaptureDevice        string        `env:"CAPTURE_DEVICE" envDefault:"ffmpeg"`
	CaptureInput         string        `env:"CAPTURE_INPUT"`
	OpusListenAddr       string        `env:"OPUS_LISTEN_ADDR" envDefault:"127.0.0.1:5004"`
	NATSURL              string        `env:"NATS_URL"`
	NATSSubject          string        `env:"NATS_SUBJECT" envDefault:"voxqueue.jobs"`
	TranscriptWebhookURL string        `env:"TRANSCRIPT_WEBHOOK_URL"`
}

type serverEnvConfig struct {
	Env                    string        `env:"ENV" envDefault:"production"`
	ListenAddr             string        `env:"LISTEN_ADDR" envDefault:":8000"`
	DatabaseURL            string        `env:"DATABASE_URL,required"`
	OpenAIAPIKey           string        `env:"OPENAI_API_KEY"`
	OpenAIAPIURL           string        `env:"OPENAI_API_URL" envDefault:"https://api.openai.com"`
	OpenAIWhisperModel     string        `env:"OPENAI_WHISPER_MODEL" envDefault:"whisper-1"`
	AssemblyAIAPIKey       string        `env:"ASSEMBLYAI_API_KEY"`
	AssemblyAIAPIURL       string        `env:"ASSEMBLYAI_API_URL" envDefault:"https://api.assemblyai.com"`
	AssemblyAIPollInterval time.Duration `env:"ASSEMBLYAI_POLL_INTERVAL" envDefault:"3s"`
	LocalWhisperURL        string        `env:"LOCAL_WHISPER_URL"`
	CORSAllowedOrigins     []string      `env:"CORS_ALLOWED_ORIGINS" envDefault:"http://localhost:3000" envSeparator:","`
	MaxUploadBytes         int64         `env:"MAX_UPLOAD_BYTES" envDefault:"104857600"`
}

func Load() (*internalconfig.Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}
	var raw envConfig
	if err := env.Parse(&raw); err != nil {
		return nil, fmt.Errorf("environment variables are invalid or missing: %w", err)
	}

	cfg := &internalconfig.Config{
		Env:                  raw.Env,
		TranscribeAPIURL:     raw.TranscribeAPIURL,
		TranscribeModel:      transcriber.Model(raw.TranscribeModel),
		TranscribePrompt:     raw.TranscribePrompt,
		RequestTimeout:       raw.RequestTimeout,
		MaxRecordingDuration: raw.MaxRecordingDuration,
		CaptureDevice:        raw.CaptureDevice,
		CaptureInput:         raw.CaptureInput,
		OpusListenAddr:       raw.OpusListenAddr,
		NATSURL:              raw.NATSURL,
		NATSSubject:          raw.NATSSubject,
		TranscriptWebhookURL: raw.TranscriptWebhookURL,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func LoadServer() (*internalconfig.ServerConfig, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}
	var raw serverEnvConfig
	if err := env.Parse(&raw); err != nil {
		return nil, fmt.Errorf("environment variables are invalid or missing: %w", err)
	}

	cfg := &internalconfig.ServerConfig{
		Env:                    raw.Env,
		ListenAddr:             raw.ListenAddr,
		DatabaseURL:            raw.DatabaseURL,
		OpenAIAPIKey:           raw.OpenAIAPIKey,
		OpenAIAPIURL:           raw.OpenAIAPIURL,
		OpenAIWhisperModel:     raw.OpenAIWhisperModel,
		AssemblyAIAPIKey:       raw.AssemblyAIAPIKey,
		AssemblyAIAPIURL:       raw.AssemblyAIAPIURL,
		AssemblyAIPollInterval: raw.AssemblyAIPollInterval,
		LocalWhisperURL:        raw.LocalWhisperURL,
		CORSAllowedOrigins:     raw.CORSAllowedOrigins,
		MaxUploadBytes:         raw.MaxUploadBytes,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadDotEnv never overrides variables already present in the environment.
// A missing default .env is fine; a missing ENV_FILE is not.
func loadDotEnv() error {
	path, explicit := os.LookupEnv("ENV_FILE")
	if !explicit || path == "" {
		path = defaultEnvFile
		explicit = false
	}
	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}
