package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/foxseedlab/voxqueue/internal/transcriber"
)

const (
	CaptureDeviceFFmpeg  = "ffmpeg"
	CaptureDeviceOpusUDP = "opus-udp"
)

type Config struct {
	Env                  string
	TranscribeAPIURL     string
	TranscribeModel      transcriber.Model
	TranscribePrompt     string
	RequestTimeout       time.Duration
	MaxRecordingDuration time.Duration
	CaptureDevice        string
	CaptureInput         string
	OpusListenAddr       string
	NATSURL              string
	NATSSubject          string
	TranscriptWebhookURL string
}

func (c *Config) Validate() error {
	if c.TranscribeAPIURL == "" {
		return fmt.Errorf("TRANSCRIBE_API_URL is required")
	}
	if err := validateHTTPURL(c.TranscribeAPIURL); err != nil {
		return fmt.Errorf("TRANSCRIBE_API_URL is invalid: %w", err)
	}
	if _, err := transcriber.ParseModel(string(c.TranscribeModel)); err != nil {
		return fmt.Errorf("TRANSCRIBE_MODEL is invalid: %w", err)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive, got %s", c.RequestTimeout)
	}
	if c.MaxRecordingDuration <= 0 {
		return fmt.Errorf("MAX_RECORDING_DURATION must be positive, got %s", c.MaxRecordingDuration)
	}
	switch c.CaptureDevice {
	case CaptureDeviceFFmpeg:
	case CaptureDeviceOpusUDP:
		if c.OpusListenAddr == "" {
			return fmt.Errorf("OPUS_LISTEN_ADDR is required when CAPTURE_DEVICE=%s", CaptureDeviceOpusUDP)
		}
	default:
		return fmt.Errorf("CAPTURE_DEVICE must be %q or %q, got %q", CaptureDeviceFFmpeg, CaptureDeviceOpusUDP, c.CaptureDevice)
	}
	if c.NATSURL != "" && c.NATSSubject == "" {
		return fmt.Errorf("NATS_SUBJECT is required when NATS_URL is set")
	}
	if c.TranscriptWebhookURL != "" {
		if err := validateHTTPURL(c.TranscriptWebhookURL); err != nil {
			return fmt.Errorf("TRANSCRIPT_WEBHOOK_URL is invalid: %w", err)
		}
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

type ServerConfig struct {
	Env                    string
	ListenAddr             string
	DatabaseURL            string
	OpenAIAPIKey           string
	OpenAIAPIURL           string
	OpenAIWhisperModel     string
	AssemblyAIAPIKey       string
	AssemblyAIAPIURL       string
	AssemblyAIPollInterval time.Duration
	LocalWhisperURL        string
	CORSAllowedOrigins     []string
	MaxUploadBytes         int64
}

func (c *ServerConfig) Validate() error {
	for _, req := range c.requiredFieldChecks() {
		if req.value == "" {
			return fmt.Errorf("%s is required", req.name)
		}
	}
	if _, err := c.DatabaseDriver(); err != nil {
		return err
	}
	if c.AssemblyAIPollInterval <= 0 {
		return fmt.Errorf("ASSEMBLYAI_POLL_INTERVAL must be positive, got %s", c.AssemblyAIPollInterval)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive, got %d", c.MaxUploadBytes)
	}
	if c.LocalWhisperURL != "" {
		if err := validateHTTPURL(c.LocalWhisperURL); err != nil {
			return fmt.Errorf("LOCAL_WHISPER_URL is invalid: %w", err)
		}
	}
	return nil
}

// DatabaseDriver returns "postgres" or "sqlite" depending on the DATABASE_URL scheme.
func (c *ServerConfig) DatabaseDriver() (string, error) {
	switch {
	case strings.HasPrefix(c.DatabaseURL, "postgres://"), strings.HasPrefix(c.DatabaseURL, "postgresql://"):
		return "postgres", nil
	case strings.HasPrefix(c.DatabaseURL, "sqlite://"):
		if strings.TrimPrefix(c.DatabaseURL, "sqlite://") == "" {
			return "", fmt.Errorf("DATABASE_URL sqlite path is empty")
		}
		return "sqlite", nil
	default:
		return "", fmt.Errorf("DATABASE_URL must start with postgres:// or sqlite://")
	}
}

func (c *ServerConfig) IsDevelopment() bool {
	return c.Env == "development"
}

type requiredEnvField struct {
	name  string
	value string
}

func (c *ServerConfig) requiredFieldChecks() []requiredEnvField {
	return []requiredEnvField{
		{name: "LISTEN_ADDR", value: c.ListenAddr},
		{name: "DATABASE_URL", value: c.DatabaseURL},
		{name: "OPENAI_API_URL", value: c.OpenAIAPIURL},
		{name: "OPENAI_WHISPER_MODEL", value: c.OpenAIWhisperModel},
		{name: "ASSEMBLYAI_API_URL", value: c.AssemblyAIAPIURL},
	}
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("host is empty")
	}
	return nil
}
