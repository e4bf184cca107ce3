package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the voice service
type Config struct {
	// Server configuration
	Port string `envconfig:"PORT" default:"8080"`

	// Allowed browser origins for the web client (comma separated).
	// "*" is acceptable for local development only.
	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS" default:"*"`

	// Provider selection
	STTProvider string `envconfig:"STT_PROVIDER" default:"deepgram"` // deepgram, whisper
	TTSProvider string `envconfig:"TTS_PROVIDER" default:"cartesia"` // cartesia, openai

	// Deepgram STT API configuration
	DeepgramAPIKey string `envconfig:"DEEPGRAM_API_KEY" default:""`
	DeepgramModel  string `envconfig:"DEEPGRAM_MODEL" default:"nova-2"` // nova-2, enhanced, base

	// OpenAI configuration (Whisper STT and/or speech synthesis)
	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY" default:""`
	OpenAIVoice  string `envconfig:"OPENAI_VOICE" default:"alloy"`

	// Cartesia TTS API configuration
	CartesiaAPIKey  string `envconfig:"CARTESIA_API_KEY" default:""`
	CartesiaVoiceID string `envconfig:"CARTESIA_VOICE_ID" default:"sonic-multilingual"`
	CartesiaModelID string `envconfig:"CARTESIA_MODEL_ID" default:"sonic"`

	// Default language tag used when the client omits one (lesson language)
	DefaultLanguage string `envconfig:"DEFAULT_LANGUAGE" default:"es"`

	// Clip store (S3-compatible) for synthesized audio
	StoreEndpoint  string `envconfig:"STORE_ENDPOINT" default:"localhost:9000"`
	StoreAccessKey string `envconfig:"STORE_ACCESS_KEY" default:""`
	StoreSecretKey string `envconfig:"STORE_SECRET_KEY" default:""`
	StoreBucket    string `envconfig:"STORE_BUCKET" default:"voice-clips"`
	StoreUseSSL    bool   `envconfig:"STORE_USE_SSL" default:"false"`
	StoreURLTTL    int    `envconfig:"STORE_URL_TTL" default:"3600"` // Presigned URL lifetime in seconds

	// Capture configuration
	CaptureSampleRate int `envconfig:"CAPTURE_SAMPLE_RATE" default:"16000"` // Hz, mono 16-bit PCM
	CaptureChannels   int `envconfig:"CAPTURE_CHANNELS" default:"1"`
	PermissionTimeout int `envconfig:"PERMISSION_TIMEOUT" default:"15"` // Seconds to wait for a permission reply

	// Voice activity detection over captured audio
	VADEnergyThreshold float64 `envconfig:"VAD_ENERGY_THRESHOLD" default:"500.0"` // RMS energy threshold
	VADSilenceFrames   int     `envconfig:"VAD_SILENCE_FRAMES" default:"10"`      // Frames of silence to mark speech end

	// Resilience configuration
	CircuitBreakerMaxFailures  int `envconfig:"CIRCUIT_BREAKER_MAX_FAILURES" default:"5"`   // Failures before opening circuit
	CircuitBreakerResetTimeout int `envconfig:"CIRCUIT_BREAKER_RESET_TIMEOUT" default:"30"` // Seconds before attempting recovery
	StoreRetryMaxAttempts      int `envconfig:"STORE_RETRY_MAX_ATTEMPTS" default:"3"`       // Upload retry attempts
	StoreRetryInitialBackoff   int `envconfig:"STORE_RETRY_INITIAL_BACKOFF" default:"100"`  // Initial backoff in milliseconds

	// Rate limiting on the synthesis endpoint (requests per minute per client)
	SynthesisRateLimit int `envconfig:"SYNTHESIS_RATE_LIMIT" default:"30"`

	// Observability configuration
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`       // Log level: debug, info, warn, error
	LogPretty      bool   `envconfig:"LOG_PRETTY" default:"false"`     // Pretty print logs (for development)
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"true"` // Enable Prometheus metrics
}

// Load reads configuration from environment variables
// It first attempts to load from .env file if it exists, then from environment
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration directly from environment variables
// without attempting to load .env file (useful for containerized deployments)
func LoadFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that the keys required by the selected providers are set
func (c *Config) Validate() error {
	switch c.STTProvider {
	case "deepgram":
		if c.DeepgramAPIKey == "" {
			return fmt.Errorf("DEEPGRAM_API_KEY is required when STT_PROVIDER=deepgram")
		}
	case "whisper":
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required when STT_PROVIDER=whisper")
		}
	default:
		return fmt.Errorf("unknown STT_PROVIDER %q (expected deepgram or whisper)", c.STTProvider)
	}

	switch c.TTSProvider {
	case "cartesia":
		if c.CartesiaAPIKey == "" {
			return fmt.Errorf("CARTESIA_API_KEY is required when TTS_PROVIDER=cartesia")
		}
	case "openai":
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required when TTS_PROVIDER=openai")
		}
	default:
		return fmt.Errorf("unknown TTS_PROVIDER %q (expected cartesia or openai)", c.TTSProvider)
	}

	// The clip store is optional (synthesized audio is inlined without it),
	// but a lone key is a misconfiguration
	if (c.StoreAccessKey == "") != (c.StoreSecretKey == "") {
		return fmt.Errorf("STORE_ACCESS_KEY and STORE_SECRET_KEY must be set together")
	}

	return nil
}

// StoreConfigured reports whether clip store credentials are present
func (c *Config) StoreConfigured() bool {
	return c.StoreAccessKey != "" && c.StoreSecretKey != ""
}

// GetEnv returns the value of an environment variable or a default value
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
