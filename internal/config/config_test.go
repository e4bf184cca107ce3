package config

import (
	"os"
	"testing"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DEEPGRAM_API_KEY", "test-deepgram-key")
	t.Setenv("CARTESIA_API_KEY", "test-cartesia-key")
	t.Setenv("STORE_ACCESS_KEY", "test-access")
	t.Setenv("STORE_SECRET_KEY", "test-secret")
}

func TestLoad(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.DeepgramAPIKey != "test-deepgram-key" {
		t.Errorf("Expected DeepgramAPIKey 'test-deepgram-key', got '%s'", cfg.DeepgramAPIKey)
	}

	if cfg.CartesiaAPIKey != "test-cartesia-key" {
		t.Errorf("Expected CartesiaAPIKey 'test-cartesia-key', got '%s'", cfg.CartesiaAPIKey)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	os.Unsetenv("DEEPGRAM_API_KEY")
	os.Unsetenv("CARTESIA_API_KEY")
	os.Unsetenv("STORE_ACCESS_KEY")
	os.Unsetenv("STORE_SECRET_KEY")

	_, err := Load()
	if err == nil {
		t.Error("Expected error when required keys are missing")
	}
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Expected default Port '8080', got '%s'", cfg.Port)
	}

	if cfg.STTProvider != "deepgram" {
		t.Errorf("Expected default STTProvider 'deepgram', got '%s'", cfg.STTProvider)
	}

	if cfg.TTSProvider != "cartesia" {
		t.Errorf("Expected default TTSProvider 'cartesia', got '%s'", cfg.TTSProvider)
	}

	if cfg.DeepgramModel != "nova-2" {
		t.Errorf("Expected default DeepgramModel 'nova-2', got '%s'", cfg.DeepgramModel)
	}

	if cfg.DefaultLanguage != "es" {
		t.Errorf("Expected default DefaultLanguage 'es', got '%s'", cfg.DefaultLanguage)
	}

	if cfg.CaptureSampleRate != 16000 {
		t.Errorf("Expected default CaptureSampleRate 16000, got %d", cfg.CaptureSampleRate)
	}

	if cfg.StoreBucket != "voice-clips" {
		t.Errorf("Expected default StoreBucket 'voice-clips', got '%s'", cfg.StoreBucket)
	}

	if cfg.StoreURLTTL != 3600 {
		t.Errorf("Expected default StoreURLTTL 3600, got %d", cfg.StoreURLTTL)
	}

	if !cfg.MetricsEnabled {
		t.Error("Expected MetricsEnabled to default to true")
	}
}

func TestValidate_ProviderSelection(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "deepgram requires key",
			mutate:  func(c *Config) { c.STTProvider = "deepgram"; c.DeepgramAPIKey = "" },
			wantErr: true,
		},
		{
			name:    "whisper requires openai key",
			mutate:  func(c *Config) { c.STTProvider = "whisper"; c.OpenAIAPIKey = "" },
			wantErr: true,
		},
		{
			name:    "whisper with openai key",
			mutate:  func(c *Config) { c.STTProvider = "whisper"; c.OpenAIAPIKey = "sk-test" },
			wantErr: false,
		},
		{
			name:    "openai tts requires openai key",
			mutate:  func(c *Config) { c.TTSProvider = "openai"; c.OpenAIAPIKey = "" },
			wantErr: true,
		},
		{
			name:    "unknown stt provider",
			mutate:  func(c *Config) { c.STTProvider = "carrier-pigeon" },
			wantErr: true,
		},
		{
			name:    "unknown tts provider",
			mutate:  func(c *Config) { c.TTSProvider = "gramophone" },
			wantErr: true,
		},
		{
			name:    "store unconfigured is valid",
			mutate:  func(c *Config) { c.StoreAccessKey = ""; c.StoreSecretKey = "" },
			wantErr: false,
		},
		{
			name:    "store access key without secret",
			mutate:  func(c *Config) { c.StoreSecretKey = "" },
			wantErr: true,
		},
		{
			name:    "store secret key without access",
			mutate:  func(c *Config) { c.StoreAccessKey = "" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				STTProvider:    "deepgram",
				TTSProvider:    "cartesia",
				DeepgramAPIKey: "dg-key",
				CartesiaAPIKey: "ca-key",
				StoreAccessKey: "ak",
				StoreSecretKey: "sk",
			}
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Error("Expected validation error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Expected no error, got %v", err)
			}
		})
	}
}

func TestStoreConfigured(t *testing.T) {
	cfg := &Config{}
	if cfg.StoreConfigured() {
		t.Error("Expected StoreConfigured false with no keys")
	}

	cfg.StoreAccessKey = "ak"
	cfg.StoreSecretKey = "sk"
	if !cfg.StoreConfigured() {
		t.Error("Expected StoreConfigured true with both keys")
	}
}

func TestGetEnv(t *testing.T) {
	t.Setenv("VOICE_TEST_KEY", "set-value")

	if got := GetEnv("VOICE_TEST_KEY", "fallback"); got != "set-value" {
		t.Errorf("Expected 'set-value', got '%s'", got)
	}

	if got := GetEnv("VOICE_TEST_MISSING", "fallback"); got != "fallback" {
		t.Errorf("Expected 'fallback', got '%s'", got)
	}
}
