// Package config provides configuration management for Arthur
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Audio     AudioConfig     `mapstructure:"audio"`
	Wake      WakeConfig      `mapstructure:"wake"`
	STT       STTConfig       `mapstructure:"stt"`
	LLM       LLMConfig       `mapstructure:"llm"`
	TTS       TTSConfig       `mapstructure:"tts"`
	Assistant AssistantConfig `mapstructure:"assistant"`
}

// AudioConfig configures capture and voice activity detection
type AudioConfig struct {
	InputDevice    int           `mapstructure:"input_device"` // -1 selects the system default
	SampleRate     int           `mapstructure:"sample_rate"`
	FrameSize      int           `mapstructure:"frame_size"` // samples per frame
	VADThreshold   float64       `mapstructure:"vad_threshold"`
	SilenceDur     time.Duration `mapstructure:"silence_duration"`
	MinSpeechDur   time.Duration `mapstructure:"min_speech_duration"`
	MaxRecordDur   time.Duration `mapstructure:"max_record_duration"`
	FlushFrames    int           `mapstructure:"flush_frames"`
	MinClipBytes   int           `mapstructure:"min_clip_bytes"`
	PlaybackDevice int           `mapstructure:"playback_device"`
}

// WakeConfig configures wake word detection
type WakeConfig struct {
	AccessKey   string  `mapstructure:"access_key"` // Picovoice access key
	KeywordPath string  `mapstructure:"keyword_path"`
	Phrase      string  `mapstructure:"phrase"`
	Sensitivity float32 `mapstructure:"sensitivity"`
}

// STTConfig configures speech-to-text
type STTConfig struct {
	Provider       string        `mapstructure:"provider"` // whisper-api, whisper-server, deepgram
	Language       string        `mapstructure:"language"`
	Model          string        `mapstructure:"model"`
	APIKey         string        `mapstructure:"api_key"`
	ServerURL      string        `mapstructure:"server_url"` // local whisper server
	DeepgramAPIKey string        `mapstructure:"deepgram_api_key"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

// LLMConfig configures the conversational backends
type LLMConfig struct {
	Provider     string        `mapstructure:"provider"` // ollama, openai
	Fallback     string        `mapstructure:"fallback"` // optional secondary provider
	OllamaURL    string        `mapstructure:"ollama_url"`
	OllamaModel  string        `mapstructure:"ollama_model"`
	OpenAIModel  string        `mapstructure:"openai_model"`
	APIKey       string        `mapstructure:"api_key"`
	MaxTokens    int           `mapstructure:"max_tokens"`
	Temperature  float64       `mapstructure:"temperature"`
	Timeout      time.Duration `mapstructure:"timeout"`
	SystemPrompt string        `mapstructure:"system_prompt"`
	Persona      string        `mapstructure:"persona"` // free-form user/persona notes appended to the system prompt
}

// TTSConfig configures text-to-speech output
type TTSConfig struct {
	Provider string  `mapstructure:"provider"` // process, openai
	Command  string  `mapstructure:"command"`  // external speech command for the process provider
	Voice    string  `mapstructure:"voice"`
	Rate     int     `mapstructure:"rate"` // words per minute for the process provider
	Speed    float64 `mapstructure:"speed"`
	APIKey   string  `mapstructure:"api_key"`
	Model    string  `mapstructure:"model"`
}

// AssistantConfig configures conversation behavior
type AssistantConfig struct {
	MaxHistory   int               `mapstructure:"max_history"`   // turns retained
	ContextTurns int               `mapstructure:"context_turns"` // turns sent to the backend
	Canned       map[string]string `mapstructure:"canned"`        // substring trigger -> fixed reply
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() *Config {
	return &Config{
		Audio: AudioConfig{
			InputDevice:    -1,
			SampleRate:     16000,
			FrameSize:      512,
			VADThreshold:   500,
			SilenceDur:     1500 * time.Millisecond,
			MinSpeechDur:   300 * time.Millisecond,
			MaxRecordDur:   30 * time.Second,
			FlushFrames:    5,
			MinClipBytes:   1000,
			PlaybackDevice: -1,
		},
		Wake: WakeConfig{
			Phrase:      "hey arthur",
			Sensitivity: 0.5,
		},
		STT: STTConfig{
			Provider: "whisper-api",
			Language: "en",
			Model:    "whisper-1",
			Timeout:  30 * time.Second,
		},
		LLM: LLMConfig{
			Provider:     "ollama",
			Fallback:     "",
			OllamaURL:    "http://localhost:11434",
			OllamaModel:  "llama3.2:3b",
			OpenAIModel:  "gpt-4o-mini",
			MaxTokens:    150,
			Temperature:  0.7,
			Timeout:      60 * time.Second,
			SystemPrompt: "You are Arthur, a helpful voice assistant. Be casual, witty, concise (1-2 sentences).",
		},
		TTS: TTSConfig{
			Provider: "process",
			Voice:    "nova",
			Rate:     180,
			Speed:    1.0,
			Model:    "tts-1",
		},
		Assistant: AssistantConfig{
			MaxHistory:   10,
			ContextTurns: 3,
		},
	}
}

// Load reads configuration from file and environment
func Load() (*Config, error) {
	cfg := DefaultConfig()

	configDir, err := GetConfigDir()
	if err != nil {
		return cfg, err
	}
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return cfg, err
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".")

	viper.SetEnvPrefix("ARTHUR")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return cfg, err
		}
		// Config file not found, use defaults and create one
		if err := Save(cfg); err != nil {
			return cfg, err
		}
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Watch re-reads the config file on change and invokes onChange with the
// fresh configuration. Unparseable edits are ignored; the previous
// configuration stays in effect.
func Watch(onChange func(*Config)) {
	viper.OnConfigChange(func(e fsnotify.Event) {
		if e.Op&(fsnotify.Write|fsnotify.Create) == 0 {
			return
		}
		cfg := DefaultConfig()
		if err := viper.Unmarshal(cfg); err != nil {
			return
		}
		onChange(cfg)
	})
	viper.WatchConfig()
}

// Save writes the configuration to file
func Save(cfg *Config) error {
	configDir, err := GetConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return err
	}

	viper.Set("audio", cfg.Audio)
	viper.Set("wake", cfg.Wake)
	viper.Set("stt", cfg.STT)
	viper.Set("llm", cfg.LLM)
	viper.Set("tts", cfg.TTS)
	viper.Set("assistant", cfg.Assistant)

	return viper.WriteConfigAs(filepath.Join(configDir, "config.yaml"))
}

// GetConfigDir returns the configuration directory path
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".arthur"), nil
}
