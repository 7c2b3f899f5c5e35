package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full service configuration, loaded from a YAML file with
// environment overrides for secrets.
type Config struct {
	Server    Server    `yaml:"server"`
	Storage   Storage   `yaml:"storage"`
	AI        AI        `yaml:"ai"`
	Documents Documents `yaml:"documents"`
}

// Server configures the HTTP listener.
type Server struct {
	Addr string `yaml:"addr"`
}

// Storage configures the embedded database.
type Storage struct {
	Path     string `yaml:"path"`
	InMemory bool   `yaml:"in_memory"`
}

// AI configures the model provider endpoints.
type AI struct {
	EmbeddingHost  string `yaml:"embedding_host"`
	ChatHost       string `yaml:"chat_host"`
	EmbeddingModel string `yaml:"embedding_model"`
	ChatModel      string `yaml:"chat_model"`
	// APIKey is normally supplied through the PAGEWISE_API_KEY
	// environment variable rather than the file.
	APIKey string `yaml:"api_key"`
}

// Documents configures where raw document bytes are read from.
type Documents struct {
	Dir string `yaml:"dir"`
}

// Default returns the configuration used when no file is present:
// a local listener, on-disk storage, and an Ollama-compatible provider.
func Default() *Config {
	return &Config{
		Server:  Server{Addr: ":8080"},
		Storage: Storage{Path: "data/pagewise.db"},
		AI: AI{
			EmbeddingHost:  "http://localhost:11434/v1",
			ChatHost:       "http://localhost:11434/v1",
			EmbeddingModel: "embeddinggemma",
			ChatModel:      "qwen2.5:3b",
		},
		Documents: Documents{Dir: "data/documents"},
	}
}

// Load reads configuration from path, layered over defaults. A missing
// file is not an error; defaults apply. A .env file in the working
// directory and the process environment override secrets and the
// listener address.
func Load(path string) (*Config, error) {
	// Best effort; absence of a .env file is the normal case.
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
		if err == nil {
			if err := yaml.Unmarshal(raw, cfg); err != nil {
				return nil, fmt.Errorf("parsing config %s: %w", path, err)
			}
		}
	}

	if key := os.Getenv("PAGEWISE_API_KEY"); key != "" {
		cfg.AI.APIKey = key
	}
	if addr := os.Getenv("PAGEWISE_ADDR"); addr != "" {
		cfg.Server.Addr = addr
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the service cannot start with.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if !c.Storage.InMemory && c.Storage.Path == "" {
		return fmt.Errorf("storage.path is required unless storage.in_memory is set")
	}
	if c.AI.EmbeddingHost == "" || c.AI.ChatHost == "" {
		return fmt.Errorf("ai.embedding_host and ai.chat_host are required")
	}
	if c.AI.EmbeddingModel == "" || c.AI.ChatModel == "" {
		return fmt.Errorf("ai.embedding_model and ai.chat_model are required")
	}
	if c.Documents.Dir == "" {
		return fmt.Errorf("documents.dir is required")
	}
	return nil
}
