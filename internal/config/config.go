package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const DefaultPath = "./config/config.toml"

type LoggerConfigs struct {
	ConsoleLevel  string `toml:"console_level"`
	ConsoleOutput string `toml:"console_output"`
	FileLevel     string `toml:"file_level"`
	FileOutput    string `toml:"file_output"`
}

type CacheConfig struct {
	UseCache   bool          `toml:"use_cache"`
	TimeToLive uint16        `toml:"time_to_live"`
	MaxAge     time.Duration `toml:"-"`
}

// DataConfig locates the store and the usage document.
type DataConfig struct {
	Dataset      string `toml:"dataset"`
	RemoteURL    string `toml:"remote_url"`
	Token        string `toml:"token"`
	CacheDir     string `toml:"cache_dir"`
	LocalDir     string `toml:"local_dir"`
	DatabaseFile string `toml:"database_file"`
	PromptFile   string `toml:"prompt_file"`
	Offline      bool   `toml:"offline"`
}

type ServerConfig struct {
	Name      string `toml:"name"`
	Version   string `toml:"version"`
	Prefix    string `toml:"prefix"`
	Transport string `toml:"transport"`
	Host      string `toml:"host"`
	Port      uint16 `toml:"port"`
	Endpoint  string `toml:"endpoint"`
	// HugeQueryTool embeds the usage document in the query tool description.
	HugeQueryTool bool `toml:"huge_query_tool"`
}

type Config struct {
	Cache          CacheConfig   `toml:"cache"`
	Locale         string        `toml:"locale"`
	MaxWorkers     uint8         `toml:"max_workers"`
	MaxRetries     uint8         `toml:"max_retries"`
	RetryBackoff   uint16        `toml:"retry_backoff"`
	MaxConnections uint8         `toml:"max_connections"`
	Timeout        uint8         `toml:"timeout"`
	Data           DataConfig    `toml:"data"`
	Server         ServerConfig  `toml:"server"`
	Logging        LoggerConfigs `toml:"logger"`
}

var transports = []string{"stdio", "http", "sse"}

func NewConfig() *Config {
	return &Config{
		Cache:          CacheConfig{UseCache: false, TimeToLive: 300},
		Locale:         "auto",
		MaxWorkers:     8,
		MaxRetries:     3,
		RetryBackoff:   500,
		MaxConnections: 8,
		Timeout:        30,
		Data: DataConfig{
			Dataset:      "opengenes",
			RemoteURL:    "https://huggingface.co/datasets/longevity-genie/bio-mcp-data/resolve/main",
			Token:        "${HF_TOKEN}",
			CacheDir:     "./data/cache",
			LocalDir:     "./data",
			DatabaseFile: "open_genes.sqlite",
			PromptFile:   "prompt.txt",
		},
		Server: ServerConfig{
			Name:      "OpenGenes MCP Server",
			Version:   "0.1.0",
			Prefix:    "opengenes_",
			Transport: "stdio",
			Host:      "0.0.0.0",
			Port:      3001,
			Endpoint:  "/mcp",
		},
		Logging: LoggerConfigs{
			ConsoleLevel:  "info",
			ConsoleOutput: "stderr",
			FileLevel:     "debug",
		},
	}
}

// Load reads path over the defaults. A missing file leaves the defaults in
// place; a .env file in the working directory is loaded when present, and
// OPENGENES_* variables override both.
func Load(path string) (*Config, error) {
	conf := NewConfig()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, conf); err != nil {
				return nil, fmt.Errorf("Error loading config TOML: %w", err)
			}
		} else if errors.Is(err, fs.ErrNotExist) {
			slog.Debug("Config file not found, using defaults", "path", path)
		} else {
			return nil, fmt.Errorf("Error reading config: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("Error loading .env file: %w", err)
	}

	if err := conf.applyEnv(); err != nil {
		return nil, err
	}

	conf.Data.Token = getSecretFromEnv(conf.Data.Token)
	conf.Cache.MaxAge = time.Duration(conf.Cache.TimeToLive) * time.Second

	if err := conf.Validate(); err != nil {
		return nil, err
	}

	return conf, nil
}

func (c *Config) QueryTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// Backoff is the delay before the first artifact download retry; later
// retries wait proportionally longer.
func (c *Config) Backoff() time.Duration {
	return time.Duration(c.RetryBackoff) * time.Millisecond
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) Validate() error {
	if err := c.validateLoggerConfig(); err != nil {
		return err
	}

	if !slices.Contains(transports, c.Server.Transport) {
		return fmt.Errorf("%s is not in valid transports %v", c.Server.Transport, transports)
	}

	if c.Server.Transport == "stdio" && c.Logging.ConsoleOutput == "stdout" {
		return fmt.Errorf("console logging to stdout would corrupt the stdio transport")
	}

	if c.Data.DatabaseFile == "" {
		return fmt.Errorf("data.database_file must be set")
	}

	return nil
}

func (c *Config) validateLoggerConfig() error {
	consoleOutputs := []string{"stderr", "stdout"}

	if !slices.Contains(consoleOutputs, c.Logging.ConsoleOutput) {
		return fmt.Errorf("%s is not in valid console outputs %v", c.Logging.ConsoleOutput, consoleOutputs)
	}

	return nil
}

func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"OPENGENES_TRANSPORT": &c.Server.Transport,
		"OPENGENES_HOST":      &c.Server.Host,
		"OPENGENES_LOCAL_DIR": &c.Data.LocalDir,
		"OPENGENES_CACHE_DIR": &c.Data.CacheDir,
		"OPENGENES_REMOTE":    &c.Data.RemoteURL,
		"OPENGENES_LOG_LEVEL": &c.Logging.ConsoleLevel,
	}
	for key, dest := range strs {
		if v, ok := os.LookupEnv(key); ok {
			*dest = v
		}
	}

	if v, ok := os.LookupEnv("OPENGENES_PORT"); ok {
		port, err := strconv.ParseUint(v, 10, 16)
		if err != nil {
			return fmt.Errorf("invalid OPENGENES_PORT %q: %w", v, err)
		}
		c.Server.Port = uint16(port)
	}

	if v, ok := os.LookupEnv("OPENGENES_OFFLINE"); ok {
		offline, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid OPENGENES_OFFLINE %q: %w", v, err)
		}
		c.Data.Offline = offline
	}

	return nil
}

// getSecretFromEnv expands a value of the form ${VAR}.
func getSecretFromEnv(value string) string {
	if strings.HasPrefix(value, "${") && strings.HasSuffix(value, "}") {
		envVar := strings.TrimPrefix(strings.TrimSuffix(value, "}"), "${")
		return os.Getenv(envVar)
	}
	return value
}
