package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"kakeibot/internal/parser"
)

// Config is the root configuration for kakeibot. It is loaded once at
// startup and read-only thereafter.
type Config struct {
	General   GeneralConfig             `json:"general"`
	Providers map[string]ProviderConfig `json:"providers"`
	Channels  ChannelsConfig            `json:"channels"`
	Sink      SinkConfig                `json:"sink"`
	Journal   JournalConfig             `json:"journal"`
	Persona   PersonaConfig             `json:"persona"`
	Metrics   MetricsConfig             `json:"metrics"`
}

type GeneralConfig struct {
	LogLevel              string   `json:"logLevel"`
	LogFile               string   `json:"logFile,omitempty"`
	Grammar               string   `json:"grammar"` // "simple" | "structured"
	DefaultProvider       string   `json:"defaultProvider"`
	FailoverChain         []string `json:"failoverChain,omitempty"` // provider failover order
	RequestTimeoutSeconds int      `json:"requestTimeoutSeconds,omitempty"`
}

type ProviderConfig struct {
	Enabled     bool    `json:"enabled"`
	APIBase     string  `json:"apiBase,omitempty"`
	APIKey      string  `json:"apiKey,omitempty"`
	Model       string  `json:"model,omitempty"`
	MaxTokens   int     `json:"maxTokens,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
}

type ChannelsConfig struct {
	Line     LineConfig     `json:"line"`
	Telegram TelegramConfig `json:"telegram,omitempty"`
}

type LineConfig struct {
	Port          int    `json:"port"`
	Path          string `json:"path"`
	ChannelSecret string `json:"channelSecret,omitempty"` // enables signature verification
	ChannelToken  string `json:"channelToken,omitempty"`
}

type TelegramConfig struct {
	Enabled     bool   `json:"enabled"`
	Token       string `json:"token,omitempty"`
	WebhookPath string `json:"webhookPath,omitempty"`
}

type SinkConfig struct {
	URL            string `json:"url,omitempty"` // empty = record-keeping skipped
	Action         string `json:"action,omitempty"`
	TimeoutSeconds int    `json:"timeoutSeconds,omitempty"`
}

type JournalConfig struct {
	Enabled bool   `json:"enabled"`
	DBPath  string `json:"dbPath,omitempty"`
}

type PersonaConfig struct {
	File string `json:"file,omitempty"` // empty = built-in persona
}

type MetricsConfig struct {
	Enabled  bool   `json:"enabled"`
	Endpoint string `json:"endpoint,omitempty"`
}

// RequestTimeout returns the provider/sink call timeout as a duration.
func (c *Config) RequestTimeout() time.Duration {
	if c.General.RequestTimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.General.RequestTimeoutSeconds) * time.Second
}

// DefaultConfigDir returns the default config directory (~/.kakeibot).
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".kakeibot"
	}
	return filepath.Join(home, ".kakeibot")
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.json")
}

func Load(path string) (*Config, error) {
	path = ExpandPath(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	cfg := Defaults()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}

	// Substitute environment variables (${VAR}, ${VAR:-default}) across the
	// merged config, including placeholders inherited from the defaults.
	cfg = ResolveEnv(cfg)

	cfg.Journal.DBPath = ExpandPath(cfg.Journal.DBPath)
	cfg.Persona.File = ExpandPath(cfg.Persona.File)
	cfg.General.LogFile = ExpandPath(cfg.General.LogFile)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with the environment variable value.
// Supports default values: ${VAR:-default} uses "default" when VAR is unset
// or empty.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultVal := ""
		hasDefault := len(groups) >= 3 && groups[2] != ""
		if hasDefault {
			defaultVal = groups[2]
		}

		val, exists := os.LookupEnv(varName)
		if !exists || val == "" {
			if hasDefault {
				return defaultVal
			}
			return match // keep original if no env var and no default
		}
		return val
	})
}

// unresolvedPattern matches JSON string values that are still a bare ${VAR}
// placeholder after expansion, meaning the variable was unset.
var unresolvedPattern = regexp.MustCompile(`"\$\{[A-Za-z_][A-Za-z0-9_]*(?::-[^"}]*)?\}"`)

// scrubUnresolved blanks placeholder values whose environment variable was
// never set, so an unset ${GAS_URL} reads as "no sink configured" rather
// than a literal endpoint.
func scrubUnresolved(data []byte) []byte {
	return unresolvedPattern.ReplaceAll(data, []byte(`""`))
}

// ResolveEnv expands ${VAR} placeholders inside an in-memory config, used
// when running without a config file. Unresolved placeholders become empty.
func ResolveEnv(cfg *Config) *Config {
	data, err := json.Marshal(cfg)
	if err != nil {
		return cfg
	}
	data = scrubUnresolved([]byte(ExpandEnvVars(string(data))))
	out := &Config{}
	if err := json.Unmarshal(data, out); err != nil {
		return cfg
	}
	return out
}

func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0o644)
}

// Validate checks that the config has valid values.
func Validate(cfg *Config) error {
	var errs []string

	switch cfg.General.LogLevel {
	case "", "debug", "info", "warn", "error":
		// valid
	default:
		errs = append(errs, "general.logLevel must be one of: debug, info, warn, error")
	}

	switch parser.Grammar(cfg.General.Grammar) {
	case "", parser.GrammarSimple, parser.GrammarStructured:
		// valid
	default:
		errs = append(errs, "general.grammar must be one of: simple, structured")
	}

	if cfg.Channels.Line.Port < 0 || cfg.Channels.Line.Port > 65535 {
		errs = append(errs, "channels.line.port must be between 0 and 65535")
	}
	if !strings.HasPrefix(cfg.Channels.Line.Path, "/") {
		errs = append(errs, "channels.line.path must start with /")
	}
	if cfg.Channels.Telegram.Enabled && cfg.Channels.Telegram.Token == "" {
		errs = append(errs, "channels.telegram.token is required when telegram is enabled")
	}

	if cfg.General.DefaultProvider != "" {
		if _, ok := cfg.Providers[cfg.General.DefaultProvider]; !ok {
			errs = append(errs, fmt.Sprintf("general.defaultProvider references unknown provider: %s", cfg.General.DefaultProvider))
		}
	}

	// Validate failover chain references exist in providers.
	for _, provName := range cfg.General.FailoverChain {
		if _, ok := cfg.Providers[provName]; !ok {
			errs = append(errs, fmt.Sprintf("general.failoverChain references unknown provider: %s", provName))
		}
	}

	if cfg.Journal.Enabled && cfg.Journal.DBPath == "" {
		errs = append(errs, "journal.dbPath is required when journal is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ExpandPath resolves ~/ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
