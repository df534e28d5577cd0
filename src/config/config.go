package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"omniselect-ocr/src/hotkey"
)

const (
	DefaultAPIKeyPath = "/run/secrets/api_keys/openrouter"
	APIKeyPathEnvVar  = "OPENROUTER_API_KEY_FILE"
	ConfigFileEnvVar  = "OMNISELECT_CONFIG"
	EnvFileEnvVar     = "OMNISELECT_ENV"

	EngineTesseract = "tesseract"
	EngineLLM       = "llm"
)

// LoadOptions carries command-line overrides, applied after every other
// source.
type LoadOptions struct {
	ConfigPath         string
	APIKeyPathOverride string
	Hotkey             string
	Engine             string
}

type Config struct {
	Hotkey            string   `toml:"hotkey"`
	OCREngine         string   `toml:"ocr_engine"`
	TesseractLangs    []string `toml:"tesseract_langs"`
	APIKey            string   `toml:"-"`
	APIKeyPath        string   `toml:"api_key_file"`
	Model             string   `toml:"model"`
	Providers         []string `toml:"providers"`
	OCRDeadlineSec    int      `toml:"ocr_deadline_sec"`
	PollIntervalMs    int      `toml:"poll_interval_ms"`
	CaptureSettleMs   int      `toml:"capture_settle_ms"`
	NotifyTimeoutSec  int      `toml:"notify_timeout_sec"`
	EnableFileLogging bool     `toml:"enable_file_logging"`

	// Sources lists the files that contributed, for the startup log.
	Sources []string `toml:"-"`
}

func defaults() *Config {
	return &Config{
		OCREngine:        EngineTesseract,
		TesseractLangs:   []string{"eng"},
		APIKeyPath:       DefaultAPIKeyPath,
		OCRDeadlineSec:   20,
		PollIntervalMs:   100,
		CaptureSettleMs:  150,
		NotifyTimeoutSec: 3,
	}
}

func Load() (*Config, error) {
	return LoadWithOptions(LoadOptions{})
}

// LoadWithOptions layers defaults, the TOML file, .env, the environment and
// finally opts.
func LoadWithOptions(opts LoadOptions) (*Config, error) {
	cfg := defaults()

	path, explicit := resolveConfigPath(opts)
	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			if explicit || !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("config file %s: %w", path, err)
			}
		} else {
			cfg.Sources = append(cfg.Sources, path)
		}
	}

	// .env only fills variables the environment does not already set.
	if envPath := resolveEnvPath(); envPath != "" {
		if err := godotenv.Load(envPath); err != nil {
			return nil, fmt.Errorf("env file %s: %w", envPath, err)
		}
		cfg.Sources = append(cfg.Sources, envPath)
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if v := strings.TrimSpace(opts.APIKeyPathOverride); v != "" {
		cfg.APIKeyPath = v
	}
	cfg.APIKey = resolveAPIKey(cfg.APIKeyPath)

	if v := strings.TrimSpace(opts.Hotkey); v != "" {
		cfg.Hotkey = v
	}
	if v := strings.TrimSpace(opts.Engine); v != "" {
		cfg.OCREngine = v
	}
	cfg.OCREngine = strings.ToLower(strings.TrimSpace(cfg.OCREngine))

	return cfg, nil
}

func resolveConfigPath(opts LoadOptions) (path string, explicit bool) {
	if opts.ConfigPath != "" {
		return opts.ConfigPath, true
	}
	if p := os.Getenv(ConfigFileEnvVar); p != "" {
		return p, true
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", false
	}
	return filepath.Join(dir, "omniselect", "config.toml"), false
}

// resolveEnvPath prefers .env next to the executable, then OMNISELECT_ENV.
func resolveEnvPath() string {
	if execPath, err := os.Executable(); err == nil {
		exeEnv := filepath.Join(filepath.Dir(execPath), ".env")
		if _, err := os.Stat(exeEnv); err == nil {
			return exeEnv
		}
	}

	if alt := os.Getenv(EnvFileEnvVar); alt != "" {
		if _, err := os.Stat(alt); err == nil {
			return alt
		}
	}

	return ""
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("HOTKEY"); v != "" {
		cfg.Hotkey = v
	}
	if v := os.Getenv("OCR_ENGINE"); v != "" {
		cfg.OCREngine = v
	}
	if v := os.Getenv("TESSERACT_LANGS"); v != "" {
		cfg.TesseractLangs = splitList(v, "+,")
	}
	if v := os.Getenv("MODEL"); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv("PROVIDERS"); v != "" {
		cfg.Providers = splitList(v, ",")
	}
	if v := strings.TrimSpace(os.Getenv(APIKeyPathEnvVar)); v != "" {
		cfg.APIKeyPath = v
	}
	if v := os.Getenv("ENABLE_FILE_LOGGING"); v != "" {
		cfg.EnableFileLogging = strings.EqualFold(v, "true") || v == "1"
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{"OCR_DEADLINE_SEC", &cfg.OCRDeadlineSec},
		{"POLL_INTERVAL_MS", &cfg.PollIntervalMs},
		{"CAPTURE_SETTLE_MS", &cfg.CaptureSettleMs},
		{"NOTIFY_TIMEOUT_SEC", &cfg.NotifyTimeoutSec},
	}
	for _, e := range ints {
		v := strings.TrimSpace(os.Getenv(e.name))
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %q is not a number", e.name, v)
		}
		*e.dst = n
	}
	return nil
}

func splitList(s, seps string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return strings.ContainsRune(seps, r) }) {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// resolveAPIKey prefers the key file over OPENROUTER_API_KEY.
func resolveAPIKey(keyPath string) string {
	if keyPath != "" {
		if data, err := os.ReadFile(keyPath); err == nil {
			if fileKey := strings.TrimSpace(string(data)); fileKey != "" {
				return fileKey
			}
		}
	}

	return os.Getenv("OPENROUTER_API_KEY")
}

// Chord parses the configured hotkey, falling back to the platform default.
func (c *Config) Chord() (hotkey.Chord, error) {
	if strings.TrimSpace(c.Hotkey) == "" {
		return hotkey.DefaultChord(runtime.GOOS), nil
	}
	return hotkey.ParseChord(c.Hotkey)
}

func (c *Config) Validate() error {
	var errs []error
	if _, err := c.Chord(); err != nil {
		errs = append(errs, fmt.Errorf("hotkey: %w", err))
	}
	switch c.OCREngine {
	case EngineTesseract:
	case EngineLLM:
		if c.APIKey == "" {
			errs = append(errs, errors.New("ocr engine llm needs OPENROUTER_API_KEY or a key file"))
		}
		if c.Model == "" {
			errs = append(errs, errors.New("ocr engine llm needs MODEL"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown ocr engine %q", c.OCREngine))
	}
	for _, d := range []struct {
		name string
		v    int
	}{
		{"OCR_DEADLINE_SEC", c.OCRDeadlineSec},
		{"POLL_INTERVAL_MS", c.PollIntervalMs},
		{"NOTIFY_TIMEOUT_SEC", c.NotifyTimeoutSec},
	} {
		if d.v <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %d", d.name, d.v))
		}
	}
	if c.CaptureSettleMs < 0 {
		errs = append(errs, fmt.Errorf("CAPTURE_SETTLE_MS must not be negative, got %d", c.CaptureSettleMs))
	}
	return errors.Join(errs...)
}

func (c *Config) OCRDeadline() time.Duration {
	return time.Duration(c.OCRDeadlineSec) * time.Second
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

func (c *Config) CaptureSettle() time.Duration {
	return time.Duration(c.CaptureSettleMs) * time.Millisecond
}

func (c *Config) NotifyTimeout() time.Duration {
	return time.Duration(c.NotifyTimeoutSec) * time.Second
}
