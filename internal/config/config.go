package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration outside the queues themselves.
type Paths struct {
	LogDir            string `toml:"log_dir"`
	ScriptDir         string `toml:"script_dir"`
	CaptionsOutputDir string `toml:"captions_output_dir"`
	InfoOutputDir     string `toml:"info_output_dir"`
}

// Queues contains the root directory of each pipeline queue. A queue's
// identity is its root; the three roots must be distinct.
type Queues struct {
	CaptionsDir string `toml:"captions_dir"`
	InfoDir     string `toml:"info_dir"`
	RestingDir  string `toml:"resting_dir"`
}

// Discovery contains configuration for channel enumeration.
type Discovery struct {
	Channels           []string `toml:"channels"`
	MaxNewVideos       int      `toml:"max_new_videos"`
	JitterMaxSeconds   int      `toml:"jitter_max_seconds"`
	CookiesFromBrowser string   `toml:"cookies_from_browser"`
	YtDlpBinary        string   `toml:"yt_dlp_binary"`
}

// Kaggle contains configuration for remote kernel batch submission.
type Kaggle struct {
	User                string `toml:"user"`
	Binary              string `toml:"binary"`
	BatchSize           int    `toml:"batch_size"`
	MinutesQuota        int    `toml:"minutes_quota"`
	CaptionsTemplate    string `toml:"captions_template"`
	InfoTemplate        string `toml:"info_template"`
	TimeoutMinutes      int    `toml:"timeout_minutes"`
	PollIntervalSeconds int    `toml:"poll_interval_seconds"`
}

// LLM contains connection settings for the transcript analysis model.
type LLM struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	MaxRetries     int    `toml:"max_retries"`
}

// Slack contains configuration for outcome notifications. An empty bot token
// or channel id disables delivery.
type Slack struct {
	BotToken          string `toml:"bot_token"`
	ChannelID         string `toml:"channel_id"`
	AnalysisChannelID string `toml:"analysis_channel_id"`
	TimeoutSeconds    int    `toml:"timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for the pipeline.
type Config struct {
	Paths     Paths     `toml:"paths"`
	Queues    Queues    `toml:"queues"`
	Discovery Discovery `toml:"discovery"`
	Kaggle    Kaggle    `toml:"kaggle"`
	LLM       LLM       `toml:"llm"`
	Slack     Slack     `toml:"slack"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path of the default config location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/conveyor/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. The bool reports
// whether a config file was actually found.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("conveyor.toml")
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the queue roots and working directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Paths.LogDir,
		c.Paths.ScriptDir,
		c.Paths.CaptionsOutputDir,
		c.Paths.InfoOutputDir,
		c.Queues.CaptionsDir,
		c.Queues.InfoDir,
		c.Queues.RestingDir,
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the given location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
