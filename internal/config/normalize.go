package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeQueues(); err != nil {
		return err
	}
	c.normalizeDiscovery()
	if err := c.normalizeKaggle(); err != nil {
		return err
	}
	c.normalizeLLM()
	c.normalizeSlack()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.ScriptDir, err = expandPath(c.Paths.ScriptDir); err != nil {
		return fmt.Errorf("paths.script_dir: %w", err)
	}
	if c.Paths.CaptionsOutputDir, err = expandPath(c.Paths.CaptionsOutputDir); err != nil {
		return fmt.Errorf("paths.captions_output_dir: %w", err)
	}
	if c.Paths.InfoOutputDir, err = expandPath(c.Paths.InfoOutputDir); err != nil {
		return fmt.Errorf("paths.info_output_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeQueues() error {
	var err error
	if c.Queues.CaptionsDir, err = expandPath(c.Queues.CaptionsDir); err != nil {
		return fmt.Errorf("queues.captions_dir: %w", err)
	}
	if c.Queues.InfoDir, err = expandPath(c.Queues.InfoDir); err != nil {
		return fmt.Errorf("queues.info_dir: %w", err)
	}
	if c.Queues.RestingDir, err = expandPath(c.Queues.RestingDir); err != nil {
		return fmt.Errorf("queues.resting_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeDiscovery() {
	channels := make([]string, 0, len(c.Discovery.Channels))
	seen := make(map[string]struct{}, len(c.Discovery.Channels))
	for _, channel := range c.Discovery.Channels {
		trimmed := strings.TrimSpace(channel)
		if trimmed == "" {
			continue
		}
		if _, dup := seen[trimmed]; dup {
			continue
		}
		seen[trimmed] = struct{}{}
		channels = append(channels, trimmed)
	}
	c.Discovery.Channels = channels
	if c.Discovery.MaxNewVideos <= 0 {
		c.Discovery.MaxNewVideos = defaultMaxNewVideos
	}
	if c.Discovery.JitterMaxSeconds < 0 {
		c.Discovery.JitterMaxSeconds = 0
	}
	c.Discovery.CookiesFromBrowser = strings.TrimSpace(c.Discovery.CookiesFromBrowser)
	c.Discovery.YtDlpBinary = strings.TrimSpace(c.Discovery.YtDlpBinary)
	if c.Discovery.YtDlpBinary == "" {
		c.Discovery.YtDlpBinary = defaultYtDlpBinary
	}
}

func (c *Config) normalizeKaggle() error {
	var err error
	c.Kaggle.User = strings.TrimSpace(c.Kaggle.User)
	c.Kaggle.Binary = strings.TrimSpace(c.Kaggle.Binary)
	if c.Kaggle.Binary == "" {
		c.Kaggle.Binary = defaultKaggleBinary
	}
	if c.Kaggle.BatchSize <= 0 {
		c.Kaggle.BatchSize = defaultKaggleBatchSize
	}
	if c.Kaggle.MinutesQuota <= 0 {
		c.Kaggle.MinutesQuota = defaultKaggleMinutesQuota
	}
	if c.Kaggle.TimeoutMinutes <= 0 {
		c.Kaggle.TimeoutMinutes = defaultKaggleTimeoutMin
	}
	if c.Kaggle.PollIntervalSeconds <= 0 {
		c.Kaggle.PollIntervalSeconds = defaultKagglePollSeconds
	}
	if c.Kaggle.CaptionsTemplate != "" {
		if c.Kaggle.CaptionsTemplate, err = expandPath(c.Kaggle.CaptionsTemplate); err != nil {
			return fmt.Errorf("kaggle.captions_template: %w", err)
		}
	}
	if c.Kaggle.InfoTemplate != "" {
		if c.Kaggle.InfoTemplate, err = expandPath(c.Kaggle.InfoTemplate); err != nil {
			return fmt.Errorf("kaggle.info_template: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeLLM() {
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	if c.LLM.APIKey == "" {
		if value, ok := os.LookupEnv("OPENROUTER_API_KEY"); ok {
			c.LLM.APIKey = strings.TrimSpace(value)
		}
	}
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
	if c.LLM.MaxRetries < 0 {
		c.LLM.MaxRetries = defaultLLMMaxRetries
	}
}

func (c *Config) normalizeSlack() {
	c.Slack.BotToken = strings.TrimSpace(c.Slack.BotToken)
	if c.Slack.BotToken == "" {
		if value, ok := os.LookupEnv("SLACK_BOT_TOKEN"); ok {
			c.Slack.BotToken = strings.TrimSpace(value)
		}
	}
	c.Slack.ChannelID = strings.TrimSpace(c.Slack.ChannelID)
	c.Slack.AnalysisChannelID = strings.TrimSpace(c.Slack.AnalysisChannelID)
	if c.Slack.TimeoutSeconds <= 0 {
		c.Slack.TimeoutSeconds = defaultSlackTimeoutSeconds
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
