package config

const (
	defaultLogDir            = "~/.local/share/conveyor/logs"
	defaultScriptDir         = "~/.local/share/conveyor/scripts"
	defaultCaptionsOutputDir = "~/.local/share/conveyor/output/captions"
	defaultInfoOutputDir     = "~/.local/share/conveyor/output/info"
	defaultCaptionsQueueDir  = "~/.local/share/conveyor/queues/captions"
	defaultInfoQueueDir      = "~/.local/share/conveyor/queues/info"
	defaultRestingQueueDir   = "~/.local/share/conveyor/queues/resting"

	defaultMaxNewVideos     = 3
	defaultJitterMaxSeconds = 60
	defaultYtDlpBinary      = "yt-dlp"

	defaultKaggleBinary       = "kaggle"
	defaultKaggleBatchSize    = 5
	defaultKaggleMinutesQuota = 30
	defaultKaggleTimeoutMin   = 90
	defaultKagglePollSeconds  = 60

	defaultLLMBaseURL        = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel          = "deepseek/deepseek-chat-v3-0324"
	defaultLLMTimeoutSeconds = 120
	defaultLLMMaxRetries     = 3

	defaultSlackTimeoutSeconds = 10

	defaultLogLevel = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir:            defaultLogDir,
			ScriptDir:         defaultScriptDir,
			CaptionsOutputDir: defaultCaptionsOutputDir,
			InfoOutputDir:     defaultInfoOutputDir,
		},
		Queues: Queues{
			CaptionsDir: defaultCaptionsQueueDir,
			InfoDir:     defaultInfoQueueDir,
			RestingDir:  defaultRestingQueueDir,
		},
		Discovery: Discovery{
			MaxNewVideos:     defaultMaxNewVideos,
			JitterMaxSeconds: defaultJitterMaxSeconds,
			YtDlpBinary:      defaultYtDlpBinary,
		},
		Kaggle: Kaggle{
			Binary:              defaultKaggleBinary,
			BatchSize:           defaultKaggleBatchSize,
			MinutesQuota:        defaultKaggleMinutesQuota,
			TimeoutMinutes:      defaultKaggleTimeoutMin,
			PollIntervalSeconds: defaultKagglePollSeconds,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
			MaxRetries:     defaultLLMMaxRetries,
		},
		Slack: Slack{
			TimeoutSeconds: defaultSlackTimeoutSeconds,
		},
		Logging: Logging{
			Level: defaultLogLevel,
		},
	}
}
