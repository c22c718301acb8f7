package config

const (
	defaultDataDir             = "~/.local/share/airlock/data"
	defaultBlobDir             = "~/.local/share/airlock/blobs"
	defaultLogDir              = "~/.local/share/airlock/logs"
	defaultAPIBind             = "127.0.0.1:7319"
	defaultParserProvider      = "stub"
	defaultStubConfidence      = 0.95
	defaultConfidenceThreshold = 0.90
	defaultWindowDays          = 7
	defaultAmountTolerance     = 0.05
	defaultClearingAssetID     = "clearing"
	defaultPollInterval        = 2
	defaultWorkerCount         = 4
	defaultErrorRetryInterval  = 5
	defaultHeartbeatInterval   = 15
	defaultHeartbeatTimeout    = 120
	defaultNtfyRequestTimeout  = 10
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			BlobDir: defaultBlobDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Parser: Parser{
			Provider:       defaultParserProvider,
			StubConfidence: defaultStubConfidence,
		},
		Grading: Grading{
			ConfidenceThreshold: defaultConfidenceThreshold,
		},
		Matching: Matching{
			WindowDays:      defaultWindowDays,
			AmountTolerance: defaultAmountTolerance,
		},
		Ledger: Ledger{
			ClearingAssetID: defaultClearingAssetID,
		},
		Workflow: Workflow{
			PollInterval:       defaultPollInterval,
			WorkerCount:        defaultWorkerCount,
			ErrorRetryInterval: defaultErrorRetryInterval,
			HeartbeatInterval:  defaultHeartbeatInterval,
			HeartbeatTimeout:   defaultHeartbeatTimeout,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyRequestTimeout,
			ReviewReady:    true,
			Failures:       true,
			Commits:        true,
			Matches:        true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
