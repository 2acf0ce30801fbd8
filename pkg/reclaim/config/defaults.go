// Package config provides configuration management for the reclaim engine.
package config

import "time"

// Default configuration values for reclaim.
const (
	// AppName names the configuration, data and state directories.
	AppName = "reclaim"

	// EnvPrefix prefixes environment variable overrides.
	EnvPrefix = "RECLAIM"

	// DefaultPath is the default path to triage when none is specified.
	DefaultPath = "."

	// DefaultWorkers is the per-file batch worker count used when an
	// engine is built without a tuned plan.
	DefaultWorkers = 8

	// DefaultFSTimeout bounds every individual filesystem operation.
	DefaultFSTimeout = 30 * time.Second

	// DefaultInstallerMinAge is how old an installer package must be
	// before it is considered disposable.
	DefaultInstallerMinAge = 30 * 24 * time.Hour

	// DefaultReviewSize is the size above which an otherwise unknown file
	// is flagged as large in its review reason.
	DefaultReviewSize = "1GB"

	// DefaultCacheTTL is how long the daemon serves a cached triage result.
	DefaultCacheTTL = 15 * time.Minute

	// DefaultSummarizeModel is the model name sent to the summarizer.
	DefaultSummarizeModel = "claude-sonnet-4-5-20250929"

	// DefaultSummarizeBaseURL is the root of the summarizer API.
	DefaultSummarizeBaseURL = "https://api.anthropic.com/"
)

// DefaultExclusions contains paths that are never walked.
var DefaultExclusions = []string{
	"/proc",
	"/sys",
	"/dev",
}

// DefaultProtected contains base-name glob patterns that are never touched.
var DefaultProtected = []string{
	"*.app",
	"*.lock",
	"*.pid",
	"*.sock",
	"*.kdbx",
	"id_rsa*",
	"id_ed25519*",
	"Library",
	"System",
	"Frameworks",
}
