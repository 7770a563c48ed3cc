// Package config provides configuration management for the skills server.
// Configuration is loaded from environment variables with sensible defaults,
// plus an optional YAML file with per-skill settings.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const (
	// Default values
	DefaultPort              = 8080
	DefaultLogLevel          = "info"
	DefaultDataDir           = ".skills-server"
	DefaultAPIBaseURL        = "https://api.box.com/2.0"
	DefaultInvocationTimeout = 5 * time.Minute
	DefaultPollInterval      = 1 * time.Second
	DefaultPollMaxAttempts   = 30
	DefaultPollTimeout       = 60 * time.Second
	DefaultAWSRegion         = "us-east-1"
	DefaultDedupTTL          = 24 * time.Hour

	// Environment variable names
	EnvPort              = "SKILLS_PORT"
	EnvLogLevel          = "SKILLS_LOG_LEVEL"
	EnvDataDir           = "SKILLS_DATA_DIR"
	EnvAPIBaseURL        = "SKILLS_API_BASE_URL"
	EnvAdminToken        = "SKILLS_ADMIN_TOKEN"
	EnvDryRun            = "SKILLS_DRY_RUN"
	EnvAsync             = "SKILLS_ASYNC"
	EnvInvocationTimeout = "SKILLS_INVOCATION_TIMEOUT"
	EnvPollInterval      = "SKILLS_POLL_INTERVAL"
	EnvPollMaxAttempts   = "SKILLS_POLL_MAX_ATTEMPTS"
	EnvPollTimeout       = "SKILLS_POLL_TIMEOUT"
	EnvAWSRegion         = "SKILLS_AWS_REGION"
	EnvAWSEndpoint       = "SKILLS_AWS_ENDPOINT"
	EnvRedisAddr         = "SKILLS_REDIS_ADDR"
	EnvRedisPassword     = "SKILLS_REDIS_PASSWORD"
	EnvRedisDB           = "SKILLS_REDIS_DB"
	EnvDedupTTL          = "SKILLS_DEDUP_TTL"
	EnvSkillsFile        = "SKILLS_SKILLS_FILE"

	// Database filename
	DBFilename = "skills.db"
)

// Config defines the application configuration interface
type Config interface {
	Port() int
	LogLevel() string
	DataDir() string
	DBPath() string
	APIBaseURL() string
	AdminToken() string
	DryRun() bool
	Async() bool
	InvocationTimeout() time.Duration
	PollInterval() time.Duration
	PollMaxAttempts() int
	PollTimeout() time.Duration
	AWSRegion() string
	AWSEndpoint() string
	RedisAddr() string
	RedisPassword() string
	RedisDB() int
	DedupTTL() time.Duration
	Skill(name string) (SkillSettings, bool)
}

// EnvConfig reads configuration from environment variables
type EnvConfig struct {
	port              int
	logLevel          string
	dataDir           string
	apiBaseURL        string
	adminToken        string
	dryRun            bool
	async             bool
	invocationTimeout time.Duration

	pollInterval    time.Duration
	pollMaxAttempts int
	pollTimeout     time.Duration

	awsRegion   string
	awsEndpoint string

	redisAddr     string
	redisPassword string
	redisDB       int
	dedupTTL      time.Duration

	skills *SkillsFile
}

// New creates a new EnvConfig with defaults and environment variable overrides
func New() (*EnvConfig, error) {
	cfg := &EnvConfig{
		port:              DefaultPort,
		logLevel:          DefaultLogLevel,
		dataDir:           defaultDataDir(),
		apiBaseURL:        DefaultAPIBaseURL,
		invocationTimeout: DefaultInvocationTimeout,
		pollInterval:      DefaultPollInterval,
		pollMaxAttempts:   DefaultPollMaxAttempts,
		pollTimeout:       DefaultPollTimeout,
		awsRegion:         DefaultAWSRegion,
		dedupTTL:          DefaultDedupTTL,
		skills:            &SkillsFile{},
	}

	// Override port from environment
	if p := os.Getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		if port < 1 || port > 65535 {
			return nil, fmt.Errorf("invalid %s: port must be between 1 and 65535", EnvPort)
		}
		cfg.port = port
	}

	if ll := os.Getenv(EnvLogLevel); ll != "" {
		cfg.logLevel = ll
	}
	if dd := os.Getenv(EnvDataDir); dd != "" {
		cfg.dataDir = dd
	}
	if u := os.Getenv(EnvAPIBaseURL); u != "" {
		cfg.apiBaseURL = u
	}
	cfg.adminToken = os.Getenv(EnvAdminToken)
	cfg.awsEndpoint = os.Getenv(EnvAWSEndpoint)
	if r := os.Getenv(EnvAWSRegion); r != "" {
		cfg.awsRegion = r
	}
	cfg.redisAddr = os.Getenv(EnvRedisAddr)
	cfg.redisPassword = os.Getenv(EnvRedisPassword)

	var err error
	if cfg.dryRun, err = envBool(EnvDryRun, false); err != nil {
		return nil, err
	}
	if cfg.async, err = envBool(EnvAsync, false); err != nil {
		return nil, err
	}
	if cfg.invocationTimeout, err = envDuration(EnvInvocationTimeout, cfg.invocationTimeout); err != nil {
		return nil, err
	}
	if cfg.pollInterval, err = envDuration(EnvPollInterval, cfg.pollInterval); err != nil {
		return nil, err
	}
	if cfg.pollMaxAttempts, err = envInt(EnvPollMaxAttempts, cfg.pollMaxAttempts, 1); err != nil {
		return nil, err
	}
	if cfg.pollTimeout, err = envDuration(EnvPollTimeout, cfg.pollTimeout); err != nil {
		return nil, err
	}
	if cfg.redisDB, err = envInt(EnvRedisDB, 0, 0); err != nil {
		return nil, err
	}
	if cfg.dedupTTL, err = envDuration(EnvDedupTTL, cfg.dedupTTL); err != nil {
		return nil, err
	}

	if path := os.Getenv(EnvSkillsFile); path != "" {
		sf, err := LoadSkillsFile(path)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvSkillsFile, err)
		}
		cfg.skills = sf
	}

	return cfg, nil
}

// Port returns the HTTP server port
func (c *EnvConfig) Port() int {
	return c.port
}

// LogLevel returns the log level (debug, info, warn, error)
func (c *EnvConfig) LogLevel() string {
	return c.logLevel
}

// DataDir returns the data directory path
func (c *EnvConfig) DataDir() string {
	return c.dataDir
}

// DBPath returns the full path to the SQLite database file
func (c *EnvConfig) DBPath() string {
	return filepath.Join(c.dataDir, DBFilename)
}

// APIBaseURL returns the content platform API root
func (c *EnvConfig) APIBaseURL() string {
	return c.apiBaseURL
}

// AdminToken returns the bearer token guarding the ledger endpoints.
// Empty disables them.
func (c *EnvConfig) AdminToken() string {
	return c.adminToken
}

// DryRun reports whether card writes are only logged
func (c *EnvConfig) DryRun() bool {
	return c.dryRun
}

// Async reports whether webhooks are answered before processing
func (c *EnvConfig) Async() bool {
	return c.async
}

func (c *EnvConfig) InvocationTimeout() time.Duration {
	return c.invocationTimeout
}

func (c *EnvConfig) PollInterval() time.Duration {
	return c.pollInterval
}

func (c *EnvConfig) PollMaxAttempts() int {
	return c.pollMaxAttempts
}

func (c *EnvConfig) PollTimeout() time.Duration {
	return c.pollTimeout
}

func (c *EnvConfig) AWSRegion() string {
	return c.awsRegion
}

func (c *EnvConfig) AWSEndpoint() string {
	return c.awsEndpoint
}

// RedisAddr returns the redis address. Empty selects in-memory dedup.
func (c *EnvConfig) RedisAddr() string {
	return c.redisAddr
}

func (c *EnvConfig) RedisPassword() string {
	return c.redisPassword
}

func (c *EnvConfig) RedisDB() int {
	return c.redisDB
}

func (c *EnvConfig) DedupTTL() time.Duration {
	return c.dedupTTL
}

// Skill returns the settings file entry for a skill, if any.
func (c *EnvConfig) Skill(name string) (SkillSettings, bool) {
	s, ok := c.skills.Skills[name]
	return s, ok
}

// defaultDataDir returns the default data directory path
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home is not available
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

func envBool(name string, def bool) (bool, error) {
	v := os.Getenv(name)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", name, err)
	}
	return b, nil
}

func envInt(name string, def, min int) (int, error) {
	v := os.Getenv(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	if n < min {
		return 0, fmt.Errorf("invalid %s: must be at least %d", name, min)
	}
	return n, nil
}

func envDuration(name string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(name)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", name)
	}
	return d, nil
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
