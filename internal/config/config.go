package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/fimi-watch/archive-worker/api/types"
)

const defaultListenAddress = ":8080"

// ReadConfig assembles the process configuration from the environment. The
// jobs unmarshal from this configuration to the specific configuration that
// is needed for the job.
func ReadConfig() types.JobConfiguration {
	jc := types.JobConfiguration{}

	// An .env file is optional; a containerized deployment sets plain
	// environment variables instead.
	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file found, reading from environment variables")
	}

	level := ParseLogLevel(os.Getenv("LOG_LEVEL"))
	jc["log_level"] = level.String()
	SetLogLevel(level)

	listenAddress := os.Getenv("LISTEN_ADDRESS")
	if listenAddress == "" {
		listenAddress = defaultListenAddress
	}
	jc["listen_address"] = listenAddress

	jc["stats_buf_size"] = uint(envInt("STATS_BUF_SIZE", 128))
	jc["max_jobs"] = envInt("MAX_JOBS", 10)

	jc["result_cache_max_size"] = envInt("RESULT_CACHE_MAX_SIZE", 1000)
	jc["result_cache_max_age_seconds"] = time.Duration(envInt("RESULT_CACHE_MAX_AGE_SECONDS", 600)) * time.Second
	jc["job_timeout_seconds"] = time.Duration(envInt("JOB_TIMEOUT_SECONDS", 300)) * time.Second

	// API Key for authentication
	if apiKey := os.Getenv("API_KEY"); apiKey != "" {
		jc["api_key"] = apiKey
	}

	jc["twitter_consumer_key"] = os.Getenv("TWITTER_CONSUMER_KEY")
	jc["twitter_consumer_secret"] = os.Getenv("TWITTER_CONSUMER_SECRET")
	jc["twitter_full_archive"] = os.Getenv("TWITTER_FULL_ARCHIVE") == "true"
	jc["twitter_pool_max_wait_seconds"] = time.Duration(envInt("TWITTER_POOL_MAX_WAIT_SECONDS", 0)) * time.Second

	if bearerTokens := os.Getenv("TWITTER_BEARER_TOKENS"); bearerTokens != "" {
		logrus.Info("App-only twitter bearer tokens found")
		tokens := strings.Split(bearerTokens, ",")
		for i, tok := range tokens {
			tokens[i] = strings.TrimSpace(tok)
		}
		jc["twitter_bearer_tokens"] = tokens
	} else {
		jc["twitter_bearer_tokens"] = []string{}
	}

	jc["google_client_id"] = os.Getenv("GOOGLE_CLIENT_ID")
	jc["google_client_secret"] = os.Getenv("GOOGLE_CLIENT_SECRET")

	if workerID := os.Getenv("WORKER_ID"); workerID != "" {
		jc["worker_id"] = workerID
	}

	jc["profiling_enabled"] = os.Getenv("ENABLE_PPROF") == "true"

	return jc
}

func envInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		logrus.Errorf("Error parsing %s: %s. Setting to default.", key, err)
		return def
	}
	return v
}

// ParseLogLevel maps a LOG_LEVEL value to a logrus level, defaulting to info.
func ParseLogLevel(s string) logrus.Level {
	switch strings.ToLower(s) {
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// SetLogLevel sets the process-wide logrus level.
func SetLogLevel(level logrus.Level) {
	logrus.SetLevel(level)
}
