// Environment-driven configuration for the collector process.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"pulseops-collector/internal/telemetry"
)

// Modes the collector can run in.
const (
	ModeLive   = "live"
	ModeReplay = "replay"
)

// Config is the full runtime configuration, resolved from the
// environment once at startup and treated as immutable afterwards.
type Config struct {
	Mode string

	// OpenSearch connection and target index.
	OpenSearchHost string
	OpenSearchPort int
	OpenSearchUser string
	OpenSearchPass string
	IndexName      string

	// Live mode upstream.
	OpenMeteoURL string
	CityLat      float64
	CityLon      float64
	HTTPTimeout  time.Duration
	MaxRetries   int

	// Pacing between emitted records.
	LoopDelay   time.Duration
	ReplayDelay time.Duration

	// Replay input and fault injection.
	ReplayFile   string
	FaultEveryN  int
	FaultProb    float64
	FaultProfile string

	// Circuit breaker tuning.
	FailThreshold int
	BreakerSleep  time.Duration

	// Output sinks.
	Sinks      []string
	OutputFile string

	GreptimeHost     string
	GreptimePort     int
	GreptimeDatabase string
	GreptimeTable    string

	// Process surface.
	AdminAddr string
	LogLevel  string
	LogFormat string
}

// Load resolves the configuration from the environment, reading a
// .env file first when one exists in the working directory. Unset or
// unparseable variables fall back to their defaults.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Mode:             strings.ToLower(strings.TrimSpace(envString("MODE", ModeReplay))),
		OpenSearchHost:   envString("OPENSEARCH_HOST", "localhost"),
		OpenSearchPort:   envInt("OPENSEARCH_PORT", 9200),
		OpenSearchUser:   envString("OPENSEARCH_USER", "admin"),
		OpenSearchPass:   envString("OPENSEARCH_PASS", "admin"),
		IndexName:        envString("INDEX_NAME", "pulseops-weather"),
		OpenMeteoURL:     envString("OPEN_METEO_URL", "https://api.open-meteo.com/v1/forecast"),
		CityLat:          envFloat("CITY_LAT", 32.0853),
		CityLon:          envFloat("CITY_LON", 34.7818),
		HTTPTimeout:      envSeconds("HTTP_TIMEOUT_SEC", 5),
		MaxRetries:       envInt("MAX_RETRIES", 3),
		LoopDelay:        envSeconds("LOOP_DELAY_SEC", 60),
		ReplayDelay:      time.Duration(envInt("REPLAY_DELAY_MS", 500)) * time.Millisecond,
		ReplayFile:       envString("REPLAY_FILE", "data/replay/weather.jsonl"),
		FaultEveryN:      envInt("FAULT_EVERY_N", 20),
		FaultProb:        envFloat("FAULT_PROB", 0.05),
		FaultProfile:     envString("FAULT_PROFILE", ""),
		FailThreshold:    envInt("CB_FAIL_THRESHOLD", 5),
		BreakerSleep:     envSeconds("CB_SLEEP_SEC", 30),
		Sinks:            splitList(envString("SINKS", "opensearch")),
		OutputFile:       envString("OUTPUT_FILE", "records.jsonl"),
		GreptimeHost:     envString("GREPTIME_HOST", "localhost"),
		GreptimePort:     envInt("GREPTIME_PORT", 4001),
		GreptimeDatabase: envString("GREPTIME_DATABASE", "public"),
		GreptimeTable:    envString("GREPTIME_TABLE", "pulseops_weather"),
		AdminAddr:        envString("ADMIN_ADDR", ""),
		LogLevel:         envString("LOG_LEVEL", "info"),
		LogFormat:        envString("LOG_FORMAT", "auto"),
	}

	if cfg.Mode != ModeLive && cfg.Mode != ModeReplay {
		return nil, fmt.Errorf("unknown MODE %q, want %q or %q", cfg.Mode, ModeLive, ModeReplay)
	}
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 1
	}
	if len(cfg.Sinks) == 0 {
		cfg.Sinks = []string{"opensearch"}
	}
	return cfg, nil
}

// OpenSearchURL returns the base URL of the configured OpenSearch
// node.
func (c *Config) OpenSearchURL() string {
	return fmt.Sprintf("http://%s:%d", c.OpenSearchHost, c.OpenSearchPort)
}

// BaseProfile returns the fault injection tuning implied by the plain
// environment variables, used as-is when no profile file overrides it.
func (c *Config) BaseProfile() FaultProfile {
	return FaultProfile{
		Enabled:     true,
		EveryN:      c.FaultEveryN,
		Probability: c.FaultProb,
		Statuses: []string{
			telemetry.BadStatus(500),
			telemetry.BadStatus(429),
			telemetry.StatusError,
		},
		LatencyMinMS: 300,
		LatencyMaxMS: 1200,
	}
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func envSeconds(key string, def float64) time.Duration {
	return time.Duration(envFloat(key, def) * float64(time.Second))
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.ToLower(strings.TrimSpace(part)); p != "" {
			out = append(out, p)
		}
	}
	return out
}
