// Package config provides the environment-driven settings shared by the
// cdict tools.
package config

import (
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/freeeve/cdict/internal/blob"
	"github.com/freeeve/cdict/internal/cderr"
	"github.com/freeeve/cdict/internal/compress"
)

// Log formats.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

const envPrefix = "CDICT_"

// Config holds the settings every tool starts from. Flags override it.
type Config struct {
	Compression compress.Algorithm
	LogLevel    zerolog.Level
	LogFormat   string
	Workers     int
	Storage     blob.Config
}

// DefaultConfig returns a Config populated with default values.
func DefaultConfig() *Config {
	return &Config{
		Compression: compress.Default,
		LogLevel:    zerolog.InfoLevel,
		LogFormat:   FormatConsole,
		Workers:     runtime.NumCPU(),
	}
}

// FillDefaults sets any zero-value fields to their default values.
func (c *Config) FillDefaults() {
	def := DefaultConfig()
	if c.Compression == "" {
		c.Compression = def.Compression
	}
	if c.LogFormat == "" {
		c.LogFormat = def.LogFormat
	}
	if c.Workers <= 0 {
		c.Workers = def.Workers
	}
}

// FromEnv reads CDICT_* variables on top of the defaults.
func FromEnv() (*Config, error) {
	return fromLookup(os.LookupEnv)
}

func fromLookup(lookup func(string) (string, bool)) (*Config, error) {
	c := DefaultConfig()
	get := func(name string) (string, bool) {
		v, ok := lookup(envPrefix + name)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	if v, ok := get("COMPRESSION"); ok {
		alg, err := compress.Parse(v)
		if err != nil {
			return nil, cderr.InvalidArg(envPrefix+"COMPRESSION", "%v", err)
		}
		c.Compression = alg
	}
	if v, ok := get("LOG_LEVEL"); ok {
		lvl, err := zerolog.ParseLevel(strings.ToLower(v))
		if err != nil {
			return nil, cderr.InvalidArg(envPrefix+"LOG_LEVEL", "unknown level %q", v)
		}
		c.LogLevel = lvl
	}
	if v, ok := get("LOG_FORMAT"); ok {
		switch f := strings.ToLower(v); f {
		case FormatConsole, FormatJSON:
			c.LogFormat = f
		default:
			return nil, cderr.InvalidArg(envPrefix+"LOG_FORMAT", "want %s or %s, got %q", FormatConsole, FormatJSON, v)
		}
	}
	if v, ok := get("WORKERS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, cderr.InvalidArg(envPrefix+"WORKERS", "want a positive integer, got %q", v)
		}
		c.Workers = n
	}

	st := &c.Storage
	st.S3Region, _ = get("S3_REGION")
	st.S3Endpoint, _ = get("S3_ENDPOINT")
	st.MinIOEndpoint, _ = get("MINIO_ENDPOINT")
	st.MinIOAccessKey, _ = get("MINIO_ACCESS_KEY")
	st.MinIOSecretKey, _ = get("MINIO_SECRET_KEY")
	st.MinIORegion, _ = get("MINIO_REGION")

	var err error
	if st.S3PathStyle, err = boolVar(get, "S3_PATH_STYLE"); err != nil {
		return nil, err
	}
	if st.MinIOSecure, err = boolVar(get, "MINIO_SECURE"); err != nil {
		return nil, err
	}
	return c, nil
}

func boolVar(get func(string) (string, bool), name string) (bool, error) {
	v, ok := get(name)
	if !ok {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, cderr.InvalidArg(envPrefix+name, "want a boolean, got %q", v)
	}
	return b, nil
}
