package run

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/relex/caddy-gelf-agent/batch"
	"github.com/relex/caddy-gelf-agent/forward"
	"github.com/relex/caddy-gelf-agent/gelf"
	"github.com/relex/caddy-gelf-agent/rotate"
	"github.com/relex/caddy-gelf-agent/tail"
	"github.com/relex/caddy-gelf-agent/util"
)

// Config defines the root of the agent config file
type Config struct {
	Input     tail.Config          `yaml:"input"`
	Transform gelf.TransformConfig `yaml:"transform"`
	Batch     batch.Config         `yaml:"batch"`
	Output    forward.Config       `yaml:"output"`
	Rotation  rotate.Config        `yaml:"rotation"`
}

// DefaultConfig returns the built-in defaults, matching the documented
// environment variable defaults
func DefaultConfig() *Config {
	return &Config{
		Input: tail.Config{
			Path: "/var/log/caddy/access.log",
		},
		Transform: gelf.TransformConfig{
			HostTag:  "caddy",
			Facility: "caddy",
		},
		Batch: batch.Config{
			MaxRecords: 10,
			Timeout:    5 * time.Second,
		},
		Output: forward.Config{
			Host:           "graylog",
			Port:           12201,
			MaxRetries:     3,
			RetryBaseDelay: 1 * time.Second,
		},
		Rotation: rotate.Config{
			SizeLimit:     500 * datasize.KB,
			CheckInterval: 300 * time.Second,
			KeepLines:     1000,
		},
	}
}

// LoadConfigFile builds the effective configuration: built-in defaults,
// overlaid with the YAML file if a path is given, overlaid with environment
// variables, then verified
func LoadConfigFile(filepath string) (*Config, error) {
	cref := DefaultConfig()
	if len(filepath) > 0 {
		if err := util.UnmarshalYamlFile(filepath, cref); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", filepath, err)
		}
	}
	if err := applyEnvOverrides(cref); err != nil {
		return nil, err
	}
	if err := cref.VerifyConfig(); err != nil {
		return nil, err
	}
	return cref, nil
}

// VerifyConfig verifies all sections
func (cref *Config) VerifyConfig() error {
	if err := cref.Input.VerifyConfig(); err != nil {
		return fmt.Errorf("input: %w", err)
	}
	if err := cref.Transform.VerifyConfig(); err != nil {
		return fmt.Errorf("transform: %w", err)
	}
	if err := cref.Batch.VerifyConfig(); err != nil {
		return fmt.Errorf("batch: %w", err)
	}
	if err := cref.Output.VerifyConfig(); err != nil {
		return fmt.Errorf("output: %w", err)
	}
	if err := cref.Rotation.VerifyConfig(); err != nil {
		return fmt.Errorf("rotation: %w", err)
	}
	return nil
}

// applyEnvOverrides applies the environment variables of the original
// deployment contract on top of file configuration
func applyEnvOverrides(cref *Config) error {
	if value, found := os.LookupEnv("GRAYLOG_HOST"); found {
		cref.Output.Host = value
	}
	if err := overrideInt("GRAYLOG_PORT", &cref.Output.Port); err != nil {
		return err
	}
	if err := overrideInt("BATCH_SIZE", &cref.Batch.MaxRecords); err != nil {
		return err
	}
	if err := overrideSeconds("BATCH_TIMEOUT", &cref.Batch.Timeout); err != nil {
		return err
	}
	if err := overrideInt("MAX_RETRIES", &cref.Output.MaxRetries); err != nil {
		return err
	}
	if err := overrideSeconds("RETRY_BASE_DELAY", &cref.Output.RetryBaseDelay); err != nil {
		return err
	}
	if err := overrideByteSize("LOG_ROTATION_SIZE", &cref.Rotation.SizeLimit); err != nil {
		return err
	}
	if err := overrideSeconds("LOG_ROTATION_INTERVAL", &cref.Rotation.CheckInterval); err != nil {
		return err
	}
	return nil
}

func overrideInt(key string, target *int) error {
	value, found := os.LookupEnv(key)
	if !found {
		return nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("env %s is invalid: %w", key, err)
	}
	*target = parsed
	return nil
}

// overrideSeconds parses a duration given as seconds, possibly fractional, e.g. "5.0"
func overrideSeconds(key string, target *time.Duration) error {
	value, found := os.LookupEnv(key)
	if !found {
		return nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("env %s is invalid: %w", key, err)
	}
	*target = time.Duration(parsed * float64(time.Second))
	return nil
}

// overrideByteSize parses a size given in bytes or with a unit suffix, e.g. "500000" or "500kb"
func overrideByteSize(key string, target *datasize.ByteSize) error {
	value, found := os.LookupEnv(key)
	if !found {
		return nil
	}
	var parsed datasize.ByteSize
	if err := parsed.UnmarshalText([]byte(value)); err != nil {
		return fmt.Errorf("env %s is invalid: %w", key, err)
	}
	*target = parsed
	return nil
}
