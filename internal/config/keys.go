package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"nathanbeddoewebdev/nodectl/internal/util"
)

// KeySpec describes a single configuration key.
type KeySpec struct {
	// Name is the CLI-facing key name (e.g. "default-backend").
	Name string

	// Description is a short human-readable explanation shown in help text.
	Description string

	// Get returns the current value for this key from a loaded Config.
	Get func(cfg *Config) string

	// Set applies a value for this key to the given Config (in memory only;
	// the caller is responsible for calling Save).
	Set func(cfg *Config, value string)

	// Validate rejects values Set would store but nothing could use.
	// Nil accepts anything.
	Validate func(value string) error
}

// Keys is the authoritative list of all supported configuration keys.
// To add a new option: add a field to Config and append a KeySpec here.
var Keys = []KeySpec{
	{
		Name:        "default-backend",
		Description: "Backend used when --backend is not specified",
		Get:         func(cfg *Config) string { return cfg.DefaultBackend },
		Set:         func(cfg *Config, v string) { cfg.DefaultBackend = util.NormalizeKey(v) },
	},
	{
		Name:        "wait-timeout",
		Description: "How long --wait blocks for the final power state (e.g. 30s, 2m)",
		Get:         func(cfg *Config) string { return cfg.WaitTimeout },
		Set:         func(cfg *Config, v string) { cfg.WaitTimeout = v },
		Validate:    validatePositiveDuration,
	},
	{
		Name:        "poll-interval",
		Description: "Delay between power state queries while waiting (e.g. 500ms)",
		Get:         func(cfg *Config) string { return cfg.PollInterval },
		Set:         func(cfg *Config, v string) { cfg.PollInterval = v },
		Validate:    validatePositiveDuration,
	},
	{
		Name:        "log-level",
		Description: "Log verbosity: trace, debug, info, warn, error",
		Get:         func(cfg *Config) string { return cfg.LogLevel },
		Set:         func(cfg *Config, v string) { cfg.LogLevel = strings.ToLower(v) },
		Validate: func(v string) error {
			_, err := logrus.ParseLevel(v)
			return err
		},
	},
	{
		Name:        "log-file",
		Description: "Write logs to this file (rotated) instead of stderr",
		Get:         func(cfg *Config) string { return cfg.LogFile },
		Set:         func(cfg *Config, v string) { cfg.LogFile = v },
	},
	{
		Name:        "metrics-file",
		Description: "Write action metrics in Prometheus text format to this file",
		Get:         func(cfg *Config) string { return cfg.MetricsFile },
		Set:         func(cfg *Config, v string) { cfg.MetricsFile = v },
	},
}

func validatePositiveDuration(v string) error {
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", v, err)
	}
	if d <= 0 {
		return fmt.Errorf("duration must be positive, got %s", d)
	}
	return nil
}

// Lookup returns the KeySpec for the given name, or nil if not found.
// The name is matched after util.NormalizeKey, so "Wait_Timeout" finds
// "wait-timeout".
func Lookup(name string) *KeySpec {
	normalized := util.NormalizeKey(name)
	for i := range Keys {
		if Keys[i].Name == normalized {
			return &Keys[i]
		}
	}
	return nil
}

// KeyNames returns the names of all registered keys.
func KeyNames() []string {
	names := make([]string, len(Keys))
	for i, k := range Keys {
		names[i] = k.Name
	}
	return names
}

// KeysHelp builds a formatted block listing all available keys and their
// descriptions, suitable for inclusion in Cobra Long help text.
func KeysHelp() string {
	if len(Keys) == 0 {
		return ""
	}

	// Find the longest key name for alignment.
	maxLen := 0
	for _, k := range Keys {
		if len(k.Name) > maxLen {
			maxLen = len(k.Name)
		}
	}

	var b strings.Builder
	b.WriteString("Available keys:\n")
	for _, k := range Keys {
		fmt.Fprintf(&b, "  %-*s   %s\n", maxLen, k.Name, k.Description)
	}
	return b.String()
}
