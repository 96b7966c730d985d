package checkpoint

import (
	"os"
	"path/filepath"
	"strings"
)

// Options stores configuration for selective observation
type Options struct {
	// Enabled indicates whether checkpoints are delivered to observers at all
	Enabled bool

	// Only is a list of checkpoint name patterns to deliver
	// Empty means all checkpoints are delivered
	Only []string

	// Skip is a list of checkpoint name patterns not to deliver
	// This takes precedence over Only
	Skip []string
}

// DefaultOptions returns the default observation options
func DefaultOptions() Options {
	return Options{
		Enabled: true,
		Only:    []string{}, // Empty means all checkpoints
		Skip:    []string{},
	}
}

// Global observation options
var (
	CurrentOptions = LoadOptionsFromEnvironment()
)

// LoadOptionsFromEnvironment loads observation options from environment variables
func LoadOptionsFromEnvironment() Options {
	options := DefaultOptions()

	// RUMMAGE_ENABLED controls whether checkpoints are delivered
	if enabled := os.Getenv("RUMMAGE_ENABLED"); enabled != "" {
		options.Enabled = enabled == "1" || enabled == "true" || enabled == "yes"
	}

	// RUMMAGE_ONLY restricts delivery to matching checkpoints
	if only := os.Getenv("RUMMAGE_ONLY"); only != "" {
		options.Only = splitPatterns(only)
	}

	// RUMMAGE_SKIP suppresses delivery of matching checkpoints
	if skip := os.Getenv("RUMMAGE_SKIP"); skip != "" {
		options.Skip = splitPatterns(skip)
	}

	return options
}

func splitPatterns(s string) []string {
	parts := strings.Split(s, ",")
	patterns := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			patterns = append(patterns, p)
		}
	}
	return patterns
}

// ShouldObserve checks if a checkpoint should be delivered under the given options.
// Checkpoints that are not delivered are still reached and still take an ordinal.
func (o Options) ShouldObserve(name string) bool {
	if !o.Enabled {
		return false
	}

	for _, skip := range o.Skip {
		if matchesName(name, skip) {
			return false
		}
	}

	// If no filter specified, deliver everything except skipped checkpoints
	if len(o.Only) == 0 {
		return true
	}

	for _, only := range o.Only {
		if matchesName(name, only) {
			return true
		}
	}

	return false
}

// matchesName checks if a checkpoint name matches a pattern
func matchesName(name, pattern string) bool {
	// Handle prefix patterns
	if strings.HasSuffix(pattern, "...") {
		return strings.HasPrefix(name, strings.TrimSuffix(pattern, "..."))
	}

	matched, _ := filepath.Match(pattern, name)
	return matched
}
