package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks the configuration for values the daemon cannot run without.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Paths.DataDir) == "" {
		problems = append(problems, "paths.data_dir must not be empty")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		problems = append(problems, "paths.log_dir must not be empty")
	}
	if c.Pipeline.BaseURL != "" && !strings.HasPrefix(c.Pipeline.BaseURL, "http://") && !strings.HasPrefix(c.Pipeline.BaseURL, "https://") {
		problems = append(problems, "pipeline.base_url must be an http(s) URL")
	}
	if c.Media.Enabled && c.Media.BaseURL != "" && !strings.HasPrefix(c.Media.BaseURL, "http://") && !strings.HasPrefix(c.Media.BaseURL, "https://") {
		problems = append(problems, "media.base_url must be an http(s) URL")
	}
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("logging.format %q is not supported (use console or json)", c.Logging.Format))
	}

	if len(problems) == 0 {
		return nil
	}
	return errors.New("invalid configuration: " + strings.Join(problems, "; "))
}
