package config

import "strings"

func (c *Config) normalize() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return err
	}

	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	c.Pipeline.BaseURL = strings.TrimRight(strings.TrimSpace(c.Pipeline.BaseURL), "/")
	c.Pipeline.APIKey = strings.TrimSpace(c.Pipeline.APIKey)
	c.Media.BaseURL = strings.TrimRight(strings.TrimSpace(c.Media.BaseURL), "/")
	c.Media.APIKey = strings.TrimSpace(c.Media.APIKey)
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))

	if c.Pipeline.TimeoutSeconds <= 0 {
		c.Pipeline.TimeoutSeconds = defaultPipelineTimeoutSeconds
	}
	if c.Media.TimeoutSeconds <= 0 {
		c.Media.TimeoutSeconds = defaultMediaTimeoutSeconds
	}
	if c.Engine.DispatchPollInterval <= 0 {
		c.Engine.DispatchPollInterval = defaultDispatchPollInterval
	}
	if c.Engine.ErrorRetryInterval <= 0 {
		c.Engine.ErrorRetryInterval = defaultErrorRetryInterval
	}
	if c.Engine.DispatchMaxAttempts <= 0 {
		c.Engine.DispatchMaxAttempts = defaultDispatchMaxAttempts
	}
	return nil
}
