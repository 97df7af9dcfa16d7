package main

import (
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"loom/internal/client"
	"loom/internal/config"
)

type commandContext struct {
	apiFlag    *string
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(apiFlag, configFlag *string) *commandContext {
	return &commandContext{
		apiFlag:    apiFlag,
		configFlag: configFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) apiClient() (*client.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if c.apiFlag != nil && strings.TrimSpace(*c.apiFlag) != "" {
		return client.NewWithBaseURL("http://"+strings.TrimSpace(*c.apiFlag), cfg.Paths.APIToken), nil
	}
	return client.New(cfg), nil
}

func (c *commandContext) withClient(fn func(*client.Client) error) error {
	api, err := c.apiClient()
	if err != nil {
		return err
	}
	return fn(api)
}

// processTimeout sizes the client timeout for blocking process calls from
// the configured pipeline and media timeouts.
func (c *commandContext) processTimeout() time.Duration {
	cfg, err := c.ensureConfig()
	if err != nil {
		return 30 * time.Minute
	}
	return time.Duration(cfg.Pipeline.TimeoutSeconds+cfg.Media.TimeoutSeconds+60) * time.Second
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
