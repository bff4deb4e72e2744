package main

import (
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"dotsocr/internal/client"
	"dotsocr/internal/config"
)

type commandContext struct {
	configFlag   *string
	apiFlag      *string
	logLevelFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error
}

func newCommandContext(configFlag, apiFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		apiFlag:      apiFlag,
		logLevelFlag: logLevelFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, path, _, err := config.Load(flagValue(c.configFlag))
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = path
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

func (c *commandContext) logLevel() string {
	return flagValue(c.logLevelFlag)
}

// apiAddress prefers --api over the configured bind address.
func (c *commandContext) apiAddress() string {
	if addr := flagValue(c.apiFlag); addr != "" {
		return addr
	}
	if cfg := c.configValue(); cfg != nil {
		return cfg.Paths.APIBind
	}
	return config.Default().Paths.APIBind
}

func (c *commandContext) apiClient() (*client.Client, error) {
	return client.New(c.apiAddress())
}

func (c *commandContext) withClient(fn func(*client.Client) error) error {
	cl, err := c.apiClient()
	if err != nil {
		return err
	}
	return wrapAPIError(fn(cl), c.apiAddress())
}

func wrapAPIError(err error, addr string) error {
	if err == nil {
		return nil
	}
	if client.IsAPIUnavailable(err) {
		return fmt.Errorf("connect to daemon at %s: not reachable; start the daemon with `dotsocr start`", addr)
	}
	return err
}

func flagValue(flag *string) string {
	if flag == nil {
		return ""
	}
	return strings.TrimSpace(*flag)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
