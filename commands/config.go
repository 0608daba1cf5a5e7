package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"lamp/config"
)

// ShowConfig prints the effective configuration as JSON.
func (c *Controller) ShowConfig() error {
	encoder := json.NewEncoder(c.Out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(c.cfg)
}

// InitConfig writes the defaults to path. An existing file is left alone.
func (c *Controller) InitConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file %s already exists", path)
	}
	if err := config.SaveConfig(config.GetDefaultConfig(), path); err != nil {
		return err
	}
	c.printf("Wrote default configuration to %s\n", path)
	return nil
}
