package commands

import (
	"lamp/recording"
)

// List prints every recording stored for the lamp with its row count.
func (c *Controller) List() error {
	store := recording.NewCSVStore(c.cfg.RecordingsDir)
	names, err := store.List(c.cfg.LampID)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		c.printf("No recordings found for lamp ID: %s\n", c.cfg.LampID)
		return nil
	}

	c.printf("Recordings for lamp ID '%s':\n\n", c.cfg.LampID)
	for _, name := range names {
		info, err := store.Info(name, c.cfg.LampID)
		if err != nil {
			c.printf("%s\n  Error: %v\n\n", name, err)
			continue
		}
		c.printf("%s\n  File: %s\n  Rows: %d\n  Modified: %s\n\n",
			info.Name, info.File, info.Rows, info.Modified.Format("2006-01-02 15:04:05"))
	}
	return nil
}
