package commands

import (
	"errors"
	"fmt"
)

// Off darkens the LEDs and releases the motors.
func (c *Controller) Off() error {
	l, err := buildLamp(c.cfg)
	if err != nil {
		return err
	}
	return c.off(l)
}

func (c *Controller) off(l *lamp) error {
	var errs []error

	// A stopped light service commands every LED to zero.
	if err := l.lights.Start(); err != nil {
		errs = append(errs, err)
	} else if err := l.lights.Stop(c.cfg.Animation.StopTimeout()); err != nil {
		errs = append(errs, err)
	}

	if err := l.drivers.motors.Connect(); err != nil {
		errs = append(errs, fmt.Errorf("motors: %w", err))
	} else if err := l.drivers.motors.Disconnect(); err != nil {
		errs = append(errs, fmt.Errorf("motors: %w", err))
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}
	c.printf("Turn off complete\n")
	return nil
}
