// Package commands contains the lamp command line.
package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"lamp/config"
	"lamp/logging"
)

var logger = logging.New("commands")

// Controller carries the global flags and the loaded configuration.
type Controller struct {
	ConfigPath string
	LogLevel   string
	Out        io.Writer

	cfg *config.Config
}

// Config returns the configuration loaded by the root command.
func (c *Controller) Config() *config.Config { return c.cfg }

func (c *Controller) load() error {
	cfg, err := config.Load(c.ConfigPath)
	if err != nil {
		return err
	}
	if c.LogLevel != "" {
		cfg.LogLevel = c.LogLevel
	}
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to parse log level: %w", err)
	}
	logging.GetLeveler().SetAll(level)
	c.cfg = cfg
	return nil
}

// withSignals cancels ctx on SIGINT or SIGTERM.
func withSignals(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
}

func (c *Controller) printf(format string, args ...any) {
	fmt.Fprintf(c.Out, format, args...)
}

// NewApp builds the root command. Configuration is loaded once in Before and
// adjusted by each subcommand's flags.
func NewApp(ctrl *Controller, version string) *cli.Command {
	if ctrl.Out == nil {
		ctrl.Out = os.Stdout
	}

	return &cli.Command{
		Name:    "lamp",
		Usage:   "Drive an expressive robot lamp: motor animations and LED lighting",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Usage:       "path to the JSON configuration file",
				Sources:     cli.EnvVars("LAMP_CONFIG"),
				Value:       "lamp.json",
				Destination: &ctrl.ConfigPath,
			},
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error)",
				Destination: &ctrl.LogLevel,
			},
			&cli.StringFlag{
				Name:  "id",
				Usage: "lamp id, the suffix of recording file names",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if err := ctrl.load(); err != nil {
				return ctx, err
			}
			if cmd.IsSet("id") {
				ctrl.cfg.LampID = cmd.String("id")
			}
			return ctx, nil
		},
		Commands: []*cli.Command{
			serveCommand(ctrl),
			replayCommand(ctrl),
			recordCommand(ctrl),
			listCommand(ctrl),
			offCommand(ctrl),
			configCommand(ctrl),
		},
	}
}

func serveCommand(ctrl *Controller) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the actuator services and the HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "host", Usage: "listen host"},
			&cli.StringFlag{Name: "bridge-url", Usage: "hardware bridge URL", Sources: cli.EnvVars("BRIDGE_URL")},
			&cli.StringFlag{Name: "motor-driver", Usage: "motor driver model"},
			&cli.StringFlag{Name: "light-driver", Usage: "light driver model"},
			&cli.FloatFlag{Name: "fps", Usage: "playback frame rate"},
			&cli.FloatFlag{Name: "transition", Usage: "blend-in seconds before a recording"},
			&cli.StringFlag{Name: "idle", Usage: "idle recording name"},
			&cli.BoolFlag{Name: "no-watch", Usage: "do not reload recordings changed on disk"},
			&cli.BoolFlag{Name: "no-greeting", Usage: "skip the startup recording and color"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg := ctrl.cfg
			if cmd.IsSet("host") {
				cfg.Server.Host = cmd.String("host")
			}
			if cmd.IsSet("bridge-url") {
				cfg.BridgeURL = cmd.String("bridge-url")
			}
			if cmd.IsSet("motor-driver") {
				cfg.Motors.Driver = cmd.String("motor-driver")
			}
			if cmd.IsSet("light-driver") {
				cfg.Lights.Driver = cmd.String("light-driver")
			}
			if cmd.IsSet("fps") {
				cfg.Animation.FrameRate = cmd.Float("fps")
			}
			if cmd.IsSet("transition") {
				cfg.Animation.TransitionSeconds = cmd.Float("transition")
			}
			if cmd.IsSet("idle") {
				cfg.Animation.IdleRecording = cmd.String("idle")
			}
			if cmd.Bool("no-watch") {
				cfg.WatchRecordings = false
			}
			if cmd.Bool("no-greeting") {
				cfg.Animation.StartupRecording = ""
				cfg.Lights.StartupColor = ""
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return ctrl.Serve(ctx)
		},
	}
}

func replayCommand(ctrl *Controller) *cli.Command {
	return &cli.Command{
		Name:      "replay",
		Usage:     "Play one recording on the motors and exit",
		ArgsUsage: "<name>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "file", Usage: "replay this CSV file instead of a stored recording"},
			&cli.FloatFlag{Name: "fps", Usage: "playback frame rate"},
			&cli.DurationFlag{Name: "timeout", Usage: "give up after this long", Value: 5 * time.Minute},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			opts := ReplayOptions{
				Name:    cmd.Args().First(),
				File:    cmd.String("file"),
				Timeout: cmd.Duration("timeout"),
			}
			if cmd.IsSet("fps") {
				opts.FrameRate = cmd.Float("fps")
			}
			return ctrl.Replay(ctx, opts)
		},
	}
}

func recordCommand(ctrl *Controller) *cli.Command {
	return &cli.Command{
		Name:      "record",
		Usage:     "Record the motor positions while the lamp is moved by hand",
		ArgsUsage: "<name>",
		Flags: []cli.Flag{
			&cli.FloatFlag{Name: "fps", Usage: "sampling rate", Value: 30},
			&cli.DurationFlag{Name: "duration", Usage: "stop after this long; zero records until interrupted"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return ctrl.Record(ctx, RecordOptions{
				Name:      cmd.Args().First(),
				FrameRate: cmd.Float("fps"),
				Duration:  cmd.Duration("duration"),
			})
		},
	}
}

func listCommand(ctrl *Controller) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List the recordings stored for this lamp",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return ctrl.List()
		},
	}
}

func offCommand(ctrl *Controller) *cli.Command {
	return &cli.Command{
		Name:  "off",
		Usage: "Turn the LEDs off and release the motors",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return ctrl.Off()
		},
	}
}

func configCommand(ctrl *Controller) *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Inspect or write the configuration",
		Commands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Print the effective configuration",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return ctrl.ShowConfig()
				},
			},
			{
				Name:      "init",
				Usage:     "Write the default configuration to a file",
				ArgsUsage: "[path]",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					path := cmd.Args().First()
					if path == "" {
						path = ctrl.ConfigPath
					}
					return ctrl.InitConfig(path)
				},
			},
		},
	}
}
