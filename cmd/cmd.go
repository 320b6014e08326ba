// submodule cmd contains command definitions
package main

import (
	"strings"

	"github.com/desertthunder/musegen/internal/formatter"
	"github.com/urfave/cli/v3"
)

func jsonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print JSON output",
			Value: true,
		},
	}
}

func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Chart format (" + strings.Join(formatter.Formats, ", ") + ")",
		Value:   formatter.FormatText,
	}
}

func sessionArg() cli.Argument {
	return &cli.StringArg{Name: "session"}
}

// setupCommand writes the config file and prepares the database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create config.toml and run database migrations",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   defaultConfigPath,
			},
		},
		Action: r.Setup,
	}
}

// modelsCommand lists the model variants.
func modelsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "models",
		Usage:  "List trainable model variants",
		Flags:  jsonFlags(),
		Action: r.Models,
	}
}

// sessionsCommand lists training sessions.
func sessionsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sessions",
		Usage: "List training sessions",
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:    "model",
				Aliases: []string{"m"},
				Usage:   "Only sessions of this model id",
			},
		}, jsonFlags()...),
		Action: r.Sessions,
	}
}

// sessionCommand shows one session.
func sessionCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "session",
		Usage:     "Show a training session",
		Arguments: []cli.Argument{sessionArg()},
		Flags:     jsonFlags(),
		Action:    r.Session,
	}
}

// trainCommand registers a new session from MIDI files.
func trainCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "train",
		Usage:     "Upload MIDI files and start training a model",
		ArgsUsage: "<file.mid>...",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "model",
				Aliases:  []string{"m"},
				Usage:    "Model variant id",
				Required: true,
			},
			&cli.BoolFlag{
				Name:    "watch",
				Aliases: []string{"w"},
				Usage:   "Follow training progress after registering",
			},
			formatFlag(),
		},
		Action: r.Train,
	}
}

// watchCommand follows a session's progress stream.
func watchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "watch",
		Usage:     "Stream training progress and print the final chart",
		Arguments: []cli.Argument{sessionArg()},
		Flags:     []cli.Flag{formatFlag()},
		Action:    r.Watch,
	}
}

// sampleCommand generates one sample.
func sampleCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "sample",
		Usage:     "Generate a MIDI sample from a trained session",
		Arguments: []cli.Argument{sessionArg()},
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:     "seed",
				Aliases:  []string{"s"},
				Usage:    "Sample seed (1-13)",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output file path (default: <output_dir>/<session>_<seed>.mid)",
			},
		},
		Action: r.Sample,
	}
}

// samplesCommand generates several samples concurrently.
func samplesCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "samples",
		Usage:     "Generate samples for several seeds",
		Arguments: []cli.Argument{sessionArg()},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "seeds",
				Usage: "Comma-separated seeds (default: every piano key)",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Concurrent requests (default: samples.workers)",
			},
			&cli.FloatFlag{
				Name:  "rate",
				Usage: "Requests per second (default: samples.rate_limit)",
			},
		},
		Action: r.Samples,
	}
}

// historyCommand lists what was recorded locally for a session.
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "history",
		Usage:     "List recorded samples and the stored progress snapshot",
		Arguments: []cli.Argument{sessionArg()},
		Flags:     jsonFlags(),
		Action:    r.History,
	}
}

// exportCommand renders a stored snapshot.
func exportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Render the stored progress chart of a session",
		Arguments: []cli.Argument{sessionArg()},
		Flags: []cli.Flag{
			formatFlag(),
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write to this file instead of stdout",
			},
			&cli.BoolFlag{
				Name:  "save",
				Usage: "Write to <session>_progress.<ext>",
			},
		},
		Action: r.Export,
	}
}

// serveCommand runs the mock backend.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the canned training backend over HTTP and WebSocket",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Listen host (default: server.host)",
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Listen port (default: server.port)",
			},
			&cli.IntFlag{
				Name:  "epochs",
				Usage: "Epochs emitted by each progress stream",
				Value: 10,
			},
		},
		Action: r.Serve,
	}
}

// tuiCommand returns the top-level TUI command.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive training UI",
		Action:  r.TUI,
	}
}
