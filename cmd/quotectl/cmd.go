package main

import "github.com/urfave/cli/v3"

// EnvToken is read when no --token flag is given.
const EnvToken = "QUOTES_TOKEN"

func newApp(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "quotectl",
		Usage:   "List and save quotes",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML configuration file",
			},
			&cli.StringFlag{
				Name:  "token",
				Usage: "Bearer token (defaults to $" + EnvToken + ", then the credentials file)",
			},
			&cli.StringFlag{
				Name:  "credentials",
				Usage: "Path to a TOML credentials file",
			},
			&cli.StringFlag{
				Name:  "base-url",
				Usage: "Base URL of the Quotes Service",
			},
			&cli.BoolFlag{
				Name:  "show-errors",
				Usage: "Show failed requests in the interactive view",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Log requests to stderr",
			},
		},
		Before: r.Setup,
		Commands: []*cli.Command{
			listCommand(r),
			addCommand(r),
			tuiCommand(r),
		},
	}
}

func listCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Usage:   "Print saved quotes, one per line",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.List,
	}
}

func addCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "add",
		Usage:     "Save a quote and print the list",
		ArgsUsage: "<text>",
		Action:    r.Add,
	}
}

func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "tui",
		Usage:  "Open the interactive quotes view",
		Action: r.TUI,
	}
}
