// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func ownerFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "owner",
		Aliases: []string{"u"},
		Usage:   "Owner the availability records belong to",
		Value:   "default",
	}
}

func outputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print JSON output",
		},
	}
}

func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create the configuration file and initialize the database",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write config.toml from the built-in template",
				Action: r.SetupConfig,
			},
			{
				Name:  "database",
				Usage: "Initialize database and run migrations",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "rollback",
						Usage: "Roll back the most recent migration instead",
					},
				},
				Action: r.SetupDatabase,
			},
		},
	}
}

func pageCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "page",
		Usage: "Resolve one page of a playlist and classify its items",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "playlist"},
		},
		Flags: append([]cli.Flag{
			&cli.IntFlag{
				Name:    "page",
				Aliases: []string{"p"},
				Usage:   "Page number, starting at 1",
				Value:   1,
			},
			ownerFlag(),
			&cli.BoolFlag{
				Name:  "csv",
				Usage: "Export the classified page as CSV",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "CSV output path (default: {playlist}_page_{n}.csv)",
			},
		}, outputFlags()...),
		Action: r.Page,
	}
}

func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Resolve and classify every page of a playlist",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "playlist"},
		},
		Flags:  append([]cli.Flag{ownerFlag()}, outputFlags()...),
		Action: r.Sync,
	}
}

func classifyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "classify",
		Usage: "Classify a single video by title",
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:     "id",
				Usage:    "Video ID",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "title",
				Usage:    "Video title to search for",
				Required: true,
			},
			ownerFlag(),
		}, outputFlags()...),
		Action: r.Classify,
	}
}

func matchCommand(r *Runner) *cli.Command {
	itemFlag := func() cli.Flag {
		return &cli.StringFlag{
			Name:     "id",
			Usage:    "Video ID",
			Required: true,
		}
	}

	return &cli.Command{
		Name:  "match",
		Usage: "Review availability records",
		Commands: []*cli.Command{
			{
				Name:  "confirm",
				Usage: "Confirm a pending match, optionally with a different candidate",
				Flags: []cli.Flag{
					itemFlag(),
					ownerFlag(),
					&cli.StringFlag{
						Name:  "candidate",
						Usage: "Spotify track ID to bind instead of the suggested one",
					},
					&cli.StringFlag{
						Name:  "label",
						Usage: "Label of the replacement candidate",
					},
				},
				Action: r.MatchConfirm,
			},
			{
				Name:   "reject",
				Usage:  "Reject a pending match",
				Flags:  []cli.Flag{itemFlag(), ownerFlag()},
				Action: r.MatchReject,
			},
			{
				Name:   "reset",
				Usage:  "Forget a classification so the next page request searches again",
				Flags:  []cli.Flag{itemFlag(), ownerFlag()},
				Action: r.MatchReset,
			},
			{
				Name:  "list",
				Usage: "List availability records",
				Flags: append([]cli.Flag{
					ownerFlag(),
					&cli.StringFlag{
						Name:  "state",
						Usage: "Only records in this state (PENDING, AVAILABLE, UNAVAILABLE)",
					},
				}, outputFlags()...),
				Action: r.MatchList,
			},
		},
	}
}

func tokensCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "tokens",
		Usage: "Show the recorded page tokens of a playlist",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "playlist"},
		},
		Flags:  outputFlags(),
		Action: r.Tokens,
	}
}

func collectionsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "collections",
		Aliases: []string{"ls"},
		Usage:   "List mirrored playlists",
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:  "status",
				Usage: "Only playlists in this status (unprocessed, processing, processed, outdated)",
			},
		}, outputFlags()...),
		Action: r.Collections,
	}
}

// cacheCommand handles the page cache
func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Manage cached pages",
		Commands: []*cli.Command{
			{
				Name:  "purge",
				Usage: "Drop every cached page of a playlist",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "playlist"},
				},
				Action: r.CachePurge,
			},
		},
	}
}
