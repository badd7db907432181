// submodule cmd contains command definitions
package main

import (
	"github.com/desertthunder/plsync/internal/formatter"
	"github.com/desertthunder/plsync/internal/repositories"
	"github.com/urfave/cli/v3"
)

func outputFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		Usage:   "Output format (table, json, csv)",
		Value:   formatter.OutputTable,
	}
}

// setupCommand handles setup operations for the database and config file.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Action: r.SetupDatabase,
			},
			{
				Name:  "config",
				Usage: "Write an example config file",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Overwrite an existing config file",
					},
				},
				Action: r.SetupConfig,
			},
		},
	}
}

// authCommand handles Spotify authorization and session management
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage Spotify sessions",
		Commands: []*cli.Command{
			{
				Name:   "login",
				Usage:  "Authorize with Spotify in the browser and store a new session",
				Action: r.AuthLogin,
			},
			{
				Name:   "status",
				Usage:  "Show the user behind the current session",
				Action: r.AuthStatus,
			},
			{
				Name:   "logout",
				Usage:  "Delete the current session",
				Action: r.AuthLogout,
			},
		},
	}
}

// playlistsCommand handles playlist listing, creation and export
func playlistsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "playlists",
		Aliases: []string{"pl"},
		Usage:   "Playlist operations",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List every playlist of the current user",
				Flags:  []cli.Flag{outputFlag()},
				Action: r.PlaylistsList,
			},
			{
				Name:  "tracks",
				Usage: "List every track of a playlist",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags:  []cli.Flag{outputFlag()},
				Action: r.PlaylistsTracks,
			},
			{
				Name:  "probe",
				Usage: "Check whether a playlist already has tracks",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Action: r.PlaylistsProbe,
			},
			{
				Name:  "create",
				Usage: "Create an empty playlist for the current user",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "name",
						Aliases:  []string{"n"},
						Usage:    "Playlist name",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "description",
						Usage: "Playlist description",
					},
					&cli.BoolFlag{
						Name:  "public",
						Usage: "Make the playlist public",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output the created playlist as JSON",
					},
				},
				Action: r.PlaylistsCreate,
			},
			{
				Name:      "export",
				Usage:     "Export playlists to files",
				ArgsUsage: "<id> [id...]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format (json, csv, markdown, txt)",
						Value:   formatter.FormatJSON,
					},
					&cli.StringFlag{
						Name:    "dir",
						Aliases: []string{"d"},
						Usage:   "Output directory",
						Value:   "exports",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Number of concurrent file writers",
						Value: 4,
					},
					&cli.FloatFlag{
						Name:  "rate",
						Usage: "Maximum playlists fetched per second",
						Value: 5,
					},
				},
				Action: r.PlaylistsExport,
			},
		},
	}
}

// syncCommand handles playlist sync and history
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Copy tracks into a destination playlist",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Sync a source playlist (or a list of uris) into a destination playlist",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "from",
						Usage: "Source playlist ID",
					},
					&cli.StringSliceFlag{
						Name:  "uris",
						Usage: "Track uris to sync instead of a source playlist",
					},
					&cli.StringFlag{
						Name:  "to",
						Usage: "Destination playlist ID",
					},
					&cli.StringFlag{
						Name:  "to-new",
						Usage: "Create a playlist with this name and sync into it",
					},
					&cli.StringFlag{
						Name:    "strategy",
						Aliases: []string{"s"},
						Usage:   "Conflict strategy when the destination has tracks (append-start, append-end, overwrite)",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output the result as JSON",
					},
				},
				Action: r.SyncRun,
			},
			{
				Name:  "history",
				Usage: "Show recorded sync runs",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of runs",
						Value: repositories.DefaultRunLimit,
					},
					&cli.BoolFlag{
						Name:  "all",
						Usage: "Include runs of every session",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output format (table, json)",
						Value:   formatter.OutputTable,
					},
				},
				Action: r.SyncHistory,
			},
		},
	}
}
