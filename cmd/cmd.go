// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, libraryCommand, todoCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// configFlag is shared by every command that reads config.toml.
func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

// setupCommand handles setup operations for the database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Initialize database and run migrations",
		Flags:  []cli.Flag{configFlag()},
		Action: r.SetupDatabase,
	}
}

// libraryCommand handles library build, export and stats operations.
func libraryCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "library",
		Aliases: []string{"lib"},
		Usage:   "Song library operations",
		Commands: []*cli.Command{
			{
				Name:  "build",
				Usage: "Fetch songs for each configured artist and load them into the database",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringSliceFlag{
						Name:    "artist",
						Aliases: []string{"a"},
						Usage:   "Artist search term (repeatable, overrides config)",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum records per artist search",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output run summary as JSON",
					},
				},
				Action: r.LibraryBuild,
			},
			{
				Name:  "export",
				Usage: "Write each library table to CSV plus a JSON manifest",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output directory for flat files",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output manifest as JSON",
					},
				},
				Action: r.LibraryExport,
			},
			{
				Name:  "stats",
				Usage: "Summarize the library: top artists, genres, release years",
				Flags: []cli.Flag{
					configFlag(),
					&cli.IntFlag{
						Name:  "top",
						Usage: "Number of rows per ranking",
						Value: 5,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output stats as JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.LibraryStats,
			},
		},
	}
}

// todoCommand handles the hosted to-do list: auth, CRUD and the interactive UI.
func todoCommand(r *Runner) *cli.Command {
	emailFlag := &cli.StringFlag{
		Name:     "email",
		Aliases:  []string{"e"},
		Usage:    "Account email",
		Required: true,
	}
	passwordFlag := &cli.StringFlag{
		Name:    "password",
		Aliases: []string{"p"},
		Usage:   "Account password (prompted when omitted)",
	}
	yesFlag := &cli.BoolFlag{
		Name:    "yes",
		Aliases: []string{"y"},
		Usage:   "Skip the confirmation prompt",
	}

	return &cli.Command{
		Name:  "todo",
		Usage: "Hosted to-do list operations",
		Commands: []*cli.Command{
			{
				Name:   "signup",
				Usage:  "Register a new account",
				Flags:  []cli.Flag{emailFlag, passwordFlag},
				Action: r.TodoSignup,
			},
			{
				Name:   "login",
				Usage:  "Sign in and persist the session locally",
				Flags:  []cli.Flag{emailFlag, passwordFlag},
				Action: r.TodoLogin,
			},
			{
				Name:   "logout",
				Usage:  "Revoke the session and remove the local copy",
				Action: r.TodoLogout,
			},
			{
				Name:   "whoami",
				Usage:  "Show the signed-in identity",
				Action: r.TodoWhoami,
			},
			{
				Name:  "list",
				Usage: "List your tasks, newest first",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.TodoList,
			},
			{
				Name:  "add",
				Usage: "Add a task",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "task"},
				},
				Action: r.TodoAdd,
			},
			{
				Name:  "done",
				Usage: "Toggle a task's completion state by id",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Action: r.TodoDone,
			},
			{
				Name:  "edit",
				Usage: "Replace a task's text by id",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
					&cli.StringArg{Name: "task"},
				},
				Action: r.TodoEdit,
			},
			{
				Name:  "rm",
				Usage: "Delete a task by id",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags:  []cli.Flag{yesFlag},
				Action: r.TodoRemove,
			},
			{
				Name:   "clear",
				Usage:  "Delete all of your tasks",
				Flags:  []cli.Flag{yesFlag},
				Action: r.TodoClear,
			},
			{
				Name:   "tui",
				Usage:  "Interactive terminal UI for the to-do list",
				Action: r.TodoTUI,
			},
		},
	}
}
