// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create the config file and initialize the database",
		Commands: []*cli.Command{
			{
				Name:  "database",
				Usage: "Initialize the database and run migrations",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "reset",
						Usage: "Drop every clipy table before migrating (deletes balances and the stored session)",
					},
				},
				Action: r.SetupDatabase,
			},
			{
				Name:  "config",
				Usage: "Write config.toml from the embedded template",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Path of the config file to create",
						Value:   "config.toml",
					},
				},
				Action: r.SetupConfig,
			},
			{
				Name:   "check",
				Usage:  "Validate the configuration",
				Action: r.SetupCheck,
			},
		},
	}
}

// serveCommand runs the web front and, optionally, the credits API
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the web front",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address (defaults to server.host:server.port)",
			},
			&cli.BoolFlag{
				Name:  "api",
				Usage: "Also serve the credits API under /api/v1",
			},
			&cli.BoolFlag{
				Name:  "open",
				Usage: "Open the landing page in the browser",
			},
		},
		Action: r.Serve,
	}
}

// tuiCommand launches the interactive terminal UI.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "tui",
		Usage:  "Launch the interactive terminal UI",
		Action: r.TUI,
	}
}

func signinCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "signin",
		Usage: "Sign in with Google in the system browser",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "accept-terms",
				Aliases: []string{"y"},
				Usage:   "Accept the Terms & Conditions without prompting",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "How long to wait for the browser to report back",
				Value: defaultSignInTimeout,
			},
			&cli.StringFlag{
				Name:  "user-agent",
				Usage: "User agent used to pick the popup or redirect flow",
			},
		},
		Action: r.SignIn,
	}
}

func signoutCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "signout",
		Usage:  "Forget the stored session",
		Action: r.SignOut,
	}
}

func whoamiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "whoami",
		Usage: "Show the signed-in user",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.WhoAmI,
	}
}

// creditsCommand reads and adjusts credit balances
func creditsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "credits",
		Usage: "Credit balance and plans",
		Commands: []*cli.Command{
			{
				Name:  "balance",
				Usage: "Show the balance of the signed-in user",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.CreditsBalance,
			},
			{
				Name:  "plans",
				Usage: "List the credit plans",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format: text, md, csv or json",
						Value:   "text",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Write to a file instead of stdout",
					},
					&cli.BoolFlag{
						Name:  "open",
						Usage: "Open checkout for the default plan",
					},
				},
				Action: r.CreditsPlans,
			},
			{
				Name:  "add",
				Usage: "Add credits to a user (admin)",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "user"},
					&cli.IntArg{Name: "amount"},
				},
				Action: r.CreditsAdd,
			},
			{
				Name:  "set",
				Usage: "Replace the balance of a user (admin)",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "user"},
					&cli.IntArg{Name: "amount"},
				},
				Action: r.CreditsSet,
			},
		},
	}
}

// checkCommand validates a link the way the chat box does
func checkCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "check",
		Usage: "Check whether a link would be accepted by the chat box",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "url"},
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "quality",
				Usage: "auto, audio-only or mute",
				Value: "auto",
			},
			&cli.BoolFlag{
				Name:  "sponsorblock",
				Usage: "Remove sponsor segments",
				Value: true,
			},
			&cli.BoolFlag{
				Name:  "thumbnail",
				Usage: "Import the thumbnail",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Check,
	}
}

func termsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "terms",
		Usage: "Print the Terms & Conditions",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: text or md",
				Value:   "text",
			},
		},
		Action: r.Terms,
	}
}
