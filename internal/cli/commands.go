package cli

import (
	"github.com/urfave/cli/v3"
)

// Command builds the root command.
func (r *Runner) Command() *cli.Command {
	return &cli.Command{
		Name:      "voicetranslator",
		Usage:     "Translate speech to English in the speaker's own voice",
		Writer:    r.out,
		ErrWriter: r.logOut,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file (JSON or TOML)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "migrate",
				Usage:  "Apply database migrations",
				Action: r.Migrate,
			},
			{
				Name:  "register",
				Usage: "Create an account",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "username",
						Aliases: []string{"u"},
						Usage:   "Account name; prompted for when omitted",
					},
				},
				Action: r.Register,
			},
			{
				Name:  "process",
				Usage: "Translate a local audio file and save the cloned English speech",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name:      "file",
						UsageText: "audio file (wav, mp3, m4a, flac, ogg)",
					},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "user",
						Usage: "Store the result in this account's history",
					},
					&cli.StringFlag{
						Name:    "out",
						Aliases: []string{"o"},
						Usage:   "Directory for the translated audio",
						Value:   "output",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Print the outcome as JSON",
					},
				},
				Action: r.Process,
			},
			{
				Name:  "history",
				Usage: "List an account's completed translations, oldest first",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "user",
						Usage:    "Account name",
						Required: true,
					},
				},
				Action: r.History,
			},
		},
	}
}
