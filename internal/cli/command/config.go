package command

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/fintrack-go/internal/cli/config"
	"github.com/yndnr/fintrack-go/internal/cli/output"
)

// ConfigCommand returns the config subcommand group.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration management",
		Subcommands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Show the merged configuration",
				Action: configShow,
			},
			{
				Name:   "path",
				Usage:  "Show the configuration file path",
				Action: configPath,
			},
			{
				Name:  "init",
				Usage: "Write a configuration file with the defaults",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "force",
						Aliases: []string{"f"},
						Usage:   "overwrite an existing file",
					},
				},
				Action: configInit,
			},
			{
				Name:   "validate",
				Usage:  "Check the configuration file",
				Action: configValidate,
			},
		},
	}
}

// configFile is the --config value or the default location.
func configFile(c *cli.Context) string {
	if p := c.String("config"); p != "" {
		return p
	}
	return config.DefaultConfigPath()
}

func configShow(c *cli.Context) error {
	rt, err := GetRuntime(c)
	if err != nil {
		return err
	}
	format := output.FormatYAML
	if c.String("output") == string(output.FormatJSON) {
		format = output.FormatJSON
	}
	return output.NewFormatter(format, false).Format(c.App.Writer, rt.Config())
}

func configPath(c *cli.Context) error {
	path := configFile(c)
	state := "exists"
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		state = "not created yet, run \"fintrack-cli config init\""
	}
	fmt.Fprintf(c.App.Writer, "%s (%s)\n", path, state)
	return nil
}

func configInit(c *cli.Context) error {
	path := configFile(c)
	if _, err := os.Stat(path); err == nil && !c.Bool("force") {
		return fail(c, "config init", fmt.Errorf("%s already exists (use --force to overwrite)", path))
	}
	if err := config.Save(config.Default(), path); err != nil {
		return fail(c, "config init", err)
	}
	fmt.Fprintf(c.App.Writer, "Configuration written to %s\n", path)
	return nil
}

func configValidate(c *cli.Context) error {
	path := configFile(c)
	if _, err := loadConfig(path, overrides(c)); err != nil {
		return fail(c, "config validate", err)
	}
	fmt.Fprintf(c.App.Writer, "Configuration %s is valid\n", path)
	return nil
}
