package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/fintrack-go/internal/cli/config"
	"github.com/yndnr/fintrack-go/internal/cli/connection"
	"github.com/yndnr/fintrack-go/internal/cli/repl"
	"github.com/yndnr/fintrack-go/internal/infra/confloader"
	"github.com/yndnr/fintrack-go/internal/telemetry/logger"
)

// ShellCommand starts interactive mode.
func ShellCommand() *cli.Command {
	return &cli.Command{
		Name:   "shell",
		Usage:  "Start an interactive shell",
		Action: shell,
	}
}

func shell(c *cli.Context) error {
	rt, err := GetRuntime(c)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()

	watchConfig(ctx, c, rt)

	history := repl.NewHistory(config.DefaultHistoryPath(), 0)
	if err := history.Load(); err != nil {
		rt.Logger.Warn("load shell history", "error", err)
	}
	defer func() {
		if err := history.Save(); err != nil {
			rt.Logger.Warn("save shell history", "error", err)
		}
	}()

	r := repl.New(repl.Options{
		In:        c.App.Reader,
		Out:       c.App.Writer,
		Exec:      executor(c.App, rt),
		Prompt:    func() string { return prompt(rt) },
		Completer: repl.NewCompleter(commandPaths("", c.App.Commands)),
		History:   history,
	})

	readLine := rt.readLine
	rt.readLine = r.ReadLine
	defer func() { rt.readLine = readLine }()

	fmt.Fprintf(c.App.Writer, "fintrack shell, connected to %s. Type \"help\" for commands, \"exit\" to leave.\n", rt.Config().Server)
	return r.Run(ctx)
}

// executor runs a shell line as a regular invocation of app. Failures
// the command already printed are not returned again.
func executor(app *cli.App, rt *Runtime) repl.Executor {
	return func(ctx context.Context, args []string) error {
		if len(args) == 0 {
			return nil
		}
		if args[0] == "shell" {
			return errors.New("already in the shell")
		}
		err := app.RunContext(ctx, append([]string{appName}, args...))
		if err != nil && IsReported(err) {
			rt.Logger.Debug("command failed", "command", args[0], "error", err)
			return nil
		}
		return err
	}
}

func prompt(rt *Runtime) string {
	if token, ok, err := rt.Store.Get(connection.TokenKey); err == nil && ok && token != "" {
		return "fintrack> "
	}
	return "fintrack (logged out)> "
}

// watchConfig reloads the configuration when its file changes. The
// watcher stops with ctx.
func watchConfig(ctx context.Context, c *cli.Context, rt *Runtime) {
	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(logger.Slog(rt.Logger)))
	if err != nil {
		rt.Logger.Warn("config watcher unavailable", "error", err)
		return
	}
	if err := w.Watch(rt.ConfigPath); err != nil {
		rt.Logger.Debug("config file not watched", "path", rt.ConfigPath, "error", err)
		w.Close()
		return
	}
	flags := overrides(c)
	w.OnChange(func(path string) {
		cfg, err := loadConfig(path, flags)
		if err != nil {
			rt.Logger.Warn("config reload failed, keeping the previous configuration", "error", err)
			return
		}
		rt.Reload(cfg)
	})
	go w.Run(ctx)
}

// commandPaths lists "tx", "tx add" and so on for completion.
func commandPaths(prefix string, cmds []*cli.Command) []string {
	var paths []string
	for _, cmd := range cmds {
		if cmd.Hidden || cmd.Name == "shell" {
			continue
		}
		path := prefix + cmd.Name
		paths = append(paths, path)
		paths = append(paths, commandPaths(path+" ", cmd.Subcommands)...)
	}
	return paths
}
