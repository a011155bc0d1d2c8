package command

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/fintrack-go/internal/cli/config"
	"github.com/yndnr/fintrack-go/internal/cli/connection"
	"github.com/yndnr/fintrack-go/internal/cli/output"
	"github.com/yndnr/fintrack-go/internal/infra/buildinfo"
	"github.com/yndnr/fintrack-go/internal/infra/shutdown"
	"github.com/yndnr/fintrack-go/internal/infra/tlsroots"
	"github.com/yndnr/fintrack-go/internal/storage"
	"github.com/yndnr/fintrack-go/internal/telemetry/logger"
	"github.com/yndnr/fintrack-go/internal/telemetry/metric"
)

const (
	appName     = "fintrack-cli"
	metaRuntime = "runtime"
)

// ExpiredMessage is printed on stderr when the API rejects the stored
// token.
const ExpiredMessage = `session expired, please run "fintrack-cli login"`

// DecryptHint follows any failure to unseal the stored token, usually
// after the passphrase changed. Logging in again replaces the token.
const DecryptHint = `stored token cannot be decrypted with the current passphrase, run "fintrack-cli login" to replace it`

// App creates the CLI application. Exit hooks that close the credential
// store and write the metrics textfile are registered on exit; the
// caller runs them after the app returns.
func App(exit *shutdown.Handler) *cli.App {
	if exit == nil {
		exit = shutdown.NewHandler(5 * time.Second)
	}
	return &cli.App{
		Name:                 appName,
		Usage:                "Personal finance tracker for the command line",
		Version:              buildinfo.String(),
		HideVersion:          true,
		EnableBashCompletion: true,
		Flags:                globalFlags(),
		// Errors, exit codes included, are returned to the caller
		// instead of ending the process; the shell keeps running.
		ExitErrHandler: func(*cli.Context, error) {},
		Commands: []*cli.Command{
			LoginCommand(),
			RegisterCommand(),
			LogoutCommand(),
			StatusCommand(),
			DashboardCommand(),
			AnalyticsCommand(),
			TxCommand(),
			ExportCommand(),
			ConfigCommand(),
			ShellCommand(),
			VersionCommand(),
		},
		Before: func(c *cli.Context) error {
			if _, ok := c.App.Metadata[metaRuntime]; ok {
				return nil
			}
			if skipsRuntime(c) {
				return nil
			}
			rt, err := newRuntime(c, exit)
			if err != nil {
				PrintError(c, "%v", err)
				return &reportedError{err}
			}
			c.App.Metadata[metaRuntime] = rt
			return nil
		},
	}
}

// skipsRuntime reports whether the invoked command works without a
// credential store, so a broken config does not lock the user out of
// "config init" or "version".
func skipsRuntime(c *cli.Context) bool {
	args := c.Args().Slice()
	if len(args) == 0 {
		return false
	}
	switch args[0] {
	case "version", "help", "h":
		return true
	case "config":
		return len(args) > 1 && (args[1] == "path" || args[1] == "init" || args[1] == "validate")
	}
	return false
}

// globalFlags returns the global CLI flags. None carries a default:
// unset flags leave the value to the config file, FINTRACK_ variables
// and the built-in defaults.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "API base URL (default " + connection.DefaultBaseURL + ")",
		},
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "config file (default ~/.fintrack/config.yaml)",
		},
		&cli.StringFlag{
			Name:  "store",
			Usage: "credential store: file, memory, badger",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "output format: table, json, yaml",
		},
		&cli.BoolFlag{
			Name:    "wide",
			Aliases: []string{"w"},
			Usage:   "show wide output (more columns)",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"V"},
			Usage:   "log debug output to stderr",
		},
		&cli.StringFlag{
			Name:  "metrics-file",
			Usage: "write Prometheus metrics to this file at exit",
		},
	}
}

// overrides maps global flags onto config keys.
func overrides(c *cli.Context) map[string]any {
	m := map[string]any{
		"server":              c.String("server"),
		"credentials.backend": c.String("store"),
		"output":              c.String("output"),
		"metrics.textfile":    c.String("metrics-file"),
	}
	if c.Bool("verbose") {
		m["log.level"] = "debug"
	}
	return m
}

// Runtime is the state shared by every command of one invocation, or of
// a whole shell session.
type Runtime struct {
	ConfigPath string
	Logger     logger.Logger
	Metrics    *metric.Registry
	Store      storage.Store
	Manager    *connection.Manager

	errOut io.Writer
	in     *bufio.Reader
	// readLine answers prompts; the shell points it at its own reader.
	readLine func(prompt string) (string, error)

	mu  sync.RWMutex
	cfg *config.CLIConfig
}

func newRuntime(c *cli.Context, exit *shutdown.Handler) (*Runtime, error) {
	path := c.String("config")
	if path == "" {
		path = config.DefaultConfigPath()
	}
	cfg, err := loadConfig(path, overrides(c))
	if err != nil {
		return nil, err
	}

	log, err := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: c.App.ErrWriter})
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	logger.SetDefault(log)

	store, closer, err := storage.Open(cfg.StoreConfig(), cfg.Passphrase(), logger.Slog(log))
	if err != nil {
		return nil, fmt.Errorf("open credential store: %w", err)
	}

	metrics := metric.NewRegistry()
	metrics.MustRegister(metric.NewCollector(store, connection.TokenKey))

	// Hooks run in reverse: the textfile is written while the store the
	// session collector reads is still open.
	exit.OnShutdown("close credential store", func(context.Context) error {
		return closer.Close()
	})
	if textfile := cfg.Metrics.Textfile; textfile != "" {
		exit.OnShutdown("write metrics textfile", func(context.Context) error {
			return metrics.WriteTextfile(textfile)
		})
	}

	rt := &Runtime{
		ConfigPath: path,
		Logger:     log,
		Metrics:    metrics,
		Store:      store,
		errOut:     c.App.ErrWriter,
		in:         bufio.NewReader(c.App.Reader),
		cfg:        cfg,
	}
	rt.readLine = func(prompt string) (string, error) {
		fmt.Fprint(rt.errOut, prompt)
		line, err := rt.in.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return "", err
		}
		return strings.TrimRight(line, "\r\n"), nil
	}
	rt.Manager = connection.NewManager(rt.factory(cfg))
	log.Debug("runtime ready", "config", path, "server", cfg.Server, "store", cfg.StoreConfig().Backend)
	return rt, nil
}

func loadConfig(path string, flags map[string]any) (*config.CLIConfig, error) {
	cfg, err := config.Load(config.LoadOptions{Path: path, Overrides: flags})
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Config returns the current configuration.
func (rt *Runtime) Config() *config.CLIConfig {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return rt.cfg
}

// Reload swaps in cfg and rebuilds the API client on next use. The
// credential store stays open; a backend change needs a restart.
func (rt *Runtime) Reload(cfg *config.CLIConfig) {
	rt.mu.Lock()
	old := rt.cfg
	rt.cfg = cfg
	rt.mu.Unlock()

	logger.SetLevel(cfg.Log.Level)
	if old.StoreConfig() != cfg.StoreConfig() {
		rt.Logger.Warn("credential store settings changed, restart to apply")
	}
	rt.Manager.Reload(rt.factory(cfg))
	rt.Logger.Info("configuration reloaded", "server", cfg.Server)
}

func (rt *Runtime) factory(cfg *config.CLIConfig) connection.Factory {
	return func() (*connection.Client, error) {
		hc := &http.Client{}
		if strings.HasPrefix(cfg.Server, "https://") || cfg.TLS.CAFile != "" || cfg.TLS.InsecureSkipVerify {
			tr, err := tlsroots.Transport(cfg.TLS)
			if err != nil {
				return nil, fmt.Errorf("tls: %w", err)
			}
			hc.Transport = tr
		}
		return connection.New(connection.Options{
			BaseURL:          cfg.Server,
			LoginPath:        cfg.LoginPath,
			Store:            rt.Store,
			OnSessionExpired: rt.sessionExpired,
			HTTPClient:       hc,
			Logger:           rt.Logger,
			Metrics:          rt.Metrics,
			UserAgent:        buildinfo.UserAgent(),
		})
	}
}

func (rt *Runtime) sessionExpired(context.Context, string) {
	fmt.Fprintln(rt.errOut, ExpiredMessage)
}

// ask prompts on stderr and reads one line of input.
func (rt *Runtime) ask(prompt string) (string, error) {
	return rt.readLine(prompt)
}

// confirm asks a yes/no question; only "y" or "yes" agree.
func (rt *Runtime) confirm(question string) (bool, error) {
	answer, err := rt.ask(question + " [y/N]: ")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

// GetRuntime retrieves the runtime created by the Before hook.
func GetRuntime(c *cli.Context) (*Runtime, error) {
	if rt, ok := c.App.Metadata[metaRuntime].(*Runtime); ok {
		return rt, nil
	}
	return nil, errors.New("runtime not initialized")
}

// client returns the runtime together with its API client.
func client(c *cli.Context) (*Runtime, *connection.Client, error) {
	rt, err := GetRuntime(c)
	if err != nil {
		return nil, nil, err
	}
	cl, err := rt.Manager.Client()
	if err != nil {
		return nil, nil, fmt.Errorf("create client: %w", err)
	}
	return rt, cl, nil
}

// requestContext bounds a command's API calls by the configured timeout.
func (rt *Runtime) requestContext(c *cli.Context) (context.Context, context.CancelFunc) {
	ctx := c.Context
	if ctx == nil {
		ctx = context.Background()
	}
	if t := rt.Config().Timeout; t > 0 {
		return context.WithTimeout(ctx, t)
	}
	return context.WithCancel(ctx)
}

// render writes data in the selected output format. An --output flag on
// the current line wins over the configured format.
func render(c *cli.Context, data any) error {
	name := c.String("output")
	if name == "" {
		if rt, err := GetRuntime(c); err == nil {
			name = rt.Config().Output
		}
	}
	format, err := output.ParseFormat(name)
	if err != nil {
		return err
	}
	return output.NewFormatter(format, c.Bool("wide")).Format(c.App.Writer, data)
}

// PrintError prints an error message to stderr.
func PrintError(c *cli.Context, format string, args ...any) {
	fmt.Fprintf(c.App.ErrWriter, "error: "+format+"\n", args...)
}

// reportedError is an error the user has already been shown.
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

// IsReported reports whether err was already printed by the command
// that returned it.
func IsReported(err error) bool {
	var r *reportedError
	return errors.As(err, &r)
}

// fail prints err and returns it, so the command exits non-zero. A
// session expiry was already reported by the client callback.
func fail(c *cli.Context, what string, err error) error {
	if !errors.Is(err, connection.ErrSessionExpired) {
		PrintError(c, "%s: %v", what, err)
	}
	if errors.Is(err, storage.ErrDecrypt) {
		fmt.Fprintln(c.App.ErrWriter, DecryptHint)
	}
	return &reportedError{fmt.Errorf("%s: %w", what, err)}
}
