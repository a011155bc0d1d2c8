package command

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/fintrack-go/internal/apitest"
	"github.com/yndnr/fintrack-go/internal/infra/shutdown"
)

// cliEnv runs the app against a fake API with HOME in a temp dir, so
// the file credential store persists between runs of one test.
type cliEnv struct {
	api  *apitest.Server
	home string
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	e := &cliEnv{api: apitest.New(), home: t.TempDir()}
	t.Cleanup(e.api.Close)
	t.Setenv("HOME", e.home)
	t.Setenv("FINTRACK_PASSWORD", "")
	t.Setenv("FINTRACK_EMAIL", "")
	return e
}

type result struct {
	stdout string
	stderr string
	err    error
}

// run executes one invocation with stdin as input.
func (e *cliEnv) run(t *testing.T, stdin string, args ...string) result {
	t.Helper()
	var out, errOut bytes.Buffer
	exit := shutdown.NewHandler(5 * time.Second)

	app := App(exit)
	app.Reader = strings.NewReader(stdin)
	app.Writer = &out
	app.ErrWriter = &errOut

	argv := append([]string{appName, "--server", e.api.BaseURL()}, args...)
	err := app.RunContext(context.Background(), argv)
	if herr := exit.Run(); herr != nil {
		t.Errorf("exit hooks error = %v", herr)
	}
	return result{stdout: out.String(), stderr: errOut.String(), err: err}
}

// mustRun fails the test when the invocation fails.
func (e *cliEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	res := e.run(t, "", args...)
	if res.err != nil {
		t.Fatalf("%v error = %v\nstderr: %s", args, res.err, res.stderr)
	}
	return res.stdout
}

// login registers a user on the fake API and logs in through the CLI.
func (e *cliEnv) login(t *testing.T, email string) {
	t.Helper()
	e.api.AddUser("Ann", email, "secret")
	e.mustRun(t, "login", "--email", email, "--password", "secret")
}

func (e *cliEnv) path(elem ...string) string {
	return filepath.Join(append([]string{e.home}, elem...)...)
}

// testContext creates a CLI context with the global flags parsed from
// args the way the app parses them, aliases included. Positional args
// are left in c.Args().
func testContext(t *testing.T, args ...string) *cli.Context {
	t.Helper()
	app := App(nil)
	app.Before = nil
	app.Commands = nil
	var got *cli.Context
	app.Action = func(c *cli.Context) error {
		got = c
		return nil
	}
	if err := app.RunContext(context.Background(), append([]string{appName}, args...)); err != nil {
		t.Fatal(err)
	}
	if got == nil {
		t.Fatalf("no context for %v", args)
	}
	return got
}
