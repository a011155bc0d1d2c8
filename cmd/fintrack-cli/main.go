package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/fintrack-go/internal/cli/command"
	"github.com/yndnr/fintrack-go/internal/infra/shutdown"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := shutdown.NotifyContext(context.Background())
	defer stop()

	exit := shutdown.NewHandler(5 * time.Second)
	err := command.App(exit).RunContext(ctx, os.Args)
	if herr := exit.Run(); herr != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", herr)
	}
	if err == nil {
		return 0
	}
	if !command.IsReported(err) {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
	var ec cli.ExitCoder
	if errors.As(err, &ec) && ec.ExitCode() != 0 {
		return ec.ExitCode()
	}
	return 1
}
