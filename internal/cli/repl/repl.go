package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Executor runs one command line, already split into arguments.
type Executor func(ctx context.Context, args []string) error

// Options configures a REPL. In, Out and Exec are required.
type Options struct {
	In        io.Reader
	Out       io.Writer
	Exec      Executor
	Prompt    func() string
	Completer *Completer
	History   *History
}

// REPL is the read-eval-print loop.
type REPL struct {
	in        io.Reader
	out       io.Writer
	exec      Executor
	prompt    func() string
	completer *Completer
	history   *History

	ctx     context.Context
	lines   chan string
	readErr chan error
}

// New creates a REPL.
func New(opts Options) *REPL {
	r := &REPL{
		in:        opts.In,
		out:       opts.Out,
		exec:      opts.Exec,
		prompt:    opts.Prompt,
		completer: opts.Completer,
		history:   opts.History,
	}
	if r.prompt == nil {
		r.prompt = func() string { return "fintrack> " }
	}
	if r.completer == nil {
		r.completer = NewCompleter(nil)
	}
	if r.history == nil {
		r.history = NewHistory("", 0)
	}
	return r
}

// Run reads lines until exit, EOF or ctx is done. Command errors are
// printed and the loop continues.
func (r *REPL) Run(ctx context.Context) error {
	r.start(ctx)
	for {
		fmt.Fprint(r.out, r.prompt())

		line, err := r.next(ctx)
		if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
			fmt.Fprintln(r.out)
			return nil
		}
		if err != nil {
			fmt.Fprintln(r.out)
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		r.history.Add(line)

		switch line {
		case "exit", "quit":
			return nil
		case "history":
			for i, entry := range r.history.Entries() {
				fmt.Fprintf(r.out, "%4d  %s\n", i+1, entry)
			}
			continue
		}
		if prefix, ok := strings.CutSuffix(line, "?"); ok {
			for _, s := range r.completer.Complete(prefix) {
				fmt.Fprintln(r.out, s)
			}
			continue
		}

		if err := r.execute(ctx, line); err != nil {
			fmt.Fprintf(r.out, "Error: %v\n", err)
		}
	}
}

// ReadLine prints prompt and returns the next input line. Commands use
// it for questions while the shell owns the input. It must only be
// called from within Run.
func (r *REPL) ReadLine(prompt string) (string, error) {
	fmt.Fprint(r.out, prompt)
	return r.next(r.ctx)
}

// start launches the single reader of r.in.
func (r *REPL) start(ctx context.Context) {
	r.ctx = ctx
	r.lines = make(chan string)
	r.readErr = make(chan error, 1)
	go func() {
		sc := bufio.NewScanner(r.in)
		for sc.Scan() {
			select {
			case r.lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		err := sc.Err()
		if err == nil {
			err = io.EOF
		}
		r.readErr <- err
	}()
}

func (r *REPL) next(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case err := <-r.readErr:
		r.readErr <- err
		return "", err
	case line := <-r.lines:
		return line, nil
	}
}

func (r *REPL) execute(ctx context.Context, line string) error {
	args, err := SplitArgs(line)
	if err != nil {
		return err
	}
	return r.exec(ctx, args)
}

// ErrUnterminatedQuote is returned by SplitArgs for an open quote.
var ErrUnterminatedQuote = errors.New("unterminated quote")

// SplitArgs splits a line on whitespace. Single and double quotes group
// words and a backslash escapes the next character outside single
// quotes.
func SplitArgs(line string) ([]string, error) {
	var (
		args    []string
		cur     strings.Builder
		inWord  bool
		quote   rune
		escaped bool
	)
	for _, c := range line {
		switch {
		case escaped:
			cur.WriteRune(c)
			escaped = false
		case c == '\\' && quote != '\'':
			escaped, inWord = true, true
		case quote != 0:
			if c == quote {
				quote = 0
			} else {
				cur.WriteRune(c)
			}
		case c == '"' || c == '\'':
			quote, inWord = c, true
		case c == ' ' || c == '\t':
			if inWord {
				args = append(args, cur.String())
				cur.Reset()
				inWord = false
			}
		default:
			cur.WriteRune(c)
			inWord = true
		}
	}
	if quote != 0 || escaped {
		return nil, ErrUnterminatedQuote
	}
	if inWord {
		args = append(args, cur.String())
	}
	return args, nil
}
