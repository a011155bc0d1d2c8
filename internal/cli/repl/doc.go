// Package repl implements the interactive shell of fintrack-cli.
//
// Each line is split into arguments and handed to an Executor, which
// runs it as a regular command. A line ending in "?" lists completions
// for the words before it. History is kept in ~/.fintrack/history.
package repl
