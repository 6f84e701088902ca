package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/AntonStoeckl/asyncsql-go/asyncsql"
	"github.com/AntonStoeckl/asyncsql-go/asyncsql/engine"
)

const (
	prompt             = "sql> "
	continuationPrompt = "...> "
)

const helpText = `meta commands:
  \q | quit | exit   quit
  \dt                list tables
  \help              show help

statements end with ';' and may span several lines`

type shell struct {
	engine  *engine.Engine
	out     io.Writer
	timeout time.Duration
}

func newShell(e *engine.Engine, out io.Writer, timeout time.Duration) *shell {
	return &shell{engine: e, out: out, timeout: timeout}
}

func (s *shell) repl(ctx context.Context, historyFile string) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return err
	}
	defer func() { _ = rl.Close() }()

	fmt.Fprintf(s.out, "connected, dialect %s\n", s.engine.Dialect())
	fmt.Fprintln(s.out, `type \help for help`)

	var buf strings.Builder

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			buf.Reset()
			rl.SetPrompt(prompt)
			continue
		}
		if err != nil {
			return nil
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if buf.Len() == 0 && isMetaCommand(line) {
			if quit := s.meta(ctx, line); quit {
				return nil
			}
			continue
		}

		if buf.Len() > 0 {
			buf.WriteByte('\n')
		}
		buf.WriteString(line)

		if !statementComplete(buf.String()) {
			rl.SetPrompt(continuationPrompt)
			continue
		}

		stmt := buf.String()
		buf.Reset()
		rl.SetPrompt(prompt)

		if err := s.execute(ctx, stmt); err != nil {
			fmt.Fprintf(s.out, "error: %v\n", err)
		}
	}
}

// meta runs a meta command and reports whether the shell should quit.
func (s *shell) meta(ctx context.Context, line string) bool {
	switch line {
	case `\q`, "quit", "exit":
		return true
	case `\help`:
		fmt.Fprintln(s.out, helpText)
	case `\dt`:
		if err := s.listTables(ctx); err != nil {
			fmt.Fprintf(s.out, "error: %v\n", err)
		}
	default:
		fmt.Fprintf(s.out, "unknown command: %s\n", line)
	}

	return false
}

func (s *shell) listTables(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	names, err := s.engine.TableNames(ctx)
	if err != nil {
		return err
	}

	for _, name := range names {
		fmt.Fprintln(s.out, name)
	}

	return nil
}

// execute runs one statement on a connectionless result and prints it.
func (s *shell) execute(ctx context.Context, sqlQuery string) error {
	sqlQuery = normalizeStatement(sqlQuery)
	if sqlQuery == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	result, err := s.engine.Execute(ctx, asyncsql.Text(sqlQuery))
	if err != nil {
		return err
	}
	defer func() { _ = result.Close(context.WithoutCancel(ctx)) }()

	if !result.ReturnsRows() {
		return writeRowCount(s.out, result.RowCount())
	}

	count := 0
	keys := result.Keys()

	for row, err := range result.Rows(ctx) {
		if err != nil {
			return err
		}

		if err := writeRow(s.out, keys, row); err != nil {
			return err
		}
		count++
	}

	_, err = fmt.Fprintf(s.out, "(%d rows)\n", count)

	return err
}

func isMetaCommand(line string) bool {
	return strings.HasPrefix(line, `\`) || line == "quit" || line == "exit"
}

func statementComplete(sqlQuery string) bool {
	return strings.HasSuffix(strings.TrimSpace(sqlQuery), ";")
}

// normalizeStatement trims whitespace and trailing semicolons.
func normalizeStatement(sqlQuery string) string {
	return strings.TrimSpace(strings.TrimRight(strings.TrimSpace(sqlQuery), ";"))
}
