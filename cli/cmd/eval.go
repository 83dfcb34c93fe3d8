package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/ardnew/shellcore/closure"
	"github.com/ardnew/shellcore/exprfn"
	"github.com/ardnew/shellcore/parse"
	"github.com/ardnew/shellcore/session"
	"github.com/ardnew/shellcore/value"
)

// Eval evaluates a program read from a source file or stdin, optionally
// binding positional arguments into its top-level parameter list.
type Eval struct {
	Args   []string `arg:"" help:"Arguments bound to the program's parameter list" name:"args" optional:""`
	Source string   `       help:"Source input file or '-' for stdin"                                     default:"-" short:"f"`
}

// Run executes the eval command.
func (e *Eval) Run(ctx context.Context) (err error) {
	_, cancel := context.WithCancelCause(ctx)

	defer func(err *error) {
		cancel(*err)
	}(&err)

	var r io.Reader

	sources := sourceFilesFrom(ctx)

	switch {
	case e.Source == "-" && sources != nil && !sources.IsZero():
		// The top-level --source flag(s) concatenate into a single program
		// when eval's own -f flag was left at its default.
		r = sources
	case e.Source == "-":
		r = os.Stdin
	default:
		file, openErr := os.Open(e.Source)
		if openErr != nil {
			return NewError("open source").Wrap(openErr)
		}
		defer file.Close()

		r = file
	}

	data, err := io.ReadAll(bufio.NewReader(r))
	if err != nil {
		return NewError("read source").Wrap(err)
	}

	prog, err := parse.Source(e.Source, string(data))
	if err != nil {
		return NewError("parse source").
			Wrap(err).
			With(slog.String("command", "eval"))
	}

	sess := session.New(os.Stdin, os.Stdout, os.Stderr)
	defer sess.Close()

	exprfn.Wire(sess)

	args := make([]*value.Value, len(e.Args))
	for i, a := range e.Args {
		args[i] = value.FromText(a)
	}

	sess.Set("args", value.NewList(args))

	frame := closure.New(sess, prog)

	result, err := frame.Execute(args)
	if err != nil {
		return NewError("evaluate").
			Wrap(err).
			With(slog.String("command", "eval"))
	}

	fmt.Println(result.String())

	return nil
}
