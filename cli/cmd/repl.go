package cmd

import (
	"context"
	"os"
	"path/filepath"

	"github.com/ardnew/shellcore/exprfn"
	"github.com/ardnew/shellcore/log"
	"github.com/ardnew/shellcore/repl"
	"github.com/ardnew/shellcore/session"
)

// Repl starts an interactive line-editor session against a fresh Session.
type Repl struct {
	History string `help:"History file path, empty to disable persistence" short:"H"`
}

// Run executes the repl command.
func (r *Repl) Run(ctx context.Context) error {
	sess := session.New(os.Stdin, os.Stdout, os.Stderr)
	defer sess.Close()

	exprfn.Wire(sess)

	historyPath := r.History
	if historyPath == "" {
		if dir, err := os.UserCacheDir(); err == nil {
			historyPath = filepath.Join(dir, "shellcore", "history")
		}
	}

	return repl.Run(ctx, sess, historyPath, log.Make(os.Stderr))
}
