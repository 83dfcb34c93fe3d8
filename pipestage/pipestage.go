// Package pipestage implements the pipeline execution engine: stage
// construction, stream wiring, concurrent multi-stage execution joined in
// construction order, and non-last-stage error recovery (spec.md §4.4,
// §5).
package pipestage

import (
	"context"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/ardnew/shellcore/ast"
	"github.com/ardnew/shellcore/session"
	"github.com/ardnew/shellcore/value"
)

// Executor runs a single statement against an explicit stream triad, the
// seam pipestage uses to drive evaluation without importing package
// closure (which imports dispatch, which would otherwise cycle back
// through a pipeline engine that closure itself invokes). Package closure
// supplies this via a Frame method that forks a Session bound to streams
// for the duration of one stage (spec.md §3 invariant 5: each stage owns
// its triad until it joins). Threading the triad through the call
// explicitly, rather than toggling it on a shared Session, is what keeps
// concurrent stages from racing on it.
type Executor func(streams session.Streams, st *ast.Statement) (*value.Value, error)

// Stage wraps a single statement plus its own triad of streams and a
// post-execution result slot (spec.md §4.4).
type Stage struct {
	Statement *ast.Statement

	In  io.Reader
	Out io.Writer
	Err io.Writer

	closeOut func(err error)

	result    *value.Value
	exception error
	location  string
}

// Result returns the stage's outcome after Run completes.
func (s *Stage) Result() (*value.Value, error) { return s.result, s.exception }

// Build constructs the stages of a pipeline in order, wiring each stage's
// predecessor output to its successor input with an io.Pipe, so a
// producing stage's writes stream directly to the consuming stage's reads
// instead of racing over a shared buffer (spec.md §8 scenario 3: "a"
// writes stdout, "b" reads stdin). The first stage inherits the session's
// current input; the last stage inherits its output. err is inherited
// independently by every stage from the session, not chained between
// stages.
func Build(sess *session.Session, p *ast.Pipeline) []*Stage {
	stages := make([]*Stage, len(p.Statements))

	snap := sess.Snapshot()

	var prevIn io.Reader = snap.In

	for i, st := range p.Statements {
		stage := &Stage{Statement: st, Err: snap.Err, In: prevIn}

		if i == len(p.Statements)-1 {
			stage.Out = snap.Out
			stage.closeOut = func(error) {}
		} else {
			pr, pw := io.Pipe()

			stage.Out = pw
			stage.closeOut = func(err error) {
				if err != nil {
					pw.CloseWithError(err)

					return
				}

				pw.Close()
			}
			prevIn = pr
		}

		stages[i] = stage
	}

	return stages
}

// Run executes the stages of a pipeline and returns the last stage's
// result (spec.md §4.4 "Result semantics"). A singleton pipeline runs
// inline; a multi-stage pipeline starts every stage concurrently via an
// errgroup and joins in construction order, matching "one parallel thread
// per stage, joined in construction order" (spec.md §5). Each stage runs
// against its own triad (spec.md §3 invariant 5); the session passed in is
// only ever read, never mutated, by stage execution.
func Run(ctx context.Context, sess *session.Session, p *ast.Pipeline, exec Executor) (*value.Value, error) {
	stages := Build(sess, p)

	if len(stages) == 1 {
		runStage(stages[0], exec)

		return finish(sess, stages)
	}

	group, gctx := errgroup.WithContext(ctx)

	for _, stage := range stages {
		stage := stage

		group.Go(func() error {
			runStage(stage, exec)

			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
				return nil
			}
		})
	}

	if err := group.Wait(); err != nil {
		return nil, session.ErrInterrupted.Wrap(err)
	}

	return finish(sess, stages)
}

// runStage executes a single stage against its own stream triad, passed
// directly into exec rather than toggled on a shared session, so the
// stage genuinely owns its triad until it joins (spec.md §3 invariant 5).
// Once exec returns, the stage's output pipe (if it has one) is closed, or
// closed with the stage's error, so the downstream stage's reader
// unblocks instead of stalling on a writer that will never write again.
func runStage(stage *Stage, exec Executor) {
	streams := session.Streams{In: stage.In, Out: stage.Out, Err: stage.Err}

	result, err := exec(streams, stage.Statement)

	stage.result = result
	stage.exception = err

	if err != nil {
		stage.location = locationOf(stage.Statement)
	}

	if stage.closeOut != nil {
		stage.closeOut(err)
	}
}

func locationOf(st *ast.Statement) string {
	if len(st.Tokens) == 0 {
		return st.Pos.String()
	}

	return st.Tokens[0].Pos.String()
}

// finish implements spec.md §4.4 "Result semantics": non-last-stage errors
// are logged and stashed in "pipe-exception", not propagated; a last-stage
// error is raised.
func finish(sess *session.Session, stages []*Stage) (*value.Value, error) {
	last := stages[len(stages)-1]

	for _, stage := range stages[:len(stages)-1] {
		if stage.exception == nil {
			continue
		}

		prefix := "pipe: "
		if stage.location != "" {
			prefix = stage.location + ": "
		}

		fmt.Fprintln(stage.Err, prefix+stage.exception.Error())

		sess.Set("pipe-exception", errToValue(stage.exception))
	}

	if last.exception != nil {
		return nil, last.exception
	}

	if last.result == nil {
		return value.NewNull(), nil
	}

	return last.result, nil
}

func errToValue(err error) *value.Value {
	return value.NewText(err.Error())
}
