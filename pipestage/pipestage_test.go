package pipestage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/ardnew/shellcore/ast"
	"github.com/ardnew/shellcore/session"
	"github.com/ardnew/shellcore/value"
)

func stmt(text string) *ast.Statement {
	return &ast.Statement{Tokens: []*ast.Token{ast.NewWord(ast.Position{}, text)}}
}

func TestSingletonPipelineInline(t *testing.T) {
	sess := session.New(nil, nil, nil)

	p := &ast.Pipeline{Statements: []*ast.Statement{stmt("only")}}

	exec := func(streams session.Streams, st *ast.Statement) (*value.Value, error) {
		return value.NewText(st.Tokens[0].Text), nil
	}

	result, err := Run(context.Background(), sess, p, exec)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	text, _ := result.Text()
	if text != "only" {
		t.Fatalf("result = %v, want only", result)
	}
}

func TestMultiStageResultIsLastStage(t *testing.T) {
	sess := session.New(nil, nil, nil)

	p := &ast.Pipeline{Statements: []*ast.Statement{stmt("first"), stmt("second")}}

	exec := func(streams session.Streams, st *ast.Statement) (*value.Value, error) {
		return value.NewText(st.Tokens[0].Text), nil
	}

	result, err := Run(context.Background(), sess, p, exec)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	text, _ := result.Text()
	if text != "second" {
		t.Fatalf("result = %v, want second (last stage)", result)
	}
}

func TestNonLastStageErrorRecoveredAndStashed(t *testing.T) {
	sess := session.New(nil, nil, nil)

	p := &ast.Pipeline{Statements: []*ast.Statement{stmt("boom"), stmt("ok")}}

	exec := func(streams session.Streams, st *ast.Statement) (*value.Value, error) {
		if st.Tokens[0].Text == "boom" {
			return nil, errors.New("kaboom")
		}

		return value.NewText("fine"), nil
	}

	result, err := Run(context.Background(), sess, p, exec)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	text, _ := result.Text()
	if text != "fine" {
		t.Fatalf("result = %v, want fine", result)
	}

	pe, ok := sess.Get("pipe-exception")
	if !ok {
		t.Fatal("expected pipe-exception to be set")
	}

	pt, _ := pe.Text()
	if pt != "kaboom" {
		t.Fatalf("pipe-exception = %v, want kaboom", pe)
	}
}

func TestLastStageErrorPropagates(t *testing.T) {
	sess := session.New(nil, nil, nil)

	p := &ast.Pipeline{Statements: []*ast.Statement{stmt("ok"), stmt("boom")}}

	exec := func(streams session.Streams, st *ast.Statement) (*value.Value, error) {
		if st.Tokens[0].Text == "boom" {
			return nil, errors.New("kaboom")
		}

		return value.NewText("fine"), nil
	}

	_, err := Run(context.Background(), sess, p, exec)
	if err == nil {
		t.Fatal("expected last-stage error to propagate")
	}
}

func TestStreamsRestoredAfterRun(t *testing.T) {
	sess := session.New(nil, nil, nil)
	before := sess.Snapshot()

	p := &ast.Pipeline{Statements: []*ast.Statement{stmt("a"), stmt("b")}}

	exec := func(streams session.Streams, st *ast.Statement) (*value.Value, error) {
		return value.NewNull(), nil
	}

	if _, err := Run(context.Background(), sess, p, exec); err != nil {
		t.Fatalf("Run: %v", err)
	}

	after := sess.Snapshot()
	if before.In != after.In || before.Out != after.Out || before.Err != after.Err {
		t.Fatal("expected session stream triad restored after pipeline run")
	}
}

// TestInterStageStreamingDeliversBytes exercises the actual byte path
// between two concurrently running stages: stage one writes to its Out,
// stage two reads the same bytes from its In. A *bytes.Buffer wired
// between them would race and typically hand stage two an empty read
// before stage one has written anything; io.Pipe blocks stage two's Read
// until stage one writes, so the bytes always arrive.
func TestInterStageStreamingDeliversBytes(t *testing.T) {
	sess := session.New(nil, nil, nil)

	p := &ast.Pipeline{Statements: []*ast.Statement{stmt("a"), stmt("b")}}

	var received string

	exec := func(streams session.Streams, st *ast.Statement) (*value.Value, error) {
		switch st.Tokens[0].Text {
		case "a":
			if _, err := io.WriteString(streams.Out, "piped"); err != nil {
				return nil, err
			}

			return value.NewNull(), nil
		default:
			b, err := io.ReadAll(streams.In)
			if err != nil {
				return nil, err
			}

			received = string(b)

			return value.NewText(received), nil
		}
	}

	result, err := Run(context.Background(), sess, p, exec)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if received != "piped" {
		t.Fatalf("downstream stage received %q, want %q", received, "piped")
	}

	text, _ := result.Text()
	if text != "piped" {
		t.Fatalf("result = %v, want piped", result)
	}
}

// TestStagesDoNotShareSessionStreams verifies each stage's Executor call
// receives its own triad rather than the session's; a buggy
// implementation that toggles the shared session's streams would hand
// every stage the LAST stage's stream values (spec.md §3 invariant 5).
func TestStagesDoNotShareSessionStreams(t *testing.T) {
	sess := session.New(nil, &bytes.Buffer{}, nil)

	p := &ast.Pipeline{Statements: []*ast.Statement{stmt("first"), stmt("second")}}

	var (
		mu   sync.Mutex
		seen []io.Writer
	)

	exec := func(streams session.Streams, st *ast.Statement) (*value.Value, error) {
		mu.Lock()
		seen = append(seen, streams.Out)
		mu.Unlock()

		return value.NewText(st.Tokens[0].Text), nil
	}

	if _, err := Run(context.Background(), sess, p, exec); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(seen) != 2 {
		t.Fatalf("expected 2 stages to run, saw %d", len(seen))
	}

	if seen[0] == seen[1] {
		t.Fatal("expected distinct stages to see distinct Out streams")
	}

	if seen[0] != sess.Out() && seen[1] != sess.Out() {
		t.Fatal("expected the last stage's Out to be the session's Out")
	}
}
