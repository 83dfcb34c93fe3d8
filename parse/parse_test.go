package parse

import (
	"testing"

	"github.com/ardnew/shellcore/ast"
)

func TestParseSimpleStatement(t *testing.T) {
	prog, err := Source("t", "echo hi")
	if err != nil {
		t.Fatalf("Source: %v", err)
	}

	if len(prog.Pipelines) != 1 || len(prog.Pipelines[0].Statements) != 1 {
		t.Fatalf("unexpected shape: %+v", prog)
	}

	st := prog.Pipelines[0].Statements[0]
	if len(st.Tokens) != 2 || st.Tokens[0].Text != "echo" || st.Tokens[1].Text != "hi" {
		t.Fatalf("unexpected tokens: %+v", st.Tokens)
	}
}

func TestParseAssignment(t *testing.T) {
	prog, err := Source("t", "x = 1")
	if err != nil {
		t.Fatalf("Source: %v", err)
	}

	st := prog.Pipelines[0].Statements[0]
	if !st.IsAssignment() {
		t.Fatalf("expected assignment, got %+v", st.Tokens)
	}
}

func TestParsePipeline(t *testing.T) {
	prog, err := Source("t", "a | b | c")
	if err != nil {
		t.Fatalf("Source: %v", err)
	}

	if len(prog.Pipelines[0].Statements) != 3 {
		t.Fatalf("expected 3 piped statements, got %d", len(prog.Pipelines[0].Statements))
	}
}

func TestParseMultiplePipelinesBySemicolon(t *testing.T) {
	prog, err := Source("t", "a; b\nc")
	if err != nil {
		t.Fatalf("Source: %v", err)
	}

	if len(prog.Pipelines) != 3 {
		t.Fatalf("expected 3 pipelines, got %d", len(prog.Pipelines))
	}
}

func TestParseClosureAndExecution(t *testing.T) {
	prog, err := Source("t", "f = { echo hi }\n$(f)")
	if err != nil {
		t.Fatalf("Source: %v", err)
	}

	assign := prog.Pipelines[0].Statements[0]
	if assign.Tokens[2].Kind != ast.Closure {
		t.Fatalf("expected CLOSURE token, got %v", assign.Tokens[2].Kind)
	}

	exec := prog.Pipelines[1].Statements[0]
	if exec.Tokens[0].Kind != ast.Execution {
		t.Fatalf("expected EXECUTION token, got %v", exec.Tokens[0].Kind)
	}
}

func TestParseArrayLiteral(t *testing.T) {
	prog, err := Source("t", "x = [1, 2, 3]")
	if err != nil {
		t.Fatalf("Source: %v", err)
	}

	arr := prog.Pipelines[0].Statements[0].Tokens[2]
	if arr.Kind != ast.Array || len(arr.ArrayVal.Entries) != 3 {
		t.Fatalf("unexpected array: %+v", arr)
	}
}

func TestParseExprToken(t *testing.T) {
	prog, err := Source("t", "x = #{1 + 2}")
	if err != nil {
		t.Fatalf("Source: %v", err)
	}

	tok := prog.Pipelines[0].Statements[0].Tokens[2]
	if tok.Kind != ast.Expr || tok.Text != "1 + 2" {
		t.Fatalf("unexpected expr token: %+v", tok)
	}
}

func TestParseQuotedStringWithSpaces(t *testing.T) {
	prog, err := Source("t", `echo "hello world"`)
	if err != nil {
		t.Fatalf("Source: %v", err)
	}

	st := prog.Pipelines[0].Statements[0]
	if len(st.Tokens) != 2 || st.Tokens[1].Text != "hello world" {
		t.Fatalf("unexpected tokens: %+v", st.Tokens)
	}
}

func TestParseLineComment(t *testing.T) {
	prog, err := Source("t", "echo hi // trailing comment\n")
	if err != nil {
		t.Fatalf("Source: %v", err)
	}

	if len(prog.Pipelines) != 1 {
		t.Fatalf("comment should not start a new pipeline: %+v", prog.Pipelines)
	}
}

func TestParseUnterminatedClosureErrors(t *testing.T) {
	if _, err := Source("t", "{ echo hi"); err == nil {
		t.Fatal("expected SyntaxError for unterminated closure")
	}
}
