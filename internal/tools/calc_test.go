package tools

import (
	"context"
	"encoding/json"
	"testing"
)

func TestCalcToolBasicAddition(t *testing.T) {
	args, _ := json.Marshal(calcInput{Expr: "2+2"})
	result, err := CalcTool{}.Execute(context.Background(), args)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !result.Success || result.Content != "4" {
		t.Fatalf("expected success content=4, got %+v", result)
	}
}

func TestCalcToolOperatorPrecedenceAndParens(t *testing.T) {
	args, _ := json.Marshal(calcInput{Expr: "(2+3)*4"})
	result, err := CalcTool{}.Execute(context.Background(), args)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !result.Success || result.Content != "20" {
		t.Fatalf("expected success content=20, got %+v", result)
	}
}

func TestCalcToolDivisionByZero(t *testing.T) {
	args, _ := json.Marshal(calcInput{Expr: "1/0"})
	result, err := CalcTool{}.Execute(context.Background(), args)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Success {
		t.Fatalf("expected failure for division by zero")
	}
}

func TestCalcToolInvalidExpression(t *testing.T) {
	args, _ := json.Marshal(calcInput{Expr: "2 + "})
	result, err := CalcTool{}.Execute(context.Background(), args)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Success {
		t.Fatalf("expected failure for malformed expression")
	}
}
