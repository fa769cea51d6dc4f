package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"strconv"

	"github.com/haasonsaas/nexus/internal/llm"
)

// CalcTool evaluates a small arithmetic expression (spec §8 seed
// scenario 2: "what is 2+2?" -> calc{expr:"2+2"} -> "4"). It is
// stateless and reused by reference across sessions (spec §4.6).
type CalcTool struct{}

func (t CalcTool) Name() string { return "calc" }

func (t CalcTool) Description() string {
	return "Evaluate a basic arithmetic expression (+, -, *, /, parentheses)."
}

func (t CalcTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"expr": map[string]any{
				"type":        "string",
				"description": "Arithmetic expression, e.g. '2+2'.",
			},
		},
		"required": []string{"expr"},
	}
}

type calcInput struct {
	Expr string `json:"expr"`
}

func (t CalcTool) Execute(_ context.Context, args json.RawMessage) (llm.ToolResult, error) {
	var input calcInput
	if err := json.Unmarshal(args, &input); err != nil {
		return llm.ToolResult{Success: false, Error: fmt.Sprintf("invalid arguments: %v", err)}, nil
	}

	result, err := evalExpr(input.Expr)
	if err != nil {
		return llm.ToolResult{Success: false, Error: err.Error()}, nil
	}
	return llm.ToolResult{Success: true, Content: formatNumber(result)}, nil
}

// evalExpr parses and evaluates a restricted arithmetic expression
// using go/parser, then walks the resulting AST rejecting anything
// but numeric literals, parentheses and +-*/.
func evalExpr(expr string) (float64, error) {
	node, err := parser.ParseExpr(expr)
	if err != nil {
		return 0, fmt.Errorf("invalid expression: %v", err)
	}
	return evalNode(node)
}

func evalNode(n ast.Expr) (float64, error) {
	switch v := n.(type) {
	case *ast.BasicLit:
		if v.Kind != token.INT && v.Kind != token.FLOAT {
			return 0, fmt.Errorf("unsupported literal")
		}
		return strconv.ParseFloat(v.Value, 64)

	case *ast.ParenExpr:
		return evalNode(v.X)

	case *ast.UnaryExpr:
		x, err := evalNode(v.X)
		if err != nil {
			return 0, err
		}
		switch v.Op {
		case token.SUB:
			return -x, nil
		case token.ADD:
			return x, nil
		default:
			return 0, fmt.Errorf("unsupported unary operator %s", v.Op)
		}

	case *ast.BinaryExpr:
		x, err := evalNode(v.X)
		if err != nil {
			return 0, err
		}
		y, err := evalNode(v.Y)
		if err != nil {
			return 0, err
		}
		switch v.Op {
		case token.ADD:
			return x + y, nil
		case token.SUB:
			return x - y, nil
		case token.MUL:
			return x * y, nil
		case token.QUO:
			if y == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			return x / y, nil
		default:
			return 0, fmt.Errorf("unsupported operator %s", v.Op)
		}

	default:
		return 0, fmt.Errorf("unsupported expression")
	}
}

func formatNumber(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
