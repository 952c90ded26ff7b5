package rollup

import (
	"fmt"

	"github.com/google/cel-go/cel"

	"gaushala/internal/domain/catalogs/item"
)

// DefaultExpenseRule counts every category except capital expenditure as expense.
const DefaultExpenseRule = `category != "` + item.CategoryCapitalExpenditure + `"`

// ExpenseRule decides which item categories count towards a site's monthly expense.
// The rule is a CEL boolean expression over the string variable `category`.
type ExpenseRule struct {
	expr    string
	program cel.Program
}

// NewExpenseRule compiles expr. An empty expr selects DefaultExpenseRule.
func NewExpenseRule(expr string) (*ExpenseRule, error) {
	if expr == "" {
		expr = DefaultExpenseRule
	}

	env, err := cel.NewEnv(cel.Variable("category", cel.StringType))
	if err != nil {
		return nil, fmt.Errorf("create cel env: %w", err)
	}

	ast, iss := env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("compile expense rule %q: %w", expr, iss.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("expense rule %q must be boolean, got %s", expr, ast.OutputType())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("build expense rule program: %w", err)
	}

	return &ExpenseRule{expr: expr, program: prg}, nil
}

// MustExpenseRule is NewExpenseRule that panics on error.
func MustExpenseRule(expr string) *ExpenseRule {
	r, err := NewExpenseRule(expr)
	if err != nil {
		panic(err)
	}
	return r
}

// String returns the source expression.
func (r *ExpenseRule) String() string {
	return r.expr
}

// Accept reports whether category counts as expense.
func (r *ExpenseRule) Accept(category string) (bool, error) {
	out, _, err := r.program.Eval(map[string]any{"category": category})
	if err != nil {
		return false, fmt.Errorf("evaluate expense rule for %q: %w", category, err)
	}
	accepted, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expense rule returned %T", out.Value())
	}
	return accepted, nil
}
