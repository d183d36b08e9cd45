package infrastructure

import (
	"fmt"

	"github.com/google/cel-go/cel"

	"orderflow/internal/service/notification/domain"
)

// CELFilter 是 domain.Filter 的 CEL 实现。
// 可用变量：message (string)、status (string)、read (bool)、order_id (string)
type CELFilter struct {
	expr string
	prg  cel.Program
}

var celEnv *cel.Env

func init() {
	env, err := cel.NewEnv(
		cel.Variable("message", cel.StringType),
		cel.Variable("status", cel.StringType),
		cel.Variable("read", cel.BoolType),
		cel.Variable("order_id", cel.StringType),
	)
	if err != nil {
		panic(err)
	}
	celEnv = env
}

// NewCELFilter 编译表达式；表达式必须求值为 bool
func NewCELFilter(expr string) (*CELFilter, error) {
	ast, iss := celEnv.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidFilter, iss.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("%w: expression must be boolean, got %s", domain.ErrInvalidFilter, ast.OutputType())
	}
	prg, err := celEnv.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidFilter, err)
	}
	return &CELFilter{expr: expr, prg: prg}, nil
}

// Match 对单条通知求值
func (f *CELFilter) Match(n *domain.Notification) (bool, error) {
	out, _, err := f.prg.Eval(map[string]any{
		"message":  n.Message,
		"status":   string(n.Status),
		"read":     n.Read,
		"order_id": n.OrderID,
	})
	if err != nil {
		return false, fmt.Errorf("evaluate %q: %w", f.expr, err)
	}
	ok, _ := out.Value().(bool)
	return ok, nil
}

// CompileCELFilter 满足 application.FilterCompiler 的签名
func CompileCELFilter(expr string) (domain.Filter, error) {
	f, err := NewCELFilter(expr)
	if err != nil {
		return nil, err
	}
	return f, nil
}
