// Package macro implements the pre-evaluation AST rewrite pass:
// binding `macro` literals, expanding calls to them, and substituting
// identifiers against its own scope stack. It runs once, between
// parsing and evaluation; the evaluator never sees a macro definition
// or a macro call that this package has already expanded.
package macro

import (
	"mico/internal/ast"
)

// scope is a parent-linked name -> AST-node table, entirely separate
// from the evaluator's object.Environment: macro scope binds syntax,
// not values.
type scope struct {
	parent   *scope
	bindings map[string]ast.Node
}

func newScope(parent *scope) *scope {
	return &scope{parent: parent, bindings: make(map[string]ast.Node)}
}

func (s *scope) define(name string, n ast.Node) {
	s.bindings[name] = n
}

func (s *scope) resolve(name string) (ast.Node, bool) {
	for sc := s; sc != nil; sc = sc.parent {
		if n, ok := sc.bindings[name]; ok {
			return n, true
		}
	}
	return nil, false
}

// Process runs the macro pass over program in place and returns it.
// Running Process again on an already processed program is a no-op:
// there are no more `let name = macro` bindings left to find, and no
// more calls resolve to a macro scope entry.
func Process(program *ast.Program) *ast.Program {
	root := newScope(nil)
	program.Mutate(makeVisitor(root))
	return program
}

func makeVisitor(sc *scope) ast.Visitor {
	var visitor ast.Visitor
	visitor = func(n ast.Node) ast.Node {
		switch node := n.(type) {
		case *ast.LetStatement:
			if macroLit, ok := node.Value.(*ast.MacroLiteral); ok {
				sc.define(node.Name.Value, macroLit)
				return &ast.ExpressionStatement{Token: node.Token, Expression: &ast.NullLiteral{Token: node.Token}}
			}
			return nil

		case *ast.CallExpression:
			if ident, ok := node.Function.(*ast.Identifier); ok {
				if bound, found := sc.resolve(ident.Value); found {
					if macroLit, isMacro := bound.(*ast.MacroLiteral); isMacro {
						return expandMacroCall(macroLit, node, sc)
					}
				}
			}
			return nil

		case *ast.Identifier:
			if bound, found := sc.resolve(node.Value); found {
				return bound.Clone()
			}
			return nil

		case *ast.BlockStatement:
			child := newScope(sc)
			node.Mutate(makeVisitor(child))
			return node

		default:
			return nil
		}
	}
	return visitor
}

// expandMacroCall implements §4.3's call rule: each positional argument
// is wrapped in a QuoteExpression and bound to the matching parameter
// name in a fresh child scope (missing arguments bind to Null); the
// macro body is cloned and rewritten under that scope; the rewritten
// result replaces the call site.
func expandMacroCall(macroLit *ast.MacroLiteral, call *ast.CallExpression, enclosing *scope) ast.Node {
	mscope := newScope(enclosing)

	for i, param := range macroLit.Parameters {
		var arg ast.Expression
		if i < len(call.Arguments) {
			arg = call.Arguments[i].Clone().(ast.Expression)
		} else {
			arg = &ast.NullLiteral{Token: call.Token}
		}
		mscope.define(param.Value, &ast.QuoteExpression{Token: call.Token, Value: arg})
	}

	body := macroLit.Body.Clone().(*ast.BlockStatement)
	body.Mutate(makeVisitor(mscope))

	return collapseBody(body)
}

// collapseBody turns a macro's block body into the single expression
// that replaces the call site. The common case - a body that is just
// one expression statement, e.g. `{ quote(x+x) }` - substitutes that
// expression directly. A body with more than one statement (locals,
// multiple expressions) is wrapped as an immediately-invoked zero-arg
// function so the evaluator's existing call semantics produce "value
// of the last statement" without a second block-as-expression path.
func collapseBody(body *ast.BlockStatement) ast.Expression {
	if len(body.Statements) == 1 {
		if es, ok := body.Statements[0].(*ast.ExpressionStatement); ok {
			return es.Expression
		}
	}
	return &ast.CallExpression{
		Token:    body.Token,
		Function: &ast.FunctionLiteral{Token: body.Token, Parameters: nil, Body: body},
	}
}
