// Package evaluator is the tree-walking heart of the interpreter: a
// single recursive Eval function dispatching on AST node type and,
// within expressions, on operand Value type.
package evaluator

import (
	"mico/internal/ast"
	"mico/internal/object"
	"mico/internal/token"
)

// Eval implements eval(node, env) -> Value from the component design:
// a structural recursion over the AST producing either a Value or an
// Error value. It never mutates the AST it walks.
func Eval(node ast.Node, env *object.Environment) object.Value {
	switch n := node.(type) {
	case *ast.Program:
		return evalStatements(n.Statements, env)
	case *ast.ExpressionStatement:
		return Eval(n.Expression, env)
	case *ast.BlockStatement:
		return evalStatements(n.Statements, env)
	case *ast.LetStatement:
		val := Eval(n.Value, env)
		if isError(val) {
			return val
		}
		env.Set(n.Name.Value, val)
		return object.NULL
	case *ast.ReturnStatement:
		if n.ReturnValue == nil {
			return object.Wrap(object.NULL)
		}
		val := Eval(n.ReturnValue, env)
		if isError(val) {
			return val
		}
		return object.Wrap(val)

	case *ast.Identifier:
		val, ok := env.Get(n.Value)
		if !ok {
			return object.NewError(n.Pos(), "Identifier not found '%s'", n.Value)
		}
		return val
	case *ast.IntegerLiteral:
		return &object.Integer{Value: n.Value}
	case *ast.FloatLiteral:
		return &object.Float{Value: n.Value}
	case *ast.StringLiteral:
		return &object.String{Value: n.Value}
	case *ast.Boolean:
		return object.NativeBoolToBoolean(n.Value)
	case *ast.NullLiteral:
		return object.NULL
	case *ast.QuoteExpression:
		return Eval(n.Value, env)

	case *ast.ArrayLiteral:
		elems, errVal := evalExpressionList(n.Elements, env)
		if errVal != nil {
			return errVal
		}
		return object.NewArray(elems)
	case *ast.TableLiteral:
		return evalTableLiteral(n, env)

	case *ast.FunctionLiteral:
		return object.NewFunction(n.Parameters, n.Body, env, n.Name)
	case *ast.MacroLiteral:
		return object.NewError(n.Pos(), "Runtime error: macro literal reached the evaluator unexpanded")

	case *ast.PrefixExpression:
		right := Eval(n.Right, env)
		if isError(right) {
			return right
		}
		return evalPrefixExpression(n.Operator, right, n.Pos())
	case *ast.InfixExpression:
		return evalInfixNode(n, env)
	case *ast.AssignExpression:
		return evalAssignExpression(n, env)
	case *ast.IfExpression:
		return evalIfExpression(n, env)
	case *ast.CallExpression:
		return evalCallExpression(n, env)
	case *ast.IndexExpression:
		left := Eval(n.Left, env)
		if isError(left) {
			return left
		}
		index := Eval(n.Index, env)
		if isError(index) {
			return index
		}
		return evalIndexExpression(left, index, n.Pos())
	}

	return object.NewError(node.Pos(), "Runtime error: no eval rule for %T", node)
}

func isError(v object.Value) bool {
	_, ok := v.(*object.Error)
	return ok
}

// evalStatements implements "block / statement list": evaluate in
// order, stop at the first Error or Return, result is the value of the
// last statement evaluated.
func evalStatements(stmts []ast.Statement, env *object.Environment) object.Value {
	var result object.Value = object.NULL
	for _, stmt := range stmts {
		result = Eval(stmt, env)
		switch result.(type) {
		case *object.Error, *object.Return:
			return result
		}
	}
	return result
}

func evalExpressionList(exprs []ast.Expression, env *object.Environment) ([]object.Value, object.Value) {
	values := make([]object.Value, len(exprs))
	for i, e := range exprs {
		v := Eval(e, env)
		if isError(v) {
			return nil, v
		}
		values[i] = v
	}
	return values, nil
}

func evalTableLiteral(n *ast.TableLiteral, env *object.Environment) object.Value {
	table := object.NewTable()
	for i := range n.Keys {
		key := Eval(n.Keys[i], env)
		if isError(key) {
			return key
		}
		if _, hashable := object.Hash(key); !hashable {
			return object.NewError(n.Keys[i].Pos(), "Index error: non-hashable key of type %s", object.Unwrap(key).Type())
		}
		val := Eval(n.Values[i], env)
		if isError(val) {
			return val
		}
		table.Set(key, object.NewReference(val))
	}
	return table
}

// ---------------------------------------------------------------------
// Prefix operators

func evalPrefixExpression(op string, right object.Value, pos token.Position) object.Value {
	right = object.Unwrap(right)
	switch op {
	case "-":
		switch r := right.(type) {
		case *object.Integer:
			return &object.Integer{Value: -r.Value}
		case *object.Float:
			return &object.Float{Value: -r.Value}
		}
	case "+":
		switch r := right.(type) {
		case *object.Integer:
			return &object.Integer{Value: r.Value}
		case *object.Float:
			return &object.Float{Value: r.Value}
		}
	case "!":
		if b, ok := right.(*object.Boolean); ok {
			return object.NativeBoolToBoolean(!b.Value)
		}
	case "*":
		switch r := right.(type) {
		case *object.Array:
			return &object.Integer{Value: int64(len(r.Elements))}
		case *object.Table:
			return &object.Integer{Value: int64(r.Len())}
		}
	}
	return object.NewError(pos, "Prefix operator '%s' is not defined for %s", op, right.Type())
}

// ---------------------------------------------------------------------
// Infix operators, pipe, and member access

func evalInfixNode(n *ast.InfixExpression, env *object.Environment) object.Value {
	switch n.Operator {
	case "|":
		return evalPipe(n, env)
	case ".":
		return evalMemberAccess(n, env)
	default:
		left := Eval(n.Left, env)
		if isError(left) {
			return left
		}
		right := Eval(n.Right, env)
		if isError(right) {
			return right
		}
		return evalInfixValues(n.Operator, left, right, n.Pos())
	}
}

func evalInfixValues(op string, left, right object.Value, pos token.Position) object.Value {
	left = object.Unwrap(left)
	right = object.Unwrap(right)

	switch l := left.(type) {
	case *object.Integer:
		switch r := right.(type) {
		case *object.Integer:
			return intInfix(op, l.Value, r.Value, pos)
		case *object.Float:
			return floatInfix(op, float64(l.Value), r.Value, pos)
		}
	case *object.Float:
		switch r := right.(type) {
		case *object.Float:
			return floatInfix(op, l.Value, r.Value, pos)
		case *object.Integer:
			return floatInfix(op, l.Value, float64(r.Value), pos)
		}
	case *object.String:
		if r, ok := right.(*object.String); ok {
			return stringInfix(op, l.Value, r.Value, pos)
		}
	case *object.Boolean:
		if r, ok := right.(*object.Boolean); ok {
			return boolInfix(op, l.Value, r.Value, pos)
		}
	case *object.Array:
		if r, ok := right.(*object.Array); ok {
			return arrayInfix(op, l, r, pos)
		}
	case *object.Table:
		if r, ok := right.(*object.Table); ok {
			return tableInfix(op, l, r, pos)
		}
	}
	return object.NewError(pos, "Infix operation %s '%s' %s is not defined", left.Type(), op, right.Type())
}

func intInfix(op string, a, b int64, pos token.Position) object.Value {
	switch op {
	case "+":
		return &object.Integer{Value: a + b}
	case "-":
		return &object.Integer{Value: a - b}
	case "*":
		return &object.Integer{Value: a * b}
	case "/":
		if b == 0 {
			return object.NewError(pos, "Arithmetic error: division by zero")
		}
		return &object.Integer{Value: a / b}
	case "==":
		return object.NativeBoolToBoolean(a == b)
	case "!=":
		return object.NativeBoolToBoolean(a != b)
	case "<":
		return object.NativeBoolToBoolean(a < b)
	case ">":
		return object.NativeBoolToBoolean(a > b)
	}
	return object.NewError(pos, "Infix operation INTEGER '%s' INTEGER is not defined", op)
}

func floatInfix(op string, a, b float64, pos token.Position) object.Value {
	switch op {
	case "+":
		return &object.Float{Value: a + b}
	case "-":
		return &object.Float{Value: a - b}
	case "*":
		return &object.Float{Value: a * b}
	case "/":
		return &object.Float{Value: a / b}
	case "==":
		return object.NativeBoolToBoolean(a == b)
	case "!=":
		return object.NativeBoolToBoolean(a != b)
	case "<":
		return object.NativeBoolToBoolean(a < b)
	case ">":
		return object.NativeBoolToBoolean(a > b)
	}
	return object.NewError(pos, "Infix operation FLOAT '%s' FLOAT is not defined", op)
}

func stringInfix(op string, a, b string, pos token.Position) object.Value {
	switch op {
	case "+":
		return &object.String{Value: a + b}
	case "==":
		return object.NativeBoolToBoolean(a == b)
	case "!=":
		return object.NativeBoolToBoolean(a != b)
	case "<":
		return object.NativeBoolToBoolean(a < b)
	case ">":
		return object.NativeBoolToBoolean(a > b)
	}
	return object.NewError(pos, "Infix operation STRING '%s' STRING is not defined", op)
}

func boolInfix(op string, a, b bool, pos token.Position) object.Value {
	switch op {
	case "==":
		return object.NativeBoolToBoolean(a == b)
	case "!=":
		return object.NativeBoolToBoolean(a != b)
	}
	return object.NewError(pos, "Infix operation BOOLEAN '%s' BOOLEAN is not defined", op)
}

func arrayInfix(op string, a, b *object.Array, pos token.Position) object.Value {
	switch op {
	case "+":
		merged := make([]object.Value, 0, len(a.Elements)+len(b.Elements))
		for _, r := range a.Elements {
			merged = append(merged, r.Value)
		}
		for _, r := range b.Elements {
			merged = append(merged, r.Value)
		}
		return object.NewArray(merged)
	case "==":
		return object.NativeBoolToBoolean(object.Equal(a, b))
	case "!=":
		return object.NativeBoolToBoolean(!object.Equal(a, b))
	}
	return object.NewError(pos, "Infix operation ARRAY '%s' ARRAY is not defined", op)
}

// tableInfix defines `+` for Table×Table: right operand wins on key
// collision during merge.
func tableInfix(op string, a, b *object.Table, pos token.Position) object.Value {
	switch op {
	case "+":
		merged := object.NewTable()
		a.Each(func(k object.Value, r *object.Reference) {
			merged.Set(k, object.NewReference(r.Value))
		})
		b.Each(func(k object.Value, r *object.Reference) {
			merged.Set(k, object.NewReference(r.Value))
		})
		return merged
	case "==":
		return object.NativeBoolToBoolean(object.Equal(a, b))
	case "!=":
		return object.NativeBoolToBoolean(!object.Equal(a, b))
	}
	return object.NewError(pos, "Infix operation TABLE '%s' TABLE is not defined", op)
}

// evalPipe implements `left | right`: call right with left folded in
// as an argument. When the right side is itself a call expression
// containing a bare `_` argument, left is substituted for that
// placeholder (`3 | add(_,4)` calls add(3,4)); when the right side is
// a call expression with no placeholder, left is prepended as the
// first argument; otherwise the right side must evaluate to a
// Function/Builtin, called with left as its only argument.
func evalPipe(n *ast.InfixExpression, env *object.Environment) object.Value {
	left := Eval(n.Left, env)
	if isError(left) {
		return left
	}

	if call, ok := n.Right.(*ast.CallExpression); ok {
		callee := Eval(call.Function, env)
		if isError(callee) {
			return callee
		}
		args := make([]object.Value, len(call.Arguments))
		placeholderUsed := false
		for i, a := range call.Arguments {
			if ident, ok := a.(*ast.Identifier); ok && ident.Value == "_" {
				args[i] = left
				placeholderUsed = true
				continue
			}
			v := Eval(a, env)
			if isError(v) {
				return v
			}
			args[i] = v
		}
		if !placeholderUsed {
			args = append([]object.Value{left}, args...)
		}
		return applyCallable(callee, args, env, n.Pos())
	}

	callee := Eval(n.Right, env)
	if isError(callee) {
		return callee
	}
	return applyCallable(callee, []object.Value{left}, env, n.Pos())
}

// evalMemberAccess implements `.`: the left side must be a Module; the
// right side is either a bare identifier (member read) or a call
// (member call, resolved and invoked against the module's own
// environment rather than the caller's).
func evalMemberAccess(n *ast.InfixExpression, env *object.Environment) object.Value {
	left := Eval(n.Left, env)
	if isError(left) {
		return left
	}
	mod, ok := object.Unwrap(left).(*object.Module)
	if !ok {
		return object.NewError(n.Pos(), "Infix operation %s '.' %s is not defined", object.Unwrap(left).Type(), n.Right.String())
	}

	switch right := n.Right.(type) {
	case *ast.Identifier:
		val, found := mod.Env.Get(right.Value)
		if !found {
			return object.NewError(right.Pos(), "Identifier not found '%s'", right.Value)
		}
		return val
	case *ast.CallExpression:
		ident, ok := right.Function.(*ast.Identifier)
		if !ok {
			return object.NewError(right.Pos(), "Runtime error: member call target must be an identifier")
		}
		callee, found := mod.Env.Get(ident.Value)
		if !found {
			return object.NewError(ident.Pos(), "Identifier not found '%s'", ident.Value)
		}
		args, errVal := evalExpressionList(right.Arguments, env)
		if errVal != nil {
			return errVal
		}
		return applyCallable(callee, args, env, right.Pos())
	default:
		return object.NewError(n.Pos(), "Runtime error: unsupported member access")
	}
}

// ---------------------------------------------------------------------
// Assignment, if, call, index

func evalAssignExpression(n *ast.AssignExpression, env *object.Environment) object.Value {
	val := Eval(n.Value, env)
	if isError(val) {
		return val
	}

	switch target := n.Target.(type) {
	case *ast.Identifier:
		if !env.Assign(target.Value, val) {
			return object.NewError(target.Pos(), "Identifier not found '%s'", target.Value)
		}
		return val
	case *ast.IndexExpression:
		left := Eval(target.Left, env)
		if isError(left) {
			return left
		}
		index := Eval(target.Index, env)
		if isError(index) {
			return index
		}
		return evalIndexAssign(left, index, val, target.Pos())
	}
	return object.NewError(n.Pos(), "Runtime error: invalid assignment target")
}

func evalIndexAssign(left, index, val object.Value, pos token.Position) object.Value {
	switch container := object.Unwrap(left).(type) {
	case *object.Array:
		idx, ok := object.Unwrap(index).(*object.Integer)
		if !ok {
			return object.NewError(pos, "Index error: non-integer index on Array")
		}
		if idx.Value < 0 || idx.Value >= int64(len(container.Elements)) {
			return object.NewError(pos, "Index error: index out of range")
		}
		container.Elements[idx.Value].Value = val
		return val
	case *object.Table:
		if _, hashable := object.Hash(index); !hashable {
			return object.NewError(pos, "Index error: non-hashable key of type %s", object.Unwrap(index).Type())
		}
		if ref, found := container.Get(index); found {
			ref.Value = val
		} else {
			container.Set(index, object.NewReference(val))
		}
		return val
	}
	return object.NewError(pos, "Type error: index assignment not defined for %s", object.Unwrap(left).Type())
}

func evalIfExpression(n *ast.IfExpression, env *object.Environment) object.Value {
	cond := Eval(n.Condition, env)
	if isError(cond) {
		return cond
	}
	b, ok := object.Unwrap(cond).(*object.Boolean)
	if !ok {
		return object.NewError(n.Condition.Pos(), "condition must be boolean")
	}

	if b.Value {
		child := object.NewEnclosedEnvironment(env)
		child.Lock()
		defer child.Unlock()
		return evalStatements(n.Consequence.Statements, child)
	}

	switch alt := n.Alternative.(type) {
	case nil:
		return object.NULL
	case *ast.IfExpression:
		return evalIfExpression(alt, env)
	case *ast.BlockStatement:
		child := object.NewEnclosedEnvironment(env)
		child.Lock()
		defer child.Unlock()
		return evalStatements(alt.Statements, child)
	}
	return object.NULL
}

func evalCallExpression(n *ast.CallExpression, env *object.Environment) object.Value {
	callee := Eval(n.Function, env)
	if isError(callee) {
		return callee
	}
	args, errVal := evalExpressionList(n.Arguments, env)
	if errVal != nil {
		return errVal
	}
	return applyCallable(callee, args, env, n.Pos())
}

// applyCallable is the shared call boundary for plain calls, pipe
// dispatch, and member calls.
func applyCallable(callee object.Value, args []object.Value, callerEnv *object.Environment, pos token.Position) object.Value {
	switch fn := object.Unwrap(callee).(type) {
	case *object.Function:
		child := object.NewEnclosedEnvironment(fn.Env)
		child.Lock()
		defer child.Unlock()
		for i, param := range fn.Parameters {
			if i < len(args) {
				child.Set(param.Value, args[i])
			} else {
				child.Set(param.Value, object.NULL)
			}
		}
		result := evalStatements(fn.Body.Statements, child)
		if ret, ok := result.(*object.Return); ok {
			return ret.Value
		}
		return result
	case *object.Builtin:
		return fn.Fn(args, callerEnv)
	default:
		return object.NewError(pos, "Runtime error: not a function: %s", object.Unwrap(callee).Type())
	}
}

func evalIndexExpression(left, index object.Value, pos token.Position) object.Value {
	switch container := object.Unwrap(left).(type) {
	case *object.Array:
		idx, ok := object.Unwrap(index).(*object.Integer)
		if !ok {
			return object.NewError(pos, "Index error: non-integer index on Array")
		}
		if idx.Value < 0 || idx.Value >= int64(len(container.Elements)) {
			return object.NULL
		}
		return container.Elements[idx.Value].Value
	case *object.Table:
		if _, hashable := object.Hash(index); !hashable {
			return object.NewError(pos, "Index error: non-hashable key of type %s", object.Unwrap(index).Type())
		}
		ref, found := container.Get(index)
		if !found {
			return object.NULL
		}
		return ref.Value
	case *object.String:
		idx, ok := object.Unwrap(index).(*object.Integer)
		if !ok {
			return object.NewError(pos, "Index error: non-integer index on String")
		}
		if idx.Value < 0 || idx.Value >= int64(len(container.Value)) {
			return object.NULL
		}
		return &object.String{Value: string(container.Value[idx.Value])}
	}
	return object.NewError(pos, "Type error: index operator not defined for %s", object.Unwrap(left).Type())
}
