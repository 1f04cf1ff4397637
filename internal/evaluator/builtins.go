package evaluator

import (
	"fmt"
	"io"

	"mico/internal/object"
	"mico/internal/token"
)

// RegisterBuiltins installs the minimum builtin set - len, puts, type,
// clone - into env. puts writes to out so the REPL and file driver can
// each point it at their own stream.
func RegisterBuiltins(env *object.Environment, out io.Writer) {
	env.Set("len", &object.Builtin{Name: "len", Fn: builtinLen})
	env.Set("puts", &object.Builtin{Name: "puts", Fn: builtinPuts(out)})
	env.Set("type", &object.Builtin{Name: "type", Fn: builtinType})
	env.Set("clone", &object.Builtin{Name: "clone", Fn: builtinClone})
}

func builtinLen(args []object.Value, _ *object.Environment) object.Value {
	if len(args) != 1 {
		return object.NewError(token.Position{}, "Arity error: len() takes exactly 1 argument, got %d", len(args))
	}
	switch v := object.Unwrap(args[0]).(type) {
	case *object.String:
		return &object.Integer{Value: int64(len(v.Value))}
	case *object.Array:
		return &object.Integer{Value: int64(len(v.Elements))}
	case *object.Table:
		return &object.Integer{Value: int64(v.Len())}
	default:
		return object.NewError(token.Position{}, "Type error: len() not supported for %s", v.Type())
	}
}

func builtinPuts(out io.Writer) object.BuiltinFunc {
	return func(args []object.Value, _ *object.Environment) object.Value {
		for _, a := range args {
			v := object.Unwrap(a)
			if s, ok := v.(*object.String); ok {
				fmt.Fprintln(out, s.Value)
				continue
			}
			fmt.Fprintln(out, v.Inspect())
		}
		return object.NULL
	}
}

func builtinType(args []object.Value, _ *object.Environment) object.Value {
	if len(args) != 1 {
		return object.NewError(token.Position{}, "Arity error: type() takes exactly 1 argument, got %d", len(args))
	}
	return &object.String{Value: string(object.Unwrap(args[0]).Type())}
}

func builtinClone(args []object.Value, _ *object.Environment) object.Value {
	if len(args) != 1 {
		return object.NewError(token.Position{}, "Arity error: clone() takes exactly 1 argument, got %d", len(args))
	}
	return object.Unwrap(args[0]).Clone()
}
