package sema

import "github.com/sushi-lang/sushi/internal/types"

// compat implements the type compatibility relation: whether a value
// of type actual may be used where expected is required.
func (c *Checker) compat(actual, expected types.Type) bool {
	if actual == nil || expected == nil {
		return false
	}
	actual = c.tables.ResolveUnknown(actual)
	expected = c.tables.ResolveUnknown(expected)

	if types.Equal(actual, expected) {
		return true
	}

	switch ex := expected.(type) {
	case *types.Reference:
		ac, ok := actual.(*types.Reference)
		if !ok {
			return false
		}
		if ex.Mode == types.Peek && ac.Mode == types.Poke {
			return c.compat(ac.Inner, ex.Inner)
		}
		return ex.Mode == ac.Mode && c.compat(ac.Inner, ex.Inner)
	case *types.Result:
		ac, ok := actual.(*types.Result)
		if !ok {
			if en, ok := actual.(*types.Enum); ok && en.GenericBase == "Result" && len(en.GenericArgs) == 2 {
				ac = &types.Result{Ok: en.GenericArgs[0], Err: en.GenericArgs[1]}
			} else {
				return false
			}
		}
		return c.compat(ac.Ok, ex.Ok) && c.compat(ac.Err, ex.Err)
	case *types.Array:
		ac, ok := actual.(*types.Array)
		return ok && ac.Size == ex.Size && c.compat(ac.Base, ex.Base)
	case *types.DynArray:
		ac, ok := actual.(*types.DynArray)
		return ok && c.compat(ac.Base, ex.Base)
	}
	return false
}

// isNumeric reports whether t is a sized integer or float builtin.
func isNumeric(t types.Type) bool {
	b, ok := t.(*types.Builtin)
	return ok && (b.Kind.IsInteger() || b.Kind.IsFloat())
}

// isStringy reports whether t is convertible to string for interpolation
// purposes.
func isStringy(t types.Type) bool {
	b, ok := t.(*types.Builtin)
	if !ok {
		return false
	}
	return b.Kind.IsInteger() || b.Kind.IsFloat() || b.Kind == types.Bool || b.Kind == types.String
}
