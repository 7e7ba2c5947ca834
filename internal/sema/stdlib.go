package sema

import "github.com/sushi-lang/sushi/internal/types"

// stdlibFuncSpec describes one eagerly-declared stdlib/library function
// signature, keyed by the `use <module/path>` that brings it into scope.
type stdlibFuncSpec struct {
	name   string
	params []types.Type
	ret    types.Type
}

// stdlibModules enumerates the handful of modules this compiler declares
// externs for eagerly on `use`, per the original implementation's
// sys/env and sys/process stdlib sources: every function in a used
// module is registered in FunctionTable with is_stdlib = true, satisfying
// invariant T2, without requiring the full stdlib source tree to be
// present at compile time.
var stdlibModules = map[string][]stdlibFuncSpec{
	"sys/env": {
		{name: "get_env", params: []types.Type{types.TypeString}, ret: &types.GenericTypeRef{Base: "Maybe", Args: []types.Type{types.TypeString}}},
		{name: "set_env", params: []types.Type{types.TypeString, types.TypeString}, ret: types.TypeBlank},
	},
	"sys/process": {
		{name: "exit", params: []types.Type{types.TypeI32}, ret: types.TypeBlank},
		{name: "pid", params: nil, ret: types.TypeI32},
	},
	"io/stdio": {
		{name: "read_line", params: nil, ret: &types.GenericTypeRef{Base: "Maybe", Args: []types.Type{types.TypeString}}},
	},
}

// RegisterStdlibUse declares every function of modulePath in FunctionTable
// with IsStdlib set, resolving any GenericTypeRef return types through the
// monomorphizer so the entries are emitter-ready.
func (t *Tables) RegisterStdlibUse(modulePath string) {
	specs, ok := stdlibModules[modulePath]
	if !ok {
		return
	}
	for _, spec := range specs {
		if _, exists := t.Functions[spec.name]; exists {
			continue
		}
		t.Functions[spec.name] = &FuncSignature{
			Name:     spec.name,
			Params:   spec.params,
			Return:   t.ResolveRecursive(spec.ret),
			IsStdlib: true,
		}
	}
}
