package sema

import (
	"github.com/sushi-lang/sushi/internal/ast"
	"github.com/sushi-lang/sushi/internal/types"
)

// FuncSignature describes one registered function entry.
type FuncSignature struct {
	Name       string
	Params     []types.Type
	ParamNames []string
	Return     types.Type
	Visibility string
	IsStdlib   bool
	IsLibrary  bool
	IsGeneric  bool
	Decl       *ast.FuncDecl // nil for compiler-synthesized entries
}

// GenericFuncTemplate is an uninstantiated generic function.
type GenericFuncTemplate struct {
	Name       string
	TypeParams []string
	Decl       *ast.FuncDecl
}

// GenericStructTemplate is an uninstantiated generic struct.
type GenericStructTemplate struct {
	Name       string
	TypeParams []string
	Decl       *ast.StructDecl // nil for predefined (Own/HashMap/List)
	Predefined string          // "Own", "HashMap", "List" for built-ins
}

// GenericEnumTemplate is an uninstantiated generic enum.
type GenericEnumTemplate struct {
	Name       string
	TypeParams []string
	Decl       *ast.EnumDecl
	Predefined string // "Result", "Maybe" for built-ins
}

// ExtensionMethods maps method name to signature for one concrete type.
type ExtensionMethods map[string]*FuncSignature

// PerkDef is a trait's required method signatures.
type PerkDef struct {
	Name    string
	Methods map[string]*ast.FuncDecl
}

// PerkImpl is a (type, perk) implementation; nil Methods means
// auto-derived (e.g. primitives auto-satisfy Hashable).
type PerkImpl struct {
	TypeName   string
	PerkName   string
	Methods    map[string]*ast.FuncDecl
	AutoDerived bool
}

// ConstEntry is a registered compile-time constant.
type ConstEntry struct {
	Name    string
	Type    types.Type
	Init    ast.Expr
	Value   ConstValue
	Evaled  bool
}

// Tables holds every C2 symbol table for one compilation unit.
type Tables struct {
	Constants         map[string]*ConstEntry
	Functions         map[string]*FuncSignature
	GenericFunctions  map[string]*GenericFuncTemplate
	Structs           map[string]*types.Struct
	Enums             map[string]*types.Enum
	GenericStructs    map[string]*GenericStructTemplate
	GenericEnums      map[string]*GenericEnumTemplate
	Extensions        map[string]ExtensionMethods // type name -> methods
	GenericExtensions map[string]ExtensionMethods // generic base name -> method templates
	Perks             map[string]*PerkDef
	PerkImpls         map[string]*PerkImpl // "Type::Perk" -> impl

	// Sealed is set once the checker (C7) has finished; C10-C14 must not
	// mutate tables after this point.
	Sealed bool
}

// NewTables builds an empty table set pre-populated with every predefined
// type named in: FileMode, SeekFrom, FileError, FileResult,
// StdError enums, and the Result<T>/Maybe<T>/Own<T>/HashMap<K,V>/List<T>
// generic templates.
func NewTables() *Tables {
	t := &Tables{
		Constants:         make(map[string]*ConstEntry),
		Functions:         make(map[string]*FuncSignature),
		GenericFunctions:  make(map[string]*GenericFuncTemplate),
		Structs:           make(map[string]*types.Struct),
		Enums:             make(map[string]*types.Enum),
		GenericStructs:    make(map[string]*GenericStructTemplate),
		GenericEnums:      make(map[string]*GenericEnumTemplate),
		Extensions:        make(map[string]ExtensionMethods),
		GenericExtensions: make(map[string]ExtensionMethods),
		Perks:             make(map[string]*PerkDef),
		PerkImpls:         make(map[string]*PerkImpl),
	}
	t.registerPredefined()
	return t
}

func (t *Tables) registerPredefined() {
	t.Enums["FileMode"] = &types.Enum{Name: "FileMode", Variants: []types.EnumVariant{
		{Name: "Read"}, {Name: "Write"}, {Name: "Append"}, {Name: "ReadWrite"},
	}}
	t.Enums["SeekFrom"] = &types.Enum{Name: "SeekFrom", Variants: []types.EnumVariant{
		{Name: "Start", Associated: []types.Type{types.TypeI64}},
		{Name: "Current", Associated: []types.Type{types.TypeI64}},
		{Name: "End", Associated: []types.Type{types.TypeI64}},
	}}
	t.Enums["FileError"] = &types.Enum{Name: "FileError", Variants: []types.EnumVariant{
		{Name: "NotFound"}, {Name: "PermissionDenied"}, {Name: "AlreadyExists"},
		{Name: "InvalidHandle"}, {Name: "IOError"},
	}}
	t.Enums["FileResult"] = &types.Enum{Name: "FileResult", Variants: []types.EnumVariant{
		{Name: "Ok", Associated: []types.Type{types.TypeFile}},
		{Name: "Err", Associated: []types.Type{&types.Enum{Name: "FileError"}}},
	}}
	t.Enums["StdError"] = &types.Enum{Name: "StdError", Variants: []types.EnumVariant{
		{Name: "Generic", Associated: []types.Type{types.TypeString}},
	}}

	t.GenericEnums["Result"] = &GenericEnumTemplate{Name: "Result", TypeParams: []string{"T", "E"}, Predefined: "Result"}
	t.GenericEnums["Maybe"] = &GenericEnumTemplate{Name: "Maybe", TypeParams: []string{"T"}, Predefined: "Maybe"}

	t.GenericStructs["Own"] = &GenericStructTemplate{Name: "Own", TypeParams: []string{"T"}, Predefined: "Own"}
	t.GenericStructs["HashMap"] = &GenericStructTemplate{Name: "HashMap", TypeParams: []string{"K", "V"}, Predefined: "HashMap"}
	t.GenericStructs["List"] = &GenericStructTemplate{Name: "List", TypeParams: []string{"T"}, Predefined: "List"}

	t.Perks["Hashable"] = &PerkDef{Name: "Hashable", Methods: map[string]*ast.FuncDecl{}}
	for _, prim := range []string{"i8", "i16", "i32", "i64", "u8", "u16", "u32", "u64", "f32", "f64", "bool", "string"} {
		t.PerkImpls[prim+"::Hashable"] = &PerkImpl{TypeName: prim, PerkName: "Hashable", AutoDerived: true}
	}
}

// IsGenericEnumBase reports whether name is Result/Maybe or a
// user-declared generic enum base.
func (t *Tables) IsGenericEnumBase(name string) bool {
	_, ok := t.GenericEnums[name]
	return ok
}

// IsGenericStructBase reports whether name is Own/HashMap/List or a
// user-declared generic struct base.
func (t *Tables) IsGenericStructBase(name string) bool {
	_, ok := t.GenericStructs[name]
	return ok
}

// HasPerkImpl reports whether typeName implements perkName (the
// perk-constraint check during monomorphization).
func (t *Tables) HasPerkImpl(typeName, perkName string) bool {
	_, ok := t.PerkImpls[typeName+"::"+perkName]
	return ok
}
