package types_test

import (
	"testing"

	"github.com/sushi-lang/sushi/internal/types"
)

func TestEqualStructuralForBuiltins(t *testing.T) {
	if !types.Equal(types.TypeI32, &types.Builtin{Kind: types.I32}) {
		t.Fatalf("expected i32 == i32")
	}
	if types.Equal(types.TypeI32, types.TypeI64) {
		t.Fatalf("expected i32 != i64")
	}
}

func TestEqualNominalComparesNameAndArgs(t *testing.T) {
	a := &types.Struct{Name: "Box<i32>", GenericBase: "Box", GenericArgs: []types.Type{types.TypeI32}}
	b := &types.Struct{Name: "Box<i32>", GenericBase: "Box", GenericArgs: []types.Type{types.TypeI32}}
	c := &types.Struct{Name: "Box<i64>", GenericBase: "Box", GenericArgs: []types.Type{types.TypeI64}}
	if !types.Equal(a, b) {
		t.Fatalf("expected identical generic structs to be equal")
	}
	if types.Equal(a, c) {
		t.Fatalf("expected Box<i32> != Box<i64>")
	}
}

func TestNeedsCleanupDynArrayAndOwn(t *testing.T) {
	if types.NeedsCleanup(types.TypeI32) {
		t.Fatalf("primitive should not need cleanup")
	}
	if !types.NeedsCleanup(&types.DynArray{Base: types.TypeI32}) {
		t.Fatalf("dyn array should need cleanup")
	}
	own := &types.Struct{Name: "Own<i32>", GenericBase: "Own", GenericArgs: []types.Type{types.TypeI32}}
	if !types.NeedsCleanup(own) {
		t.Fatalf("Own<T> should need cleanup")
	}
}

func TestNeedsCleanupRecursiveStructDoesNotInfiniteLoop(t *testing.T) {
	// A struct referencing itself only through a reference (not by value)
	// must not be treated as needing cleanup due to infinite recursion.
	s := &types.Struct{Name: "Node"}
	s.Fields = []types.StructField{
		{Name: "next", Type: &types.Reference{Inner: s, Mode: types.Peek}},
	}
	if types.NeedsCleanup(s) {
		t.Fatalf("reference-only self-reference should not need cleanup")
	}
}

func TestMangledName(t *testing.T) {
	got := types.MangledName("Result", []types.Type{types.TypeI32, types.TypeString})
	want := "Result<i32, string>"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestResultAsEnum(t *testing.T) {
	r := &types.Result{Ok: types.TypeI32, Err: types.TypeString}
	e := r.AsEnum()
	if e.VariantIndex("Ok") != 0 || e.VariantIndex("Err") != 1 {
		t.Fatalf("expected Ok=0 Err=1, got Ok=%d Err=%d", e.VariantIndex("Ok"), e.VariantIndex("Err"))
	}
}
