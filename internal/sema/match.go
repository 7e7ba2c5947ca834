package sema

import (
	"github.com/sushi-lang/sushi/internal/ast"
	"github.com/sushi-lang/sushi/internal/diag"
	"github.com/sushi-lang/sushi/internal/types"
)

// checkMatch is C8: validates a match statement against its scrutinee's
// enum shape — scrutinee must be an enum, each arm's
// pattern must name a real variant with the right arity, no two arms may
// carry the same pattern signature, a wildcard arm (if present) must be
// last, and the arm set must be exhaustive unless a wildcard covers the
// remainder.
func (c *Checker) checkMatch(n *ast.MatchStmt, scope *Scope) {
	scrutinee, scrT := c.checkExpr(n.Scrutinee, scope)
	n.Scrutinee = scrutinee
	sp := toSpan(n.Sp)

	resolved := c.tables.ResolveUnknown(scrT)
	var en *types.Enum
	switch rt := resolved.(type) {
	case *types.Enum:
		en = rt
	case *types.Result:
		en = rt.AsEnum()
	}
	if en == nil {
		c.rep.Error(diag.CE2048, diag.StageTypeck, sp, "match scrutinee must be an enum, got %s", show(scrT))
		for _, arm := range n.Arms {
			c.checkBlock(arm.Body, NewScope(scope))
		}
		return
	}

	seen := map[string]bool{}
	wildcardSeen := false
	covered := map[string]bool{}

	for i, arm := range n.Arms {
		armSp := toSpan(arm.Sp)
		if wildcardSeen {
			c.rep.Error(diag.CE2041, diag.StagePattern, armSp, "unreachable arm after wildcard")
		}
		armScope := NewScope(scope)

		switch p := arm.Pattern.(type) {
		case *ast.WildcardPattern:
			if i != len(n.Arms)-1 {
				c.rep.Error(diag.CE2041, diag.StagePattern, armSp, "wildcard pattern `_` must be the last arm")
			}
			wildcardSeen = true
		case *ast.EnumPattern:
			c.checkEnumPattern(p, en, armSp, armScope)
			sig := p.EnumName + "." + p.Variant
			if seen[sig] {
				c.rep.Error(diag.CE2041, diag.StagePattern, armSp, "duplicate arm for %s", sig)
			}
			seen[sig] = true
			covered[p.Variant] = true
		default:
			c.rep.Error(diag.CE2048, diag.StageTypeck, armSp, "unsupported top-level pattern in match")
		}

		c.checkBlock(arm.Body, armScope)
	}

	if !wildcardSeen {
		for _, v := range en.Variants {
			if !covered[v.Name] {
				c.rep.Error(diag.CE2040, diag.StagePattern, sp, "match is not exhaustive: missing %s.%s", en.Name, v.Name)
			}
		}
	}
}

// checkEnumPattern validates one `Enum.Variant(bindings...)` arm against
// en, reporting arity mismatches and declaring each binding (unwrapping
// Own<U> -> U, step 5) into armScope.
func (c *Checker) checkEnumPattern(p *ast.EnumPattern, en *types.Enum, sp diag.Span, armScope *Scope) {
	variant, ok := en.Variant(p.Variant)
	if !ok {
		c.rep.Error(diag.CE2045, diag.StagePattern, sp, "%s has no variant %q", en.Name, p.Variant)
		return
	}
	p.Resolved = en
	if len(p.Bindings) != len(variant.Associated) {
		c.rep.Error(diag.CE2044, diag.StagePattern, sp, "%s.%s expects %d binding(s), got %d", en.Name, p.Variant, len(variant.Associated), len(p.Bindings))
	}
	for i := range p.Bindings {
		var bt types.Type
		if i < len(variant.Associated) {
			bt = variant.Associated[i]
		}
		c.bindPattern(&p.Bindings[i], bt, sp, armScope)
	}
}

// bindPattern declares a single binding's identifier(s) into armScope,
// recursing through nested Own/enum patterns.
func (c *Checker) bindPattern(b *ast.Binding, t types.Type, sp diag.Span, armScope *Scope) {
	if b.Discard {
		return
	}
	if b.Nested != nil {
		switch nested := b.Nested.(type) {
		case *ast.OwnPattern:
			inner := t
			if st, ok := c.tables.ResolveUnknown(t).(*types.Struct); ok && st.GenericBase == "Own" {
				inner = st.GenericArgs[0]
			}
			c.bindOwnInner(nested.Inner, inner, sp, armScope)
		case *ast.EnumPattern:
			resolved := c.tables.ResolveUnknown(t)
			if en, ok := resolved.(*types.Enum); ok {
				c.checkEnumPattern(nested, en, sp, armScope)
			} else {
				c.rep.Error(diag.CE2048, diag.StagePattern, sp, "cannot match %s as an enum pattern", show(t))
			}
		}
		return
	}
	b.ResolvedType = t
	sym := armScope.Declare(b.Name, t)
	c.borrow.Declare(sym)
}

func (c *Checker) bindOwnInner(p ast.Pattern, t types.Type, sp diag.Span, armScope *Scope) {
	switch n := p.(type) {
	case *ast.WildcardPattern:
		return
	case *ast.CapturePattern:
		sym := armScope.Declare(n.Name, t)
		c.borrow.Declare(sym)
	case *ast.EnumPattern:
		resolved := c.tables.ResolveUnknown(t)
		if en, ok := resolved.(*types.Enum); ok {
			c.checkEnumPattern(n, en, sp, armScope)
		}
	}
}
