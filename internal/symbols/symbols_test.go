package symbols

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScope_DeclareAndResolve(t *testing.T) {
	g := NewGlobalScope()
	ok := g.Declare(&Symbol{Name: "greet", Kind: ProcedureSymbol})
	require.True(t, ok)

	sym, found := g.Resolve("greet")
	require.True(t, found)
	assert.Equal(t, ProcedureSymbol, sym.Kind)
}

func TestScope_DuplicateDeclarationRejected(t *testing.T) {
	g := NewGlobalScope()
	require.True(t, g.Declare(&Symbol{Name: "x"}))
	assert.False(t, g.Declare(&Symbol{Name: "x"}))
}

func TestScope_NestedShadowing(t *testing.T) {
	outer := NewGlobalScope()
	require.True(t, outer.Declare(&Symbol{Name: "x", Type: "number"}))

	inner := outer.Push()
	require.True(t, inner.Declare(&Symbol{Name: "x", Type: "string"}))

	sym, _ := inner.Resolve("x")
	assert.Equal(t, "string", sym.Type)

	outerSym, _ := outer.Resolve("x")
	assert.Equal(t, "number", outerSym.Type)
}

func TestScope_ResolveWalksOuterChain(t *testing.T) {
	outer := NewGlobalScope()
	require.True(t, outer.Declare(&Symbol{Name: "count", Type: "number"}))

	inner := outer.Push()
	_, found := inner.Resolve("count")
	assert.True(t, found)

	_, found = inner.Resolve("missing")
	assert.False(t, found)
}

func TestScope_MarkUsedAffectsOuterSymbol(t *testing.T) {
	outer := NewGlobalScope()
	outer.Declare(&Symbol{Name: "total"})
	inner := outer.Push()

	inner.MarkUsed("total")

	sym, _ := outer.Resolve("total")
	assert.True(t, sym.Used)
}

func TestScope_NamesPreserveDeclarationOrder(t *testing.T) {
	g := NewGlobalScope()
	g.Declare(&Symbol{Name: "c"})
	g.Declare(&Symbol{Name: "a"})
	g.Declare(&Symbol{Name: "b"})

	assert.Equal(t, []string{"c", "a", "b"}, g.Names())
}
