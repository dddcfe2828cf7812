package pending

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chojs23/ts-bridge/internal/bridge/rpc"
)

func TestInsertAndTake(t *testing.T) {
	tbl := New()
	tbl.Insert(rpc.ServerKindSyntax, 1, Entry{RequestID: []byte(`1`)})

	entry, ok := tbl.Take(rpc.ServerKindSyntax, 1)
	require.True(t, ok)
	assert.Equal(t, []byte(`1`), []byte(entry.RequestID))
}

func TestTakeIsAtMostOnce(t *testing.T) {
	tbl := New()
	tbl.Insert(rpc.ServerKindSyntax, 1, Entry{})

	_, ok := tbl.Take(rpc.ServerKindSyntax, 1)
	require.True(t, ok)

	_, ok = tbl.Take(rpc.ServerKindSyntax, 1)
	assert.False(t, ok, "a duplicate response for a resolved seq must be dropped")
}

func TestTakeUnknownPairIsSilentMiss(t *testing.T) {
	tbl := New()
	_, ok := tbl.Take(rpc.ServerKindSemantic, 999)
	assert.False(t, ok)
}

func TestBothRouteInsertsTwiceWithSameRequestID(t *testing.T) {
	tbl := New()
	tbl.Insert(rpc.ServerKindSyntax, 1, Entry{RequestID: []byte(`7`)})
	tbl.Insert(rpc.ServerKindSemantic, 1, Entry{RequestID: []byte(`7`)})

	a, ok := tbl.Take(rpc.ServerKindSyntax, 1)
	require.True(t, ok)
	b, ok := tbl.Take(rpc.ServerKindSemantic, 1)
	require.True(t, ok)
	assert.Equal(t, string(a.RequestID), string(b.RequestID))
}

func TestDrainAllEmptiesTable(t *testing.T) {
	tbl := New()
	tbl.Insert(rpc.ServerKindSyntax, 1, Entry{})
	tbl.Insert(rpc.ServerKindSemantic, 2, Entry{})

	drained := tbl.DrainAll()
	assert.Len(t, drained, 2)
	assert.Equal(t, 0, tbl.Len())
}
