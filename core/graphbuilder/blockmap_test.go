package graphbuilder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlockMapDetectsLoopHeader(t *testing.T) {
	code := []byte{
		byte(ICONST_0),
		byte(ISTORE_0),
		byte(ILOAD_0), // 2, loop header
		byte(BIPUSH), 10,
		byte(IF_ICMPGE), 0x00, 0x08,
		byte(IINC), 0, 1,
		byte(GOTO), 0xff, 0xf7,
		byte(RETURN),
	}
	m := staticMethod(code, 1, 2, testSignature{ret: KindVoid})
	bm, err := buildBlockMap(m)
	require.NoError(t, err)

	header := bm.blockAt(2)
	assert.True(t, header.isLoopHeader)
	assert.False(t, bm.blockAt(0).isLoopHeader)
	assert.False(t, bm.blockAt(8).isLoopHeader)

	// Forward edges ascend in the numbering; only the back edge descends.
	assert.Less(t, bm.blockAt(0).id, header.id)
	assert.Less(t, header.id, bm.blockAt(8).id)
	assert.Less(t, header.id, bm.blockAt(13).id)
}

func TestBlockMapTrapBitmap(t *testing.T) {
	code := []byte{
		byte(NOP),
		byte(NEW), 0x00, 0x01,
		byte(POP),
		byte(RETURN),
	}
	m := staticMethod(code, 0, 1, testSignature{ret: KindVoid})
	bm, err := buildBlockMap(m)
	require.NoError(t, err)
	assert.False(t, bm.canTrapAt(0))
	assert.True(t, bm.canTrapAt(1))
	assert.False(t, bm.canTrapAt(4))
}

func TestBlockMapHandlerRangesSplitBlocks(t *testing.T) {
	caught := &testType{name: "E", initialized: true}
	code := []byte{
		byte(NEW), 0x00, 0x01,
		byte(POP),
		byte(RETURN),
		byte(POP), // 5, handler entry
		byte(RETURN),
	}
	m := staticMethod(code, 0, 1, testSignature{ret: KindVoid})
	m.handlers = []ExceptionHandler{{StartBCI: 0, EndBCI: 4, HandlerBCI: 5, CatchType: caught}}
	bm, err := buildBlockMap(m)
	require.NoError(t, err)

	assert.NotSame(t, bm.blockAt(0), bm.blockAt(4), "the protected range's end is a block boundary")
	assert.True(t, bm.blockAt(5).isExceptionEntry)

	d := bm.blockAt(0).dispatchEntry
	require.NotNil(t, d)
	assert.True(t, d.isExceptionDispatch)
	require.Len(t, d.successors, 2)
	assert.Same(t, bm.blockAt(5), d.successors[0])
	assert.Same(t, bm.unwindBlock, d.successors[1])
	assert.Nil(t, bm.blockAt(4).dispatchEntry, "blocks outside the range have no dispatch chain")
}

func TestBlockMapSharesDispatchChains(t *testing.T) {
	caught := &testType{name: "E", initialized: true}
	code := []byte{
		byte(NEW), 0x00, 0x01,
		byte(POP),
		byte(GOTO), 0x00, 0x03, // -> 7
		byte(NEW), 0x00, 0x01,
		byte(POP),
		byte(RETURN),
		byte(POP), // 12, handler entry
		byte(RETURN),
	}
	m := staticMethod(code, 0, 1, testSignature{ret: KindVoid})
	m.handlers = []ExceptionHandler{{StartBCI: 0, EndBCI: 12, HandlerBCI: 12, CatchType: caught}}
	bm, err := buildBlockMap(m)
	require.NoError(t, err)

	first := bm.blockAt(0).dispatchEntry
	second := bm.blockAt(7).dispatchEntry
	require.NotNil(t, first)
	assert.Same(t, first, second, "every site covered by the same handlers enters one chain")
}

func TestBlockMapCatchAllTruncatesDispatch(t *testing.T) {
	caught := &testType{name: "E", initialized: true}
	code := []byte{
		byte(NEW), 0x00, 0x01,
		byte(POP),
		byte(RETURN),
		byte(POP), // 5
		byte(RETURN),
		byte(POP), // 7
		byte(RETURN),
	}
	m := staticMethod(code, 0, 1, testSignature{ret: KindVoid})
	m.handlers = []ExceptionHandler{
		{StartBCI: 0, EndBCI: 4, HandlerBCI: 5, CatchType: nil}, // catch-all first
		{StartBCI: 0, EndBCI: 4, HandlerBCI: 7, CatchType: caught},
	}
	bm, err := buildBlockMap(m)
	require.NoError(t, err)

	d := bm.blockAt(0).dispatchEntry
	require.NotNil(t, d)
	assert.True(t, d.handler.IsCatchAll())
	require.Len(t, d.successors, 1, "a catch-all ends the dispatch order")
	assert.Same(t, bm.blockAt(5), d.successors[0])
}

func TestBlockMapRejectsBadExceptionTable(t *testing.T) {
	code := []byte{
		byte(NEW), 0x00, 0x01,
		byte(POP),
		byte(RETURN),
	}
	m := staticMethod(code, 0, 1, testSignature{ret: KindVoid})
	m.handlers = []ExceptionHandler{{StartBCI: 1, EndBCI: 4, HandlerBCI: 3, CatchType: nil}}
	_, err := buildBlockMap(m)
	require.ErrorIs(t, err, ErrMalformedControlFlow)
}

func TestBlockMapRejectsEmptyCode(t *testing.T) {
	m := staticMethod(nil, 0, 0, testSignature{ret: KindVoid})
	_, err := buildBlockMap(m)
	require.ErrorIs(t, err, ErrMalformedControlFlow)
}

func TestBlockMapRejectsTruncatedInstruction(t *testing.T) {
	m := staticMethod([]byte{byte(GOTO), 0x00}, 0, 0, testSignature{ret: KindVoid})
	_, err := buildBlockMap(m)
	require.ErrorIs(t, err, ErrMalformedControlFlow)
}

func TestWorkListPopsInBlockOrder(t *testing.T) {
	w := newWorkList()
	b1 := &Block{id: 3}
	b2 := &Block{id: 1}
	b3 := &Block{id: 2}
	w.add(b1)
	w.add(b2)
	w.add(b3)
	w.add(b2) // duplicate adds are ignored

	var ids []int
	for !w.empty() {
		ids = append(ids, w.pop().id)
	}
	assert.Equal(t, []int{1, 2, 3}, ids)

	assert.True(t, w.isVisited(b1))
	w.add(b1)
	assert.True(t, w.empty(), "visited blocks are never requeued")
}

func TestJsrScopes(t *testing.T) {
	assert.True(t, emptyScope.IsEmpty())
	assert.Equal(t, -1, emptyScope.NextReturnAddress())

	s := emptyScope.Push(3)
	assert.False(t, s.IsEmpty())
	assert.Equal(t, 3, s.NextReturnAddress())

	nested := s.Push(9)
	assert.Equal(t, 9, nested.NextReturnAddress())
	assert.True(t, nested.Pop().Equals(s))
	assert.True(t, s.Pop().Equals(emptyScope))

	assert.True(t, emptyScope.Push(3).Equals(emptyScope.Push(3)))
	assert.False(t, emptyScope.Push(3).Equals(emptyScope.Push(4)))
	assert.False(t, s.Equals(nested))
}
