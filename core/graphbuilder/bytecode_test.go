package graphbuilder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamWalksInstructionBoundaries(t *testing.T) {
	code := []byte{
		byte(ICONST_0),
		byte(BIPUSH), 5,
		byte(SIPUSH), 0x01, 0x00,
		byte(RETURN),
	}
	s := NewBytecodeStream(code)
	var bcis []int
	for s.CurrentBCI() < s.EndBCI() {
		bcis = append(bcis, s.CurrentBCI())
		s.Next()
	}
	assert.Equal(t, []int{0, 1, 3, 6}, bcis)

	s.SetBCI(1)
	assert.Equal(t, 5, s.ReadByte())
	s.SetBCI(3)
	assert.Equal(t, 256, s.ReadShort())
}

func TestStreamWidePrefixIsTransparent(t *testing.T) {
	code := []byte{
		byte(WIDE), byte(ILOAD), 0x01, 0x00,
		byte(RETURN),
	}
	s := NewBytecodeStream(code)
	assert.Equal(t, ILOAD, s.CurrentBC())
	assert.True(t, s.IsWide())
	assert.Equal(t, 256, s.ReadLocalIndex())
	assert.Equal(t, 4, s.NextBCI())
}

func TestStreamBranchDestinations(t *testing.T) {
	code := []byte{
		byte(NOP), byte(NOP),
		byte(GOTO), 0xff, 0xf7,
	}
	s := NewBytecodeStream(code)
	s.SetBCI(2)
	assert.Equal(t, -7, s.ReadBranchDest())
}

func TestTableSwitchDecoding(t *testing.T) {
	code := []byte{
		byte(ILOAD_0),
		byte(TABLESWITCH), 0, 0,
		0, 0, 0, 27,
		0, 0, 0, 0,
		0, 0, 0, 1,
		0, 0, 0, 23,
		0, 0, 0, 25,
		byte(ICONST_1), byte(IRETURN),
		byte(ICONST_2), byte(IRETURN),
		byte(ICONST_3), byte(IRETURN),
	}
	s := NewBytecodeStream(code)
	s.SetBCI(1)
	ts := newTableSwitch(s, 1)
	require.Equal(t, 2, ts.numberOfCases())
	assert.Equal(t, 0, ts.lowKey())
	assert.Equal(t, 24, ts.targetAt(0))
	assert.Equal(t, 26, ts.targetAt(1))
	assert.Equal(t, 28, ts.defaultTarget())
	assert.Equal(t, 24, ts.offsetToNextInstruction())
}

func TestLookupSwitchDecoding(t *testing.T) {
	code := []byte{
		byte(LOOKUPSWITCH), 0, 0, 0,
		0, 0, 0, 20,
		0, 0, 0, 1,
		0, 0, 0, 42,
		0, 0, 0, 16,
		byte(NOP), byte(NOP), byte(NOP), byte(NOP),
	}
	s := NewBytecodeStream(code)
	ls := newLookupSwitch(s, 0)
	require.Equal(t, 1, ls.numberOfCases())
	assert.Equal(t, 42, ls.keyAt(0))
	assert.Equal(t, 16, ls.targetAt(0))
	assert.Equal(t, 20, ls.defaultTarget())
	assert.Equal(t, 20, ls.offsetToNextInstruction())
}

func TestNameOf(t *testing.T) {
	assert.Equal(t, "goto", NameOf(GOTO))
	assert.Equal(t, "tableswitch", NameOf(TABLESWITCH))
	assert.Equal(t, "<illegal>", NameOf(ByteCode(0xfe)))
}
