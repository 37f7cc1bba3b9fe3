package reencode

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ColinTimBarndt/resonite-wasm-experiments/internal/wasm"
	"github.com/ColinTimBarndt/resonite-wasm-experiments/internal/wasmbinary"
)

var errBoom = errors.New("boom")

func identityMap(delta uint32) func(uint32) (uint32, error) {
	return func(idx uint32) (uint32, error) { return idx + delta, nil }
}

func TestBaseInstructionRemapsCallAndGlobal(t *testing.T) {
	r := &Base{
		MapFunc:   identityMap(10),
		MapGlobal: identityMap(20),
		MapTable:  identityMap(30),
		MapType:   identityMap(40),
	}

	call, err := r.Instruction(wasmbinary.Call(1))
	require.NoError(t, err)
	require.Equal(t, uint32(11), call.FuncIndex)

	get := wasmbinary.Instruction{Opcode: wasm.OpcodeGlobalGet, GlobalIndex: 2}
	got, err := r.Instruction(get)
	require.NoError(t, err)
	require.Equal(t, uint32(22), got.GlobalIndex)

	tset := wasmbinary.TableSet(3)
	got, err = r.Instruction(tset)
	require.NoError(t, err)
	require.Equal(t, uint32(33), got.TableIndex)

	ci := wasmbinary.Instruction{Opcode: wasm.OpcodeCallIndirect, TypeIndex: 4, TableIndex: 5}
	got, err = r.Instruction(ci)
	require.NoError(t, err)
	require.Equal(t, uint32(44), got.TypeIndex)
	require.Equal(t, uint32(35), got.TableIndex)
}

func TestBaseInstructionPassesThroughUntouchedShapes(t *testing.T) {
	r := &Base{MapFunc: identityMap(0), MapGlobal: identityMap(0), MapTable: identityMap(0), MapType: identityMap(0)}
	ret, err := r.Instruction(wasmbinary.Return())
	require.NoError(t, err)
	require.Equal(t, wasmbinary.Return(), ret)
}

func TestRewriteBodyPropagatesMapError(t *testing.T) {
	body := wasmbinary.BuildBody([]wasmbinary.Instruction{wasmbinary.Call(7), wasmbinary.End()})
	r := &Base{
		MapFunc: func(uint32) (uint32, error) { return 0, errBoom },
	}
	_, err := RewriteBody(r, body)
	require.ErrorIs(t, err, errBoom)
}

func TestRewriteBodyAppliesRemap(t *testing.T) {
	body := wasmbinary.BuildBody([]wasmbinary.Instruction{wasmbinary.Call(1), wasmbinary.End()})
	r := &Base{MapFunc: identityMap(5)}
	out, err := RewriteBody(r, body)
	require.NoError(t, err)
	require.NotEqual(t, body, out)
}
