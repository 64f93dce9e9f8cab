package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogComplete(t *testing.T) {
	seen := make(map[string]bool)
	for _, k := range All() {
		name := k.String()
		require.NotEmpty(t, name, "kind %d has no name", uint8(k))
		assert.False(t, seen[name], "duplicate name %q", name)
		seen[name] = true

		if k.Subscribable() {
			assert.NotEmpty(t, k.WireName(), "%s has no wire name", k)
		} else {
			assert.Empty(t, k.WireName(), "%s is lifecycle-only", k)
		}
	}
	assert.Len(t, All(), int(NumKinds))
}

func TestParseKind(t *testing.T) {
	for _, k := range All() {
		got, err := ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, got)

		if w := k.WireName(); w != "" {
			got, err = ParseKind(w)
			require.NoError(t, err)
			assert.Equal(t, k, got)
		}
	}

	_, err := ParseKind("function_exploded")
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestLifecycleKindsNotSubscribable(t *testing.T) {
	for _, k := range []Kind{StartBinaryNinja, EndBinaryNinja, StartBinaryView, EndBinaryView} {
		assert.False(t, k.Subscribable(), k.String())
	}
	assert.True(t, FunctionAdded.Subscribable())
	assert.False(t, NumKinds.Valid())
}

func TestDefaultResult(t *testing.T) {
	v, ok := NotificationBarrier.DefaultResult()
	assert.True(t, ok)
	assert.Equal(t, uint64(0), v)

	_, ok = DataWritten.DefaultResult()
	assert.False(t, ok)
}

func TestMask(t *testing.T) {
	m := MaskOf(SymbolAdded, FunctionAdded, NumKinds)

	assert.True(t, m.Has(FunctionAdded))
	assert.True(t, m.Has(SymbolAdded))
	assert.False(t, m.Has(DataWritten))
	assert.False(t, m.Has(NumKinds))
	assert.Equal(t, 2, m.Len())
	assert.Equal(t, []Kind{FunctionAdded, SymbolAdded}, m.Kinds())
	assert.Equal(t, []string{"functionAdded", "symbolAdded"}, m.WireNames())
	assert.Equal(t, "{function_added, symbol_added}", m.String())

	var empty Mask
	assert.True(t, empty.Empty())
	assert.Empty(t, empty.Kinds())
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		kind    Kind
		raw     []any
		wantErr error
		check   func(t *testing.T, a Args)
	}{
		{
			name: "data written",
			kind: DataWritten,
			raw:  []any{uint64(0x401000), uint64(16)},
			check: func(t *testing.T, a Args) {
				off, ok := a.Get("offset")
				require.True(t, ok)
				assert.Equal(t, uint64(0x401000), off.Num)
				l, ok := a.Get("len")
				require.True(t, ok)
				assert.Equal(t, uint64(16), l.Num)
			},
		},
		{
			name: "barrier takes nothing",
			kind: NotificationBarrier,
			raw:  nil,
			check: func(t *testing.T, a Args) {
				assert.Empty(t, a.Values)
			},
		},
		{
			name: "type archive bytes are copied",
			kind: TypeArchiveAttached,
			raw:  []any{"archive-1", []byte("/tmp/a.bnta")},
			check: func(t *testing.T, a Args) {
				id, _ := a.Get("id")
				assert.Equal(t, "archive-1", id.Str)
				p, _ := a.Get("path")
				assert.Equal(t, []byte("/tmp/a.bnta"), p.Bytes)
			},
		},
		{
			name: "narrow unsigned widened",
			kind: StringFound,
			raw:  []any{uint32(1), uint32(0x10), int(4)},
			check: func(t *testing.T, a Args) {
				typ, _ := a.Get("type")
				assert.Equal(t, uint64(1), typ.Num)
			},
		},
		{
			name:    "wrong arity",
			kind:    FunctionAdded,
			raw:     []any{},
			wantErr: ErrArgCount,
		},
		{
			name:    "wrong type",
			kind:    SymbolAdded,
			raw:     []any{"not a handle"},
			wantErr: ErrArgType,
		},
		{
			name:    "negative integer",
			kind:    DataMetadataUpdated,
			raw:     []any{int64(-1)},
			wantErr: ErrArgType,
		},
		{
			name:    "enum out of range",
			kind:    StringRemoved,
			raw:     []any{uint64(1 << 40), uint64(0), uint64(0)},
			wantErr: ErrArgType,
		},
		{
			name:    "lifecycle kind",
			kind:    StartBinaryView,
			raw:     nil,
			wantErr: ErrUnknownKind,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := Decode(tt.kind, tt.raw)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.kind, a.Kind)
			tt.check(t, a)
		})
	}
}

func TestDecodeDoesNotAliasBytes(t *testing.T) {
	raw := []byte("path")
	a, err := Decode(TypeArchiveDetached, []any{"id", raw})
	require.NoError(t, err)

	raw[0] = 'X'
	p, _ := a.Get("path")
	assert.Equal(t, []byte("path"), p.Bytes)
}

func TestParseText(t *testing.T) {
	raw, err := ParseText(StringFound, []string{"2", "0x401000", "12"})
	require.NoError(t, err)
	assert.Equal(t, []any{uint32(2), uint64(0x401000), uint64(12)}, raw)

	a, err := Decode(StringFound, raw)
	require.NoError(t, err)
	off, _ := a.Get("offset")
	assert.Equal(t, uint64(0x401000), off.Num)

	raw, err = ParseText(TypeArchiveAttached, []string{"abc", "/tmp/a.bnta"})
	require.NoError(t, err)
	assert.Equal(t, []any{"abc", []byte("/tmp/a.bnta")}, raw)

	_, err = ParseText(FunctionAdded, nil)
	assert.ErrorIs(t, err, ErrArgCount)

	_, err = ParseText(FunctionAdded, []string{"-1"})
	assert.ErrorIs(t, err, ErrArgType)

	_, err = ParseText(StringFound, []string{"0x1_0000_0000", "0", "0"})
	assert.ErrorIs(t, err, ErrArgType)
}
