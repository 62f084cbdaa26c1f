package guest

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tetratelabs/wazero"
	"go.bytecodealliance.org/wit"

	"github.com/wippyai/shapes/errors"
	"github.com/wippyai/shapes/peek"
)

// memoryModule is a core module that only exports one page of memory:
//
//	(module (memory (export "memory") 1))
var memoryModule = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	0x05, 0x03, 0x01, 0x00, 0x01,
	0x07, 0x0a, 0x01, 0x06, 0x6d, 0x65, 0x6d, 0x6f, 0x72, 0x79, 0x02, 0x00,
}

func newMemory(t *testing.T) *Memory {
	t.Helper()
	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	t.Cleanup(func() { _ = rt.Close(ctx) })

	mod, err := rt.Instantiate(ctx, memoryModule)
	require.NoError(t, err)
	mem := mod.ExportedMemory("memory")
	require.NotNil(t, mem)
	return NewMemory(mem)
}

func named(name string, td *wit.TypeDef) *wit.TypeDef {
	td.Name = &name
	return td
}

func putU32(t *testing.T, m *Memory, addr, v uint32) {
	t.Helper()
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	require.NoError(t, m.Write(addr, b[:]))
}

func TestLayout(t *testing.T) {
	c := NewCompiler(nil)

	manyCases := make([]wit.EnumCase, 300)
	for i := range manyCases {
		manyCases[i] = wit.EnumCase{Name: "c"}
	}
	manyFlags := make([]wit.Flag, 20)
	for i := range manyFlags {
		manyFlags[i] = wit.Flag{Name: "f"}
	}

	tests := []struct {
		name  string
		typ   wit.Type
		size  uintptr
		align uintptr
	}{
		{"u8", wit.U8{}, 1, 1},
		{"u64", wit.U64{}, 8, 8},
		{"char", wit.Char{}, 4, 4},
		{"string", wit.String{}, 8, 4},
		{"list", &wit.TypeDef{Kind: &wit.List{Type: wit.U16{}}}, 8, 4},
		{"record", &wit.TypeDef{Kind: &wit.Record{Fields: []wit.Field{
			{Name: "a", Type: wit.U8{}},
			{Name: "b", Type: wit.U32{}},
			{Name: "c", Type: wit.U16{}},
		}}}, 12, 4},
		{"empty record", &wit.TypeDef{Kind: &wit.Record{}}, 0, 1},
		{"tuple", &wit.TypeDef{Kind: &wit.Tuple{Types: []wit.Type{wit.U8{}, wit.U64{}}}}, 16, 8},
		{"option u8", &wit.TypeDef{Kind: &wit.Option{Type: wit.U8{}}}, 2, 1},
		{"option u32", &wit.TypeDef{Kind: &wit.Option{Type: wit.U32{}}}, 8, 4},
		{"result", &wit.TypeDef{Kind: &wit.Result{OK: wit.U64{}, Err: wit.String{}}}, 16, 8},
		{"empty result", &wit.TypeDef{Kind: &wit.Result{}}, 1, 1},
		{"enum", &wit.TypeDef{Kind: &wit.Enum{Cases: []wit.EnumCase{{Name: "a"}, {Name: "b"}}}}, 1, 1},
		{"wide enum", &wit.TypeDef{Kind: &wit.Enum{Cases: manyCases}}, 2, 2},
		{"flags", &wit.TypeDef{Kind: &wit.Flags{Flags: []wit.Flag{{Name: "a"}}}}, 1, 1},
		{"wide flags", &wit.TypeDef{Kind: &wit.Flags{Flags: manyFlags}}, 4, 4},
		{"own", &wit.TypeDef{Kind: &wit.Own{}}, 4, 4},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sh, err := c.Compile(tc.typ)
			require.NoError(t, err)
			require.Equal(t, tc.size, sh.Layout.Size, "size")
			require.Equal(t, tc.align, sh.Layout.Align, "align")
		})
	}
}

func TestCompileCachesTypeDefs(t *testing.T) {
	c := NewCompiler(nil)
	td := &wit.TypeDef{Kind: &wit.List{Type: wit.U32{}}}

	a, err := c.Compile(td)
	require.NoError(t, err)
	b, err := c.Compile(td)
	require.NoError(t, err)
	require.Same(t, a, b)
	require.Equal(t, "list<u32>", a.TypeName)
}

func TestCompileErrors(t *testing.T) {
	c := NewCompiler(nil)

	_, err := c.Compile(&wit.TypeDef{Kind: &wit.Variant{}})
	require.ErrorIs(t, err, errors.ErrInvalidData)

	flags := make([]wit.Flag, 65)
	_, err = c.Compile(&wit.TypeDef{Kind: &wit.Flags{Flags: flags}})
	require.ErrorIs(t, err, errors.ErrUnsupported)

	_, err = c.Compile(nil)
	require.Error(t, err)
}

func personType() *wit.TypeDef {
	return named("person", &wit.TypeDef{Kind: &wit.Record{Fields: []wit.Field{
		{Name: "age", Type: wit.U32{}},
		{Name: "name", Type: wit.String{}},
		{Name: "active", Type: wit.Bool{}},
	}}})
}

func TestPeekRecord(t *testing.T) {
	mem := newMemory(t)
	sh, err := NewCompiler(mem).Compile(personType())
	require.NoError(t, err)

	putU32(t, mem, 16, 42)
	putU32(t, mem, 20, 256)
	putU32(t, mem, 24, 5)
	require.NoError(t, mem.Write(28, []byte{1}))
	require.NoError(t, mem.Write(256, []byte("alice")))

	p, err := Peek(mem, 16, sh)
	require.NoError(t, err)
	require.Equal(t, `person{age: 42, name: "alice", active: true}`, peek.Format(p))

	st, err := p.Struct()
	require.NoError(t, err)
	age, err := st.FieldByName("age")
	require.NoError(t, err)
	n, err := peek.Get[uint32](age)
	require.NoError(t, err)
	require.Equal(t, uint32(42), n)

	name, err := st.FieldByName("name")
	require.NoError(t, err)
	display, ok := name.Display()
	require.True(t, ok)
	require.Equal(t, "alice", display)

	items, err := peek.FieldsForSerialize(st).Collect()
	require.NoError(t, err)
	require.Len(t, items, 3)
}

func TestPeekList(t *testing.T) {
	mem := newMemory(t)
	sh, err := NewCompiler(mem).Compile(&wit.TypeDef{Kind: &wit.List{Type: wit.U16{}}})
	require.NoError(t, err)

	putU32(t, mem, 32, 512)
	putU32(t, mem, 36, 3)
	require.NoError(t, mem.Write(512, []byte{7, 0, 8, 0, 9, 0}))

	p, err := Peek(mem, 32, sh)
	require.NoError(t, err)
	l, err := p.List()
	require.NoError(t, err)
	require.Equal(t, 3, l.Len())

	item, err := l.Get(2)
	require.NoError(t, err)
	v, err := peek.Get[uint16](item)
	require.NoError(t, err)
	require.Equal(t, uint16(9), v)

	s, _ := p.Debug()
	require.Equal(t, "[7, 8, 9]", s)

	// a list reaching past the end of memory reads as empty
	putU32(t, mem, 36, 1<<20)
	require.Equal(t, 0, l.Len())
}

func TestPeekVariants(t *testing.T) {
	mem := newMemory(t)
	c := NewCompiler(mem)

	opt, err := c.Compile(&wit.TypeDef{Kind: &wit.Option{Type: wit.U32{}}})
	require.NoError(t, err)
	putU32(t, mem, 48, 1)
	putU32(t, mem, 52, 99)

	p, err := Peek(mem, 48, opt)
	require.NoError(t, err)
	e, err := p.Enum()
	require.NoError(t, err)
	require.Equal(t, "some", e.VariantName())
	payload, err := e.Field(0)
	require.NoError(t, err)
	v, err := peek.Get[uint32](payload)
	require.NoError(t, err)
	require.Equal(t, uint32(99), v)

	res, err := c.Compile(&wit.TypeDef{Kind: &wit.Result{OK: wit.String{}, Err: wit.U8{}}})
	require.NoError(t, err)
	putU32(t, mem, 64, 1)
	putU32(t, mem, 68, 7)
	p, err = Peek(mem, 64, res)
	require.NoError(t, err)
	require.Equal(t, "error(7)", peek.Format(p))

	color, err := c.Compile(named("color", &wit.TypeDef{Kind: &wit.Enum{Cases: []wit.EnumCase{
		{Name: "red"}, {Name: "green"}, {Name: "blue"},
	}}}))
	require.NoError(t, err)
	require.NoError(t, mem.Write(72, []byte{2}))
	p, err = Peek(mem, 72, color)
	require.NoError(t, err)
	require.Equal(t, "blue", peek.Format(p))

	require.NoError(t, mem.Write(72, []byte{5}))
	_, err = p.Enum()
	require.ErrorIs(t, err, errors.ErrInvalidVariant)
}

func TestPeekFlags(t *testing.T) {
	mem := newMemory(t)
	sh, err := NewCompiler(mem).Compile(named("perms", &wit.TypeDef{Kind: &wit.Flags{Flags: []wit.Flag{
		{Name: "read"}, {Name: "write"}, {Name: "exec"},
	}}}))
	require.NoError(t, err)
	require.NoError(t, mem.Write(80, []byte{0b101}))

	p, err := Peek(mem, 80, sh)
	require.NoError(t, err)
	require.Equal(t, "{read, exec}", peek.Format(p))
}

func TestPeekBounds(t *testing.T) {
	mem := newMemory(t)
	sh, err := NewCompiler(mem).Compile(personType())
	require.NoError(t, err)

	_, err = Peek(mem, mem.Size()-8, sh)
	require.ErrorIs(t, err, errors.ErrOutOfBounds)

	_, err = Peek(mem, 18, sh)
	require.ErrorIs(t, err, errors.ErrInvalidData)
}

func TestBuildRecord(t *testing.T) {
	mem := newMemory(t)
	sh, err := NewCompiler(mem).Compile(named("point", &wit.TypeDef{Kind: &wit.Record{Fields: []wit.Field{
		{Name: "x", Type: wit.U32{}},
		{Name: "y", Type: wit.U8{}},
	}}}))
	require.NoError(t, err)

	w, err := Build(mem, 96, sh)
	require.NoError(t, err)
	slot, err := w.SlotForName("x")
	require.NoError(t, err)
	slot.Fill(uint32(7))

	_, err = w.Build()
	require.ErrorIs(t, err, errors.ErrUninitializedField)

	slot, err = w.SlotForName("y")
	require.NoError(t, err)
	slot.Fill(uint8(3))
	hv, err := w.Build()
	require.NoError(t, err)
	require.Equal(t, "point{x: 7, y: 3}", peek.Format(hv.Peek()))

	raw, err := mem.Bytes(96, 5)
	require.NoError(t, err)
	require.Equal(t, []byte{7, 0, 0, 0, 3}, raw)
}

func TestBuildVariant(t *testing.T) {
	mem := newMemory(t)
	sh, err := NewCompiler(mem).Compile(&wit.TypeDef{Kind: &wit.Option{Type: wit.U32{}}})
	require.NoError(t, err)

	w, err := Build(mem, 112, sh)
	require.NoError(t, err)
	require.NoError(t, w.SelectVariant("some"))
	slot, err := w.SlotForField(0)
	require.NoError(t, err)
	slot.Fill(uint32(5))
	_, err = w.Build()
	require.NoError(t, err)

	p, err := Peek(mem, 112, sh)
	require.NoError(t, err)
	require.Equal(t, "some(5)", peek.Format(p))
}

func TestFindType(t *testing.T) {
	person := personType()
	res := &wit.Resolve{TypeDefs: []*wit.TypeDef{
		{Kind: &wit.List{Type: wit.U8{}}},
		person,
	}}

	td, err := FindType(res, "person")
	require.NoError(t, err)
	require.Same(t, person, td)

	_, err = FindType(res, "missing")
	require.ErrorIs(t, err, errors.ErrNotFound)
}
