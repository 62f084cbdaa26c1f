package guest

import (
	"bytes"
	"cmp"
	"hash/maphash"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"go.bytecodealliance.org/wit"
	"go.uber.org/zap"

	"github.com/wippyai/shapes/errors"
	"github.com/wippyai/shapes/shape"
)

// Compiler derives shapes from WIT types. String and list shapes resolve
// their contents against the compiler's Memory, so a compiler serves one
// module instance. Results are cached per type definition.
type Compiler struct {
	mem   *Memory
	log   *zap.Logger
	cache map[*wit.TypeDef]*shape.Shape
	str   *shape.Shape
	mu    sync.Mutex
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithLogger sets the logger used by the compiler and its list shapes.
func WithLogger(l *zap.Logger) Option {
	return func(c *Compiler) { c.log = l }
}

// NewCompiler creates a compiler for values living in mem.
func NewCompiler(mem *Memory, opts ...Option) *Compiler {
	c := &Compiler{
		mem:   mem,
		log:   Logger(),
		cache: make(map[*wit.TypeDef]*shape.Shape),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Memory returns the memory the compiler's shapes read from.
func (c *Compiler) Memory() *Memory { return c.mem }

// Compile returns the shape of t laid out per the Canonical ABI.
func (c *Compiler) Compile(t wit.Type) (*shape.Shape, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.compile(t, nil)
}

func (c *Compiler) compile(t wit.Type, path []string) (*shape.Shape, error) {
	switch typ := t.(type) {
	case wit.Bool:
		return shape.Of[bool](), nil
	case wit.U8:
		return shape.Of[uint8](), nil
	case wit.S8:
		return shape.Of[int8](), nil
	case wit.U16:
		return shape.Of[uint16](), nil
	case wit.S16:
		return shape.Of[int16](), nil
	case wit.U32:
		return shape.Of[uint32](), nil
	case wit.S32:
		return shape.Of[int32](), nil
	case wit.U64:
		return shape.Of[uint64](), nil
	case wit.S64:
		return shape.Of[int64](), nil
	case wit.F32:
		return shape.Of[float32](), nil
	case wit.F64:
		return shape.Of[float64](), nil
	case wit.Char:
		return shape.Of[shape.Char](), nil
	case wit.String:
		return c.stringShape(), nil
	case *wit.TypeDef:
		return c.compileTypeDef(typ, path)
	case nil:
		return nil, errors.NilPointer(errors.PhaseGuest, path, "wit.Type")
	default:
		return nil, errors.WithPath(errors.New(errors.PhaseGuest, errors.KindUnsupported).
			TypeName(witName(t)).
			Detail("unsupported WIT type").
			Build(), path...)
	}
}

func (c *Compiler) compileTypeDef(td *wit.TypeDef, path []string) (*shape.Shape, error) {
	if sh, ok := c.cache[td]; ok {
		return sh, nil
	}

	var (
		sh  *shape.Shape
		err error
	)
	name := witName(td)
	switch kind := td.Kind.(type) {
	case *wit.Record:
		fields := make([]namedType, len(kind.Fields))
		for i, f := range kind.Fields {
			fields[i] = namedType{name: f.Name, typ: f.Type, doc: f.Docs.Contents}
		}
		sh, err = c.compileStruct(name, fields, path)
	case *wit.Tuple:
		fields := make([]namedType, len(kind.Types))
		for i, typ := range kind.Types {
			fields[i] = namedType{name: strconv.Itoa(i), typ: typ}
		}
		sh, err = c.compileStruct(name, fields, path)
	case *wit.Variant:
		cases := make([]namedType, len(kind.Cases))
		for i, cs := range kind.Cases {
			cases[i] = namedType{name: cs.Name, typ: cs.Type, doc: cs.Docs.Contents}
		}
		sh, err = c.compileVariant(name, cases, path)
	case *wit.Option:
		sh, err = c.compileVariant(name, []namedType{{name: "none"}, {name: "some", typ: kind.Type}}, path)
	case *wit.Result:
		sh, err = c.compileVariant(name, []namedType{{name: "ok", typ: kind.OK}, {name: "error", typ: kind.Err}}, path)
	case *wit.Enum:
		cases := make([]namedType, len(kind.Cases))
		for i, ec := range kind.Cases {
			cases[i] = namedType{name: ec.Name}
		}
		sh, err = c.compileVariant(name, cases, path)
	case *wit.List:
		sh, err = c.compileList(name, kind.Type, path)
	case *wit.Flags:
		sh, err = c.compileFlags(name, kind, path)
	case *wit.Own, *wit.Borrow:
		sh = shape.Of[uint32]()
	case wit.Type:
		sh, err = c.compile(kind, path)
	default:
		err = errors.WithPath(errors.New(errors.PhaseGuest, errors.KindUnsupported).
			TypeName(name).
			Detail("unsupported WIT type definition").
			Build(), path...)
	}
	if err != nil {
		return nil, err
	}

	c.cache[td] = sh
	c.log.Debug("compiled guest shape",
		zap.String("type", name),
		zap.Uint64("size", uint64(sh.Layout.Size)),
		zap.Uint64("align", uint64(sh.Layout.Align)))
	return sh, nil
}

type namedType struct {
	typ  wit.Type
	name string
	doc  string
}

func (c *Compiler) compileStruct(name string, members []namedType, path []string) (*shape.Shape, error) {
	fields := make([]shape.Field, len(members))
	var offset uintptr
	align := uintptr(1)
	for i, m := range members {
		fsh, err := c.compile(m.typ, append(path, m.name))
		if err != nil {
			return nil, err
		}
		offset = shape.AlignTo(offset, fsh.Layout.Align)
		fields[i] = shape.Field{Name: m.name, Doc: m.doc, Offset: offset, Shape: fsh}
		align = max(align, fsh.Layout.Align)
		offset += fsh.Layout.Size
	}
	layout := shape.Layout{Size: shape.AlignTo(offset, align), Align: align}
	return shape.NewStruct(name, layout, fields), nil
}

// compileVariant lays out variant, option, result and enum types: a
// discriminant followed by the payload at the largest case alignment.
func (c *Compiler) compileVariant(name string, cases []namedType, path []string) (*shape.Shape, error) {
	if len(cases) == 0 {
		return nil, errors.WithPath(errors.New(errors.PhaseGuest, errors.KindInvalidData).
			TypeName(name).
			Detail("variant has no cases").
			Build(), path...)
	}

	disc := discriminantSize(len(cases))
	payloads := make([]*shape.Shape, len(cases))
	align, size := disc, uintptr(0)
	for i, cs := range cases {
		if cs.typ == nil {
			continue
		}
		psh, err := c.compile(cs.typ, append(path, cs.name))
		if err != nil {
			return nil, err
		}
		payloads[i] = psh
		align = max(align, psh.Layout.Align)
		size = max(size, psh.Layout.Size)
	}
	payloadOffset := shape.AlignTo(disc, align)

	def := &shape.EnumDef{
		Variants: make([]shape.Variant, len(cases)),
		TagSize:  disc,
	}
	for i, cs := range cases {
		v := shape.Variant{Name: cs.name, Discriminant: int64(i), Doc: cs.doc}
		if payloads[i] != nil {
			v.Fields = []shape.Field{{Name: "0", Offset: payloadOffset, Shape: payloads[i]}}
		}
		def.Variants[i] = v
	}
	layout := shape.Layout{Size: shape.AlignTo(payloadOffset+size, align), Align: align}
	return shape.NewEnum(name, layout, def), nil
}

func discriminantSize(cases int) uintptr {
	switch {
	case cases <= 1<<8:
		return 1
	case cases <= 1<<16:
		return 2
	default:
		return 4
	}
}

func (c *Compiler) compileList(name string, elem wit.Type, path []string) (*shape.Shape, error) {
	esh, err := c.compile(elem, append(path, "[]"))
	if err != nil {
		return nil, err
	}
	if esh.Layout.Size == 0 {
		return nil, errors.WithPath(errors.Unsupported(errors.PhaseGuest, "list of zero-size elements"), path...)
	}
	mem, log := c.mem, c.log
	stride := uint64(esh.Layout.Size)
	ops := shape.ListVTable{
		Len: func(l shape.PtrConst) int {
			ptr, n := pair(l)
			if uint64(ptr)+uint64(n)*stride > uint64(mem.Size()) {
				log.Warn("guest list exceeds memory",
					zap.String("type", name),
					zap.Uint32("ptr", ptr),
					zap.Uint32("len", n))
				return 0
			}
			return int(n)
		},
		Item: func(l shape.PtrConst, i int) shape.PtrConst {
			ptr, _ := pair(l)
			p, err := mem.Ptr(ptr+uint32(uint64(i)*stride), uint32(stride))
			if err != nil {
				panic(err)
			}
			return p.Const()
		},
	}
	sh := shape.NewList(name, shape.Layout{Size: 8, Align: 4}, esh, ops)
	return sh, nil
}

func (c *Compiler) compileFlags(name string, f *wit.Flags, path []string) (*shape.Shape, error) {
	var base *shape.Shape
	switch n := len(f.Flags); {
	case n <= 8:
		base = shape.Of[uint8]()
	case n <= 16:
		base = shape.Of[uint16]()
	case n <= 32:
		base = shape.Of[uint32]()
	case n <= 64:
		base = shape.Of[uint64]()
	default:
		return nil, errors.WithPath(errors.New(errors.PhaseGuest, errors.KindUnsupported).
			TypeName(name).
			Detail("flags type exceeds maximum 64 flags, got %d", n).
			Build(), path...)
	}

	names := make([]string, len(f.Flags))
	for i, fl := range f.Flags {
		names[i] = fl.Name
	}
	size := base.Layout.Size
	sh := &shape.Shape{
		TypeName: name,
		Layout:   base.Layout,
		Kind:     shape.KindScalar,
		Scalar:   base.Scalar,
		VTable:   base.VTable,
	}
	sh.VTable.Debug = func(v shape.PtrConst, b *strings.Builder) {
		bits := readBits(v, size)
		b.WriteByte('{')
		first := true
		for i, n := range names {
			if bits&(1<<i) == 0 {
				continue
			}
			if !first {
				b.WriteString(", ")
			}
			first = false
			b.WriteString(n)
		}
		b.WriteByte('}')
	}
	sh.VTable.Display = sh.VTable.Debug
	sh.VTable.Parse = nil
	return shape.Seal(sh), nil
}

func readBits(v shape.PtrConst, size uintptr) uint64 {
	var bits uint64
	for i, x := range shape.Bytes(v, size) {
		bits |= uint64(x) << (8 * i)
	}
	return bits
}

// stringShape returns the shape of a guest string: a (ptr, len) pair of
// UTF-8 bytes in guest memory.
func (c *Compiler) stringShape() *shape.Shape {
	if c.str != nil {
		return c.str
	}
	mem, log := c.mem, c.log
	text := func(v shape.PtrConst) []byte {
		ptr, n := pair(v)
		b, err := mem.Bytes(ptr, n)
		if err != nil {
			log.Warn("guest string exceeds memory", zap.Uint32("ptr", ptr), zap.Uint32("len", n))
			return nil
		}
		return b
	}
	c.str = shape.Seal(&shape.Shape{
		TypeName: "string",
		Layout:   shape.Layout{Size: 8, Align: 4},
		Kind:     shape.KindScalar,
		Scalar:   shape.ScalarString,
		VTable: shape.VTable{
			Debug: func(v shape.PtrConst, b *strings.Builder) {
				s := text(v)
				if !utf8.Valid(s) {
					b.WriteString("<invalid utf-8>")
					return
				}
				b.WriteString(strconv.Quote(string(s)))
			},
			Display: func(v shape.PtrConst, b *strings.Builder) {
				b.Write(text(v))
			},
			Eq: func(a, b shape.PtrConst) bool {
				return bytes.Equal(text(a), text(b))
			},
			Cmp: func(a, b shape.PtrConst) int {
				return cmp.Compare(string(text(a)), string(text(b)))
			},
			Hash: func(v shape.PtrConst, h *maphash.Hash) {
				h.Write(text(v))
			},
			Default: func(dst shape.PtrUninit) {
				putPair(dst, 0, 0)
			},
		},
	})
	return c.str
}

// witName renders t the way WIT source spells it.
func witName(t wit.Type) string {
	switch typ := t.(type) {
	case nil:
		return "_"
	case wit.Bool:
		return "bool"
	case wit.U8:
		return "u8"
	case wit.S8:
		return "s8"
	case wit.U16:
		return "u16"
	case wit.S16:
		return "s16"
	case wit.U32:
		return "u32"
	case wit.S32:
		return "s32"
	case wit.U64:
		return "u64"
	case wit.S64:
		return "s64"
	case wit.F32:
		return "f32"
	case wit.F64:
		return "f64"
	case wit.Char:
		return "char"
	case wit.String:
		return "string"
	case *wit.TypeDef:
		if typ.Name != nil {
			return *typ.Name
		}
		switch kind := typ.Kind.(type) {
		case *wit.List:
			return "list<" + witName(kind.Type) + ">"
		case *wit.Option:
			return "option<" + witName(kind.Type) + ">"
		case *wit.Result:
			return "result<" + witName(kind.OK) + ", " + witName(kind.Err) + ">"
		case *wit.Tuple:
			parts := make([]string, len(kind.Types))
			for i, e := range kind.Types {
				parts[i] = witName(e)
			}
			return "tuple<" + strings.Join(parts, ", ") + ">"
		case *wit.Own:
			return "own"
		case *wit.Borrow:
			return "borrow"
		case wit.Type:
			return witName(kind)
		}
		return "type"
	default:
		return "unknown"
	}
}
