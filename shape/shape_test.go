package shape

import (
	stderrors "errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/wippyai/shapes/errors"
)

func debug(t *testing.T, s *Shape, p PtrConst) string {
	t.Helper()
	out, ok := s.DebugString(p)
	if !ok {
		t.Fatalf("%s has no Debug", s)
	}
	return out
}

func TestForIsStable(t *testing.T) {
	a, err := For(reflect.TypeFor[int64]())
	if err != nil {
		t.Fatal(err)
	}
	b := Of[int64]()
	if a != b {
		t.Error("For and Of returned different shapes for the same type")
	}
	if !a.Is(b) || a.Is(Of[int32]()) {
		t.Error("Is does not follow type identity")
	}
	if a.ID == 0 {
		t.Error("shape has no ID")
	}
}

func TestScalars(t *testing.T) {
	tests := []struct {
		name   string
		shape  *Shape
		scalar ScalarKind
		size   uintptr
	}{
		{"bool", Of[bool](), ScalarBool, 1},
		{"int8", Of[int8](), ScalarInt8, 1},
		{"int32", Of[int32](), ScalarInt32, 4},
		{"uint64", Of[uint64](), ScalarUint64, 8},
		{"float32", Of[float32](), ScalarFloat32, 4},
		{"string", Of[string](), ScalarString, reflect.TypeFor[string]().Size()},
		{"char", Of[Char](), ScalarChar, 4},
		{"unit", Of[struct{}](), ScalarUnit, 0},
		{"pointer", Of[*int](), ScalarPointer, reflect.TypeFor[*int]().Size()},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.shape.Kind != KindScalar {
				t.Errorf("kind: got %s, want scalar", tc.shape.Kind)
			}
			if tc.shape.Scalar != tc.scalar {
				t.Errorf("scalar: got %s, want %s", tc.shape.Scalar, tc.scalar)
			}
			if tc.shape.Layout.Size != tc.size {
				t.Errorf("size: got %d, want %d", tc.shape.Layout.Size, tc.size)
			}
		})
	}
}

func TestScalarOperations(t *testing.T) {
	sh := Of[int]()
	dst := sh.Allocate()
	if err := sh.VTable.Parse("42", dst); err != nil {
		t.Fatal(err)
	}
	if got := *Deref[int](dst.Assume().Const()); got != 42 {
		t.Errorf("parse: got %d", got)
	}
	if err := sh.VTable.Parse("x", sh.Allocate()); err == nil {
		t.Error("parse of invalid input succeeded")
	}

	c := Char('x')
	if got := debug(t, Of[Char](), ConstOf(&c)); got != "'x'" {
		t.Errorf("char debug: got %s", got)
	}

	s := "a\"b"
	if got := debug(t, Of[string](), ConstOf(&s)); got != `"a\"b"` {
		t.Errorf("string debug: got %s", got)
	}

	d := 1500 * time.Millisecond
	var b strings.Builder
	Of[time.Duration]().VTable.Display(ConstOf(&d), &b)
	if b.String() != "1.5s" {
		t.Errorf("stringer display: got %s", b.String())
	}

	x, y := 1.5, 2.5
	if Of[float64]().VTable.Cmp(ConstOf(&x), ConstOf(&y)) != -1 {
		t.Error("float cmp")
	}

	p := &x
	if Of[*float64]().VTable.Cmp != nil {
		t.Error("pointers are not ordered")
	}
	q := p
	if !Of[*float64]().VTable.Eq(ConstOf(&p), ConstOf(&q)) {
		t.Error("pointer eq")
	}
}

type tagged struct {
	Name    string `shape:"name"`
	Hidden  int    `shape:"-"`
	Secret  string `shape:",skip"`
	Opt     int    `shape:"opt,omitempty,default"`
	private int
	Inner   inner `shape:",flatten"`
}

type inner struct {
	V bool
}

func TestStructDerivation(t *testing.T) {
	sh := Of[tagged]()
	if sh.Kind != KindStruct {
		t.Fatalf("kind: got %s", sh.Kind)
	}

	var names []string
	for _, f := range sh.Fields {
		names = append(names, f.Name)
	}
	want := []string{"name", "Secret", "opt", "Inner"}
	if !reflect.DeepEqual(names, want) {
		t.Fatalf("fields: got %v, want %v", names, want)
	}

	if !sh.Fields[1].Has(FlagSkipSerializing) {
		t.Error("skip flag missing")
	}
	opt := sh.Fields[2]
	if !opt.Has(FlagSkipIfDefault) || !opt.Defaultable() {
		t.Error("omitempty/default flags missing")
	}
	if !sh.Fields[3].Has(FlagFlatten) {
		t.Error("flatten flag missing")
	}
	if sh.Fields[3].Offset != reflect.TypeFor[tagged]().Field(5).Offset {
		t.Error("field offset does not match Go layout")
	}

	v := tagged{Opt: 0}
	if !opt.ShouldSkipSerializing(ConstOf(&v).Field(opt.Offset)) {
		t.Error("default value should be skipped")
	}
	v.Opt = 2
	if opt.ShouldSkipSerializing(ConstOf(&v).Field(opt.Offset)) {
		t.Error("non-default value should not be skipped")
	}

	idx, ok := sh.FieldIndex("opt")
	if !ok || idx != 2 {
		t.Errorf("FieldIndex: got %d %v", idx, ok)
	}
}

func TestStructOperations(t *testing.T) {
	type pt struct{ X, Y int }
	sh := Of[pt]()
	a, b, c := pt{1, 2}, pt{1, 2}, pt{2, 0}

	if got := debug(t, sh, ConstOf(&a)); got != "shape.pt{X: 1, Y: 2}" {
		t.Errorf("debug: got %s", got)
	}
	if !sh.VTable.Eq(ConstOf(&a), ConstOf(&b)) || sh.VTable.Eq(ConstOf(&a), ConstOf(&c)) {
		t.Error("eq")
	}
	if sh.VTable.Cmp(ConstOf(&a), ConstOf(&c)) != -1 {
		t.Error("cmp is not lexicographic by field")
	}

	dst := sh.Allocate()
	sh.VTable.Clone(ConstOf(&a), dst)
	if *Deref[pt](dst.Assume().Const()) != a {
		t.Error("clone")
	}
	if !sh.IsDefault(ConstOf(new(pt))) || sh.IsDefault(ConstOf(&a)) {
		t.Error("IsDefault")
	}
}

type counted struct {
	drops *int
	Name  string
}

func (c *counted) Drop() {
	if c.drops != nil {
		*c.drops++
	}
}

type holder struct {
	A counted
	B counted
}

type tuned struct {
	N int
}

func (t *tuned) SetDefault() { t.N = 7 }

func TestDropperAndDefaulter(t *testing.T) {
	n := 0
	v := holder{A: counted{drops: &n}, B: counted{drops: &n}}
	Of[holder]().DropInPlace(NewPtrMut(reflect.ValueOf(&v).UnsafePointer()))
	if n != 2 {
		t.Errorf("drops: got %d, want 2", n)
	}

	sh := Of[tuned]()
	dst := sh.Allocate()
	sh.VTable.Default(dst)
	if got := Deref[tuned](dst.Assume().Const()).N; got != 7 {
		t.Errorf("default: got %d, want 7", got)
	}
	zero := tuned{}
	if sh.IsDefault(ConstOf(&zero)) {
		t.Error("zero value is not the default")
	}
}

type node struct {
	Kids []node
}

type badTag struct {
	A int `shape:",bogus"`
}

type badSkip struct {
	A int `shape:",skipif=Missing"`
}

func TestUnsupported(t *testing.T) {
	tests := []struct {
		name string
		typ  reflect.Type
		kind errors.Kind
	}{
		{"func", reflect.TypeFor[func()](), errors.KindUnsupported},
		{"chan", reflect.TypeFor[chan int](), errors.KindUnsupported},
		{"interface", reflect.TypeFor[any](), errors.KindUnsupported},
		{"complex", reflect.TypeFor[complex128](), errors.KindUnsupported},
		{"recursive", reflect.TypeFor[node](), errors.KindUnsupported},
		{"field", reflect.TypeFor[struct{ F func() }](), errors.KindUnsupported},
		{"bad tag", reflect.TypeFor[badTag](), errors.KindInvalidData},
		{"bad skipif", reflect.TypeFor[badSkip](), errors.KindNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := For(tc.typ)
			if err == nil {
				t.Fatal("expected error")
			}
			var e *errors.Error
			if !stderrors.As(err, &e) {
				t.Fatalf("error %T is not *errors.Error", err)
			}
			if e.Kind != tc.kind {
				t.Errorf("kind: got %s, want %s", e.Kind, tc.kind)
			}
		})
	}

	defer func() {
		if recover() == nil {
			t.Error("Of did not panic on an unsupported type")
		}
	}()
	Of[func()]()
}

func TestRegister(t *testing.T) {
	type custom struct{ A uint32 }
	typ := reflect.TypeFor[custom]()

	bad := &Shape{TypeName: "custom", Layout: Layout{Size: 1, Align: 1}}
	if _, err := Register(typ, bad); err == nil {
		t.Error("register with wrong size succeeded")
	}

	mine := NewStruct("custom", LayoutOf(typ), []Field{{Name: "a", Shape: Of[uint32]()}})
	got, err := Register(typ, mine)
	if err != nil {
		t.Fatal(err)
	}
	if got != mine {
		t.Error("first registration should win")
	}
	if Of[custom]().Fields[0].Name != "a" {
		t.Error("registered shape not returned by Of")
	}

	again, err := Register(typ, NewStruct("other", LayoutOf(typ), nil))
	if err != nil {
		t.Fatal(err)
	}
	if again != mine {
		t.Error("second registration replaced the first")
	}
}

func TestZeroSized(t *testing.T) {
	type marker struct{}
	for _, sh := range []*Shape{Of[marker](), Of[[0]int](), Of[struct{}]()} {
		if !sh.IsZST() {
			t.Errorf("%s: not zero-sized", sh)
		}
		p := sh.Allocate()
		if p.Raw() == nil {
			t.Errorf("%s: nil allocation", sh)
		}
	}
	if Of[[0]int]().Kind != KindList {
		t.Error("empty array should stay a list")
	}
}

func TestAllocateForeign(t *testing.T) {
	sh := NewStruct("pair", Layout{Size: 16, Align: 8}, []Field{
		{Name: "a", Offset: 0, Shape: Of[uint32]()},
		{Name: "b", Offset: 8, Shape: Of[uint64]()},
	})
	if sh.GoType != nil || sh.HasPointers {
		t.Fatal("foreign struct should have no Go type or pointers")
	}
	p := sh.Allocate()
	Write(p.Field(0), uint32(1))
	Write(p.Field(8), uint64(2))
	if got := debug(t, sh, p.Assume().Const()); got != "pair{a: 1, b: 2}" {
		t.Errorf("debug: got %s", got)
	}
	if sh.VTable.Clone == nil {
		t.Error("pointer-free shapes clone by copy")
	}
}

func TestVarianceCombine(t *testing.T) {
	tests := []struct {
		a, b, want Variance
	}{
		{Bivariant, Bivariant, Bivariant},
		{Bivariant, Covariant, Covariant},
		{Contravariant, Bivariant, Contravariant},
		{Covariant, Covariant, Covariant},
		{Covariant, Contravariant, Invariant},
		{Invariant, Covariant, Invariant},
	}
	for _, tc := range tests {
		if got := tc.a.Combine(tc.b); got != tc.want {
			t.Errorf("%s+%s: got %s, want %s", tc.a, tc.b, got, tc.want)
		}
	}
}
