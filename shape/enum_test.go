package shape

import (
	stderrors "errors"
	"testing"

	"github.com/wippyai/shapes/errors"
)

type token struct {
	Kind uint8
	Num  int32
	Text struct {
		S string
	}
}

type signedTag struct {
	Kind int8
}

// offByOne has no variant for the zero tag.
type offByOne struct {
	Kind uint16
	V    uint32
}

func TestEnumDefinition(t *testing.T) {
	sh := DefineEnum[token]("Kind").
		Unit("Eof", 0).
		Variant("Num", 1, "Num").
		Variant("Text", 2, "Text").
		MustRegister()

	if sh.Kind != KindEnum || len(sh.Enum.Variants) != 3 {
		t.Fatalf("unexpected enum shape %s", sh)
	}
	num := sh.Enum.Variants[1]
	if len(num.Fields) != 1 || num.Fields[0].Name != "0" {
		t.Errorf("scalar payload should be a single field named 0: %+v", num.Fields)
	}
	text := sh.Enum.Variants[2]
	if len(text.Fields) != 1 || text.Fields[0].Name != "S" {
		t.Errorf("struct payload should contribute its fields: %+v", text.Fields)
	}

	v := token{Kind: 1, Num: 5}
	if got := debug(t, sh, ConstOf(&v)); got != "Num(5)" {
		t.Errorf("debug: got %s", got)
	}
	v = token{Kind: 2}
	v.Text.S = "hi"
	if got := debug(t, sh, ConstOf(&v)); got != `Text{S: "hi"}` {
		t.Errorf("debug: got %s", got)
	}
	v = token{Kind: 9}
	if _, _, ok := sh.Enum.ActiveVariant(ConstOf(&v)); ok {
		t.Error("unknown tag resolved to a variant")
	}

	a, b := token{Kind: 1, Num: 1}, token{Kind: 2}
	if sh.VTable.Cmp(ConstOf(&a), ConstOf(&b)) != -1 {
		t.Error("variants order by discriminant")
	}
	if sh.VTable.Default == nil {
		t.Error("zero value is the Eof variant")
	}
	if _, idx, ok := sh.Enum.VariantByName("Text"); !ok || idx != 2 {
		t.Error("VariantByName")
	}
}

func TestEnumDefinitionErrors(t *testing.T) {
	tests := []struct {
		name string
		def  func() (*Shape, error)
		want error
	}{
		{
			name: "not a struct",
			def:  func() (*Shape, error) { return DefineEnum[int]("Kind").Register() },
			want: errors.ErrWrongKind,
		},
		{
			name: "missing tag",
			def:  func() (*Shape, error) { return DefineEnum[token]("Tag").Register() },
			want: errors.ErrNoSuchField,
		},
		{
			name: "signed tag",
			def:  func() (*Shape, error) { return DefineEnum[signedTag]("Kind").Register() },
			want: errors.ErrUnsupported,
		},
		{
			name: "missing payload",
			def: func() (*Shape, error) {
				return DefineEnum[offByOne]("Kind").Variant("V", 1, "Missing").Register()
			},
			want: errors.ErrNoSuchField,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.def()
			if !stderrors.Is(err, tc.want) {
				t.Errorf("got %v, want %v", err, tc.want)
			}
		})
	}
}

func TestEnumWithoutZeroVariant(t *testing.T) {
	sh := DefineEnum[offByOne]("Kind").Variant("V", 1, "V").MustRegister()
	if sh.VTable.Default != nil {
		t.Error("zero value is not a variant, Default must be absent")
	}

	v := offByOne{Kind: 1, V: 7}
	dst := sh.Allocate()
	sh.VTable.Clone(ConstOf(&v), dst)
	if *Deref[offByOne](dst.Assume().Const()) != v {
		t.Error("clone")
	}
}
