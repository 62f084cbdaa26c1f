package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:    PhaseBuild,
				Kind:     KindShapeMismatch,
				Path:     []string{"user", "address", "zip"},
				TypeName: "string",
				Expected: "uint32",
				Detail:   "refusing to coerce",
			},
			contains: []string{"[build]", "shape_mismatch", "user.address.zip", "expected uint32", "got string", "refusing to coerce"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhasePeek,
				Kind:  KindOutOfBounds,
			},
			contains: []string{"[peek]", "out_of_bounds"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseGuest,
				Kind:   KindInvalidData,
				Detail: "memory read",
				Cause:  errors.New("underlying error"),
			},
			contains: []string{"[guest]", "invalid_data", "memory read", "caused by", "underlying error"},
		},
		{
			name:     "sentinel has no phase",
			err:      ErrNoSuchField,
			contains: []string{"no_such_field"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseGuest,
		Kind:  KindInvalidData,
		Cause: cause,
	}

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}
	if !errors.Is(errors.Unwrap(err), cause) {
		t.Error("errors.Unwrap did not return cause")
	}
}

func TestError_Is(t *testing.T) {
	err := &Error{
		Phase: PhaseBuild,
		Kind:  KindShapeMismatch,
		Path:  []string{"foo"},
	}

	if !err.Is(&Error{Phase: PhaseBuild, Kind: KindShapeMismatch}) {
		t.Error("Is should match same phase and kind")
	}
	if err.Is(&Error{Phase: PhasePeek, Kind: KindShapeMismatch}) {
		t.Error("Is should not match different phase")
	}
	if err.Is(&Error{Phase: PhaseBuild, Kind: KindOutOfBounds}) {
		t.Error("Is should not match different kind")
	}
	if !errors.Is(err, ErrShapeMismatch) {
		t.Error("errors.Is should match the phase-less sentinel")
	}
	if errors.Is(err, ErrNoSuchField) {
		t.Error("errors.Is should not match a sentinel of another kind")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseBuild, KindShapeMismatch).
		Path("user", "name").
		TypeName("int").
		Expected("string").
		Value(42).
		Cause(cause).
		Detail("expected %s, got %s", "string", "int").
		Build()

	if err.Phase != PhaseBuild {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseBuild)
	}
	if err.Kind != KindShapeMismatch {
		t.Errorf("Kind = %v, want %v", err.Kind, KindShapeMismatch)
	}
	if len(err.Path) != 2 || err.Path[0] != "user" || err.Path[1] != "name" {
		t.Errorf("Path = %v, want [user name]", err.Path)
	}
	if err.TypeName != "int" || err.Expected != "string" {
		t.Errorf("TypeName=%v Expected=%v", err.TypeName, err.Expected)
	}
	if err.Value != 42 {
		t.Errorf("Value = %v, want 42", err.Value)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "expected string, got int" {
		t.Errorf("Detail = %v, want 'expected string, got int'", err.Detail)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	t.Run("OutOfBounds", func(t *testing.T) {
		err := OutOfBounds(PhasePeek, []string{"list"}, 10, 5)
		if err.Kind != KindOutOfBounds {
			t.Errorf("Kind = %v, want %v", err.Kind, KindOutOfBounds)
		}
		if err.Value != 10 {
			t.Errorf("Value = %v, want 10", err.Value)
		}
		if !strings.Contains(err.Detail, "bound 5") {
			t.Errorf("Detail = %v, should contain the bound", err.Detail)
		}
	})

	t.Run("NoSuchField", func(t *testing.T) {
		err := NoSuchField(PhasePeek, nil, "zip")
		if err.Kind != KindNoSuchField || err.Value != "zip" {
			t.Errorf("Kind=%v Value=%v", err.Kind, err.Value)
		}
	})

	t.Run("UninitializedField", func(t *testing.T) {
		err := UninitializedField([]string{"Point"}, "y")
		if err.Phase != PhaseBuild || err.Kind != KindUninitializedField {
			t.Errorf("Phase=%v Kind=%v", err.Phase, err.Kind)
		}
		if !strings.Contains(err.Error(), `"y"`) {
			t.Errorf("message %q should name the field", err.Error())
		}
	})

	t.Run("ShapeMismatch", func(t *testing.T) {
		err := ShapeMismatch(PhaseBuild, []string{"x"}, "uint32", "string")
		if err.Expected != "uint32" || err.TypeName != "string" {
			t.Errorf("Expected=%v TypeName=%v", err.Expected, err.TypeName)
		}
	})

	t.Run("UnsupportedFlatten", func(t *testing.T) {
		err := UnsupportedFlatten([]string{"count"}, "uint32")
		if err.Phase != PhaseSerialize || err.Kind != KindUnsupportedFlatten {
			t.Errorf("Phase=%v Kind=%v", err.Phase, err.Kind)
		}
		if err.TypeName != "uint32" {
			t.Errorf("TypeName = %v, want uint32", err.TypeName)
		}
	})

	t.Run("InvalidVariant", func(t *testing.T) {
		err := InvalidVariant(PhasePeek, []string{"event"}, 7)
		if err.Kind != KindInvalidVariant || err.Value != int64(7) {
			t.Errorf("Kind=%v Value=%v", err.Kind, err.Value)
		}
	})

	t.Run("Unsupported", func(t *testing.T) {
		err := Unsupported(PhaseShape, "channel types")
		if err.Kind != KindUnsupported {
			t.Errorf("Kind = %v, want %v", err.Kind, KindUnsupported)
		}
	})

	t.Run("NilPointer", func(t *testing.T) {
		err := NilPointer(PhaseBuild, []string{"ptr"}, "*User")
		if err.Kind != KindNilPointer || err.TypeName != "*User" {
			t.Errorf("Kind=%v TypeName=%v", err.Kind, err.TypeName)
		}
	})

	t.Run("Variance", func(t *testing.T) {
		err := Variance([]string{"token"}, "borrow does not outlive target scope")
		if !errors.Is(err, ErrVariance) {
			t.Error("Variance should match ErrVariance")
		}
	})
}

func TestWithPath(t *testing.T) {
	base := NoSuchField(PhasePeek, []string{"inner"}, "x")
	err := WithPath(base, "outer")

	if got := strings.Join(err.Path, "."); got != "outer.inner" {
		t.Errorf("Path = %q, want outer.inner", got)
	}
	if strings.Join(base.Path, ".") != "inner" {
		t.Error("WithPath must not modify the original error")
	}
}
