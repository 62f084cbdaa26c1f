package shape

import (
	"cmp"
	"fmt"
	"hash/maphash"
	"reflect"
	"strconv"
	"strings"
)

// orderedVTable builds the full operation table of an ordered primitive.
// T is the underlying type; named types share the table of their underlying.
func orderedVTable[T cmp.Ordered](format func(T) string, parse func(string) (T, error)) VTable {
	return VTable{
		Debug: func(v PtrConst, b *strings.Builder) {
			b.WriteString(format(*Deref[T](v)))
		},
		Display: func(v PtrConst, b *strings.Builder) {
			b.WriteString(format(*Deref[T](v)))
		},
		Eq: func(a, b PtrConst) bool {
			return *Deref[T](a) == *Deref[T](b)
		},
		Cmp: func(a, b PtrConst) int {
			return cmp.Compare(*Deref[T](a), *Deref[T](b))
		},
		Hash: func(v PtrConst, h *maphash.Hash) {
			maphash.WriteComparable(h, *Deref[T](v))
		},
		Parse: func(s string, dst PtrUninit) error {
			x, err := parse(s)
			if err != nil {
				return err
			}
			Write(dst, x)
			return nil
		},
		Default: func(dst PtrUninit) {
			var zero T
			Write(dst, zero)
		},
		Clone: func(src PtrConst, dst PtrUninit) {
			Write(dst, *Deref[T](src))
		},
	}
}

func intVTable[T int | int8 | int16 | int32 | int64](bits int) VTable {
	return orderedVTable(
		func(x T) string { return strconv.FormatInt(int64(x), 10) },
		func(s string) (T, error) {
			n, err := strconv.ParseInt(s, 10, bits)
			return T(n), err
		},
	)
}

func uintVTable[T uint | uint8 | uint16 | uint32 | uint64 | uintptr](bits int) VTable {
	return orderedVTable(
		func(x T) string { return strconv.FormatUint(uint64(x), 10) },
		func(s string) (T, error) {
			n, err := strconv.ParseUint(s, 10, bits)
			return T(n), err
		},
	)
}

func floatVTable[T float32 | float64](bits int) VTable {
	return orderedVTable(
		func(x T) string { return strconv.FormatFloat(float64(x), 'g', -1, bits) },
		func(s string) (T, error) {
			n, err := strconv.ParseFloat(s, bits)
			return T(n), err
		},
	)
}

func stringVTable() VTable {
	vt := orderedVTable(
		func(x string) string { return x },
		func(s string) (string, error) { return s, nil },
	)
	vt.Debug = func(v PtrConst, b *strings.Builder) {
		b.WriteString(strconv.Quote(*Deref[string](v)))
	}
	return vt
}

func boolVTable() VTable {
	return VTable{
		Debug: func(v PtrConst, b *strings.Builder) {
			b.WriteString(strconv.FormatBool(*Deref[bool](v)))
		},
		Display: func(v PtrConst, b *strings.Builder) {
			b.WriteString(strconv.FormatBool(*Deref[bool](v)))
		},
		Eq: func(a, b PtrConst) bool { return *Deref[bool](a) == *Deref[bool](b) },
		Cmp: func(a, b PtrConst) int {
			x, y := *Deref[bool](a), *Deref[bool](b)
			switch {
			case x == y:
				return 0
			case !x:
				return -1
			default:
				return 1
			}
		},
		Hash: func(v PtrConst, h *maphash.Hash) {
			maphash.WriteComparable(h, *Deref[bool](v))
		},
		Parse: func(s string, dst PtrUninit) error {
			x, err := strconv.ParseBool(s)
			if err != nil {
				return err
			}
			Write(dst, x)
			return nil
		},
		Default: func(dst PtrUninit) { Write(dst, false) },
		Clone:   func(src PtrConst, dst PtrUninit) { Write(dst, *Deref[bool](src)) },
	}
}

func charVTable() VTable {
	vt := intVTable[int32](32)
	vt.Debug = func(v PtrConst, b *strings.Builder) {
		b.WriteString(strconv.QuoteRune(rune(*Deref[Char](v))))
	}
	vt.Display = func(v PtrConst, b *strings.Builder) {
		b.WriteRune(rune(*Deref[Char](v)))
	}
	return vt
}

// unitVTable serves zero-size types. There is nothing to read or write.
func unitVTable() VTable {
	return VTable{
		Debug:   func(_ PtrConst, b *strings.Builder) { b.WriteString("()") },
		Eq:      func(_, _ PtrConst) bool { return true },
		Cmp:     func(_, _ PtrConst) int { return 0 },
		Hash:    func(_ PtrConst, _ *maphash.Hash) {},
		Default: func(_ PtrUninit) {},
		Clone:   func(_ PtrConst, _ PtrUninit) {},
	}
}

func pointerVTable(t reflect.Type) VTable {
	return VTable{
		Debug: func(v PtrConst, b *strings.Builder) {
			fmt.Fprintf(b, "(%s)(%p)", t, *Deref[rawPtr](v))
		},
		Eq: func(a, b PtrConst) bool {
			return *Deref[rawPtr](a) == *Deref[rawPtr](b)
		},
		Hash: func(v PtrConst, h *maphash.Hash) {
			maphash.WriteComparable(h, *Deref[rawPtr](v))
		},
	}
}

// rawPtr views a pointer-shaped slot without knowing its element type.
type rawPtr = *byte

// scalarOf maps a Go kind onto its scalar kind and operation table.
func scalarOf(t reflect.Type) (ScalarKind, VTable, bool) {
	switch t.Kind() {
	case reflect.Bool:
		return ScalarBool, boolVTable(), true
	case reflect.Int:
		return ScalarInt, intVTable[int](strconv.IntSize), true
	case reflect.Int8:
		return ScalarInt8, intVTable[int8](8), true
	case reflect.Int16:
		return ScalarInt16, intVTable[int16](16), true
	case reflect.Int32:
		if t == charType {
			return ScalarChar, charVTable(), true
		}
		return ScalarInt32, intVTable[int32](32), true
	case reflect.Int64:
		return ScalarInt64, intVTable[int64](64), true
	case reflect.Uint:
		return ScalarUint, uintVTable[uint](strconv.IntSize), true
	case reflect.Uint8:
		return ScalarUint8, uintVTable[uint8](8), true
	case reflect.Uint16:
		return ScalarUint16, uintVTable[uint16](16), true
	case reflect.Uint32:
		return ScalarUint32, uintVTable[uint32](32), true
	case reflect.Uint64:
		return ScalarUint64, uintVTable[uint64](64), true
	case reflect.Uintptr:
		return ScalarUintptr, uintVTable[uintptr](64), true
	case reflect.Float32:
		return ScalarFloat32, floatVTable[float32](32), true
	case reflect.Float64:
		return ScalarFloat64, floatVTable[float64](64), true
	case reflect.String:
		return ScalarString, stringVTable(), true
	case reflect.Pointer, reflect.UnsafePointer:
		return ScalarPointer, pointerVTable(t), true
	default:
		return ScalarNone, VTable{}, false
	}
}

// Char is a Unicode scalar value. Plain rune is an alias of int32 and
// cannot be told apart through reflection, so character data uses Char.
type Char rune

var charType = reflect.TypeFor[Char]()
