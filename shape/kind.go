package shape

// Kind is the structural definition of a shape.
type Kind uint8

const (
	KindScalar Kind = iota
	KindStruct
	KindEnum
	KindList
	KindMap
)

var kindNames = [...]string{
	KindScalar: "scalar",
	KindStruct: "struct",
	KindEnum:   "enum",
	KindList:   "list",
	KindMap:    "map",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// ScalarKind identifies the primitive behind a scalar shape so consumers can
// serialize it without knowing the Go type.
type ScalarKind uint8

const (
	ScalarNone ScalarKind = iota
	ScalarBool
	ScalarInt8
	ScalarInt16
	ScalarInt32
	ScalarInt64
	ScalarInt
	ScalarUint8
	ScalarUint16
	ScalarUint32
	ScalarUint64
	ScalarUint
	ScalarUintptr
	ScalarFloat32
	ScalarFloat64
	ScalarChar
	ScalarString
	ScalarUnit
	ScalarPointer
	ScalarOpaque
)

var scalarNames = [...]string{
	ScalarNone:    "none",
	ScalarBool:    "bool",
	ScalarInt8:    "int8",
	ScalarInt16:   "int16",
	ScalarInt32:   "int32",
	ScalarInt64:   "int64",
	ScalarInt:     "int",
	ScalarUint8:   "uint8",
	ScalarUint16:  "uint16",
	ScalarUint32:  "uint32",
	ScalarUint64:  "uint64",
	ScalarUint:    "uint",
	ScalarUintptr: "uintptr",
	ScalarFloat32: "float32",
	ScalarFloat64: "float64",
	ScalarChar:    "char",
	ScalarString:  "string",
	ScalarUnit:    "unit",
	ScalarPointer: "pointer",
	ScalarOpaque:  "opaque",
}

func (k ScalarKind) String() string {
	if int(k) < len(scalarNames) {
		return scalarNames[k]
	}
	return "unknown"
}

// IsInteger reports whether the scalar is a signed or unsigned integer.
func (k ScalarKind) IsInteger() bool {
	return k >= ScalarInt8 && k <= ScalarUintptr
}

// Variance describes how a value holding borrowed data may be re-scoped.
type Variance uint8

const (
	// Bivariant values hold no borrowed data and may move between any scopes.
	Bivariant Variance = iota
	// Covariant values only read their borrow; they may be narrowed to a
	// shorter scope but never widened.
	Covariant
	// Contravariant values only accept borrowed data; they may be widened
	// but never narrowed.
	Contravariant
	// Invariant values must stay at exactly the scope they were created for.
	Invariant
)

var varianceNames = [...]string{
	Bivariant:     "bivariant",
	Covariant:     "covariant",
	Contravariant: "contravariant",
	Invariant:     "invariant",
}

func (v Variance) String() string {
	if int(v) < len(varianceNames) {
		return varianceNames[v]
	}
	return "unknown"
}

// Combine returns the variance of a value containing both v and o.
func (v Variance) Combine(o Variance) Variance {
	switch {
	case v == o:
		return v
	case v == Bivariant:
		return o
	case o == Bivariant:
		return v
	default:
		return Invariant
	}
}
