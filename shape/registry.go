package shape

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/wippyai/shapes/errors"
)

var registry sync.Map // reflect.Type -> *Shape

// Dropper is implemented by types that release resources when a value is
// destroyed. Drop must have a pointer receiver.
type Dropper interface {
	Drop()
}

// Defaulter is implemented by types whose default is not the zero value.
// SetDefault is called on zeroed memory.
type Defaulter interface {
	SetDefault()
}

// Varianced is implemented by marker types that hold borrowed data.
type Varianced interface {
	Variance() Variance
}

var (
	dropperType   = reflect.TypeFor[Dropper]()
	defaulterType = reflect.TypeFor[Defaulter]()
	variancedType = reflect.TypeFor[Varianced]()
	stringerType  = reflect.TypeFor[fmt.Stringer]()
)

// For returns the shape of t, deriving it on first use. The result is
// stable for the lifetime of the process.
func For(t reflect.Type) (*Shape, error) {
	if t == nil {
		return nil, errors.NilPointer(errors.PhaseShape, nil, "nil type")
	}
	if cached, ok := registry.Load(t); ok {
		return cached.(*Shape), nil
	}
	d := &deriver{inProgress: make(map[reflect.Type]bool)}
	return d.derive(t)
}

// Of returns the shape of T. It panics if T cannot be described, which is
// a programming error like an invalid regexp literal.
func Of[T any]() *Shape {
	sh, err := For(reflect.TypeFor[T]())
	if err != nil {
		panic(err)
	}
	return sh
}

// ForValue returns the shape of v's dynamic type.
func ForValue(v any) (*Shape, error) {
	return For(reflect.TypeOf(v))
}

// Register stores a hand-written shape for t. If t already has a shape the
// existing one is returned and sh is discarded.
func Register(t reflect.Type, sh *Shape) (*Shape, error) {
	if sh.GoType != nil && sh.GoType != t {
		return nil, errors.ShapeMismatch(errors.PhaseShape, nil, t.String(), sh.GoType.String())
	}
	if sh.Layout.Size != t.Size() {
		return nil, errors.New(errors.PhaseShape, errors.KindInvalidData).
			TypeName(t.String()).
			Detail("layout size %d does not match Go size %d", sh.Layout.Size, t.Size()).
			Build()
	}
	sh.GoType = t
	if sh.ID == 0 {
		sh.ID = nextID.Add(1)
	}
	actual, _ := registry.LoadOrStore(t, sh)
	return actual.(*Shape), nil
}

type deriver struct {
	inProgress map[reflect.Type]bool
}

func (d *deriver) derive(t reflect.Type) (*Shape, error) {
	if cached, ok := registry.Load(t); ok {
		return cached.(*Shape), nil
	}
	if d.inProgress[t] {
		return nil, errors.Unsupported(errors.PhaseShape, "recursive type "+t.String())
	}
	d.inProgress[t] = true
	defer delete(d.inProgress, t)

	sh, err := d.build(t)
	if err != nil {
		return nil, err
	}
	return Register(t, sh)
}

func (d *deriver) build(t reflect.Type) (*Shape, error) {
	sh := &Shape{
		GoType:      t,
		TypeName:    t.String(),
		Layout:      LayoutOf(t),
		HasPointers: hasPointers(t),
		Variance:    varianceOf(t),
	}

	switch t.Kind() {
	case reflect.Struct:
		if isUnit(t) {
			sh.Kind = KindScalar
			sh.Scalar = ScalarUnit
			sh.VTable = unitVTable()
			break
		}
		fields, err := d.structFields(t)
		if err != nil {
			return nil, err
		}
		sh.Kind = KindStruct
		sh.Fields = fields
		sh.VTable = goVTable(t)
		composeStruct(sh)
	case reflect.Slice:
		elem, err := d.derive(t.Elem())
		if err != nil {
			return nil, errors.WithPath(asError(err), "[]")
		}
		sh.Kind = KindList
		sh.List = &ListDef{Elem: elem, VTable: sliceOps(t), Fixed: -1}
		sh.VTable = goVTable(t)
		composeList(sh)
	case reflect.Array:
		elem, err := d.derive(t.Elem())
		if err != nil {
			return nil, errors.WithPath(asError(err), "[]")
		}
		sh.Kind = KindList
		sh.List = &ListDef{Elem: elem, VTable: arrayOps(t), Fixed: t.Len()}
		sh.VTable = goVTable(t)
		composeList(sh)
	case reflect.Map:
		key, err := d.derive(t.Key())
		if err != nil {
			return nil, err
		}
		val, err := d.derive(t.Elem())
		if err != nil {
			return nil, err
		}
		sh.Kind = KindMap
		sh.Map = &MapDef{Key: key, Value: val, VTable: mapOps(t)}
		sh.VTable = goVTable(t)
		sh.VTable.Default = nil
		composeMap(sh)
	default:
		kind, vt, ok := scalarOf(t)
		if !ok {
			return nil, errors.New(errors.PhaseShape, errors.KindUnsupported).
				TypeName(t.String()).
				Detail("%s types have no shape", t.Kind()).
				Build()
		}
		sh.Kind = KindScalar
		sh.Scalar = kind
		sh.VTable = vt
		if reflect.PointerTo(t).Implements(defaulterType) {
			sh.VTable.Default = goVTable(t).Default
		}
	}

	if reflect.PointerTo(t).Implements(stringerType) {
		sh.VTable.Display = func(v PtrConst, b *strings.Builder) {
			b.WriteString(reflect.NewAt(t, v.p).Interface().(fmt.Stringer).String())
		}
	}
	if own := dropperVTable(t); own != nil {
		inner := sh.VTable.Drop
		sh.VTable.Drop = func(v PtrMut) {
			own(v)
			if inner != nil {
				inner(v)
			}
		}
	}
	return sh, nil
}

// isUnit reports whether t is a zero-size struct without exported fields,
// e.g. struct{} or a marker type.
func isUnit(t reflect.Type) bool {
	if t.Size() != 0 {
		return false
	}
	for i := 0; i < t.NumField(); i++ {
		if t.Field(i).IsExported() {
			return false
		}
	}
	return true
}

func (d *deriver) structFields(t reflect.Type) ([]Field, error) {
	fields := make([]Field, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		tag, hasTag := sf.Tag.Lookup("shape")
		if tag == "-" {
			continue
		}
		fs, err := d.derive(sf.Type)
		if err != nil {
			return nil, errors.WithPath(asError(err), t.String(), sf.Name)
		}
		f := Field{
			Name:   sf.Name,
			Offset: sf.Offset,
			Shape:  fs,
		}
		if hasTag {
			if err := applyTag(&f, sf, tag); err != nil {
				return nil, errors.WithPath(err, t.String())
			}
		}
		fields = append(fields, f)
	}
	return fields, nil
}

// applyTag parses `shape:"name,skip,omitempty,flatten,default,skipif=Method"`.
func applyTag(f *Field, sf reflect.StructField, tag string) *errors.Error {
	name, opts, _ := strings.Cut(tag, ",")
	if name != "" {
		f.Name = name
	}
	if opts == "" {
		return nil
	}
	for _, opt := range strings.Split(opts, ",") {
		switch {
		case opt == "skip":
			f.Flags |= FlagSkipSerializing
		case opt == "omitempty":
			f.Flags |= FlagSkipIfDefault
		case opt == "flatten":
			f.Flags |= FlagFlatten
		case opt == "default":
			f.Flags |= FlagDefault
		case strings.HasPrefix(opt, "skipif="):
			pred, err := skipPredicate(sf.Type, strings.TrimPrefix(opt, "skipif="))
			if err != nil {
				return errors.WithPath(err, sf.Name)
			}
			f.SkipIf = pred
		default:
			return errors.New(errors.PhaseShape, errors.KindInvalidData).
				Path(sf.Name).
				Detail("unknown shape tag option %q", opt).
				Build()
		}
	}
	return nil
}

// skipPredicate binds a `func() bool` method of t as a skip condition.
func skipPredicate(t reflect.Type, method string) (func(PtrConst) bool, *errors.Error) {
	m, ok := reflect.PointerTo(t).MethodByName(method)
	if !ok || m.Type.NumIn() != 1 || m.Type.NumOut() != 1 || m.Type.Out(0).Kind() != reflect.Bool {
		return nil, errors.New(errors.PhaseShape, errors.KindNotFound).
			TypeName(t.String()).
			Detail("skipif needs a method %s() bool", method).
			Build()
	}
	return func(v PtrConst) bool {
		return m.Func.Call([]reflect.Value{reflect.NewAt(t, v.p)})[0].Bool()
	}, nil
}

func asError(err error) *errors.Error {
	if e, ok := err.(*errors.Error); ok {
		return e
	}
	return errors.Wrap(errors.PhaseShape, errors.KindUnsupported, err, "")
}

// goVTable returns the operations every Go type supports through reflection:
// Clone covers unexported state, Default is the zero value plus SetDefault.
func goVTable(t reflect.Type) VTable {
	setDefault := reflect.PointerTo(t).Implements(defaulterType)
	return VTable{
		Clone: func(src PtrConst, dst PtrUninit) {
			reflect.NewAt(t, dst.p).Elem().Set(reflect.NewAt(t, src.p).Elem())
		},
		Default: func(dst PtrUninit) {
			v := reflect.NewAt(t, dst.p)
			v.Elem().SetZero()
			if setDefault {
				v.Interface().(Defaulter).SetDefault()
			}
		},
	}
}

func dropperVTable(t reflect.Type) func(PtrMut) {
	if !reflect.PointerTo(t).Implements(dropperType) {
		return nil
	}
	return func(v PtrMut) {
		reflect.NewAt(t, v.p).Interface().(Dropper).Drop()
	}
}

func zeroConst(t reflect.Type) PtrConst {
	return PtrConst{p: reflect.New(t).UnsafePointer()}
}

// varianceOf walks t, including unexported fields, for borrow markers.
func varianceOf(t reflect.Type) Variance {
	return varianceWalk(t, make(map[reflect.Type]bool))
}

func varianceWalk(t reflect.Type, seen map[reflect.Type]bool) Variance {
	if seen[t] {
		return Bivariant
	}
	seen[t] = true
	if t.Implements(variancedType) {
		return reflect.Zero(t).Interface().(Varianced).Variance()
	}
	switch t.Kind() {
	case reflect.Struct:
		v := Bivariant
		for i := 0; i < t.NumField(); i++ {
			v = v.Combine(varianceWalk(t.Field(i).Type, seen))
		}
		return v
	case reflect.Array, reflect.Slice:
		return varianceWalk(t.Elem(), seen)
	case reflect.Map:
		return varianceWalk(t.Key(), seen).Combine(varianceWalk(t.Elem(), seen))
	default:
		return Bivariant
	}
}

func hasPointers(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool, reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return false
	case reflect.Array:
		return t.Len() > 0 && hasPointers(t.Elem())
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if hasPointers(t.Field(i).Type) {
				return true
			}
		}
		return false
	default:
		return true
	}
}
