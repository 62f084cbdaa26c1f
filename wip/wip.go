// Package wip builds values of a shape incrementally.
//
// A Wip owns (or borrows) a region of uninitialized memory sized for its
// shape. Fields are filled through one-shot Slots in any order; an ISet
// records which fields hold a value. Build succeeds only once every field
// is initialized or defaultable, and hands ownership of the value to a
// HeapValue. Discard, called explicitly or by With on any failure, drops
// exactly the fields that were initialized and leaves the rest alone.
//
// Builders are not safe for concurrent use.
package wip

import (
	"reflect"
	"strconv"

	"go.uber.org/zap"

	"github.com/wippyai/shapes/errors"
	"github.com/wippyai/shapes/scope"
	"github.com/wippyai/shapes/shape"
)

type state uint8

const (
	stateActive state = iota
	stateBuilt
	stateAbandoned
)

func (s state) String() string {
	switch s {
	case stateActive:
		return "active"
	case stateBuilt:
		return "built"
	default:
		return "abandoned"
	}
}

type config struct {
	scope  *scope.Scope
	logger *zap.Logger
}

// Option configures a builder.
type Option func(*config)

// WithScope sets the scope the finished value is valid for. Borrowed values
// filled into the builder are checked against it. Defaults to scope.Static.
func WithScope(s *scope.Scope) Option {
	return func(c *config) { c.scope = s }
}

// WithLogger sets the logger for this builder.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) { c.logger = l }
}

// Wip is a value under construction.
type Wip struct {
	shape    *shape.Shape
	log      *zap.Logger
	scope    *scope.Scope
	parent   *Wip
	variant  *shape.Variant
	data     shape.PtrUninit
	fields   []shape.Field
	children []*Wip
	iset     ISet
	// index is the field this builder fills in its parent.
	index int
	// gen changes whenever the field layout slots were handed out for is
	// replaced: a variant switch or a whole-value fill.
	gen   uint64
	state state
	// whole is set when the value was initialized as a unit rather than
	// field by field: a whole-value fill, or an initialized list or map.
	whole bool
}

// Alloc starts a builder over a fresh allocation for sh.
func Alloc(sh *shape.Shape, opts ...Option) *Wip {
	return AllocAt(sh, sh.Allocate(), opts...)
}

// AllocAt starts a builder over existing memory at data, which must be
// large enough and aligned for sh. The builder does not own the memory.
func AllocAt(sh *shape.Shape, data shape.PtrUninit, opts ...Option) *Wip {
	cfg := config{scope: scope.Static(), logger: Logger()}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Wip{
		shape:  sh,
		data:   data,
		scope:  cfg.scope,
		log:    cfg.logger.With(zap.Stringer("shape", sh)),
		fields: fieldsOf(sh),
		index:  -1,
	}
}

// Of starts a builder for T.
func Of[T any](opts ...Option) *Wip {
	return Alloc(shape.Of[T](), opts...)
}

func fieldsOf(sh *shape.Shape) []shape.Field {
	switch {
	case sh.Kind == shape.KindStruct:
		return sh.Fields
	case sh.Kind == shape.KindList && sh.List.Fixed >= 0:
		fs := make([]shape.Field, sh.List.Fixed)
		for i := range fs {
			fs[i] = shape.Field{Name: strconv.Itoa(i), Offset: sh.List.ItemOffset(i), Shape: sh.List.Elem}
		}
		return fs
	default:
		return nil
	}
}

func (w *Wip) Shape() *shape.Shape   { return w.shape }
func (w *Wip) Scope() *scope.Scope   { return w.scope }
func (w *Wip) Parent() *Wip          { return w.parent }
func (w *Wip) Data() shape.PtrUninit { return w.data }

// FieldCount returns the number of addressable fields: struct fields, the
// payload fields of the selected variant, or array elements.
func (w *Wip) FieldCount() int { return len(w.fields) }

// IsInitialized reports whether field i holds a value.
func (w *Wip) IsInitialized(i int) bool {
	return w.whole || w.iset.Has(i)
}

// Variant returns the selected enum variant, or nil.
func (w *Wip) Variant() *shape.Variant { return w.variant }

func (w *Wip) path() []string {
	if w.parent == nil {
		return []string{w.shape.TypeName}
	}
	return append(w.parent.path(), w.parent.fields[w.index].Name)
}

func (w *Wip) usable() error {
	if w.state != stateActive {
		return errors.New(errors.PhaseBuild, errors.KindUnsupported).
			Path(w.path()...).
			Detail("builder is %s", w.state).
			Build()
	}
	return nil
}

func (w *Wip) hasFields() bool {
	switch w.shape.Kind {
	case shape.KindStruct, shape.KindEnum:
		return true
	case shape.KindList:
		return w.shape.List.Fixed >= 0
	default:
		return false
	}
}

// addressable reports whether the builder hands out field slots.
func (w *Wip) addressable() error {
	if err := w.usable(); err != nil {
		return err
	}
	if !w.hasFields() {
		return errors.WrongKind(errors.PhaseBuild, w.shape.TypeName, "a struct, enum or array")
	}
	if w.shape.Kind == shape.KindEnum && w.variant == nil {
		return errors.New(errors.PhaseBuild, errors.KindInvalidVariant).
			Path(w.path()...).
			Detail("no variant selected").
			Build()
	}
	return nil
}

func (w *Wip) fieldIndex(i int) error {
	if err := w.addressable(); err != nil {
		return err
	}
	if i < 0 || i >= len(w.fields) {
		return errors.OutOfBounds(errors.PhaseBuild, w.path(), i, len(w.fields))
	}
	return nil
}

func (w *Wip) indexOf(name string) (int, error) {
	if err := w.addressable(); err != nil {
		return -1, err
	}
	for i := range w.fields {
		if w.fields[i].Name == name {
			return i, nil
		}
	}
	return -1, errors.NoSuchField(errors.PhaseBuild, w.path(), name)
}

// SlotForField returns a slot for the i-th field.
func (w *Wip) SlotForField(i int) (*Slot, error) {
	if err := w.fieldIndex(i); err != nil {
		return nil, err
	}
	f := w.fields[i]
	return &Slot{wip: w, shape: f.Shape, dest: w.data.Field(f.Offset), name: f.Name, index: i, gen: w.gen}, nil
}

// SlotForName returns a slot for the field called name.
func (w *Wip) SlotForName(name string) (*Slot, error) {
	i, err := w.indexOf(name)
	if err != nil {
		return nil, err
	}
	return w.SlotForField(i)
}

// Slot returns a slot for the whole value.
func (w *Wip) Slot() (*Slot, error) {
	if err := w.usable(); err != nil {
		return nil, err
	}
	return &Slot{wip: w, shape: w.shape, dest: w.data, index: -1, gen: w.gen}, nil
}

// SlotForKey returns a slot for the map entry under key. Nothing is stored
// until the slot is filled; the key is copied into the map together with
// the value.
func (w *Wip) SlotForKey(key any) (*Slot, error) {
	if err := w.usable(); err != nil {
		return nil, err
	}
	if w.shape.Kind != shape.KindMap {
		return nil, errors.WrongKind(errors.PhaseBuild, w.shape.TypeName, "a map")
	}
	def := w.shape.Map
	kv, ok := matchValue(def.Key, key)
	if !ok {
		return nil, errors.ShapeMismatch(errors.PhaseBuild, w.path(), def.Key.TypeName, typeName(kv))
	}
	if err := w.ensureInit(); err != nil {
		return nil, err
	}
	return &Slot{wip: w, shape: def.Value, key: kv, entry: true, index: -1, gen: w.gen}, nil
}

// SelectVariant writes the tag of the named variant. Field slots then
// address that variant's payload. Payload fields already filled for a
// previously selected variant are dropped.
func (w *Wip) SelectVariant(name string) error {
	if err := w.usable(); err != nil {
		return err
	}
	if w.shape.Kind != shape.KindEnum {
		return errors.WrongKind(errors.PhaseBuild, w.shape.TypeName, "an enum")
	}
	v, _, ok := w.shape.Enum.VariantByName(name)
	if !ok {
		return errors.WithPath(errors.NotFound(errors.PhaseBuild, "variant", name), w.path()...)
	}
	w.closeChildren()
	w.dropInitialized()
	if w.shape.GoType != nil && w.variant != nil {
		// clear the previous variant's payload
		reflect.NewAt(w.shape.GoType, w.data.Raw()).Elem().SetZero()
	}
	w.shape.Enum.WriteTag(w.data, v.Discriminant)
	w.gen++
	w.variant = v
	w.fields = v.Fields
	w.log.Debug("variant selected", zap.String("variant", name))
	return nil
}

// Push appends value to a growable list.
func (w *Wip) Push(value any) error {
	if err := w.usable(); err != nil {
		return err
	}
	if w.shape.Kind != shape.KindList {
		return errors.WrongKind(errors.PhaseBuild, w.shape.TypeName, "a list")
	}
	def := w.shape.List
	if def.VTable.Push == nil {
		return errors.WithPath(errors.Unsupported(errors.PhaseBuild, "list does not support push"), w.path()...)
	}
	v, ok := matchValue(def.Elem, value)
	if !ok {
		panic(errors.ShapeMismatch(errors.PhaseBuild, w.path(), def.Elem.TypeName, typeName(v)))
	}
	if err := w.ensureInit(); err != nil {
		return err
	}
	item := def.Elem.Allocate()
	write(def.Elem, item, v)
	def.VTable.Push(w.data.Assume(), item.Assume())
	return nil
}

// ensureInit creates an empty list or map the first time it is needed.
func (w *Wip) ensureInit() error {
	if w.whole {
		return nil
	}
	var init func(shape.PtrUninit, int)
	switch w.shape.Kind {
	case shape.KindList:
		init = w.shape.List.VTable.Init
	case shape.KindMap:
		init = w.shape.Map.VTable.Init
	}
	if init == nil {
		return errors.WithPath(errors.Unsupported(errors.PhaseBuild, "shape cannot be created empty"), w.path()...)
	}
	init(w.data, 0)
	w.whole = true
	return nil
}

// Nested starts a child builder over field i in place. The parent's field
// is marked initialized when the child calls Finish. A value already in
// the field is dropped first.
func (w *Wip) Nested(i int) (*Wip, error) {
	if err := w.fieldIndex(i); err != nil {
		return nil, err
	}
	w.closeChild(i)
	w.uninit(i)
	f := w.fields[i]
	child := &Wip{
		shape:  f.Shape,
		data:   w.data.Field(f.Offset),
		scope:  w.scope,
		log:    w.log.With(zap.String("field", f.Name)),
		parent: w,
		index:  i,
		fields: fieldsOf(f.Shape),
	}
	w.children = append(w.children, child)
	return child, nil
}

// NestedNamed starts a child builder over the field called name.
func (w *Wip) NestedNamed(name string) (*Wip, error) {
	i, err := w.indexOf(name)
	if err != nil {
		return nil, err
	}
	return w.Nested(i)
}

// Finish completes a child builder and returns focus to its parent.
func (w *Wip) Finish() (*Wip, error) {
	if w.parent == nil {
		return nil, errors.WithPath(errors.Unsupported(errors.PhaseBuild, "root builder has no parent, use Build"), w.path()...)
	}
	if err := w.usable(); err != nil {
		return nil, err
	}
	if err := w.complete(); err != nil {
		return nil, err
	}
	p := w.parent
	p.removeChild(w)
	p.iset.Set(w.index)
	w.state = stateBuilt
	p.log.Debug("nested field finished", zap.String("field", p.fields[w.index].Name))
	return p, nil
}

// Build finishes the value. Unfilled fields flagged default are defaulted;
// any other unfilled field fails with UninitializedField and leaves the
// builder usable. Build succeeds at most once.
func (w *Wip) Build() (*HeapValue, error) {
	if w.parent != nil {
		return nil, errors.WithPath(errors.Unsupported(errors.PhaseBuild, "nested builder, use Finish"), w.path()...)
	}
	if err := w.usable(); err != nil {
		return nil, err
	}
	if err := w.complete(); err != nil {
		return nil, err
	}
	w.state = stateBuilt
	w.log.Debug("value built")
	return &HeapValue{shape: w.shape, data: w.data.Assume(), scope: w.scope}, nil
}

// complete checks that every field is initialized, defaulting those that
// may be defaulted. Nothing is defaulted when a required field is missing.
func (w *Wip) complete() error {
	if w.whole {
		return nil
	}
	if len(w.children) > 0 {
		c := w.children[0]
		return errors.WithPath(errors.UninitializedField(nil, w.fields[c.index].Name), w.path()...)
	}
	switch {
	case w.shape.Kind == shape.KindEnum && w.variant == nil:
		return errors.New(errors.PhaseBuild, errors.KindUninitializedField).
			Path(w.path()...).
			Detail("no variant selected").
			Build()
	case w.hasFields():
		for i, f := range w.fields {
			if !w.iset.Has(i) && !f.Defaultable() {
				return errors.UninitializedField(w.path(), f.Name)
			}
		}
		for i, f := range w.fields {
			if !w.iset.Has(i) {
				f.Shape.VTable.Default(w.data.Field(f.Offset))
				w.iset.Set(i)
				w.log.Debug("field defaulted", zap.String("field", f.Name))
			}
		}
		return nil
	case w.shape.Kind == shape.KindList, w.shape.Kind == shape.KindMap:
		if err := w.ensureInit(); err != nil {
			return errors.New(errors.PhaseBuild, errors.KindUninitializedField).
				Path(w.path()...).
				Detail("value is not initialized").
				Build()
		}
		return nil
	default:
		if w.shape.IsZST() {
			w.whole = true
			return nil
		}
		return errors.New(errors.PhaseBuild, errors.KindUninitializedField).
			Path(w.path()...).
			Detail("value is not initialized").
			Build()
	}
}

// Discard abandons the builder, dropping every initialized field and any
// open child builders. It is a no-op after Build or a previous Discard.
func (w *Wip) Discard() {
	if w.state != stateActive {
		return
	}
	w.closeChildren()
	w.dropInitialized()
	w.state = stateAbandoned
	if w.parent != nil {
		w.parent.removeChild(w)
	}
	w.log.Debug("builder discarded")
}

// dropInitialized drops what the builder has written so far.
func (w *Wip) dropInitialized() {
	if w.whole {
		w.shape.DropInPlace(w.data.Assume())
		w.whole = false
		w.iset.Clear()
		return
	}
	for i, f := range w.fields {
		if w.iset.Has(i) {
			f.Shape.DropInPlace(w.data.Field(f.Offset).Assume())
			w.log.Debug("field dropped", zap.String("field", f.Name))
		}
	}
	w.iset.Clear()
}

// uninit drops field i if it holds a value.
func (w *Wip) uninit(i int) {
	if w.whole {
		// switch to per-field tracking so the other fields stay owned
		for j := range w.fields {
			w.iset.Set(j)
		}
		w.whole = false
	}
	if w.iset.Has(i) {
		f := w.fields[i]
		f.Shape.DropInPlace(w.data.Field(f.Offset).Assume())
		w.iset.Unset(i)
	}
}

func (w *Wip) closeChild(i int) {
	for _, c := range w.children {
		if c.index == i {
			c.Discard()
			return
		}
	}
}

func (w *Wip) closeChildren() {
	for len(w.children) > 0 {
		w.children[len(w.children)-1].Discard()
	}
}

func (w *Wip) removeChild(c *Wip) {
	for i, x := range w.children {
		if x == c {
			w.children = append(w.children[:i], w.children[i+1:]...)
			return
		}
	}
}

// With runs fill against a fresh builder for sh and builds the result. The
// builder is discarded on every path that does not produce a value,
// including a panic in fill.
func With(sh *shape.Shape, fill func(*Wip) error, opts ...Option) (hv *HeapValue, err error) {
	w := Alloc(sh, opts...)
	defer func() {
		if hv == nil {
			w.Discard()
		}
	}()
	if err := fill(w); err != nil {
		return nil, err
	}
	return w.Build()
}
