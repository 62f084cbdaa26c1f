package wip

import (
	"reflect"

	"go.uber.org/zap"

	"github.com/wippyai/shapes/errors"
	"github.com/wippyai/shapes/peek"
	"github.com/wippyai/shapes/scope"
	"github.com/wippyai/shapes/shape"
)

// Slot is a one-shot write capability into a field, the whole value, or a
// map entry of a builder. Filling a slot whose destination already holds a
// value drops that value first.
//
// Filling with a value of the wrong shape is a programming error and
// panics with a *errors.Error of kind ShapeMismatch. Using a slot twice, or
// after SelectVariant or a whole-value fill replaced the layout it was taken
// from, panics with a *errors.Error of kind Unsupported.
type Slot struct {
	wip   *Wip
	shape *shape.Shape
	key   reflect.Value
	dest  shape.PtrUninit
	name  string
	index int
	// gen is the builder generation the slot was handed out in.
	gen   uint64
	entry bool
	used  bool
}

// Shape returns the shape the slot accepts.
func (s *Slot) Shape() *shape.Shape { return s.shape }

func (s *Slot) path() []string {
	p := s.wip.path()
	switch {
	case s.entry:
		return append(p, "[key]")
	case s.index >= 0:
		return append(p, s.name)
	default:
		return p
	}
}

func (s *Slot) consume() {
	if s.used {
		panic(errors.WithPath(errors.Unsupported(errors.PhaseBuild, "slot already used"), s.path()...))
	}
	if err := s.wip.usable(); err != nil {
		panic(err)
	}
	if s.gen != s.wip.gen {
		panic(errors.WithPath(errors.Unsupported(errors.PhaseBuild, "slot is stale, the builder's variant or value was replaced"), s.path()...))
	}
	s.used = true
}

func (s *Slot) mustMatch(value any) reflect.Value {
	v, ok := matchValue(s.shape, value)
	if !ok {
		panic(errors.ShapeMismatch(errors.PhaseBuild, s.path(), s.shape.TypeName, typeName(v)))
	}
	return v
}

// Fill moves value into the slot. The value is treated as borrowed for the
// builder's own scope.
func (s *Slot) Fill(value any) {
	v := s.mustMatch(value)
	s.consume()
	s.put(func(dst shape.PtrUninit) { write(s.shape, dst, v) })
}

// FillBorrowed moves a value borrowed for from into the slot. It fails with
// a Variance error when the value's variance does not allow storing it in
// a value finished for the builder's scope; the slot stays unused.
func (s *Slot) FillBorrowed(value any, from *scope.Scope) error {
	v := s.mustMatch(value)
	if err := scope.Check(s.shape.Variance, from, s.wip.scope); err != nil {
		return err
	}
	s.consume()
	s.put(func(dst shape.PtrUninit) { write(s.shape, dst, v) })
	return nil
}

// FillPeek copies the value p reads into the slot, using the shape's Clone
// operation or a raw copy for pointer-free shapes.
func (s *Slot) FillPeek(p peek.Peek) error {
	if !p.Shape().Is(s.shape) {
		panic(errors.ShapeMismatch(errors.PhaseBuild, s.path(), s.shape.TypeName, p.Shape().TypeName))
	}
	clone := s.shape.VTable.Clone
	if clone == nil && s.shape.HasPointers {
		return errors.New(errors.PhaseBuild, errors.KindUnsupported).
			Path(s.path()...).
			TypeName(s.shape.TypeName).
			Detail("shape cannot be cloned").
			Build()
	}
	s.consume()
	size := s.shape.Layout.Size
	s.put(func(dst shape.PtrUninit) {
		if clone != nil {
			clone(p.Data(), dst)
		} else {
			shape.Copy(dst, p.Data(), size)
		}
	})
	return nil
}

// FillFromWip moves the value of a complete, detached builder into the
// slot. An incomplete nested builder is reported and stays owned by the
// caller. Map entries cannot be filled from a builder; that panics.
func (s *Slot) FillFromWip(nested *Wip) error {
	if s.entry {
		panic(errors.WithPath(errors.Unsupported(errors.PhaseBuild, "map entries cannot be filled from a builder"), s.path()...))
	}
	if !nested.shape.Is(s.shape) {
		panic(errors.ShapeMismatch(errors.PhaseBuild, s.path(), s.shape.TypeName, nested.shape.TypeName))
	}
	if nested.parent != nil {
		return errors.WithPath(errors.Unsupported(errors.PhaseBuild, "builder is attached to a parent"), s.path()...)
	}
	if err := nested.usable(); err != nil {
		return err
	}
	if err := scope.Check(s.shape.Variance, nested.scope, s.wip.scope); err != nil {
		return err
	}
	if s.shape.GoType == nil && s.shape.HasPointers {
		return errors.WithPath(errors.Unsupported(errors.PhaseBuild, "shape cannot be relocated"), s.path()...)
	}
	if err := nested.complete(); err != nil {
		return err
	}
	s.consume()
	s.put(func(dst shape.PtrUninit) { move(s.shape, dst, nested.data.Assume()) })
	nested.state = stateBuilt
	return nil
}

// put runs store against the slot's destination and updates the builder's
// bookkeeping.
func (s *Slot) put(store func(shape.PtrUninit)) {
	w := s.wip
	switch {
	case s.entry:
		def := w.shape.Map
		val := def.Value.Allocate()
		store(val)
		key := def.Key.Allocate()
		write(def.Key, key, s.key)
		m := w.data.Assume()
		if old, ok := def.VTable.Get(m.Const(), key.Assume().Const()); ok {
			def.Value.DropInPlace(shape.NewPtrMut(old.Raw()))
		}
		def.VTable.Insert(m, key.Assume(), val.Assume())
		w.log.Debug("entry filled")
	case s.index < 0:
		w.closeChildren()
		w.dropInitialized()
		store(s.dest)
		w.whole = true
		w.gen++
		if w.shape.Kind == shape.KindEnum {
			if v, _, ok := w.shape.Enum.ActiveVariant(s.dest.Assume().Const()); ok {
				w.variant = v
				w.fields = v.Fields
			}
		}
		w.log.Debug("value filled")
	default:
		w.closeChild(s.index)
		w.uninit(s.index)
		store(s.dest)
		w.iset.Set(s.index)
		w.log.Debug("field filled", zap.String("field", s.name))
	}
}

func matchValue(sh *shape.Shape, value any) (reflect.Value, bool) {
	v := reflect.ValueOf(value)
	if !v.IsValid() {
		return v, false
	}
	got, err := shape.For(v.Type())
	if err != nil {
		return v, false
	}
	return v, got.Is(sh)
}

func typeName(v reflect.Value) string {
	if !v.IsValid() {
		return "nil"
	}
	return v.Type().String()
}

// write stores v at dst. Zero-size values have nothing to store.
func write(sh *shape.Shape, dst shape.PtrUninit, v reflect.Value) {
	if sh.IsZST() {
		return
	}
	reflect.NewAt(sh.GoType, dst.Raw()).Elem().Set(v)
}

// move relocates the value at src to dst. src is uninitialized afterwards.
func move(sh *shape.Shape, dst shape.PtrUninit, src shape.PtrMut) {
	if sh.IsZST() {
		return
	}
	if sh.GoType == nil {
		shape.Copy(dst, src.Const(), sh.Layout.Size)
		return
	}
	from := reflect.NewAt(sh.GoType, src.Raw()).Elem()
	reflect.NewAt(sh.GoType, dst.Raw()).Elem().Set(from)
	from.SetZero()
}
