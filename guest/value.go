package guest

import (
	"go.bytecodealliance.org/wit"

	"github.com/wippyai/shapes/errors"
	"github.com/wippyai/shapes/peek"
	"github.com/wippyai/shapes/shape"
	"github.com/wippyai/shapes/wip"
)

// Peek returns a read accessor over the value of shape sh at addr.
func Peek(mem *Memory, addr uint32, sh *shape.Shape) (peek.Peek, error) {
	p, err := region(mem, addr, sh)
	if err != nil {
		return peek.Peek{}, err
	}
	return peek.New(p.Const(), sh), nil
}

// Build starts a builder that writes a value of shape sh in place at addr.
// The region is treated as uninitialized; fields that are never filled keep
// whatever bytes the guest left there until Build succeeds.
func Build(mem *Memory, addr uint32, sh *shape.Shape, opts ...wip.Option) (*wip.Wip, error) {
	p, err := region(mem, addr, sh)
	if err != nil {
		return nil, err
	}
	return wip.AllocAt(sh, p.Uninit(), opts...), nil
}

func region(mem *Memory, addr uint32, sh *shape.Shape) (shape.PtrMut, error) {
	if sh.GoType != nil && sh.HasPointers {
		return shape.PtrMut{}, errors.New(errors.PhaseGuest, errors.KindUnsupported).
			TypeName(sh.TypeName).
			Detail("values with Go pointers cannot live in guest memory").
			Build()
	}
	if align := uint32(sh.Layout.Align); align > 1 && addr%align != 0 {
		return shape.PtrMut{}, errors.New(errors.PhaseGuest, errors.KindInvalidData).
			TypeName(sh.TypeName).
			Value(addr).
			Detail("address %d is not aligned to %d", addr, align).
			Build()
	}
	return mem.Ptr(addr, uint32(sh.Layout.Size))
}

// LoadTypes reads a WIT package description in JSON form, as printed by
// `wasm-tools component wit --json`.
func LoadTypes(path string) (*wit.Resolve, error) {
	res, err := wit.LoadJSON(path)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseGuest, errors.KindParse, err, "load WIT JSON "+path)
	}
	return res, nil
}

// FindType returns the named type definition in res.
func FindType(res *wit.Resolve, name string) (*wit.TypeDef, error) {
	for _, td := range res.TypeDefs {
		if td.Name != nil && *td.Name == name {
			return td, nil
		}
	}
	return nil, errors.NotFound(errors.PhaseGuest, "type", name)
}
