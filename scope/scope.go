// Package scope simulates borrow lifetimes with scope tokens.
//
// A Scope stands for the region of a program during which borrowed data is
// valid. Scopes form a tree rooted at Static: a child never outlives its
// parent, and closing a scope closes all of its descendants. Builders are
// created for a target scope and refuse borrowed values whose scope does
// not satisfy the variance of the field they are written to.
package scope

import (
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/wippyai/shapes/errors"
	"github.com/wippyai/shapes/shape"
)

// Scope is a lifetime token.
type Scope struct {
	parent   *Scope
	name     string
	children []*Scope
	mu       sync.Mutex
	depth    int
	closed   atomic.Bool
}

var (
	static  = &Scope{name: "static"}
	counter atomic.Uint64
)

// Static returns the root scope. It is never closed.
func Static() *Scope {
	return static
}

// Child opens a scope nested in s.
func (s *Scope) Child() *Scope {
	return s.Named("scope" + strconv.FormatUint(counter.Add(1), 10))
}

// Named opens a nested scope with a name used in error messages.
func (s *Scope) Named(name string) *Scope {
	c := &Scope{parent: s, name: name, depth: s.depth + 1}
	if !s.Alive() {
		c.closed.Store(true)
	}
	s.mu.Lock()
	s.children = append(s.children, c)
	s.mu.Unlock()
	return c
}

// Close ends s and all scopes opened from it. Closing Static is a no-op.
func (s *Scope) Close() {
	if s == static || s.closed.Swap(true) {
		return
	}
	s.mu.Lock()
	children := s.children
	s.children = nil
	s.mu.Unlock()
	for _, c := range children {
		c.Close()
	}
	if p := s.parent; p != nil {
		p.mu.Lock()
		for i, c := range p.children {
			if c == s {
				p.children = append(p.children[:i], p.children[i+1:]...)
				break
			}
		}
		p.mu.Unlock()
	}
}

// Alive reports whether s has not been closed.
func (s *Scope) Alive() bool {
	return !s.closed.Load()
}

// Outlives reports whether s is o or an ancestor of o.
func (s *Scope) Outlives(o *Scope) bool {
	for c := o; c != nil; c = c.parent {
		if c == s {
			return true
		}
	}
	return false
}

func (s *Scope) String() string {
	return s.name
}

// Check reports whether a value of variance v borrowed for from may be
// stored in a value finished for target.
//
//	Bivariant      always
//	Covariant      from outlives target
//	Contravariant  target outlives from
//	Invariant      from is target
func Check(v shape.Variance, from, target *Scope) error {
	if v == shape.Bivariant {
		return nil
	}
	if !from.Alive() {
		return errors.Variance(nil, "borrowed from closed scope "+from.String())
	}
	var ok bool
	switch v {
	case shape.Covariant:
		ok = from.Outlives(target)
	case shape.Contravariant:
		ok = target.Outlives(from)
	case shape.Invariant:
		ok = from == target
	}
	if !ok {
		return errors.New(errors.PhaseBuild, errors.KindVariance).
			Detail("%s value borrowed for %s cannot be stored for %s", v, from, target).
			Build()
	}
	return nil
}
