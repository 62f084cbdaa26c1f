package wip

import "math/bits"

// ISet tracks which fields of a value under construction are initialized.
// The zero value is an empty set.
type ISet struct {
	words []uint64
}

func (s *ISet) Set(i int) {
	w := i / 64
	for len(s.words) <= w {
		s.words = append(s.words, 0)
	}
	s.words[w] |= 1 << (i % 64)
}

func (s *ISet) Unset(i int) {
	if w := i / 64; w < len(s.words) {
		s.words[w] &^= 1 << (i % 64)
	}
}

func (s *ISet) Has(i int) bool {
	w := i / 64
	return w < len(s.words) && s.words[w]&(1<<(i%64)) != 0
}

// Count returns the number of initialized fields.
func (s *ISet) Count() int {
	n := 0
	for _, w := range s.words {
		n += bits.OnesCount64(w)
	}
	return n
}

// Full reports whether fields 0..n-1 are all initialized.
func (s *ISet) Full(n int) bool {
	for i := 0; i < n; i++ {
		if !s.Has(i) {
			return false
		}
	}
	return true
}

func (s *ISet) Clear() {
	clear(s.words)
}
