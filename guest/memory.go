package guest

import (
	"encoding/binary"
	"strconv"
	"unsafe"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/shapes/errors"
	"github.com/wippyai/shapes/shape"
)

// Memory is a bounds-checked view of a module's linear memory.
type Memory struct {
	mem api.Memory
}

// NewMemory wraps mem.
func NewMemory(mem api.Memory) *Memory {
	return &Memory{mem: mem}
}

// API returns the underlying wazero memory.
func (m *Memory) API() api.Memory { return m.mem }

// Size returns the current memory size in bytes.
func (m *Memory) Size() uint32 { return m.mem.Size() }

// Bytes returns a view of n bytes at addr. The view aliases guest memory.
func (m *Memory) Bytes(addr, n uint32) ([]byte, error) {
	if uint64(addr)+uint64(n) > uint64(m.mem.Size()) {
		return nil, m.outOfBounds(addr, n)
	}
	b, ok := m.mem.Read(addr, n)
	if !ok {
		return nil, m.outOfBounds(addr, n)
	}
	return b, nil
}

// Write copies data into guest memory at addr.
func (m *Memory) Write(addr uint32, data []byte) error {
	if !m.mem.Write(addr, data) {
		return m.outOfBounds(addr, uint32(len(data)))
	}
	return nil
}

// Ptr returns a pointer to size bytes at addr.
func (m *Memory) Ptr(addr, size uint32) (shape.PtrMut, error) {
	b, err := m.Bytes(addr, size)
	if err != nil {
		return shape.PtrMut{}, err
	}
	if size == 0 && cap(b) == 0 {
		// zero-size value at the very end of memory
		return shape.PtrMut{}, m.outOfBounds(addr, 1)
	}
	return shape.NewPtrMut(unsafe.Pointer(unsafe.SliceData(b))), nil
}

func (m *Memory) outOfBounds(addr, n uint32) *errors.Error {
	return errors.New(errors.PhaseGuest, errors.KindOutOfBounds).
		Path("@" + strconv.FormatUint(uint64(addr), 10)).
		Value(n).
		Detail("region [%d, %d) exceeds memory size %d", addr, uint64(addr)+uint64(n), m.mem.Size()).
		Build()
}

// pair reads a (ptr, len) pair stored at v.
func pair(v shape.PtrConst) (ptr, n uint32) {
	b := shape.Bytes(v, 8)
	return binary.LittleEndian.Uint32(b), binary.LittleEndian.Uint32(b[4:])
}

func putPair(dst shape.PtrUninit, ptr, n uint32) {
	b := shape.Bytes(dst.Assume().Const(), 8)
	binary.LittleEndian.PutUint32(b, ptr)
	binary.LittleEndian.PutUint32(b[4:], n)
}
