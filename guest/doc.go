// Package guest derives shapes from WIT type definitions and reads or
// builds values of those shapes directly in WASM linear memory.
//
// Values are laid out per the Component Model Canonical ABI:
//
//	Type            Size    Alignment
//	──────────────────────────────────
//	bool            1       1
//	u8/s8           1       1
//	u16/s16         2       2
//	u32/s32/f32     4       4
//	u64/s64/f64     8       8
//	char            4       4
//	string          8       4 (ptr + len)
//	list<T>         8       4 (ptr + len)
//	record/tuple    sum     max field align
//	variant         varies  max(discriminant, case align)
//	flags           1-8     by flag count
//	own/borrow      4       4 (handle)
//
// Primitive types reuse the Go scalar shapes, so guest values can be filled
// from Go values of the matching type. Strings and lists resolve their
// (ptr, len) pair against the Memory the Compiler was created for.
//
// Peeks into guest memory stay valid until the memory grows; wazero may move
// the backing buffer on growth.
package guest
