// Package bytecode is Cab's compiled instruction format: a flat byte
// stream, a sorted span map for error locations, and a value pool.
// Variable-length integer arguments are encoded with protowire's varint
// routines rather than a hand-rolled scheme.
package bytecode

import (
	"encoding/binary"

	"github.com/fxamacker/cbor/v2"
	"google.golang.org/protobuf/encoding/protowire"

	"cull-os/cab/internal/invariant"
	"cull-os/cab/internal/position"
)

// canonicalEncMode produces deterministic CBOR output (sorted map keys,
// shortest-form integers).
var canonicalEncMode = func() cbor.EncMode {
	mode, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return mode
}()

// Opcode is a single-byte instruction tag.
type Opcode byte

const (
	Push Opcode = iota
	Pop
	Swap

	Jump
	JumpIf
	JumpIfError

	Force

	ScopeStart
	ScopeEnd
	ScopePush
	ScopeSwap

	Resolve
	Interpolate
	AssertBoolean

	Addition
	Subtraction
	Multiplication
	Power
	Division
	Concat
	Construct
	Update
	LessOrEqual
	Less
	MoreOrEqual
	More
	Equal
	Not
	All
	Any
	Negation
	Swwallation

	Call
)

var opcodeNames = [...]string{
	Push: "Push", Pop: "Pop", Swap: "Swap",
	Jump: "Jump", JumpIf: "JumpIf", JumpIfError: "JumpIfError",
	Force: "Force",
	ScopeStart: "ScopeStart", ScopeEnd: "ScopeEnd", ScopePush: "ScopePush", ScopeSwap: "ScopeSwap",
	Resolve: "Resolve", Interpolate: "Interpolate", AssertBoolean: "AssertBoolean",
	Addition: "Addition", Subtraction: "Subtraction", Multiplication: "Multiplication",
	Power: "Power", Division: "Division", Concat: "Concat", Construct: "Construct",
	Update: "Update", LessOrEqual: "LessOrEqual", Less: "Less", MoreOrEqual: "MoreOrEqual",
	More: "More", Equal: "Equal", Not: "Not", All: "All", Any: "Any",
	Negation: "Negation", Swwallation: "Swwallation", Call: "Call",
}

func (op Opcode) String() string {
	if int(op) < len(opcodeNames) && opcodeNames[op] != "" {
		return opcodeNames[op]
	}
	return "Unknown"
}

// Value is the marker interface implemented by every variant the
// evaluator's value model (package value) stores in a Code's value pool.
// It lives here, not in package value, so bytecode has no import-cycle
// dependency on the package that models values - value.Suspend and
// value.Lambda hold a *bytecode.Code directly.
type Value interface {
	// CabValue is a marker method; package value's variants implement it
	// and nothing else is expected to.
	CabValue()
}

// SpanEntry is one row of a Code's span map: the byte index of the first
// instruction that uses span.
type SpanEntry struct {
	ByteIndex int
	Span      position.Span
}

// Code is a self-contained compiled unit: bytes, a sorted span map, and a
// value pool. Nested codes (sub-thunks) live as Suspend/Lambda values
// inside Values.
type Code struct {
	Bytes  []byte
	Spans  []SpanEntry
	Values []Value
}

// SpanAt returns the span most recently recorded at or before byteIndex -
// the greatest stored (byte_index_k, span_k) with byte_index_k <=
// byteIndex.
func (c *Code) SpanAt(byteIndex int) position.Span {
	lo, hi := 0, len(c.Spans)
	for lo < hi {
		mid := (lo + hi) / 2
		if c.Spans[mid].ByteIndex <= byteIndex {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo == 0 {
		return position.Span{}
	}
	return c.Spans[lo-1].Span
}

// Builder accumulates a Code's bytes, span map, and value pool as the
// compiler lowers expressions.
type Builder struct {
	bytes  []byte
	spans  []SpanEntry
	values []Value
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// PushValue appends v to the value pool and returns its index.
func (b *Builder) PushValue(v Value) int {
	b.values = append(b.values, v)
	return len(b.values) - 1
}

// Len returns the number of bytes emitted so far (the byte index the next
// instruction will occupy).
func (b *Builder) Len() int {
	return len(b.bytes)
}

// recordSpan appends a span-map entry at the current byte index, skipping
// the write if it would duplicate the previous entry's span - "contiguous
// writes with the same span are deduplicated".
func (b *Builder) recordSpan(span position.Span) {
	if n := len(b.spans); n > 0 && b.spans[n-1].Span == span {
		return
	}
	b.spans = append(b.spans, SpanEntry{ByteIndex: len(b.bytes), Span: span})
}

// Op emits a bare opcode with no argument.
func (b *Builder) Op(op Opcode, span position.Span) {
	b.recordSpan(span)
	b.bytes = append(b.bytes, byte(op))
}

// OpVarint emits an opcode followed by a protobuf (LEB128) varint-encoded
// u64 argument (value-pool indices, interpolation arity), up to ten bytes.
func (b *Builder) OpVarint(op Opcode, arg uint64, span position.Span) {
	b.recordSpan(span)
	b.bytes = append(b.bytes, byte(op))
	b.bytes = protowire.AppendVarint(b.bytes, arg)
}

// OpU16 emits an opcode followed by a little-endian two-byte argument
// (jump targets).
func (b *Builder) OpU16(op Opcode, arg uint16, span position.Span) {
	b.recordSpan(span)
	b.bytes = append(b.bytes, byte(op))
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], arg)
	b.bytes = append(b.bytes, buf[:]...)
}

// PatchU16 overwrites a previously emitted two-byte argument at byteIndex
// (the byte right after the opcode) - used to back-patch forward jump
// targets once the jump destination is known.
func (b *Builder) PatchU16(byteIndex int, arg uint16) {
	invariant.InRange(byteIndex, 0, len(b.bytes)-2, "jump patch offset")
	binary.LittleEndian.PutUint16(b.bytes[byteIndex:byteIndex+2], arg)
}

// Finish returns the built Code.
func (b *Builder) Finish() *Code {
	return &Code{Bytes: b.bytes, Spans: b.spans, Values: b.values}
}

// Reader walks a Code's bytes, decoding opcodes and arguments in order.
type Reader struct {
	code *Code
	pos  int
}

// NewReader returns a Reader positioned at the start of code.
func NewReader(code *Code) *Reader {
	return &Reader{code: code}
}

// Pos returns the current byte index.
func (r *Reader) Pos() int { return r.pos }

// Seek jumps the reader to an absolute byte index (a Jump instruction's
// target).
func (r *Reader) Seek(pos int) { r.pos = pos }

// Done reports whether the reader has consumed every byte.
func (r *Reader) Done() bool { return r.pos >= len(r.code.Bytes) }

// Next decodes the opcode at the current position and advances past it,
// without decoding any argument.
func (r *Reader) Next() Opcode {
	invariant.Invariant(r.pos < len(r.code.Bytes), "bytecode reader ran past end of code")
	op := Opcode(r.code.Bytes[r.pos])
	r.pos++
	return op
}

// ReadVarint decodes a u64 argument at the current position.
func (r *Reader) ReadVarint() uint64 {
	v, n := protowire.ConsumeVarint(r.code.Bytes[r.pos:])
	invariant.Invariant(n > 0, "malformed varint in bytecode")
	r.pos += n
	return v
}

// ReadU16 decodes a little-endian two-byte argument at the current
// position.
func (r *Reader) ReadU16() uint16 {
	invariant.InRange(r.pos, 0, len(r.code.Bytes)-2, "bytecode reader u16 read")
	v := binary.LittleEndian.Uint16(r.code.Bytes[r.pos : r.pos+2])
	r.pos += 2
	return v
}

// SpanAt returns the span recorded for the instruction at byteIndex.
func (r *Reader) SpanAt(byteIndex int) position.Span {
	return r.code.SpanAt(byteIndex)
}

// Value returns the pool value at index.
func (c *Code) Value(index int) Value {
	invariant.InRange(index, 0, len(c.Values)-1, "value pool index")
	return c.Values[index]
}

// canonicalSpan is Canonical's wire shape for one SpanEntry.
type canonicalSpan struct {
	ByteIndex int `cbor:"1,keyasint"`
	Start     int `cbor:"2,keyasint"`
	End       int `cbor:"3,keyasint"`
}

// canonicalCode is Canonical's wire shape: the instruction stream and span
// map only. The value pool is excluded - its entries satisfy the opaque
// Value marker interface, so this package has no way to encode them
// generically, and bytecode *shape* never depends on pool contents.
type canonicalCode struct {
	Bytes []byte          `cbor:"1,keyasint"`
	Spans []canonicalSpan `cbor:"2,keyasint"`
}

// Canonical returns a deterministic CBOR encoding of c's bytes and span
// map, stable across repeated compiles of identical source. No test in
// this repository calls it.
func (c *Code) Canonical() ([]byte, error) {
	spans := make([]canonicalSpan, len(c.Spans))
	for i, s := range c.Spans {
		spans[i] = canonicalSpan{ByteIndex: s.ByteIndex, Start: s.Span.Start, End: s.Span.End}
	}
	return canonicalEncMode.Marshal(canonicalCode{Bytes: c.Bytes, Spans: spans})
}
