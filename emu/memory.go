package emu

// MemorySize is the size of the LC-3b address space in bytes.
const MemorySize = 1 << 16

// Memory is the byte-addressable LC-3b memory. Words are little-endian.
type Memory struct {
	data [MemorySize]byte
}

// NewMemory creates a zeroed memory.
func NewMemory() *Memory {
	return &Memory{}
}

// Read8 reads a byte.
func (m *Memory) Read8(addr uint16) uint8 {
	return m.data[addr]
}

// Write8 writes a byte.
func (m *Memory) Write8(addr uint16, value uint8) {
	m.data[addr] = value
}

// Read16 reads the little-endian word at addr and addr+1.
func (m *Memory) Read16(addr uint16) uint16 {
	return uint16(m.data[addr]) | uint16(m.data[addr+1])<<8
}

// Write16 writes a little-endian word at addr and addr+1.
func (m *Memory) Write16(addr uint16, value uint16) {
	m.data[addr] = uint8(value)
	m.data[addr+1] = uint8(value >> 8)
}

// LoadProgram stores words consecutively starting at origin.
func (m *Memory) LoadProgram(origin uint16, words []uint16) {
	addr := origin
	for _, w := range words {
		m.Write16(addr, w)
		addr += 2
	}
}

// Clone returns an independent copy of the memory.
func (m *Memory) Clone() *Memory {
	c := *m
	return &c
}

// Equal reports whether both memories hold the same bytes.
func (m *Memory) Equal(o *Memory) bool {
	return m.data == o.data
}
