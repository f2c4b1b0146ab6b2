// Package progmem models the program memory of a PIC16F1454 as seen by the
// USB DFU bootloader: 8K 14-bit words stored as 16384 little-endian bytes.
package progmem

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/anupcshan/hex2dfu/intelhex"
	"github.com/bits-and-blooms/bitset"
)

const (
	// Size is the program memory size in bytes.
	Size = 16384

	// CodeOffset is the word address where the application starts. Everything
	// below it belongs to the bootloader.
	CodeOffset = 0x200

	// HighEnduranceAddress is the word address just past the application's
	// checksummed area. The word right below it holds the CRC-14.
	HighEnduranceAddress = 0x1F80

	// WindowStart and WindowEnd bound the byte addresses an input file may
	// write to.
	WindowStart = CodeOffset << 1
	WindowEnd   = 0x8000

	// ChecksumAddress is the byte offset of the stored CRC-14 word.
	ChecksumAddress = HighEnduranceAddress<<1 - 2

	// ErasedWord is what an unprogrammed 14-bit flash word reads back as.
	ErasedWord = 0x3FFF
)

// OutOfBoundsError reports data that targeted the bootloader area or memory
// past WindowEnd.
type OutOfBoundsError struct {
	// First is the address of the first rejected byte.
	First int64

	// Count is the number of rejected bytes.
	Count int
}

func (e *OutOfBoundsError) Error() string {
	return fmt.Sprintf("supplied input file is faulty and used out-of-bounds addresses (first 0x%04X, %d bytes)",
		e.First, e.Count)
}

// Image is a program memory image. Bytes nobody wrote keep the erased
// pattern. It implements io.WriterAt so an intelhex.Parser can fill it.
type Image struct {
	buf     []byte
	written *bitset.BitSet

	outOfBounds *OutOfBoundsError
	discarded   int
}

func New() *Image {
	m := &Image{
		buf:     make([]byte, Size),
		written: bitset.New(Size),
	}

	for addr := 0; addr < Size; addr += 2 {
		binary.LittleEndian.PutUint16(m.buf[addr:], ErasedWord)
	}

	return m
}

// WriteAt stores p at byte address off. Bytes outside [WindowStart,
// WindowEnd) are dropped and remembered for Err. Bytes inside the window but
// past the end of program memory are dropped silently. WriteAt always
// accepts all of p.
func (m *Image) WriteAt(p []byte, off int64) (int, error) {
	for i, b := range p {
		addr := off + int64(i)

		switch {
		case addr < WindowStart || addr >= WindowEnd:
			m.reject(addr)
		case addr >= Size:
			m.discarded++
		default:
			m.buf[addr] = b
			m.written.Set(uint(addr))
		}
	}

	return len(p), nil
}

func (m *Image) reject(addr int64) {
	if m.outOfBounds == nil {
		m.outOfBounds = &OutOfBoundsError{First: addr}
	}
	m.outOfBounds.Count++
}

func (m *Image) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off >= int64(len(m.buf)) {
		return 0, io.EOF
	}

	n := copy(p, m.buf[off:])
	if n < len(p) {
		return n, io.EOF
	}

	return n, nil
}

// Err returns an *OutOfBoundsError once any write was rejected. The state is
// sticky: later valid writes do not clear it.
func (m *Image) Err() error {
	if m.outOfBounds == nil {
		return nil
	}

	return m.outOfBounds
}

// Bytes returns the backing program memory. It is not a copy.
func (m *Image) Bytes() []byte {
	return m.buf
}

func (m *Image) Word(addr int) uint16 {
	return binary.LittleEndian.Uint16(m.buf[addr:])
}

func (m *Image) PutWord(addr int, v uint16) {
	binary.LittleEndian.PutUint16(m.buf[addr:], v)
	m.written.Set(uint(addr))
	m.written.Set(uint(addr + 1))
}

func (m *Image) IsErased(addr int) bool {
	return m.Word(addr) == ErasedWord
}

// Programmed returns how many distinct bytes were written.
func (m *Image) Programmed() int {
	return int(m.written.Count())
}

// Discarded returns how many bytes landed inside the legal window but past
// the end of program memory.
func (m *Image) Discarded() int {
	return m.discarded
}

// Records describes every written byte as Intel HEX data records of at most
// lineLength bytes, followed by an end-of-file record. ReadOffset of each
// data record points into the image, so the result can be handed straight
// to an intelhex.Encoder reading from m.
func (m *Image) Records(lineLength int) []intelhex.Record {
	if lineLength <= 0 || lineLength > 0xFF {
		lineLength = 16
	}

	var records []intelhex.Record

	start, ok := m.written.NextSet(0)
	for ok {
		end := start + 1
		for end < Size && m.written.Test(end) && end-start < uint(lineLength) {
			end++
		}

		records = append(records, intelhex.Record{
			Length:     uint8(end - start),
			Offset:     uint16(start),
			RecType:    intelhex.Data,
			ReadOffset: int64(start),
		})

		start, ok = m.written.NextSet(end)
	}

	return append(records, intelhex.Record{RecType: intelhex.EndOfFile})
}

var _ io.WriterAt = (*Image)(nil)
var _ io.ReaderAt = (*Image)(nil)
