// Package dfu encodes and checks the 16-byte trailer that USB DFU 1.1 host
// tools expect at the end of a firmware file.
//
// Layout, all multi-byte fields little-endian:
//
//	bcdDevice(2) idProduct(2) idVendor(2) bcdDFU(2) ucDfuSignature(3) bLength(1) dwCRC(4)
package dfu

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/anupcshan/hex2dfu/checksum"
)

const (
	// SuffixLength is the size of the trailer in bytes.
	SuffixLength = 16

	// AnyDevice is the bcdDevice wildcard.
	AnyDevice = 0xFFFF

	// Version is the bcdDFU this trailer format belongs to.
	Version = 0x0100

	DefaultVendorID  = 0x1234
	DefaultProductID = 0x0001

	// crcOffset is where dwCRC starts inside the trailer. The CRC covers
	// everything before it.
	crcOffset = SuffixLength - 4
)

// Signature is ucDfuSignature, "DFU" stored back to front.
var Signature = [3]byte{'U', 'F', 'D'}

type Suffix struct {
	Device     uint16
	Product    uint16
	Vendor     uint16
	DFUVersion uint16
	Signature  [3]byte
	Length     uint8
	CRC        uint32
}

func NewSuffix(vendor, product uint16) Suffix {
	return Suffix{
		Device:     AnyDevice,
		Product:    product,
		Vendor:     vendor,
		DFUVersion: Version,
		Signature:  Signature,
		Length:     SuffixLength,
	}
}

func (s Suffix) MarshalBinary() ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, SuffixLength))
	if err := binary.Write(buf, binary.LittleEndian, s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *Suffix) UnmarshalBinary(data []byte) error {
	if len(data) != SuffixLength {
		return fmt.Errorf("invalid suffix length: got %d bytes, expected %d", len(data), SuffixLength)
	}

	return binary.Read(bytes.NewReader(data), binary.LittleEndian, s)
}

// Seal returns image followed by s, with dwCRC computed over the image and
// the first twelve bytes of the trailer. The returned Suffix carries the CRC.
func Seal(image []byte, s Suffix) ([]byte, Suffix, error) {
	trailer, err := s.MarshalBinary()
	if err != nil {
		return nil, s, fmt.Errorf("failed to encode suffix: %w", err)
	}

	out := make([]byte, 0, len(image)+SuffixLength)
	out = append(out, image...)
	out = append(out, trailer[:crcOffset]...)

	s.CRC = checksum.CRC32(out)
	out = binary.LittleEndian.AppendUint32(out, s.CRC)

	return out, s, nil
}

// Verify decodes the trailer at the end of file and checks its signature,
// length and CRC.
func Verify(file []byte) (Suffix, error) {
	var s Suffix

	if len(file) < SuffixLength {
		return s, fmt.Errorf("file too short: got %d bytes, need at least %d", len(file), SuffixLength)
	}

	if err := s.UnmarshalBinary(file[len(file)-SuffixLength:]); err != nil {
		return s, err
	}

	if s.Signature != Signature {
		return s, fmt.Errorf("invalid DFU signature %q", s.Signature[:])
	}

	if s.Length != SuffixLength {
		return s, fmt.Errorf("invalid suffix bLength: got %d, expected %d", s.Length, SuffixLength)
	}

	if actual := checksum.CRC32(file[:len(file)-4]); actual != s.CRC {
		return s, &CRCMismatchError{Expected: s.CRC, Actual: actual}
	}

	return s, nil
}

// CRCMismatchError indicates that dwCRC does not match the file contents.
type CRCMismatchError struct {
	Expected uint32
	Actual   uint32
}

func (e *CRCMismatchError) Error() string {
	return fmt.Sprintf("DFU suffix CRC mismatch: stored 0x%08X, calculated 0x%08X", e.Expected, e.Actual)
}
