package checksum

import "github.com/snksoft/crc"

// DFUSuffixCRC is CRC-32/IEEE without the final inversion: the register is
// preset to all ones and its raw value is stored, which is what the
// bootloader's verifier compares against.
var DFUSuffixCRC = &crc.Parameters{
	Width:      32,
	Polynomial: 0x04C11DB7,
	ReflectIn:  true,
	ReflectOut: true,
	Init:       0xFFFFFFFF,
	FinalXor:   0x00000000,
}

// CRC32 computes DFUSuffixCRC over the concatenation of data.
func CRC32(data ...[]byte) uint32 {
	h := crc.NewHash(DFUSuffixCRC)
	for _, p := range data {
		_, _ = h.Write(p)
	}

	return h.CRC32()
}
