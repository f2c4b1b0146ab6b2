// Package checksum implements the two checksums a bootloader DFU image
// carries: the bootloader's own modified CRC-14 over the application, and
// the CRC-32 of the DFU suffix.
package checksum

import "encoding/binary"

// CRC14Polynomial is the feedback constant of the bootloader's CRC-14.
const CRC14Polynomial = 0x23B1

// CRC14 folds one 16-bit word into crc. This is a modified CRC-14: it shifts
// in all 16 bits of the word even though flash words only hold 14.
func CRC14(data, crc uint16) uint16 {
	for bit := 0; bit < 16; bit++ {
		feedback := (data ^ crc) & 1
		crc >>= 1
		if feedback != 0 {
			crc ^= CRC14Polynomial
		}
		data >>= 1
	}

	return crc
}

// ModifiedCRC14 folds every little-endian word of window into a register
// starting at zero. A trailing odd byte is ignored.
func ModifiedCRC14(window []byte) uint16 {
	var crc uint16
	for i := 0; i+1 < len(window); i += 2 {
		crc = CRC14(binary.LittleEndian.Uint16(window[i:]), crc)
	}

	return crc
}
