package convert

import (
	"encoding/binary"
	"fmt"

	"github.com/anupcshan/hex2dfu/checksum"
	"github.com/anupcshan/hex2dfu/dfu"
	"github.com/anupcshan/hex2dfu/progmem"
)

// Verification is what VerifyImage found in a DFU file.
type Verification struct {
	Suffix dfu.Suffix
	CRC14  uint16
}

// VerifyImage checks a DFU file produced by Convert: the suffix CRC-32, the
// file size, and the CRC-14 stored for the bootloader.
func VerifyImage(file []byte) (*Verification, error) {
	suffix, err := dfu.Verify(file)
	if err != nil {
		return nil, err
	}

	if len(file) != progmem.Size+dfu.SuffixLength {
		return nil, fmt.Errorf("unexpected image size: got %d bytes, expected %d",
			len(file), progmem.Size+dfu.SuffixLength)
	}

	stored := binary.LittleEndian.Uint16(file[progmem.ChecksumAddress:])
	calculated := checksum.ModifiedCRC14(file[progmem.WindowStart:progmem.ChecksumAddress])
	if stored != calculated {
		return nil, fmt.Errorf("CRC-14 mismatch: stored 0x%04X, calculated 0x%04X", stored, calculated)
	}

	return &Verification{
		Suffix: suffix,
		CRC14:  stored,
	}, nil
}
