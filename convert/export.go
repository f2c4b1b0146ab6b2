package convert

import (
	"io"

	"github.com/anupcshan/hex2dfu/intelhex"
	"github.com/anupcshan/hex2dfu/progmem"
)

// exportLineLength is the data bytes per record, matching what MPLAB emits.
const exportLineLength = 16

// ExportHex writes every programmed byte of img, the stored CRC-14 included,
// as Intel HEX. Erased memory is left out.
func ExportHex(img *progmem.Image, w io.Writer) error {
	encoder := intelhex.NewEncoder(img, w, img.Records(exportLineLength))
	return encoder.EncodeRecords()
}
