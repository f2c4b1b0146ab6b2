package intelhex

import (
	"bytes"
	"fmt"
	"io"

	"github.com/marcinbor85/gohex"
)

// Lint reports whether r is well-formed Intel HEX: every line starts with a
// colon, decodes as hex, has a consistent length and checksum, no two data
// records overlap, and the input ends with an end-of-file record. Parser
// tolerates all of these problems. CRLF line endings are accepted.
func Lint(r io.Reader) error {
	input, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	input = bytes.ReplaceAll(input, []byte("\r\n"), []byte("\n"))

	mem := gohex.NewMemory()
	if err := mem.ParseIntelHex(bytes.NewReader(input)); err != nil {
		return fmt.Errorf("malformed intel hex: %w", err)
	}

	return nil
}
