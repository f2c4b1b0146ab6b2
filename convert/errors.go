package convert

import (
	"fmt"

	"github.com/anupcshan/hex2dfu/progmem"
	"github.com/pkg/errors"
)

// CRCOverlapError indicates that the application already put something in
// the word reserved for the bootloader's CRC-14.
type CRCOverlapError struct {
	Address int
	Found   uint16
}

func (e *CRCOverlapError) Error() string {
	return fmt.Sprintf("CRC address was occupied; app is in conflict with bootloader (0x%04X holds 0x%04X)",
		e.Address, e.Found)
}

// MalformedInputError wraps the reason strict mode rejected the input.
type MalformedInputError struct {
	Err error
}

func (e *MalformedInputError) Error() string {
	return e.Err.Error()
}

func (e *MalformedInputError) Unwrap() error {
	return e.Err
}

// IsValidationError returns true if err means the input was read fine but
// cannot be turned into a DFU image.
func IsValidationError(err error) bool {
	var (
		oob       *progmem.OutOfBoundsError
		overlap   *CRCOverlapError
		malformed *MalformedInputError
	)

	return errors.As(err, &oob) || errors.As(err, &overlap) || errors.As(err, &malformed)
}
