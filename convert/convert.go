// Package convert turns an Intel HEX application image into a DFU file for
// the PIC16F1454 USB DFU bootloader.
//
// The pipeline runs entirely in memory:
//
//	intelhex.Parser -> progmem.Image -> CRC-14 at 0x3EFE -> dfu.Seal
//
// Nothing is written anywhere until the whole image has been built and
// validated.
package convert

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/anupcshan/hex2dfu/checksum"
	"github.com/anupcshan/hex2dfu/dfu"
	"github.com/anupcshan/hex2dfu/intelhex"
	"github.com/anupcshan/hex2dfu/progmem"
	"golang.org/x/exp/maps"
)

// Config holds the converter configuration.
type Config struct {
	// VendorID and ProductID go into the DFU suffix.
	VendorID  uint16
	ProductID uint16

	// Strict rejects input that is not well-formed Intel HEX instead of
	// decoding it leniently.
	Strict bool

	Logger *slog.Logger
}

func defaultConfig() Config {
	return Config{
		VendorID:  dfu.DefaultVendorID,
		ProductID: dfu.DefaultProductID,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// Option is a functional option for configuring the Converter.
type Option func(*Config)

func WithVendorID(id uint16) Option {
	return func(c *Config) {
		c.VendorID = id
	}
}

func WithProductID(id uint16) Option {
	return func(c *Config) {
		c.ProductID = id
	}
}

func WithStrict(strict bool) Option {
	return func(c *Config) {
		c.Strict = strict
	}
}

// WithLogger sets the logger used for per-conversion diagnostics. A nil
// logger is ignored.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

type Converter struct {
	cfg Config
}

func New(opts ...Option) *Converter {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Converter{cfg: cfg}
}

// Result describes one conversion.
type Result struct {
	Image *progmem.Image
	Stats intelhex.Stats

	// CRC14 is the bootloader checksum stored at progmem.ChecksumAddress.
	CRC14 uint16

	// Suffix is the sealed DFU suffix, CRC included.
	Suffix dfu.Suffix

	// Output is the complete DFU file. It is nil unless conversion
	// succeeded.
	Output []byte
}

// Convert reads Intel HEX from r and builds the DFU file in memory.
//
// When the input fails validation the error is an *progmem.OutOfBoundsError
// or a *CRCOverlapError (or a *MalformedInputError in strict mode), and the
// partial Result is still returned so callers can report on it.
func (c *Converter) Convert(r io.Reader) (*Result, error) {
	if c.cfg.Strict {
		input, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read input: %w", err)
		}
		if err := intelhex.Lint(bytes.NewReader(input)); err != nil {
			return nil, &MalformedInputError{Err: err}
		}
		r = bytes.NewReader(input)
	}

	img := progmem.New()
	parser := intelhex.NewParser(r, img)
	for parser.HasNext() {
		if err := parser.ReadRecord(); err != nil {
			return nil, fmt.Errorf("failed to read input: %w", err)
		}
	}

	res := &Result{
		Image: img,
		Stats: parser.Stats(),
	}
	c.logStats(res)

	if err := img.Err(); err != nil {
		return res, err
	}

	crc, err := placeCRC14(img)
	res.CRC14 = crc
	if err != nil {
		return res, err
	}

	out, suffix, err := dfu.Seal(img.Bytes(), dfu.NewSuffix(c.cfg.VendorID, c.cfg.ProductID))
	if err != nil {
		return res, err
	}
	res.Output = out
	res.Suffix = suffix

	c.cfg.Logger.Debug("sealed DFU image",
		"crc14", fmt.Sprintf("0x%04X", res.CRC14),
		"crc32", fmt.Sprintf("0x%08X", suffix.CRC),
		"vendor", fmt.Sprintf("0x%04X", suffix.Vendor),
		"product", fmt.Sprintf("0x%04X", suffix.Product),
		"size", len(out),
	)

	return res, nil
}

// placeCRC14 checksums the application area, which runs from the code offset
// up to the word below the high-endurance address, and stores the result in
// that word. The word must still be erased.
func placeCRC14(img *progmem.Image) (uint16, error) {
	crc := checksum.ModifiedCRC14(img.Bytes()[progmem.WindowStart:progmem.ChecksumAddress])

	if !img.IsErased(progmem.ChecksumAddress) {
		return crc, &CRCOverlapError{
			Address: progmem.ChecksumAddress,
			Found:   img.Word(progmem.ChecksumAddress),
		}
	}

	img.PutWord(progmem.ChecksumAddress, crc)

	return crc, nil
}

func (c *Converter) logStats(res *Result) {
	types := maps.Keys(res.Stats.Records)
	slices.Sort(types)
	for _, t := range types {
		c.cfg.Logger.Debug("parsed records", "type", t, "count", res.Stats.Records[t])
	}

	c.cfg.Logger.Debug("built program memory",
		"programmed_bytes", res.Image.Programmed(),
		"skipped_lines", res.Stats.SkippedLines,
		"gated_records", res.Stats.GatedRecords,
	)

	if n := res.Image.Discarded(); n > 0 {
		c.cfg.Logger.Warn("dropped data past the end of program memory", "bytes", n)
	}
}
