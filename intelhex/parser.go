package intelhex

import (
	"bufio"
	"fmt"
	"io"
	"maps"
)

type RecordType uint8

const (
	Data                  RecordType = 0x00
	EndOfFile             RecordType = 0x01
	ExtendedLinearAddress RecordType = 0x04
)

func (t RecordType) String() string {
	switch t {
	case Data:
		return "data"
	case EndOfFile:
		return "end_of_file"
	case ExtendedLinearAddress:
		return "extended_linear_address"
	default:
		return fmt.Sprintf("type_%02x", uint8(t))
	}
}

// Fixed column offsets of a record line, counting the leading ':'.
const (
	lengthColumn  = 1
	offsetColumn  = 3
	typeColumn    = 7
	payloadColumn = 9
)

type Record struct {
	Length     uint8
	Offset     uint16
	RecType    RecordType
	ReadOffset int64
	Body       []byte
}

// Stats counts what a Parser saw on its way through the input.
type Stats struct {
	// Records holds the number of recognised records per type, including
	// data records that were ignored because of a non-zero upper address.
	Records map[RecordType]int

	// SkippedLines counts lines that do not start with ':' and records of
	// unsupported types.
	SkippedLines int

	// GatedRecords counts data records that followed a non-zero extended
	// linear address and were therefore ignored.
	GatedRecords int

	// DataBytes is the number of payload bytes handed to the writer.
	DataBytes int
}

type Parser struct {
	scanner *bufio.Scanner
	w       io.WriterAt

	upperAddress uint16
	stats        Stats

	eof bool
}

func NewParser(r io.Reader, w io.WriterAt) *Parser {
	return &Parser{
		scanner: bufio.NewScanner(r),
		w:       w,
		stats: Stats{
			Records: make(map[RecordType]int),
		},
	}
}

// ReadRecord consumes one line of input.
// https://en.wikipedia.org/wiki/Intel_HEX#Format
//
// The line checksum is not verified and malformed hex digits decode as zero.
// Data records are only honoured while the extended linear address is zero;
// their payload goes to the writer at the record's 16-bit offset.
func (p *Parser) ReadRecord() error {
	if p.eof {
		return io.EOF
	}

	if !p.scanner.Scan() {
		p.eof = true
		return p.scanner.Err()
	}

	line := p.scanner.Text()
	if len(line) == 0 || line[0] != ':' {
		p.stats.SkippedLines++
		return nil
	}

	recType, ok := recordType(line)
	if !ok {
		p.stats.SkippedLines++
		return nil
	}
	p.stats.Records[recType]++

	switch recType {
	case Data:
		if p.upperAddress != 0 {
			p.stats.GatedRecords++
			return nil
		}

		length := uint8(readHex(line, lengthColumn, 2))
		offset := uint16(readHex(line, offsetColumn, 4))

		body := make([]byte, length)
		for i := range body {
			body[i] = byte(readHex(line, payloadColumn+2*i, 2))
		}

		if _, err := p.w.WriteAt(body, int64(offset)); err != nil {
			return err
		}
		p.stats.DataBytes += len(body)
	case EndOfFile:
		p.eof = true
	case ExtendedLinearAddress:
		p.upperAddress = uint16(readHex(line, payloadColumn, 4))
	}

	return nil
}

func (p *Parser) HasNext() bool {
	return !p.eof
}

func (p *Parser) Stats() Stats {
	s := p.stats
	s.Records = maps.Clone(p.stats.Records)
	return s
}

// recordType matches the two type characters literally, so a type field
// with stray characters is never mistaken for a supported record.
func recordType(line string) (RecordType, bool) {
	if len(line) < payloadColumn {
		return 0, false
	}

	switch line[typeColumn:payloadColumn] {
	case "00":
		return Data, true
	case "01":
		return EndOfFile, true
	case "04":
		return ExtendedLinearAddress, true
	}

	return 0, false
}

// readHex decodes digits characters of s starting at off, most significant
// first. Anything that is not a hex digit, including positions past the end
// of s, contributes a zero nibble.
func readHex(s string, off, digits int) uint32 {
	var v uint32
	for i := off; i < off+digits; i++ {
		v <<= 4
		if i < len(s) {
			v += uint32(nibble(s[i]))
		}
	}

	return v
}

func nibble(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	}

	return 0
}
