package intelhex

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flatMemory is a 64K sink covering every address a 16-bit offset can reach.
type flatMemory []byte

func newFlatMemory() flatMemory {
	return make(flatMemory, 1<<16)
}

func (m flatMemory) WriteAt(p []byte, off int64) (int, error) {
	return copy(m[off:], p), nil
}

func parseAll(t *testing.T, input string, w io.WriterAt) *Parser {
	t.Helper()

	parser := NewParser(strings.NewReader(input), w)
	for parser.HasNext() {
		require.NoError(t, parser.ReadRecord())
	}

	return parser
}

func TestParserDataRecord(t *testing.T) {
	mem := newFlatMemory()
	parser := parseAll(t, ":020400001234B4\n:00000001FF\n", mem)

	assert.Equal(t, []byte{0x12, 0x34}, []byte(mem[0x400:0x402]))

	stats := parser.Stats()
	assert.Equal(t, 1, stats.Records[Data])
	assert.Equal(t, 1, stats.Records[EndOfFile])
	assert.Equal(t, 2, stats.DataBytes)
	assert.Zero(t, stats.SkippedLines)

	assert.False(t, parser.HasNext())
	assert.ErrorIs(t, parser.ReadRecord(), io.EOF)
}

func TestParserTolerantDecoding(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		expected []byte
	}{
		{
			name:     "lower case digits",
			line:     ":02040000abcd00",
			expected: []byte{0xAB, 0xCD},
		},
		{
			name:     "invalid digits decode as zero",
			line:     ":02040000zz34B4",
			expected: []byte{0x00, 0x34},
		},
		{
			name:     "payload past end of line",
			line:     ":0204000012",
			expected: []byte{0x12, 0x00},
		},
		{
			name:     "bad checksum is ignored",
			line:     ":020400001234FF",
			expected: []byte{0x12, 0x34},
		},
		{
			name:     "CRLF line ending",
			line:     ":020400001234B4\r",
			expected: []byte{0x12, 0x34},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := newFlatMemory()
			parseAll(t, tt.line+"\n", mem)
			assert.Equal(t, tt.expected, []byte(mem[0x400:0x402]))
		})
	}
}

func TestParserSkipsUnrecognisedLines(t *testing.T) {
	input := strings.Join([]string{
		"",
		"garbage",
		":020000021000EC",     // extended segment address
		":0400000500000000F7", // start linear address
		":0204000x1234B4",
		":00000001FF",
	}, "\n")

	mem := newFlatMemory()
	parser := parseAll(t, input, mem)

	stats := parser.Stats()
	assert.Equal(t, 5, stats.SkippedLines)
	assert.Equal(t, 1, stats.Records[EndOfFile])
	assert.Zero(t, stats.Records[Data])
	assert.Equal(t, newFlatMemory(), mem)
}

func TestParserExtendedLinearAddressGatesData(t *testing.T) {
	input := strings.Join([]string{
		":020000040001F9",
		":020400001234B4",
		":020000040000FA",
		":020402005678A4",
		":00000001FF",
	}, "\n")

	mem := newFlatMemory()
	parser := parseAll(t, input, mem)

	assert.Equal(t, []byte{0x00, 0x00, 0x56, 0x78}, []byte(mem[0x400:0x404]))

	stats := parser.Stats()
	assert.Equal(t, 2, stats.Records[Data])
	assert.Equal(t, 2, stats.Records[ExtendedLinearAddress])
	assert.Equal(t, 1, stats.GatedRecords)
	assert.Equal(t, 2, stats.DataBytes)
}

func TestParserStopsAtEndOfFile(t *testing.T) {
	mem := newFlatMemory()
	parser := parseAll(t, ":00000001FF\n:020400001234B4\n", mem)

	assert.Equal(t, newFlatMemory(), mem)
	assert.Zero(t, parser.Stats().Records[Data])
}

func TestParserWithoutEndOfFile(t *testing.T) {
	mem := newFlatMemory()
	parser := parseAll(t, ":020400001234B4", mem)

	assert.False(t, parser.HasNext())
	assert.Equal(t, []byte{0x12, 0x34}, []byte(mem[0x400:0x402]))
}

type failingWriter struct{}

func (failingWriter) WriteAt([]byte, int64) (int, error) {
	return 0, errors.New("write failed")
}

func TestParserPropagatesWriterError(t *testing.T) {
	parser := NewParser(strings.NewReader(":020400001234B4\n"), failingWriter{})
	assert.EqualError(t, parser.ReadRecord(), "write failed")
}

func TestParserStatsIsACopy(t *testing.T) {
	parser := parseAll(t, ":020400001234B4\n:00000001FF\n", newFlatMemory())

	stats := parser.Stats()
	stats.Records[Data] = 100

	assert.Equal(t, 1, parser.Stats().Records[Data])
}

func TestRecordTypeString(t *testing.T) {
	assert.Equal(t, "data", Data.String())
	assert.Equal(t, "end_of_file", EndOfFile.String())
	assert.Equal(t, "extended_linear_address", ExtendedLinearAddress.String())
	assert.Equal(t, "type_05", RecordType(5).String())
}
