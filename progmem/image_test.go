package progmem

import (
	"bytes"
	"io"
	"testing"

	"github.com/anupcshan/hex2dfu/intelhex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLayout(t *testing.T) {
	assert.Equal(t, 0x400, WindowStart)
	assert.Equal(t, 0x3EFE, ChecksumAddress)
}

func TestNewImageIsErased(t *testing.T) {
	img := New()

	require.Len(t, img.Bytes(), Size)
	assert.Equal(t, bytes.Repeat([]byte{0xFF, 0x3F}, Size/2), img.Bytes())
	assert.True(t, img.IsErased(ChecksumAddress))
	assert.Zero(t, img.Programmed())
	assert.NoError(t, img.Err())
}

func TestWriteAtBounds(t *testing.T) {
	tests := []struct {
		name        string
		addr        int64
		outOfBounds bool
		stored      bool
	}{
		{name: "last bootloader byte", addr: 0x3FF, outOfBounds: true},
		{name: "first application byte", addr: 0x400, stored: true},
		{name: "last program memory byte", addr: Size - 1, stored: true},
		{name: "past program memory", addr: Size},
		{name: "last window byte", addr: 0x7FFF},
		{name: "first byte past window", addr: 0x8000, outOfBounds: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := New()

			n, err := img.WriteAt([]byte{0xAA}, tt.addr)
			require.NoError(t, err)
			assert.Equal(t, 1, n)

			if tt.outOfBounds {
				var oob *OutOfBoundsError
				require.ErrorAs(t, img.Err(), &oob)
				assert.Equal(t, tt.addr, oob.First)
				assert.Equal(t, 1, oob.Count)
			} else {
				assert.NoError(t, img.Err())
			}

			if tt.stored {
				assert.Equal(t, byte(0xAA), img.Bytes()[tt.addr])
				assert.Equal(t, 1, img.Programmed())
			} else {
				assert.Zero(t, img.Programmed())
			}

			if !tt.outOfBounds && !tt.stored {
				assert.Equal(t, 1, img.Discarded())
			}
		})
	}
}

func TestWriteAtStraddlingWindowStart(t *testing.T) {
	img := New()

	_, err := img.WriteAt([]byte{0x01, 0x02, 0x03, 0x04}, 0x3FE)
	require.NoError(t, err)

	var oob *OutOfBoundsError
	require.ErrorAs(t, img.Err(), &oob)
	assert.Equal(t, int64(0x3FE), oob.First)
	assert.Equal(t, 2, oob.Count)

	assert.Equal(t, []byte{0xFF, 0x3F, 0x03, 0x04}, img.Bytes()[0x3FE:0x402])
}

func TestOutOfBoundsIsSticky(t *testing.T) {
	img := New()

	_, _ = img.WriteAt([]byte{0xAA}, 0x100)
	_, _ = img.WriteAt([]byte{0xBB}, 0x500)
	_, _ = img.WriteAt([]byte{0xCC}, 0x9000)

	var oob *OutOfBoundsError
	require.ErrorAs(t, img.Err(), &oob)
	assert.Equal(t, int64(0x100), oob.First)
	assert.Equal(t, 2, oob.Count)
	assert.Contains(t, oob.Error(), "supplied input file is faulty and used out-of-bounds addresses")

	assert.Equal(t, byte(0xBB), img.Bytes()[0x500])
}

func TestWords(t *testing.T) {
	img := New()

	assert.Equal(t, uint16(ErasedWord), img.Word(0x400))

	img.PutWord(ChecksumAddress, 0x1234)
	assert.Equal(t, uint16(0x1234), img.Word(ChecksumAddress))
	assert.Equal(t, []byte{0x34, 0x12}, img.Bytes()[ChecksumAddress:ChecksumAddress+2])
	assert.False(t, img.IsErased(ChecksumAddress))
	assert.Equal(t, 2, img.Programmed())
}

func TestReadAt(t *testing.T) {
	img := New()
	_, _ = img.WriteAt([]byte{0x12, 0x34}, 0x400)

	p := make([]byte, 4)
	n, err := img.ReadAt(p, 0x400)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, []byte{0x12, 0x34, 0xFF, 0x3F}, p)

	n, err = img.ReadAt(p, Size-2)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, 2, n)

	_, err = img.ReadAt(p, Size)
	assert.ErrorIs(t, err, io.EOF)
}

func TestRecords(t *testing.T) {
	img := New()
	_, _ = img.WriteAt(bytes.Repeat([]byte{0x11}, 20), 0x400)
	_, _ = img.WriteAt([]byte{0x22, 0x33}, 0x500)
	img.PutWord(ChecksumAddress, 0x0B86)

	records := img.Records(16)

	expected := []intelhex.Record{
		{Length: 16, Offset: 0x400, RecType: intelhex.Data, ReadOffset: 0x400},
		{Length: 4, Offset: 0x410, RecType: intelhex.Data, ReadOffset: 0x410},
		{Length: 2, Offset: 0x500, RecType: intelhex.Data, ReadOffset: 0x500},
		{Length: 2, Offset: ChecksumAddress, RecType: intelhex.Data, ReadOffset: ChecksumAddress},
		{RecType: intelhex.EndOfFile},
	}
	assert.Equal(t, expected, records)
}

func TestRecordsEmptyImage(t *testing.T) {
	assert.Equal(t, []intelhex.Record{{RecType: intelhex.EndOfFile}}, New().Records(0))
}

func TestImageFeedsParser(t *testing.T) {
	img := New()
	parser := intelhex.NewParser(bytes.NewBufferString(":020400001234B4\n:00000001FF\n"), img)
	for parser.HasNext() {
		require.NoError(t, parser.ReadRecord())
	}

	assert.Equal(t, uint16(0x3412), img.Word(0x400))
	assert.NoError(t, img.Err())
}
