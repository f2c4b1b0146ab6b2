package intelhex

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"io"
	"strings"
)

type Encoder struct {
	r io.ReaderAt
	w io.Writer

	Records []Record
}

func NewEncoder(r io.ReaderAt, w io.Writer, records []Record) *Encoder {
	return &Encoder{
		r:       r,
		w:       w,
		Records: records,
	}
}

func (e *Encoder) EncodeRecords() error {
	for _, record := range e.Records {
		if err := e.encodeRecord(record); err != nil {
			return err
		}
	}

	return nil
}

func (e *Encoder) encodeRecord(r Record) error {
	raw := new(bytes.Buffer)
	if err := binary.Write(raw, binary.BigEndian, r.Length); err != nil {
		return err
	}
	if err := binary.Write(raw, binary.BigEndian, r.Offset); err != nil {
		return err
	}
	if err := binary.Write(raw, binary.BigEndian, uint8(r.RecType)); err != nil {
		return err
	}

	body := make([]byte, r.Length)

	switch r.RecType {
	case Data:
		if _, err := e.r.ReadAt(body, r.ReadOffset); err != nil {
			return err
		}
	case ExtendedLinearAddress:
		body = r.Body
	}

	raw.Write(body)
	raw.WriteByte(Checksum(raw.Bytes()))

	line := ":" + strings.ToUpper(hex.EncodeToString(raw.Bytes())) + "\n"
	if _, err := io.WriteString(e.w, line); err != nil {
		return err
	}

	return nil
}

// Checksum returns the two's complement of the byte sum of a record.
func Checksum(p []byte) byte {
	var sum uint8
	for _, b := range p {
		sum += b
	}

	return ^sum + 1
}
