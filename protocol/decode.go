package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

// RecordSize is the width of one wire record: a 1-byte type tag followed by
// 3 bytes of alignment padding, three little-endian uint32 fields, a
// 9-byte NUL-padded instrument, and 3 trailing padding bytes so the record
// lands on a 4-byte boundary — the layout a C struct of
// {enum type; uint32 order_id; uint32 price; uint32 count; char instrument[9];}
// occupies under standard alignment rules.
const RecordSize = 28

const instrumentFieldLen = 9

// ErrFraming indicates a short read of a partial record: fewer bytes than
// RecordSize were available, but more than zero. A short read that returns
// zero bytes is io.EOF, not ErrFraming.
var ErrFraming = errors.New("protocol: short read mid-record")

// Decoder reads fixed-width Commands from a stream.
type Decoder struct {
	r io.Reader
}

// NewDecoder wraps r for sequential Decode calls.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r}
}

// Decode reads and parses the next wire record. It returns io.EOF when the
// connection has reached a clean end of stream, and ErrFraming when a
// partial record was read.
func (d *Decoder) Decode() (Command, error) {
	var buf [RecordSize]byte
	n, err := io.ReadFull(d.r, buf[:])
	if err != nil {
		if err == io.EOF && n == 0 {
			return Command{}, io.EOF
		}
		return Command{}, ErrFraming
	}

	cmd := Command{
		Type:    CommandType(buf[0]),
		OrderID: binary.LittleEndian.Uint32(buf[4:8]),
		Price:   binary.LittleEndian.Uint32(buf[8:12]),
		Count:   binary.LittleEndian.Uint32(buf[12:16]),
	}

	raw := buf[16 : 16+instrumentFieldLen]
	if i := bytes.IndexByte(raw, 0); i >= 0 {
		raw = raw[:i]
	}
	cmd.Instrument = string(raw)

	return cmd, nil
}
