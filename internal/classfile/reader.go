package classfile

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Reads big-endian class file data from an in-memory buffer and tracks the offset
// so decode errors can report where they happened.
type BinaryReader struct {
	data []byte
	pos  int
}

func NewBinaryReader(data []byte) *BinaryReader {
	return &BinaryReader{data: data}
}

func (br *BinaryReader) Offset() int {
	return br.pos
}

func (br *BinaryReader) Remaining() int {
	return len(br.data) - br.pos
}

// ReadNBytes returns the next n bytes without copying
func (br *BinaryReader) ReadNBytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("invalid length %d", n)
	}
	if br.Remaining() < n {
		return nil, io.ErrUnexpectedEOF
	}
	buf := br.data[br.pos : br.pos+n]
	br.pos += n
	return buf, nil
}

func (br *BinaryReader) ReadU1() (uint8, error) {
	if br.Remaining() < 1 {
		return 0, io.ErrUnexpectedEOF
	}
	b := br.data[br.pos]
	br.pos++
	return b, nil
}

func (br *BinaryReader) ReadU2() (uint16, error) {
	buf, err := br.ReadNBytes(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(buf), nil
}

func (br *BinaryReader) ReadU4() (uint32, error) {
	buf, err := br.ReadNBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(buf), nil
}

func (br *BinaryReader) ReadU8() (uint64, error) {
	buf, err := br.ReadNBytes(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(buf), nil
}

// Skip skips n bytes in the buffer
func (br *BinaryReader) Skip(n int) error {
	if _, err := br.ReadNBytes(n); err != nil {
		return fmt.Errorf("failed to skip %d bytes: %w", n, err)
	}
	return nil
}

// ReadUtf8String reads a length-prefixed modified UTF-8 string
func (br *BinaryReader) ReadUtf8String() (string, error) {
	length, err := br.ReadU2()
	if err != nil {
		return "", fmt.Errorf("failed to read string length: %w", err)
	}
	raw, err := br.ReadNBytes(int(length))
	if err != nil {
		return "", fmt.Errorf("failed to read string data: %w", err)
	}
	return DecodeModifiedUTF8(raw)
}
