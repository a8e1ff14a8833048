package util

import (
	"encoding/binary"
	"fmt"
	"io"
)

const (
	IoMaxSize = 1024
	MaxSize   = 0x02000000
)

const errNonCanonicalVarInt = "non-canonical varint %x - discriminant %x must encode a value greater than %x"

type BinaryFreeList chan []byte

var BinarySerializer BinaryFreeList = make(chan []byte, IoMaxSize)

func (b BinaryFreeList) Borrow() []byte {
	var buf []byte
	select {
	case buf = <-b:
	default:
		buf = make([]byte, 8)
	}
	return buf[:8]
}

// Return puts the provided byte slice back on the free list.
func (b BinaryFreeList) Return(buf []byte) {
	select {
	case b <- buf:
	default:
	}
}

func (b BinaryFreeList) Uint8(r io.Reader) (uint8, error) {
	buf := b.Borrow()[:1]
	defer b.Return(buf)
	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, err
	}
	return buf[0], nil
}

func (b BinaryFreeList) Uint16(r io.Reader, byteOrder binary.ByteOrder) (uint16, error) {
	buf := b.Borrow()[:2]
	defer b.Return(buf)
	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, err
	}
	return byteOrder.Uint16(buf), nil
}

func (b BinaryFreeList) Uint32(r io.Reader, byteOrder binary.ByteOrder) (uint32, error) {
	buf := b.Borrow()[:4]
	defer b.Return(buf)
	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, err
	}
	return byteOrder.Uint32(buf), nil
}

func (b BinaryFreeList) Uint64(r io.Reader, byteOrder binary.ByteOrder) (uint64, error) {
	buf := b.Borrow()[:8]
	defer b.Return(buf)
	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, err
	}
	return byteOrder.Uint64(buf), nil
}

func (b BinaryFreeList) PutUint8(w io.Writer, val uint8) error {
	buf := b.Borrow()[:1]
	defer b.Return(buf)
	buf[0] = val
	_, err := w.Write(buf)
	return err
}

func (b BinaryFreeList) PutUint16(w io.Writer, byteOrder binary.ByteOrder, val uint16) error {
	buf := b.Borrow()[:2]
	defer b.Return(buf)
	byteOrder.PutUint16(buf, val)
	_, err := w.Write(buf)
	return err
}

func (b BinaryFreeList) PutUint32(w io.Writer, byteOrder binary.ByteOrder, val uint32) error {
	buf := b.Borrow()[:4]
	defer b.Return(buf)
	byteOrder.PutUint32(buf, val)
	_, err := w.Write(buf)
	return err
}

func (b BinaryFreeList) PutUint64(w io.Writer, byteOrder binary.ByteOrder, val uint64) error {
	buf := b.Borrow()[:8]
	defer b.Return(buf)
	byteOrder.PutUint64(buf, val)
	_, err := w.Write(buf)
	return err
}

// ReadVarInt reads a compact size integer and rejects non-canonical encodings.
func ReadVarInt(r io.Reader) (uint64, error) {
	discriminant, err := BinarySerializer.Uint8(r)
	if err != nil {
		return 0, err
	}
	var result, min uint64
	switch discriminant {
	case 0xff:
		result, err = BinarySerializer.Uint64(r, binary.LittleEndian)
		min = 0x100000000
	case 0xfe:
		var sv uint32
		sv, err = BinarySerializer.Uint32(r, binary.LittleEndian)
		result, min = uint64(sv), 0x10000
	case 0xfd:
		var sv uint16
		sv, err = BinarySerializer.Uint16(r, binary.LittleEndian)
		result, min = uint64(sv), 0xfd
	default:
		return uint64(discriminant), nil
	}
	if err != nil {
		return 0, err
	}
	if result < min {
		return 0, fmt.Errorf(errNonCanonicalVarInt, result, discriminant, min)
	}
	return result, nil
}

func WriteVarInt(w io.Writer, val uint64) error {
	switch {
	case val < 0xfd:
		return BinarySerializer.PutUint8(w, uint8(val))
	case val <= 0xffff:
		if err := BinarySerializer.PutUint8(w, 0xfd); err != nil {
			return err
		}
		return BinarySerializer.PutUint16(w, binary.LittleEndian, uint16(val))
	case val <= 0xffffffff:
		if err := BinarySerializer.PutUint8(w, 0xfe); err != nil {
			return err
		}
		return BinarySerializer.PutUint32(w, binary.LittleEndian, uint32(val))
	default:
		if err := BinarySerializer.PutUint8(w, 0xff); err != nil {
			return err
		}
		return BinarySerializer.PutUint64(w, binary.LittleEndian, val)
	}
}

func VarIntSerializeSize(val uint64) int {
	switch {
	case val < 0xfd:
		return 1
	case val <= 0xffff:
		return 3
	case val <= 0xffffffff:
		return 5
	}
	return 9
}

func ReadVarBytes(r io.Reader, maxAllowed uint64, fieldName string) ([]byte, error) {
	count, err := ReadVarInt(r)
	if err != nil {
		return nil, err
	}
	if count > maxAllowed {
		return nil, fmt.Errorf("%s is larger than the max allowed size count %d, max %d", fieldName, count, maxAllowed)
	}
	b := make([]byte, count)
	if _, err = io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}

func WriteVarBytes(w io.Writer, bytes []byte) error {
	if err := WriteVarInt(w, uint64(len(bytes))); err != nil {
		return err
	}
	_, err := w.Write(bytes)
	return err
}
