// Package escp encodes text and raster images into the command set of
// Seiko DPU-414 class dot-matrix printers.
package escp

import (
	"bytes"
	"errors"
	"fmt"
)

// Control bytes
const (
	ESC byte = 0x1B
	LF  byte = 0x0A
)

// RasterLineOp follows ESC to define one raster line (ESC K).
const RasterLineOp byte = 0x4B

// headerLen is ESC, K and the two length bytes.
const headerLen = 4

// MaxPayload is the most columns the 16-bit length field can count.
const MaxPayload = 0xFFFF

var (
	// ErrMalformedFrame is returned by ParseFrame.
	ErrMalformedFrame = errors.New("malformed raster frame")
	// ErrPayloadTooLong is returned for bitmaps wider than MaxPayload.
	ErrPayloadTooLong = errors.New("raster line longer than 65535 columns")
)

// Frame is one complete raster line command, terminator included.
type Frame []byte

// Command builds DPU-414 command sequences
type Command struct {
	buf bytes.Buffer
}

func New() *Command {
	return &Command{}
}

// Line appends already encoded text followed by a line feed
func (c *Command) Line(encoded []byte) *Command {
	c.buf.Write(encoded)
	c.buf.WriteByte(LF)
	return c
}

// RasterLine appends ESC K nL nH d1...dk LF.
// Each payload byte is one column of an 8 dot band, MSB on top. The payload
// must not exceed MaxPayload bytes.
func (c *Command) RasterLine(payload []byte) *Command {
	n := len(payload)
	c.buf.WriteByte(ESC)
	c.buf.WriteByte(RasterLineOp)
	c.buf.WriteByte(byte(n & 0xFF))
	c.buf.WriteByte(byte((n >> 8) & 0xFF))
	c.buf.Write(payload)
	c.buf.WriteByte(LF)
	return c
}

// Bytes returns the raw command bytes to send to printer
func (c *Command) Bytes() []byte {
	return bytes.Clone(c.buf.Bytes())
}

// RasterLine builds a single raster line frame.
func RasterLine(payload []byte) Frame {
	return Frame(New().RasterLine(payload).Bytes())
}

// ParseFrame splits a raster line frame back into its payload. The length
// field must account for every byte between the header and the trailing LF.
func ParseFrame(f []byte) ([]byte, error) {
	if len(f) < headerLen+1 {
		return nil, fmt.Errorf("%w: %d bytes", ErrMalformedFrame, len(f))
	}
	if f[0] != ESC || f[1] != RasterLineOp {
		return nil, fmt.Errorf("%w: opcode % x", ErrMalformedFrame, f[:2])
	}
	n := int(f[2]) | int(f[3])<<8
	if len(f) != headerLen+n+1 {
		return nil, fmt.Errorf("%w: length field %d, payload %d", ErrMalformedFrame, n, len(f)-headerLen-1)
	}
	if f[len(f)-1] != LF {
		return nil, fmt.Errorf("%w: missing line feed", ErrMalformedFrame)
	}
	return f[headerLen : headerLen+n], nil
}
