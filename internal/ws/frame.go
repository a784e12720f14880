package ws

import (
	"encoding/binary"
	"errors"
)

// WebSocket opcodes used by the engine.
const (
	OpcodeText   byte = 1
	OpcodeBinary byte = 2
	OpcodeClose  byte = 8
	OpcodePing   byte = 9
	OpcodePong   byte = 10
)

const (
	finBit  = 0x80
	maskBit = 0x80
)

// MaxFramePayload caps the payload length a single frame may declare. The
// protocol carries small JSON control messages, so anything near this is
// already hostile; the cap keeps a forged 64-bit length from driving an
// allocation.
const MaxFramePayload = 1 << 20

var (
	// ErrIncompleteFrame reports that the buffer does not yet hold a whole
	// frame. Not a failure: the caller keeps the bytes until more arrive.
	ErrIncompleteFrame = errors.New("incomplete frame")
	// ErrFrameTooLarge reports a declared payload length over
	// MaxFramePayload. Fatal for the connection.
	ErrFrameTooLarge = errors.New("frame payload too large")
)

// Frame is a single decoded websocket frame. Fragmented messages are not
// supported; FIN is reported so callers can drop continuations.
type Frame struct {
	FIN     bool
	Opcode  byte
	Payload []byte
}

// EncodeFrame builds a single server-to-client frame. Server frames are
// never masked (masking is client-to-server only).
func EncodeFrame(opcode byte, payload []byte) []byte {
	n := len(payload)

	var header []byte
	switch {
	case n < 126:
		header = []byte{finBit | opcode, byte(n)}
	case n <= 0xFFFF:
		header = []byte{finBit | opcode, 126, 0, 0}
		binary.BigEndian.PutUint16(header[2:], uint16(n))
	default:
		header = []byte{finBit | opcode, 127, 0, 0, 0, 0, 0, 0, 0, 0}
		binary.BigEndian.PutUint64(header[2:], uint64(n))
	}

	frame := make([]byte, 0, len(header)+n)
	frame = append(frame, header...)
	frame = append(frame, payload...)
	return frame
}

// DecodeFrame parses one frame from the front of buf. It returns the frame
// and the number of bytes consumed. ErrIncompleteFrame means no message yet;
// ErrFrameTooLarge means the peer declared a length over MaxFramePayload and
// must be dropped before any allocation happens.
func DecodeFrame(buf []byte) (Frame, int, error) {
	if len(buf) < 2 {
		return Frame{}, 0, ErrIncompleteFrame
	}

	fin := buf[0]&finBit != 0
	opcode := buf[0] & 0x0F
	masked := buf[1]&maskBit != 0
	length := int(buf[1] & 0x7F)

	offset := 2
	switch length {
	case 126:
		if len(buf) < offset+2 {
			return Frame{}, 0, ErrIncompleteFrame
		}
		length = int(binary.BigEndian.Uint16(buf[offset:]))
		offset += 2
	case 127:
		if len(buf) < offset+8 {
			return Frame{}, 0, ErrIncompleteFrame
		}
		declared := binary.BigEndian.Uint64(buf[offset:])
		if declared > MaxFramePayload {
			return Frame{}, 0, ErrFrameTooLarge
		}
		length = int(declared)
		offset += 8
	}

	var maskKey []byte
	if masked {
		if len(buf) < offset+4 {
			return Frame{}, 0, ErrIncompleteFrame
		}
		maskKey = buf[offset : offset+4]
		offset += 4
	}

	if len(buf) < offset+length {
		return Frame{}, 0, ErrIncompleteFrame
	}

	payload := make([]byte, length)
	copy(payload, buf[offset:offset+length])
	if masked {
		for i := range payload {
			payload[i] ^= maskKey[i%4]
		}
	}

	return Frame{FIN: fin, Opcode: opcode, Payload: payload}, offset + length, nil
}
