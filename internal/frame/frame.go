package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	Magic          uint32 = 0x4D525043 // "MRPC"
	Version        uint16 = 1
	FixedHeaderLen        = 20

	FlagIsResponse uint16 = 0x01
)

var (
	ErrShortHeader        = errors.New("frame: short fixed header")
	ErrInvalidMagic       = errors.New("frame: invalid magic")
	ErrUnsupportedVersion = errors.New("frame: unsupported version")
	ErrPayloadTooLarge    = errors.New("frame: payload too large")
	ErrTruncated          = errors.New("frame: truncated payload")
)

// Header is the fixed wire header.
//
//	magic:4 version:2 flags:2 message_id:4 status:4 payload_len:4
//
// Status is zero on requests and carries the dispatch status on responses.
type Header struct {
	Magic      uint32
	Version    uint16
	Flags      uint16
	MessageID  uint32
	Status     int32
	PayloadLen uint32
}

// Frame is one complete wire message. Payload may alias a reader buffer.
type Frame struct {
	Header  Header
	Payload []byte
}

// Limits constrains frame decode memory use.
type Limits struct {
	MaxPayloadBytes uint32
}

func DefaultLimits() Limits {
	return Limits{MaxPayloadBytes: 64 * 1024}
}

// Reader decodes frames into one reusable payload buffer. The payload of
// a returned frame is only valid until the next Read.
type Reader struct {
	r      io.Reader
	limits Limits
	fixed  [FixedHeaderLen]byte
	buf    []byte
}

func NewReader(r io.Reader, limits Limits) *Reader {
	return &Reader{r: r, limits: limits}
}

// Read returns the next frame. A clean end of stream between frames is
// io.EOF.
func (fr *Reader) Read() (Frame, error) {
	n, err := io.ReadFull(fr.r, fr.fixed[:])
	if err != nil {
		if errors.Is(err, io.EOF) && n == 0 {
			return Frame{}, io.EOF
		}
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return Frame{}, ErrShortHeader
		}
		return Frame{}, err
	}

	h, err := DecodeHeader(fr.fixed[:])
	if err != nil {
		return Frame{}, err
	}
	if h.PayloadLen > fr.limits.MaxPayloadBytes {
		return Frame{}, fmt.Errorf("%w: %d > %d", ErrPayloadTooLarge, h.PayloadLen, fr.limits.MaxPayloadBytes)
	}

	if cap(fr.buf) < int(h.PayloadLen) {
		fr.buf = make([]byte, h.PayloadLen)
	}
	payload := fr.buf[:h.PayloadLen]
	if _, err := io.ReadFull(fr.r, payload); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return Frame{}, ErrTruncated
		}
		return Frame{}, err
	}
	return Frame{Header: h, Payload: payload}, nil
}

// WriteFrame encodes f. Magic, version and payload length are filled in.
func WriteFrame(w io.Writer, f Frame, limits Limits) error {
	if uint64(len(f.Payload)) > uint64(limits.MaxPayloadBytes) {
		return fmt.Errorf("%w: %d > %d", ErrPayloadTooLarge, len(f.Payload), limits.MaxPayloadBytes)
	}
	h := f.Header
	h.Magic = Magic
	h.Version = Version
	h.PayloadLen = uint32(len(f.Payload))

	var hb [FixedHeaderLen]byte
	EncodeHeader(hb[:], h)
	if _, err := w.Write(hb[:]); err != nil {
		return err
	}
	if len(f.Payload) > 0 {
		if _, err := w.Write(f.Payload); err != nil {
			return err
		}
	}
	return nil
}

// EncodeHeader writes h into b, which must hold FixedHeaderLen bytes.
func EncodeHeader(b []byte, h Header) {
	binary.BigEndian.PutUint32(b[0:4], h.Magic)
	binary.BigEndian.PutUint16(b[4:6], h.Version)
	binary.BigEndian.PutUint16(b[6:8], h.Flags)
	binary.BigEndian.PutUint32(b[8:12], h.MessageID)
	binary.BigEndian.PutUint32(b[12:16], uint32(h.Status))
	binary.BigEndian.PutUint32(b[16:20], h.PayloadLen)
}

func DecodeHeader(b []byte) (Header, error) {
	if len(b) != FixedHeaderLen {
		return Header{}, fmt.Errorf("frame: invalid fixed header length: %d", len(b))
	}
	h := Header{
		Magic:      binary.BigEndian.Uint32(b[0:4]),
		Version:    binary.BigEndian.Uint16(b[4:6]),
		Flags:      binary.BigEndian.Uint16(b[6:8]),
		MessageID:  binary.BigEndian.Uint32(b[8:12]),
		Status:     int32(binary.BigEndian.Uint32(b[12:16])),
		PayloadLen: binary.BigEndian.Uint32(b[16:20]),
	}
	if h.Magic != Magic {
		return Header{}, fmt.Errorf("%w: %#x", ErrInvalidMagic, h.Magic)
	}
	if h.Version != Version {
		return Header{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, h.Version)
	}
	return h, nil
}
