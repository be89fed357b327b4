package rpc

import "fmt"

// Response is a bounded writer over a caller-owned buffer. Writes are all
// or nothing: a write that does not fit fails with ErrBufferOverflow and
// leaves the buffer unchanged.
type Response struct {
	buf []byte
	n   int
}

// NewResponse wraps buf. The full length of buf is usable capacity.
func NewResponse(buf []byte) *Response {
	return &Response{buf: buf}
}

func (r *Response) Write(p []byte) (int, error) {
	if len(p) > len(r.buf)-r.n {
		return 0, fmt.Errorf("%w: response needs %d bytes, %d free", ErrBufferOverflow, len(p), len(r.buf)-r.n)
	}
	r.n += copy(r.buf[r.n:], p)
	return len(p), nil
}

func (r *Response) WriteString(s string) (int, error) {
	if len(s) > len(r.buf)-r.n {
		return 0, fmt.Errorf("%w: response needs %d bytes, %d free", ErrBufferOverflow, len(s), len(r.buf)-r.n)
	}
	r.n += copy(r.buf[r.n:], s)
	return len(s), nil
}

func (r *Response) WriteByte(c byte) error {
	if r.n >= len(r.buf) {
		return fmt.Errorf("%w: response full", ErrBufferOverflow)
	}
	r.buf[r.n] = c
	r.n++
	return nil
}

// Bytes returns the written portion of the buffer.
func (r *Response) Bytes() []byte  { return r.buf[:r.n] }
func (r *Response) String() string { return string(r.buf[:r.n]) }
func (r *Response) Len() int       { return r.n }
func (r *Response) Cap() int       { return len(r.buf) }

// Reset discards written bytes; the buffer is kept.
func (r *Response) Reset() { r.n = 0 }
