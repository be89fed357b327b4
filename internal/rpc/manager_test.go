package rpc

import (
	"errors"
	"strings"
	"testing"

	"github.com/danmuck/microrpc/internal/testutil/testlog"
)

// joinHandler writes the bound arguments separated by '|'.
func joinHandler(code StatusCode) Handler {
	return HandlerFunc(func(cmd *Command, resp *Response) StatusCode {
		for i := 0; i < cmd.ArgCount(); i++ {
			if i > 0 {
				if err := resp.WriteByte('|'); err != nil {
					return StatusOf(err)
				}
			}
			if _, err := resp.Write(cmd.Arg(i)); err != nil {
				return StatusOf(err)
			}
		}
		return code
	})
}

func newS1Manager(t *testing.T, opts ...Option) *Manager {
	t.Helper()
	opts = append([]Option{WithLogger(testlog.Logger(t))}, opts...)
	m, err := NewManager(opts...)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if err := m.Register("S1", twoArgSchema(), joinHandler(StatusOK)); err != nil {
		t.Fatalf("register S1: %v", err)
	}
	return m
}

func TestManagerDispatch(t *testing.T) {
	testlog.Start(t)

	m := newS1Manager(t)
	resp := NewResponse(make([]byte, 64))
	if got := m.Dispatch([]byte("S1,1234,ABCDEFGHI"), resp); got != StatusOK {
		t.Fatalf("expected ok, got %s", got)
	}
	if resp.String() != "1234|ABCDEFGHI" {
		t.Fatalf("expected 1234|ABCDEFGHI, got %q", resp.String())
	}
	if m.Command().State() != StateReady {
		t.Fatalf("expected ready after dispatch, got %s", m.Command().State())
	}
}

func TestManagerDispatchStatuses(t *testing.T) {
	testlog.Start(t)

	cases := []struct {
		name string
		raw  string
		want StatusCode
	}{
		{name: "unknown service", raw: "S2,1", want: StatusServiceNotFound},
		{name: "argument too long", raw: "S1,123456,AB", want: StatusInvalidArgumentLength},
		{name: "too many arguments", raw: "S1,1,2,3", want: StatusInvalidArgumentCount},
		{name: "malformed", raw: "S1", want: StatusMalformedMessage},
		{name: "bad separator", raw: "S1;1", want: StatusMalformedMessage},
		{name: "message too long", raw: "S1,1," + strings.Repeat("x", 40), want: StatusInvalidMessageLength},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			called := false
			m, _ := NewManager()
			h := HandlerFunc(func(*Command, *Response) StatusCode {
				called = true
				return StatusOK
			})
			if err := m.Register("S1", twoArgSchema(), h); err != nil {
				t.Fatalf("register: %v", err)
			}
			resp := NewResponse(make([]byte, 16))
			if got := m.Dispatch([]byte(tc.raw), resp); got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
			if called {
				t.Fatalf("handler must not run on failure")
			}
			if resp.Len() != 0 {
				t.Fatalf("expected untouched response, got %q", resp.String())
			}
		})
	}
}

func TestManagerPassesHandlerStatus(t *testing.T) {
	testlog.Start(t)

	m, _ := NewManager()
	if err := m.Register("S1", twoArgSchema(), joinHandler(StatusCode(42))); err != nil {
		t.Fatalf("register: %v", err)
	}
	got := m.Dispatch([]byte("S1,a"), NewResponse(make([]byte, 8)))
	if got != 42 {
		t.Fatalf("expected handler status 42, got %d", got)
	}
	if got.Framework() {
		t.Fatalf("expected 42 to be a handler code")
	}
}

func TestManagerNilInputs(t *testing.T) {
	testlog.Start(t)

	m := newS1Manager(t)
	if got := m.Dispatch(nil, NewResponse(make([]byte, 8))); got != StatusNullPointer {
		t.Fatalf("expected null pointer for nil message, got %s", got)
	}
	if got := m.Dispatch([]byte("S1,a"), nil); got != StatusNullPointer {
		t.Fatalf("expected null pointer for nil response, got %s", got)
	}
}

func TestManagerEmptyRegistry(t *testing.T) {
	testlog.Start(t)

	m, _ := NewManager()
	if got := m.Dispatch([]byte("S1,a"), NewResponse(make([]byte, 8))); got != StatusNullPointer {
		t.Fatalf("expected null pointer, got %s", got)
	}
}

func TestManagerSealsOnDispatch(t *testing.T) {
	testlog.Start(t)

	m := newS1Manager(t)
	m.Dispatch([]byte("S1,a"), NewResponse(make([]byte, 8)))
	err := m.Register("S2", twoArgSchema(), joinHandler(StatusOK))
	if !errors.Is(err, ErrInitialization) {
		t.Fatalf("expected ErrInitialization after dispatch, got %v", err)
	}
}

func TestManagerLegacySlots(t *testing.T) {
	testlog.Start(t)

	m := newS1Manager(t, WithLegacySlots())
	if err := m.Register("S6", twoArgSchema(), joinHandler(StatusOK)); !errors.Is(err, ErrRegistrationCollision) {
		t.Fatalf("expected collision for S6, got %v", err)
	}
	resp := NewResponse(make([]byte, 16))
	if got := m.Dispatch([]byte("S6,ab"), resp); got != StatusOK {
		t.Fatalf("expected legacy S6 to reach S1 handler, got %s", got)
	}
	if resp.String() != "ab" {
		t.Fatalf("expected ab, got %q", resp.String())
	}

	verified := newS1Manager(t)
	if got := verified.Dispatch([]byte("S6,ab"), NewResponse(make([]byte, 16))); got != StatusServiceNotFound {
		t.Fatalf("expected verified S6 to miss, got %s", got)
	}
}

func TestManagerCustomFraming(t *testing.T) {
	testlog.Start(t)

	m, err := NewManager(WithIDLen(3), WithSeparator(':'), WithCapacity(7))
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	schema := MustSchema(' ', 16, 0, ArgSpec{ID: "A", MaxSize: 4}, ArgSpec{ID: "B", MaxSize: 4})
	if err := m.Register("ABC", schema, joinHandler(StatusOK)); err != nil {
		t.Fatalf("register: %v", err)
	}
	resp := NewResponse(make([]byte, 16))
	if got := m.Dispatch([]byte("ABC:x y"), resp); got != StatusOK {
		t.Fatalf("expected ok, got %s", got)
	}
	if resp.String() != "x|y" {
		t.Fatalf("expected x|y, got %q", resp.String())
	}
	if m.Registry().Cap() != 7 || m.Framing().IDLen != 3 {
		t.Fatalf("expected options applied, got cap=%d idlen=%d", m.Registry().Cap(), m.Framing().IDLen)
	}

	anySep, _ := NewManager(WithAnySeparator())
	if err := anySep.Register("S1", twoArgSchema(), joinHandler(StatusOK)); err != nil {
		t.Fatalf("register: %v", err)
	}
	if got := anySep.Dispatch([]byte("S1#q"), NewResponse(make([]byte, 4))); got != StatusOK {
		t.Fatalf("expected any separator to dispatch, got %s", got)
	}
}

func TestManagerResetClearsCommand(t *testing.T) {
	testlog.Start(t)

	m := newS1Manager(t)
	m.Dispatch([]byte("S1,1234,ABCDEFGHI"), NewResponse(make([]byte, 32)))
	m.Reset()

	cmd := m.Command()
	if cmd.State() != StateInvalid || cmd.TargetBytes() != nil || cmd.Payload() != nil {
		t.Fatalf("expected cleared command, got state=%s target=%q payload=%q", cmd.State(), cmd.TargetBytes(), cmd.Payload())
	}
	if cmd.Schema() != nil || cmd.Service() != nil || cmd.ArgCount() != 0 {
		t.Fatalf("expected schema and bindings cleared")
	}
	for i := 0; i < MaxArgs; i++ {
		if cmd.Binding(i) != (Binding{}) {
			t.Fatalf("expected binding %d cleared, got %+v", i, cmd.Binding(i))
		}
	}
}

func TestManagerNoStaleArgumentsWithoutReset(t *testing.T) {
	testlog.Start(t)

	m := newS1Manager(t)
	first := NewResponse(make([]byte, 32))
	m.Dispatch([]byte("S1,1234,ABCDEFGHI"), first)

	second := NewResponse(make([]byte, 32))
	if got := m.Dispatch([]byte("S1,9"), second); got != StatusOK {
		t.Fatalf("expected ok, got %s", got)
	}
	if second.String() != "9" {
		t.Fatalf("expected only the new argument, got %q", second.String())
	}
	da, err := m.Command().Value("DA")
	if err != nil || len(da) != 0 {
		t.Fatalf("expected empty DA, got %q (%v)", da, err)
	}
}

func TestManagerDecodeFailureClearsPreviousCommand(t *testing.T) {
	testlog.Start(t)

	m := newS1Manager(t)
	if got := m.Dispatch([]byte("S1,1234,ABCDEFGHI"), NewResponse(make([]byte, 32))); got != StatusOK {
		t.Fatalf("expected ok, got %s", got)
	}

	if got := m.Dispatch([]byte("S1"), NewResponse(make([]byte, 32))); got != StatusMalformedMessage {
		t.Fatalf("expected malformed message, got %s", got)
	}
	cmd := m.Command()
	if cmd.Schema() != nil || cmd.Service() != nil {
		t.Fatalf("expected no schema or service, got %v %v", cmd.Schema(), cmd.Service())
	}
	if cmd.ArgCount() != 0 || cmd.State() != StateInvalid {
		t.Fatalf("expected 0 args and invalid state, got %d %s", cmd.ArgCount(), cmd.State())
	}
	for i := 0; i < MaxArgs; i++ {
		if b := cmd.Binding(i); b != (Binding{}) {
			t.Fatalf("expected zero binding %d, got %+v", i, b)
		}
	}
	if m.handler != nil {
		t.Fatalf("expected no resolved handler")
	}
}

func TestManagerRejectsBadOptions(t *testing.T) {
	testlog.Start(t)

	if _, err := NewManager(WithCapacity(0)); !errors.Is(err, ErrInitialization) {
		t.Fatalf("expected ErrInitialization, got %v", err)
	}
}

func TestDispatchDoesNotAllocate(t *testing.T) {
	testlog.Start(t)

	m, _ := NewManager()
	if err := m.Register("S1", twoArgSchema(), joinHandler(StatusOK)); err != nil {
		t.Fatalf("register: %v", err)
	}
	raw := []byte("S1,1234,ABCDEFGHI")
	resp := NewResponse(make([]byte, 64))

	allocs := testing.AllocsPerRun(100, func() {
		resp.Reset()
		if m.Dispatch(raw, resp) != StatusOK {
			t.Fatalf("dispatch failed")
		}
		m.Reset()
	})
	if allocs != 0 {
		t.Fatalf("expected zero allocations per dispatch, got %.1f", allocs)
	}
}

func BenchmarkDispatch(b *testing.B) {
	m, _ := NewManager()
	if err := m.Register("S1", twoArgSchema(), joinHandler(StatusOK)); err != nil {
		b.Fatalf("register: %v", err)
	}
	raw := []byte("S1,1234,ABCDEFGHI")
	resp := NewResponse(make([]byte, 64))

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		resp.Reset()
		m.Dispatch(raw, resp)
		m.Reset()
	}
}
