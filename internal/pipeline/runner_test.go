package pipeline

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/danmuck/microrpc/internal/frame"
	"github.com/danmuck/microrpc/internal/rpc"
	"github.com/danmuck/microrpc/internal/services"
	"github.com/danmuck/microrpc/internal/testutil/testlog"
	"github.com/google/go-cmp/cmp"
)

func newRunner(t *testing.T) *Runner {
	t.Helper()
	mgr, err := rpc.NewManager(rpc.WithLogger(testlog.Logger(t)))
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	schema := rpc.MustSchema(',', 22, 2, rpc.ArgSpec{ID: "ND", MaxSize: 5}, rpc.ArgSpec{ID: "DA", MaxSize: 10})
	if err := mgr.Register("S1", schema, services.NewAck()); err != nil {
		t.Fatalf("register: %v", err)
	}
	echo := rpc.MustSchema(',', 22, 0, rpc.ArgSpec{ID: "A", MaxSize: 10}, rpc.ArgSpec{ID: "B", MaxSize: 10})
	if err := mgr.Register("EC", echo, services.Echo{}); err != nil {
		t.Fatalf("register: %v", err)
	}
	r, err := NewRunner(mgr, 32, testlog.Logger(t))
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	return r
}

func TestRunnerHandleResetsManager(t *testing.T) {
	testlog.Start(t)

	r := newRunner(t)
	res := r.Handle([]byte("S1,1234,ABCDEFGHI"))
	if res.Status != rpc.StatusOK || res.Response != "S1,OK" || res.Service != "S1" {
		t.Fatalf("unexpected result: %+v", res)
	}
	cmd := r.mgr.Command()
	if cmd.State() != rpc.StateInvalid || cmd.ArgCount() != 0 || cmd.Schema() != nil {
		t.Fatalf("expected manager reset after handle, got state=%s", cmd.State())
	}

	res = r.Handle([]byte("S1,123456"))
	if res.Status != rpc.StatusInvalidArgumentLength || res.Response != "" {
		t.Fatalf("unexpected failure result: %+v", res)
	}
	if r.mgr.Command().State() != rpc.StateInvalid {
		t.Fatalf("expected manager reset after failure")
	}
}

func TestRunnerRun(t *testing.T) {
	testlog.Start(t)

	r := newRunner(t)
	in := strings.NewReader("S1,1234,ABCDEFGHI\r\n\nEC,x,y\nZZ,1\nS1\n")
	var out bytes.Buffer
	stats, err := r.Run(context.Background(), in, &out)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if diff := cmp.Diff(Stats{Messages: 4, Failed: 2}, stats); diff != "" {
		t.Fatalf("stats mismatch (-want +got):\n%s", diff)
	}
	want := []string{
		"S1\t0\tok\tS1,OK",
		"EC\t0\tok\tx,y",
		"ZZ\t-1\tservice_not_found\t",
		"\t-9\tmalformed_message\t",
	}
	got := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestRunnerRunCanceled(t *testing.T) {
	testlog.Start(t)

	r := newRunner(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.Run(ctx, strings.NewReader("S1,1\n"), &bytes.Buffer{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestNewRunnerValidation(t *testing.T) {
	testlog.Start(t)

	if _, err := NewRunner(nil, 8, testlog.Logger(t)); !errors.Is(err, ErrInvalidRunner) {
		t.Fatalf("expected ErrInvalidRunner for nil manager, got %v", err)
	}
	mgr, _ := rpc.NewManager()
	if _, err := NewRunner(mgr, 0, testlog.Logger(t)); !errors.Is(err, ErrInvalidRunner) {
		t.Fatalf("expected ErrInvalidRunner for zero response, got %v", err)
	}
}

func TestFormatResultHandlerStatus(t *testing.T) {
	testlog.Start(t)

	got := FormatResult(Result{Service: "KV", Status: services.StatusNotFound})
	if got != "KV\t2\tstatus(2)\t" {
		t.Fatalf("expected handler status line, got %q", got)
	}
}

func TestRunnerRunFrames(t *testing.T) {
	testlog.Start(t)

	r := newRunner(t)
	var in bytes.Buffer
	reqs := []string{"S1,1234,ABCDEFGHI\x00trailing", "EC,a\nb", "S1,123456"}
	for i, raw := range reqs {
		f := frame.Frame{Header: frame.Header{MessageID: uint32(i + 1)}, Payload: []byte(raw)}
		if err := frame.WriteFrame(&in, f, frame.DefaultLimits()); err != nil {
			t.Fatalf("write request: %v", err)
		}
	}

	var out bytes.Buffer
	stats, err := r.RunFrames(context.Background(), &in, &out, frame.DefaultLimits())
	if err != nil {
		t.Fatalf("run frames: %v", err)
	}
	if diff := cmp.Diff(Stats{Messages: 3, Failed: 1}, stats); diff != "" {
		t.Fatalf("stats mismatch (-want +got):\n%s", diff)
	}

	want := []struct {
		status int32
		body   string
	}{
		{status: 0, body: "S1,OK"},
		{status: 0, body: "a\nb"},
		{status: int32(rpc.StatusInvalidArgumentLength), body: ""},
	}
	fr := frame.NewReader(&out, frame.DefaultLimits())
	for i, w := range want {
		got, err := fr.Read()
		if err != nil {
			t.Fatalf("read response %d: %v", i, err)
		}
		if got.Header.MessageID != uint32(i+1) || got.Header.Flags&frame.FlagIsResponse == 0 {
			t.Fatalf("unexpected response header %d: %+v", i, got.Header)
		}
		if got.Header.Status != w.status || string(got.Payload) != w.body {
			t.Fatalf("response %d: expected %d %q, got %d %q", i, w.status, w.body, got.Header.Status, got.Payload)
		}
	}
}

func TestRunnerRunFramesRejectsResponses(t *testing.T) {
	testlog.Start(t)

	r := newRunner(t)
	var in bytes.Buffer
	f := frame.Frame{Header: frame.Header{Flags: frame.FlagIsResponse, MessageID: 7}, Payload: []byte("S1,1")}
	if err := frame.WriteFrame(&in, f, frame.DefaultLimits()); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := r.RunFrames(context.Background(), &in, &bytes.Buffer{}, frame.DefaultLimits()); err == nil {
		t.Fatalf("expected response frame to be rejected")
	}
}
