package pipeline

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/danmuck/microrpc/internal/frame"
	"github.com/danmuck/microrpc/internal/observability"
	"github.com/danmuck/microrpc/internal/rpc"
	"github.com/rs/zerolog"
)

var ErrInvalidRunner = errors.New("pipeline: invalid runner")

// MaxLineSize bounds one input message.
const MaxLineSize = 64 * 1024

const unresolvedService = "unresolved"

// Result is the outcome of one dispatched message.
type Result struct {
	Service  string
	Status   rpc.StatusCode
	Response string
	Duration time.Duration
}

// Stats summarizes a Run.
type Stats struct {
	Messages int
	Failed   int
}

// Runner feeds messages through one manager. It is not safe for
// concurrent use.
type Runner struct {
	mgr  *rpc.Manager
	resp *rpc.Response
	log  zerolog.Logger
}

func NewRunner(mgr *rpc.Manager, responseSize int, logger zerolog.Logger) (*Runner, error) {
	if mgr == nil {
		return nil, fmt.Errorf("%w: nil manager", ErrInvalidRunner)
	}
	if responseSize <= 0 {
		return nil, fmt.Errorf("%w: response size %d", ErrInvalidRunner, responseSize)
	}
	observability.SetRegisteredServices(mgr.Registry().Len())
	return &Runner{
		mgr:  mgr,
		resp: rpc.NewResponse(make([]byte, responseSize)),
		log:  logger,
	}, nil
}

// Handle dispatches raw and returns a copy of the response. The manager is
// reset before Handle returns, whatever the outcome.
func (r *Runner) Handle(raw []byte) Result {
	defer r.mgr.Reset()

	r.resp.Reset()
	start := time.Now()
	status := r.mgr.Dispatch(raw, r.resp)
	elapsed := time.Since(start)

	cmd := r.mgr.Command()
	label := unresolvedService
	if svc := cmd.Service(); svc != nil {
		label = svc.Name
	}
	observability.RecordDispatch(label, int(status), elapsed)
	observability.LogDispatch(r.log, label, int(status), status.Framework(), elapsed, r.resp.Len())

	res := Result{
		Service:  cmd.TargetID(),
		Status:   status,
		Duration: elapsed,
	}
	if status == rpc.StatusOK || !status.Framework() {
		res.Response = r.resp.String()
	}
	return res
}

// Run dispatches every non-blank line of in and writes one formatted
// result line per message to out.
func (r *Runner) Run(ctx context.Context, in io.Reader, out io.Writer) (Stats, error) {
	var stats Stats
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 4096), MaxLineSize)
	w := bufio.NewWriter(out)
	defer w.Flush()

	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		line := bytes.TrimRight(sc.Bytes(), "\r")
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		res := r.Handle(line)
		stats.Messages++
		if res.Status != rpc.StatusOK && res.Status.Framework() {
			stats.Failed++
		}
		if _, err := fmt.Fprintln(w, FormatResult(res)); err != nil {
			return stats, fmt.Errorf("pipeline: write result: %w", err)
		}
	}
	if err := sc.Err(); err != nil {
		return stats, fmt.Errorf("pipeline: read input: %w", err)
	}
	r.log.Info().Int("messages", stats.Messages).Int("failed", stats.Failed).Msg("pipeline.Runner.Run complete")
	return stats, nil
}

// RunFrames dispatches every request frame of in and answers each with a
// response frame carrying the same message id and the dispatch status.
func (r *Runner) RunFrames(ctx context.Context, in io.Reader, out io.Writer, limits frame.Limits) (Stats, error) {
	var stats Stats
	fr := frame.NewReader(in, limits)
	w := bufio.NewWriter(out)
	defer w.Flush()

	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		req, err := fr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return stats, fmt.Errorf("pipeline: read frame: %w", err)
		}
		if req.Header.Flags&frame.FlagIsResponse != 0 {
			return stats, fmt.Errorf("pipeline: frame %d is a response", req.Header.MessageID)
		}

		res := r.Handle(req.Payload)
		stats.Messages++
		if res.Status != rpc.StatusOK && res.Status.Framework() {
			stats.Failed++
		}
		resp := frame.Frame{
			Header: frame.Header{
				Flags:     frame.FlagIsResponse,
				MessageID: req.Header.MessageID,
				Status:    int32(res.Status),
			},
			Payload: []byte(res.Response),
		}
		if err := frame.WriteFrame(w, resp, limits); err != nil {
			return stats, fmt.Errorf("pipeline: write frame: %w", err)
		}
	}
	r.log.Info().Int("messages", stats.Messages).Int("failed", stats.Failed).Msg("pipeline.Runner.RunFrames complete")
	return stats, nil
}

// FormatResult renders "<service>\t<code>\t<status-name>\t<response>".
func FormatResult(res Result) string {
	return fmt.Sprintf("%s\t%d\t%s\t%s", res.Service, int(res.Status), res.Status, res.Response)
}
