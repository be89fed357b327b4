package services

import "github.com/danmuck/microrpc/internal/rpc"

const (
	AckName   = "ack"
	ackSuffix = ",OK"
)

// Ack copies every configured argument into its own scratch buffer and
// answers "<ID>,OK".
type Ack struct {
	scratch [rpc.MaxArgs][]byte
	lens    [rpc.MaxArgs]int
}

func NewAck() *Ack {
	return &Ack{}
}

func (a *Ack) Handle(cmd *rpc.Command, resp *rpc.Response) rpc.StatusCode {
	schema := cmd.Schema()
	if schema == nil {
		return rpc.StatusNullPointer
	}
	for i, spec := range schema.Args() {
		if a.scratch[i] == nil || cap(a.scratch[i]) < spec.MaxSize {
			a.scratch[i] = make([]byte, spec.MaxSize)
		}
		n, err := cmd.Extract(spec.ID, a.scratch[i][:spec.MaxSize])
		if err != nil {
			return rpc.StatusOf(err)
		}
		a.lens[i] = n
	}

	target := cmd.TargetBytes()
	if resp.Cap()-resp.Len() < len(target)+len(ackSuffix) {
		return rpc.StatusBufferOverflow
	}
	if _, err := resp.Write(target); err != nil {
		return rpc.StatusOf(err)
	}
	if _, err := resp.WriteString(ackSuffix); err != nil {
		return rpc.StatusOf(err)
	}
	return rpc.StatusOK
}

// Copied returns the bytes copied for slot i by the last Handle call.
func (a *Ack) Copied(i int) []byte {
	if i < 0 || i >= rpc.MaxArgs {
		return nil
	}
	return a.scratch[i][:a.lens[i]]
}
