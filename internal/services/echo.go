package services

import "github.com/danmuck/microrpc/internal/rpc"

const EchoName = "echo"

// Echo writes the bound arguments back joined by the schema delimiter.
type Echo struct{}

func (Echo) Handle(cmd *rpc.Command, resp *rpc.Response) rpc.StatusCode {
	schema := cmd.Schema()
	if schema == nil {
		return rpc.StatusNullPointer
	}
	for i := 0; i < cmd.ArgCount(); i++ {
		if i > 0 {
			if err := resp.WriteByte(schema.Delimiter()); err != nil {
				return rpc.StatusOf(err)
			}
		}
		if _, err := resp.Write(cmd.Arg(i)); err != nil {
			return rpc.StatusOf(err)
		}
	}
	return rpc.StatusOK
}
