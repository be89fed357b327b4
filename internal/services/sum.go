package services

import (
	"math"
	"strconv"

	"github.com/danmuck/microrpc/internal/rpc"
)

const SumName = "sum"

// Sum adds the bound arguments as base-10 integers. A total outside
// int64 is rejected as bad input.
type Sum struct {
	buf [24]byte
}

func NewSum() *Sum {
	return &Sum{}
}

func (s *Sum) Handle(cmd *rpc.Command, resp *rpc.Response) rpc.StatusCode {
	var total int64
	for i := 0; i < cmd.ArgCount(); i++ {
		n, err := strconv.ParseInt(string(cmd.Arg(i)), 10, 64)
		if err != nil {
			return StatusBadInput
		}
		if (n > 0 && total > math.MaxInt64-n) || (n < 0 && total < math.MinInt64-n) {
			return StatusBadInput
		}
		total += n
	}
	if _, err := resp.Write(strconv.AppendInt(s.buf[:0], total, 10)); err != nil {
		return rpc.StatusOf(err)
	}
	return rpc.StatusOK
}
