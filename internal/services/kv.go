package services

import (
	"sort"
	"strings"
	"sync"

	"github.com/danmuck/microrpc/internal/rpc"
)

const (
	KVName = "kv"

	KVOpArg    = "OP"
	KVKeyArg   = "KY"
	KVValueArg = "VL"
)

// KV is an in-memory key-value handler. Operations: put, get, delete and
// list. list treats KY as a key prefix.
type KV struct {
	mu    sync.RWMutex
	store map[string]string
}

func NewKV() *KV {
	return &KV{store: make(map[string]string)}
}

func (kv *KV) Handle(cmd *rpc.Command, resp *rpc.Response) rpc.StatusCode {
	op, err := cmd.Value(KVOpArg)
	if err != nil {
		return rpc.StatusOf(err)
	}
	key, err := cmd.Value(KVKeyArg)
	if err != nil {
		return rpc.StatusOf(err)
	}

	switch string(op) {
	case "put":
		if len(key) == 0 {
			return StatusBadInput
		}
		val, err := cmd.Value(KVValueArg)
		if err != nil {
			return rpc.StatusOf(err)
		}
		kv.mu.Lock()
		kv.store[string(key)] = string(val)
		kv.mu.Unlock()
		return writeStatus(resp, "ok")
	case "get":
		if len(key) == 0 {
			return StatusBadInput
		}
		kv.mu.RLock()
		val, ok := kv.store[string(key)]
		kv.mu.RUnlock()
		if !ok {
			return StatusNotFound
		}
		return writeStatus(resp, val)
	case "delete":
		if len(key) == 0 {
			return StatusBadInput
		}
		kv.mu.Lock()
		delete(kv.store, string(key))
		kv.mu.Unlock()
		return writeStatus(resp, "ok")
	case "list":
		return writeStatus(resp, strings.Join(kv.Keys(string(key)), ","))
	default:
		return StatusBadInput
	}
}

// Keys returns the stored keys with prefix, sorted.
func (kv *KV) Keys(prefix string) []string {
	kv.mu.RLock()
	keys := make([]string, 0, len(kv.store))
	for k := range kv.store {
		if prefix == "" || strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	kv.mu.RUnlock()
	sort.Strings(keys)
	return keys
}

func writeStatus(resp *rpc.Response, s string) rpc.StatusCode {
	if _, err := resp.WriteString(s); err != nil {
		return rpc.StatusOf(err)
	}
	return rpc.StatusOK
}
