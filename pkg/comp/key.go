package comp

import (
	"encoding/binary"
	"fmt"
	"runtime"

	"github.com/cespare/xxhash"

	"github.com/weftui/weft/pkg/slots"
)

// Here returns the positional key for the caller's source location. Every
// composable call site gets a distinct key, which is what makes positional
// memoization line up across passes.
func Here() slots.Key {
	return callerKey(2)
}

func callerKey(skip int) slots.Key {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		return slots.Key{}
	}
	h := xxhash.New()
	h.Write([]byte(file))
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(line))
	h.Write(buf[:])
	return slots.Key{Loc: h.Sum64()}
}

// Keyed attaches an explicit user key to a positional key, as loops over
// data do to keep identity attached to the datum rather than the index.
func Keyed(k slots.Key, user any) slots.Key {
	k.User = foldKey(user)
	k.HasUser = true
	return k
}

func foldKey(user any) uint64 {
	switch v := user.(type) {
	case uint64:
		return v
	case int:
		return uint64(v)
	case int64:
		return uint64(v)
	case string:
		return xxhash.Sum64String(v)
	default:
		return xxhash.Sum64String(fmt.Sprint(v))
	}
}
