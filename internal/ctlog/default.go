package ctlog

import (
	"bytes"
	_ "embed"
	"slices"
	"sync"
)

//go:embed logs.json
var defaultList []byte

var parseDefault = sync.OnceValue(func() []Log { //nolint:gochecknoglobals
	logs, err := ParseList(bytes.NewReader(defaultList))
	if err != nil {
		panic("ctlog: embedded log list: " + err.Error())
	}
	return logs
})

// DefaultLogs returns the built-in log list.  Replace it with
// [LoadFile] to track the current published list.
func DefaultLogs() []Log {
	return slices.Clone(parseDefault())
}
