package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadItemsSkipsBlankLines(t *testing.T) {
	input := strings.NewReader(`{"region":"us-east-2","bucket":"dotstorage-0","key":"a.car"}

{"region":"us-east-2","bucket":"dotstorage-0","key":"b.car"}
`)
	items, err := readItems(input)
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, "a.car", items[0].Key)
	require.Equal(t, "b.car", items[1].Key)
}

func TestWriteResultEncodesOneLinePerCall(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeResult(&buf, result{item: item{Key: "a.car"}, OK: true, Shard: "bafy..."}))
	require.NoError(t, writeResult(&buf, result{item: item{Key: "b.car"}, Error: "boom"}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	require.Contains(t, lines[0], `"ok":true`)
	require.Contains(t, lines[1], `"error":"boom"`)
}
