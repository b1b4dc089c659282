package carindex

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"sort"

	mh "github.com/multiformats/go-multihash"
	"github.com/multiformats/go-varint"
)

// SortedIndexWriter accumulates (multihash, offset) pairs as a shard streams
// by and, on Close, emits them sorted by multihash as a single binary blob:
// a sequence of [varint(len(digest)) || digest || uint64 offset (little
// endian)] records. This is the side-index artifact named in spec §3/§4.2.2;
// no existing third-party library in the retrieval pack implements this
// exact wire shape (go-car v2's index package is a CARv2-internal index,
// not a standalone streamable artifact), so it is written directly against
// the format the spec describes.
type SortedIndexWriter struct {
	entries []sortedEntry
}

type sortedEntry struct {
	digest mh.Multihash
	offset uint64
}

// NewSortedIndexWriter returns an empty writer ready to accept blocks.
func NewSortedIndexWriter() *SortedIndexWriter {
	return &SortedIndexWriter{}
}

// Add records one block's multihash and its frame offset within the shard.
func (w *SortedIndexWriter) Add(digest mh.Multihash, offset uint64) {
	w.entries = append(w.entries, sortedEntry{digest: digest, offset: offset})
}

// Close sorts the accumulated entries by raw digest bytes and serializes
// them into the side-index wire format.
func (w *SortedIndexWriter) Close() ([]byte, error) {
	sort.Slice(w.entries, func(i, j int) bool {
		return bytes.Compare(w.entries[i].digest, w.entries[j].digest) < 0
	})

	var buf bytes.Buffer
	lenBuf := make([]byte, binary.MaxVarintLen64)
	for _, e := range w.entries {
		n := varint.PutUvarint(lenBuf, uint64(len(e.digest)))
		buf.Write(lenBuf[:n])
		buf.Write(e.digest)
		if err := binary.Write(&buf, binary.LittleEndian, e.offset); err != nil {
			return nil, fmt.Errorf("writing side index entry: %w", err)
		}
	}
	return buf.Bytes(), nil
}

// SortedIndexEntry is one (multihash, offset) pair read back from a side
// index.
type SortedIndexEntry struct {
	Digest mh.Multihash
	Offset uint64
}

// ReadSortedIndex returns a lazy, single-pass sequence over a side index's
// bytes, in the sorted order the writer produced them in. The sequence
// stops at the first read error (including a clean EOF, which yields no
// further entries and no error).
func ReadSortedIndex(r io.Reader) func(yield func(SortedIndexEntry, error) bool) {
	br := bufio.NewReader(r)
	return func(yield func(SortedIndexEntry, error) bool) {
		for {
			digestLen, err := varint.ReadUvarint(br)
			if err != nil {
				if err == io.EOF {
					return
				}
				yield(SortedIndexEntry{}, fmt.Errorf("reading side index entry length: %w", err))
				return
			}
			digest := make([]byte, digestLen)
			if _, err := io.ReadFull(br, digest); err != nil {
				yield(SortedIndexEntry{}, fmt.Errorf("reading side index digest: %w", err))
				return
			}
			var offset uint64
			if err := binary.Read(br, binary.LittleEndian, &offset); err != nil {
				yield(SortedIndexEntry{}, fmt.Errorf("reading side index offset: %w", err))
				return
			}
			if !yield(SortedIndexEntry{Digest: mh.Multihash(digest), Offset: offset}, nil) {
				return
			}
		}
	}
}
