// Package sstable implements the immutable sorted-table file format
// and its builder and reader. A table file is laid out as:
//
//	+-----------------------+
//	| data block 1          |  <- prefix-compressed entries + trailer
//	| data block 2          |
//	| ...                   |
//	| filter block          |  <- optional, per-window filters
//	| metaindex block       |  <- "filter.<name>" -> filter handle
//	| index block           |  <- separator key -> data-block handle
//	| footer (48 bytes)     |  <- root handles + magic
//	+-----------------------+
//
// Every block is followed by a 5-byte trailer carrying its
// compression type and a masked CRC32C over payload plus type.
package sstable

import (
	"github.com/Priyanshu23/flashstore/internal/codec"
	"github.com/Priyanshu23/flashstore/internal/status"
)

// CompressionType tags how a block's bytes are stored on disk.
type CompressionType byte

const (
	NoCompression     CompressionType = 0
	SnappyCompression CompressionType = 1
	ZstdCompression   CompressionType = 2
)

const (
	// blockTrailerLen is compression-type byte + masked CRC32C(4).
	blockTrailerLen = 5

	// footerLen is two varint64-pair handles, padded to 40 bytes, plus
	// an 8-byte magic.
	footerLen = 48

	magicPadTo = footerLen - 8
)

// magic is the fixed trailing 8 bytes identifying a valid footer.
const magic uint64 = 0xDB4775248B80FB57

// MaxEncodedHandleLen is the maximum bytes two varint64s (offset,
// size) can occupy.
const MaxEncodedHandleLen = 20

// BlockHandle locates a block within a table file.
type BlockHandle struct {
	Offset uint64
	Size   uint64
}

// EncodeTo appends the handle's varint64 encoding to dst.
func (h BlockHandle) EncodeTo(dst []byte) []byte {
	dst = codec.PutVarint64(dst, h.Offset)
	dst = codec.PutVarint64(dst, h.Size)
	return dst
}

// DecodeBlockHandle decodes a handle from the front of src, returning
// the handle and the remaining bytes.
func DecodeBlockHandle(src []byte) (BlockHandle, []byte, bool) {
	offset, rest, ok := codec.GetVarint64(src)
	if !ok {
		return BlockHandle{}, src, false
	}
	size, rest, ok := codec.GetVarint64(rest)
	if !ok {
		return BlockHandle{}, src, false
	}
	return BlockHandle{Offset: offset, Size: size}, rest, true
}

// Footer is the fixed-size trailer identifying the metaindex and
// index block locations.
type Footer struct {
	MetaindexHandle BlockHandle
	IndexHandle     BlockHandle
}

// EncodeTo returns the footer's fixed footerLen-byte encoding.
func (f Footer) EncodeTo() []byte {
	buf := make([]byte, 0, footerLen)
	buf = f.MetaindexHandle.EncodeTo(buf)
	buf = f.IndexHandle.EncodeTo(buf)
	if len(buf) > magicPadTo {
		panic("sstable: encoded handles overflow footer padding region")
	}
	padded := make([]byte, magicPadTo)
	copy(padded, buf)
	padded = codec.PutFixed64(padded, magic)
	return padded
}

// DecodeFooter parses the last footerLen bytes of a table file.
func DecodeFooter(data []byte) (Footer, status.Status) {
	if len(data) != footerLen {
		return Footer{}, status.Corruptionf("sstable: footer has wrong length")
	}
	gotMagic := codec.DecodeFixed64(data[magicPadTo:])
	if gotMagic != magic {
		return Footer{}, status.Corruptionf("sstable: not an sstable (bad magic number)")
	}

	meta, rest, ok := DecodeBlockHandle(data[:magicPadTo])
	if !ok {
		return Footer{}, status.Corruptionf("sstable: bad metaindex handle in footer")
	}
	index, _, ok := DecodeBlockHandle(rest)
	if !ok {
		return Footer{}, status.Corruptionf("sstable: bad index handle in footer")
	}
	return Footer{MetaindexHandle: meta, IndexHandle: index}, status.OKStatus
}

// FooterLen is the fixed on-disk size of a Footer.
const FooterLen = footerLen
