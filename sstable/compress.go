package sstable

import (
	"sync"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
)

var (
	zstdEncOnce sync.Once
	zstdEnc     *zstd.Encoder

	zstdDecOnce sync.Once
	zstdDec     *zstd.Decoder
)

func getZstdEncoder() *zstd.Encoder {
	zstdEncOnce.Do(func() {
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			// zstd.NewWriter(nil) only fails on invalid options; none
			// are set here, so this is unreachable in practice.
			panic(err)
		}
		zstdEnc = enc
	})
	return zstdEnc
}

func getZstdDecoder() *zstd.Decoder {
	zstdDecOnce.Do(func() {
		dec, err := zstd.NewReader(nil)
		if err != nil {
			panic(err)
		}
		zstdDec = dec
	})
	return zstdDec
}

// compressBlock compresses src per compression, returning the
// compressed bytes and the effective compression type. When the
// compressed form does not shrink the payload below 87.5% of its raw
// size, the caller is expected to fall back to storing it
// uncompressed.
func compressBlock(src []byte, compression CompressionType) ([]byte, CompressionType) {
	switch compression {
	case SnappyCompression:
		return snappy.Encode(nil, src), SnappyCompression
	case ZstdCompression:
		return getZstdEncoder().EncodeAll(src, nil), ZstdCompression
	default:
		return src, NoCompression
	}
}

func decompressBlock(data []byte, compression CompressionType) ([]byte, error) {
	switch compression {
	case SnappyCompression:
		return snappy.Decode(nil, data)
	case ZstdCompression:
		return getZstdDecoder().DecodeAll(data, nil)
	default:
		return data, nil
	}
}
