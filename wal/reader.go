package wal

import (
	"io"
	"iter"
	"os"

	"github.com/Priyanshu23/flashstore/internal/codec"
)

// Reporter receives corruption events the reader recovers from
// locally; bytes is the number of bytes dropped and reason is a
// short diagnostic string.
type Reporter interface {
	Corruption(bytes int, reason string)
}

// noopReporter silently discards corruption reports.
type noopReporter struct{}

func (noopReporter) Corruption(int, string) {}

// Reader reads one physical block at a time and reassembles logical
// records. It makes a single forward pass and is not safe for
// concurrent use.
type Reader struct {
	f        *os.File
	reporter Reporter

	buf         [BlockSize]byte
	bufLen      int // valid bytes currently in buf
	bufPos      int // read cursor within buf
	blockOffset int64

	eof              bool
	initialOffset    int64
	resyncing        bool
	lastRecordOffset int64
}

// NewReader returns a Reader over f, reading from its current offset.
func NewReader(f *os.File, reporter Reporter) *Reader {
	if reporter == nil {
		reporter = noopReporter{}
	}
	return &Reader{f: f, reporter: reporter}
}

// NewReaderAt returns a Reader that skips to the block containing
// initialOffset and discards any fragment chain in progress there
// before resuming at the next FIRST/FULL record ("resync" mode).
func NewReaderAt(f *os.File, reporter Reporter, initialOffset int64) (*Reader, error) {
	r := NewReader(f, reporter)
	if initialOffset == 0 {
		return r, nil
	}

	offsetInBlock := initialOffset % BlockSize
	blockStart := initialOffset - offsetInBlock
	if offsetInBlock > BlockSize-headerSize+1 {
		// An offset in the last 5 bytes of a block can only fall in
		// zero padding, so it names the next block. An offset with
		// exactly 6 bytes left stays in this block; the records before
		// it are skipped as the block is read.
		blockStart += BlockSize
	}
	if _, err := f.Seek(blockStart, io.SeekStart); err != nil {
		return nil, err
	}
	r.blockOffset = blockStart
	r.initialOffset = initialOffset
	r.resyncing = true
	return r, nil
}

// LastRecordOffset returns the file offset of the first physical
// fragment of the most recently returned logical record.
func (r *Reader) LastRecordOffset() int64 { return r.lastRecordOffset }

// ReadRecord returns the next logical record, or io.EOF when the log
// has been fully consumed (including the case of a truncated trailing
// record, which is treated as a clean EOF, not corruption).
func (r *Reader) ReadRecord() ([]byte, error) {
	var record []byte
	inFragmentedRecord := false
	startOffset := int64(0)

	for {
		t, fragment, physicalOffset, err := r.readPhysicalRecord()
		if err == errBadRecord {
			inFragmentedRecord = false
			record = nil
			continue
		}
		if err != nil {
			return nil, err
		}

		if r.resyncing {
			switch t {
			case middleType, lastType:
				continue
			default:
				r.resyncing = false
			}
		}

		switch t {
		case fullType:
			if inFragmentedRecord && len(record) > 0 {
				r.reportDrop(len(record), "partial record without end")
			}
			startOffset = physicalOffset
			r.lastRecordOffset = startOffset
			return append([]byte(nil), fragment...), nil

		case firstType:
			if inFragmentedRecord && len(record) > 0 {
				r.reportDrop(len(record), "partial record without end")
			}
			record = append([]byte(nil), fragment...)
			startOffset = physicalOffset
			inFragmentedRecord = true

		case middleType:
			if !inFragmentedRecord {
				r.reportDrop(len(fragment), "missing start of fragmented record")
			} else {
				record = append(record, fragment...)
			}

		case lastType:
			if !inFragmentedRecord {
				r.reportDrop(len(fragment), "missing start of fragmented record")
			} else {
				record = append(record, fragment...)
				r.lastRecordOffset = startOffset
				return record, nil
			}

		case zeroType:
			// Preallocated space; silently treated as a bad record by
			// readPhysicalRecord already.
		}
	}
}

// Iter yields (payload, error) pairs until io.EOF, which terminates
// the sequence without being yielded.
func (r *Reader) Iter() iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		for {
			rec, err := r.ReadRecord()
			if err == io.EOF {
				return
			}
			if !yield(rec, err) {
				return
			}
			if err != nil {
				return
			}
		}
	}
}

var errBadRecord = io.ErrUnexpectedEOF // sentinel: "drop this fragment, keep reading"

// readPhysicalRecord reads exactly one physical record, refilling buf
// from the file as needed.
func (r *Reader) readPhysicalRecord() (t recordType, payload []byte, offset int64, err error) {
	for {
		if r.bufLen-r.bufPos < headerSize {
			if err := r.fillBuffer(); err != nil {
				return 0, nil, 0, err
			}
			if r.bufLen-r.bufPos < headerSize {
				// Trailing bytes too short to hold a header: clean
				// EOF, not corruption.
				return 0, nil, 0, io.EOF
			}
		}

		header := r.buf[r.bufPos : r.bufPos+headerSize]
		storedCRC := codec.DecodeFixed32(header[0:4])
		length := int(header[4]) | int(header[5])<<8
		recType := recordType(header[6])

		recordOffset := r.blockOffset + int64(r.bufPos)
		bodyStart := r.bufPos + headerSize

		if bodyStart+length > r.bufLen {
			if r.eof {
				// Truncated trailing record: silent EOF.
				r.bufPos = r.bufLen
				return 0, nil, 0, io.EOF
			}
			r.reportDrop(r.bufLen-r.bufPos, "bad record length")
			r.bufPos = r.bufLen
			return 0, nil, 0, errBadRecord
		}

		if recType == zeroType && length == 0 {
			// Preallocated region; silently drop without reporting.
			r.bufPos = r.bufLen
			return 0, nil, 0, errBadRecord
		}

		body := r.buf[bodyStart : bodyStart+length]
		gotCRC := codec.Unmask(storedCRC)
		wantCRC := codec.Extend(typeCRC[recType], body)
		if gotCRC != wantCRC {
			r.reportDrop(r.bufLen-r.bufPos, "checksum mismatch")
			r.bufPos = r.bufLen
			return 0, nil, 0, errBadRecord
		}

		r.bufPos = bodyStart + length

		if recordOffset < r.initialOffset {
			// Suppress events preceding a resync seek target.
			continue
		}

		return recType, body, recordOffset, nil
	}
}

// fillBuffer discards whatever's left of the current block (it is
// either fully consumed or zero-pad trailer with no meaning) and reads
// the next BlockSize bytes as a fresh block.
func (r *Reader) fillBuffer() error {
	if r.eof {
		return io.EOF
	}

	if r.bufLen > 0 {
		r.blockOffset += int64(r.bufLen)
	}
	r.bufPos = 0

	n, err := io.ReadFull(r.f, r.buf[:])
	r.bufLen = n

	switch {
	case err == io.EOF:
		r.eof = true
		return io.EOF
	case err == io.ErrUnexpectedEOF:
		r.eof = true
	case err != nil:
		r.reportDrop(BlockSize, err.Error())
		r.eof = true
		return io.EOF
	case n < BlockSize:
		r.eof = true
	}
	return nil
}

func (r *Reader) reportDrop(bytes int, reason string) {
	if int64(r.blockOffset+int64(r.bufPos)) < r.initialOffset {
		return
	}
	r.reporter.Corruption(bytes, reason)
}
