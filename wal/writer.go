package wal

import (
	"os"
	"sync"
	"sync/atomic"

	"github.com/Priyanshu23/flashstore/internal/codec"
	"github.com/Priyanshu23/flashstore/internal/status"
)

// ErrClosed's message is carried by the IOError status AddRecord
// returns after Close.
var ErrClosed = os.ErrClosed

// Writer frames logical records into BlockSize physical blocks and
// appends them to f, flushing after every record. It assumes a single
// appender on the underlying file; the background loop exists only to
// let AddRecord block its caller until the record is durable.
type Writer struct {
	f           *os.File
	blockOffset int // bytes already used in the current physical block

	ch     chan *writeRequest
	done   chan struct{}
	closed atomic.Bool
	wg     sync.WaitGroup
}

type writeRequest struct {
	payload []byte
	result  chan error
}

// NewWriter returns a Writer appending to an empty (or truncated) f.
func NewWriter(f *os.File) *Writer {
	return NewWriterAt(f, 0)
}

// NewWriterAt returns a Writer resuming at destLength, the current
// length of f in bytes. f must already be positioned (via Seek) at
// that offset; the writer needs it only to know how much of the
// current physical block is already occupied.
func NewWriterAt(f *os.File, destLength int64) *Writer {
	w := &Writer{
		f:           f,
		blockOffset: int(destLength % BlockSize),
		ch:          make(chan *writeRequest),
		done:        make(chan struct{}),
	}
	w.wg.Add(1)
	go w.loop()
	return w
}

// AddRecord appends one logical record, blocking until it has been
// written and flushed to the underlying file.
func (w *Writer) AddRecord(payload []byte) status.Status {
	req := &writeRequest{payload: payload, result: make(chan error, 1)}

	select {
	case w.ch <- req:
	case <-w.done:
		return status.IOErrorf(ErrClosed.Error())
	}

	if err := <-req.result; err != nil {
		return status.Wrap(err, "wal: write record")
	}
	return status.OKStatus
}

// Close stops accepting new records and waits for the background loop
// to exit. It does not close the underlying file.
func (w *Writer) Close() {
	if w.closed.Swap(true) {
		return
	}
	close(w.done)
	w.wg.Wait()
}

func (w *Writer) loop() {
	defer w.wg.Done()

	for {
		select {
		case req := <-w.ch:
			req.result <- w.addRecord(req.payload)
		case <-w.done:
			return
		}
	}
}

// addRecord emits one FULL record if the payload fits in the
// remainder of the current block, otherwise a FIRST -> MIDDLE* ->
// LAST chain.
func (w *Writer) addRecord(payload []byte) error {
	begin := true
	for {
		leftover := BlockSize - w.blockOffset
		if leftover < headerSize {
			if leftover > 0 {
				if _, err := w.f.Write(make([]byte, leftover)); err != nil {
					return err
				}
			}
			w.blockOffset = 0
			leftover = BlockSize
		}

		avail := leftover - headerSize
		fragmentSize := len(payload)
		if fragmentSize > avail {
			fragmentSize = avail
		}

		end := fragmentSize == len(payload)

		var t recordType
		switch {
		case begin && end:
			t = fullType
		case begin:
			t = firstType
		case end:
			t = lastType
		default:
			t = middleType
		}

		if err := w.emitPhysicalRecord(t, payload[:fragmentSize]); err != nil {
			return err
		}
		payload = payload[fragmentSize:]
		begin = false

		if end {
			break
		}
	}

	return w.f.Sync()
}

func (w *Writer) emitPhysicalRecord(t recordType, payload []byte) error {
	var header [headerSize]byte

	crc := codec.Mask(codec.Extend(typeCRC[t], payload))

	copy(header[0:4], codec.PutFixed32(nil, crc))
	header[4] = byte(len(payload))
	header[5] = byte(len(payload) >> 8)
	header[6] = byte(t)

	if _, err := w.f.Write(header[:]); err != nil {
		return err
	}
	if _, err := w.f.Write(payload); err != nil {
		return err
	}

	w.blockOffset += headerSize + len(payload)
	return nil
}

