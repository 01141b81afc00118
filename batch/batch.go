// Package batch implements the write-batch wire format: a sequence of
// Put/Delete records prefixed by a base sequence number and count,
// for atomic multi-key application to a memtable. The serialized form
// doubles as the payload of a single WAL record.
package batch

import (
	"github.com/Priyanshu23/flashstore/ikey"
	"github.com/Priyanshu23/flashstore/internal/codec"
	"github.com/Priyanshu23/flashstore/internal/status"
	"github.com/Priyanshu23/flashstore/memtable"
)

const (
	tagValue    byte = 1
	tagDeletion byte = 0

	headerLen = 8 + 4 // u64le sequence + u32le count
)

// Batch accumulates Put/Delete operations into the serialized wire
// format: u64le(sequence) | u32le(count) | records.
type Batch struct {
	data  []byte
	count uint32
}

// New returns an empty batch.
func New() *Batch {
	b := &Batch{data: make([]byte, headerLen)}
	return b
}

func (b *Batch) ensureHeader() {
	if len(b.data) < headerLen {
		b.data = append(b.data, make([]byte, headerLen-len(b.data))...)
	}
}

// SetSequence sets the base sequence number records are assigned
// starting from on InsertInto.
func (b *Batch) SetSequence(seq uint64) {
	b.ensureHeader()
	copy(b.data[0:8], codec.PutFixed64(nil, seq))
}

// Sequence returns the batch's base sequence number.
func (b *Batch) Sequence() uint64 {
	b.ensureHeader()
	return codec.DecodeFixed64(b.data[0:8])
}

// Count returns the number of records in the batch.
func (b *Batch) Count() int { return int(b.count) }

func (b *Batch) setCount(n uint32) {
	b.ensureHeader()
	copy(b.data[8:12], codec.PutFixed32(nil, n))
	b.count = n
}

// Put appends a Put record.
func (b *Batch) Put(key, value []byte) {
	b.ensureHeader()
	b.data = append(b.data, tagValue)
	b.data = codec.PutVarint32(b.data, uint32(len(key)))
	b.data = append(b.data, key...)
	b.data = codec.PutVarint32(b.data, uint32(len(value)))
	b.data = append(b.data, value...)
	b.setCount(b.count + 1)
}

// Delete appends a Delete record.
func (b *Batch) Delete(key []byte) {
	b.ensureHeader()
	b.data = append(b.data, tagDeletion)
	b.data = codec.PutVarint32(b.data, uint32(len(key)))
	b.data = append(b.data, key...)
	b.setCount(b.count + 1)
}

// Append concatenates other's records onto b, combining both their
// counts. b's base sequence is left unchanged.
func (b *Batch) Append(other *Batch) {
	b.ensureHeader()
	other.ensureHeader()
	b.data = append(b.data, other.data[headerLen:]...)
	b.setCount(b.count + other.count)
}

// Reset clears the batch back to empty, keeping its sequence number.
func (b *Batch) Reset() {
	seq := b.Sequence()
	b.data = b.data[:headerLen]
	b.setCount(0)
	b.SetSequence(seq)
}

// Clear is an alias for Reset.
func (b *Batch) Clear() { b.Reset() }

// ApproximateSize returns the batch's current wire-format size in
// bytes, including the header.
func (b *Batch) ApproximateSize() int {
	b.ensureHeader()
	return len(b.data)
}

// Data returns the batch's raw wire-format bytes (for writing to the
// WAL as a single record).
func (b *Batch) Data() []byte {
	b.ensureHeader()
	return b.data
}

// Load returns a new batch holding a copy of data, which must be a
// previously-serialized batch.
func Load(data []byte) (*Batch, status.Status) {
	if len(data) < headerLen {
		return nil, status.Corruptionf("batch: too short for header")
	}
	count := codec.DecodeFixed32(data[8:12])
	b := &Batch{data: append([]byte(nil), data...), count: count}
	return b, status.OKStatus
}

// Handler receives the decoded operations from Iterate.
type Handler interface {
	Put(key, value []byte)
	Delete(key []byte)
}

type funcHandler struct {
	put    func(key, value []byte)
	delete func(key []byte)
}

func (h funcHandler) Put(key, value []byte) { h.put(key, value) }
func (h funcHandler) Delete(key []byte)     { h.delete(key) }

// Iterate walks the batch's records in order, dispatching to handler.
// It reports Corruption if the framing is malformed or the decoded
// record count does not match the header's count.
func (b *Batch) Iterate(handler Handler) status.Status {
	b.ensureHeader()
	body := b.data[headerLen:]

	var decoded uint32
	for len(body) > 0 {
		tag := body[0]
		body = body[1:]

		keyLen, rest, ok := codec.GetVarint32(body)
		if !ok || int(keyLen) > len(rest) {
			return status.Corruptionf("batch: bad key length")
		}
		key := rest[:keyLen]
		body = rest[keyLen:]

		switch tag {
		case tagValue:
			valueLen, rest, ok := codec.GetVarint32(body)
			if !ok || int(valueLen) > len(rest) {
				return status.Corruptionf("batch: bad value length")
			}
			handler.Put(key, rest[:valueLen])
			body = rest[valueLen:]
		case tagDeletion:
			handler.Delete(key)
		default:
			return status.Corruptionf("batch: unknown record tag")
		}
		decoded++
	}

	if decoded != b.count {
		return status.Corruptionf("batch: record count mismatch")
	}
	return status.OKStatus
}

// InsertInto applies the batch to a memtable, assigning sequence
// numbers starting at the batch's base sequence and incrementing by
// one per record.
func (b *Batch) InsertInto(t *memtable.Table) status.Status {
	seq := b.Sequence()
	return b.Iterate(funcHandler{
		put: func(key, value []byte) {
			t.Add(seq, ikey.TypeValue, key, value)
			seq++
		},
		delete: func(key []byte) {
			t.Add(seq, ikey.TypeDeletion, key, nil)
			seq++
		},
	})
}
