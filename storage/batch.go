// Copyright (C) 2019 Storj Labs, Inc.
// See LICENSE for copying information.

package storage

// BatchOp is a single staged operation in a Batch.
// A nil Value with Delete set means the key is removed.
type BatchOp struct {
	Key    Key
	Value  Value
	Delete bool
}

// Batch accumulates staged operations for a single atomic commit.
//
// Staging is in-memory only and never fails. A batch is exclusively owned by
// whoever constructed it and must be committed at most once via
// KeyValueStore.CommitBatch.
type Batch struct {
	ops []BatchOp
}

// NewBatch returns an empty batch.
func NewBatch() *Batch { return &Batch{} }

// Put stages an upsert of key to value.
func (batch *Batch) Put(key Key, value Value) {
	batch.ops = append(batch.ops, BatchOp{
		Key:   CloneKey(key),
		Value: CloneValue(value),
	})
}

// Delete stages a removal of key.
func (batch *Batch) Delete(key Key) {
	batch.ops = append(batch.ops, BatchOp{
		Key:    CloneKey(key),
		Delete: true,
	})
}

// Ops returns the staged operations in staging order.
func (batch *Batch) Ops() []BatchOp { return batch.ops }

// Len returns the number of staged operations.
func (batch *Batch) Len() int { return len(batch.ops) }

// Reset drops all staged operations so the batch can be reused.
func (batch *Batch) Reset() { batch.ops = batch.ops[:0] }
