// Copyright (C) 2019 Storj Labs, Inc.
// See LICENSE for copying information.

package storage

import (
	"bytes"
	"context"

	"github.com/zeebo/errs"
)

// ErrKeyNotFound used when a key is not found
var ErrKeyNotFound = errs.Class("key not found")

// ErrEmptyKey is returned when an empty key is used in Put or Get
var ErrEmptyKey = errs.Class("empty key restricted")

// Key is the type for the keys in a `KeyValueStore`
type Key []byte

// Value is the type for the values in a `KeyValueStore`
type Value []byte

// KeyValueStore describes an ordered key/value store with atomic batch
// commits, like boltdb.
//
// Reads are point lookups. Writes and deletes may either be applied directly
// or staged into a Batch and committed all-or-nothing with CommitBatch.
type KeyValueStore interface {
	// Get gets a value to store
	Get(ctx context.Context, key Key) (Value, error)
	// Put adds a value to store
	Put(ctx context.Context, key Key, value Value) error
	// Delete deletes key and the value
	Delete(ctx context.Context, key Key) error
	// CommitBatch applies all operations staged in batch atomically, in
	// staging order. Either every staged operation lands or none do.
	CommitBatch(ctx context.Context, batch *Batch) error
	// Close closes the store
	Close() error
}

// IsZero returns true if the value struct is it's zero value
func (value Value) IsZero() bool { return len(value) == 0 }

// IsZero returns true if the key struct is it's zero value
func (key Key) IsZero() bool { return len(key) == 0 }

// Less returns whether key is smaller than b
func (key Key) Less(b Key) bool { return bytes.Compare([]byte(key), []byte(b)) < 0 }

// Equal returns whether key and b are equal
func (key Key) Equal(b Key) bool { return bytes.Equal([]byte(key), []byte(b)) }

// String implements the Stringer interface
func (key Key) String() string { return string(key) }
