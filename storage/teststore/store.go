// Copyright (C) 2019 Storj Labs, Inc.
// See LICENSE for copying information.

package teststore

import (
	"context"
	"errors"
	"sort"

	"storj.io/metastore/storage"
)

// errInternal is returned for calls after ForceError has been set
var errInternal = errors.New("internal error")

// ListItem is a single key/value pair held by the store
type ListItem struct {
	Key   storage.Key
	Value storage.Value
}

// Client implements in-memory key value store
type Client struct {
	Items     []ListItem
	ForceError int

	CallCount struct {
		Get         int
		Put         int
		Delete      int
		CommitBatch int
		Close       int
	}

	version int
}

// New creates a new in-memory key-value store
func New() *Client { return &Client{} }

// indexOf finds index of key or where it could be inserted
func (store *Client) indexOf(key storage.Key) (int, bool) {
	i := sort.Search(len(store.Items), func(k int) bool {
		return !store.Items[k].Key.Less(key)
	})

	if i >= len(store.Items) {
		return i, false
	}
	return i, store.Items[i].Key.Equal(key)
}

func (store *Client) forcedError() bool {
	if store.ForceError > 0 {
		store.ForceError--
		return true
	}
	return false
}

// Put adds a value to store
func (store *Client) Put(ctx context.Context, key storage.Key, value storage.Value) error {
	store.version++
	store.CallCount.Put++
	if store.forcedError() {
		return errInternal
	}
	if key.IsZero() {
		return storage.ErrEmptyKey.New("")
	}

	store.put(key, value)
	return nil
}

func (store *Client) put(key storage.Key, value storage.Value) {
	keyIndex, found := store.indexOf(key)
	if found {
		kv := &store.Items[keyIndex]
		kv.Value = storage.CloneValue(value)
		return
	}

	store.Items = append(store.Items, ListItem{})
	copy(store.Items[keyIndex+1:], store.Items[keyIndex:])
	store.Items[keyIndex] = ListItem{
		Key:   storage.CloneKey(key),
		Value: storage.CloneValue(value),
	}
}

// Get gets a value to store
func (store *Client) Get(ctx context.Context, key storage.Key) (storage.Value, error) {
	store.CallCount.Get++
	if store.forcedError() {
		return nil, errInternal
	}
	if key.IsZero() {
		return nil, storage.ErrEmptyKey.New("")
	}

	keyIndex, found := store.indexOf(key)
	if !found {
		return nil, storage.ErrKeyNotFound.New("%q", key)
	}

	return storage.CloneValue(store.Items[keyIndex].Value), nil
}

// Delete deletes key and the value
func (store *Client) Delete(ctx context.Context, key storage.Key) error {
	store.version++
	store.CallCount.Delete++
	if store.forcedError() {
		return errInternal
	}
	if key.IsZero() {
		return storage.ErrEmptyKey.New("")
	}

	keyIndex, found := store.indexOf(key)
	if !found {
		return storage.ErrKeyNotFound.New("%q", key)
	}

	store.delete(keyIndex)
	return nil
}

func (store *Client) delete(keyIndex int) {
	copy(store.Items[keyIndex:], store.Items[keyIndex+1:])
	store.Items = store.Items[:len(store.Items)-1]
}

// CommitBatch applies all staged operations in order, all-or-nothing.
func (store *Client) CommitBatch(ctx context.Context, batch *storage.Batch) error {
	store.version++
	store.CallCount.CommitBatch++
	if store.forcedError() {
		return errInternal
	}

	for _, op := range batch.Ops() {
		if op.Key.IsZero() {
			return storage.ErrEmptyKey.New("")
		}
	}

	for _, op := range batch.Ops() {
		if op.Delete {
			if keyIndex, found := store.indexOf(op.Key); found {
				store.delete(keyIndex)
			}
			continue
		}
		store.put(op.Key, op.Value)
	}
	return nil
}

// Close closes the store
func (store *Client) Close() error {
	store.CallCount.Close++
	return nil
}
