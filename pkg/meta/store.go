// Copyright (C) 2019 Storj Labs, Inc.
// See LICENSE for copying information.

package meta

import (
	"context"
	"encoding/json"

	"github.com/zeebo/errs"
	"go.uber.org/zap"
	monkit "gopkg.in/spacemonkeygo/monkit.v2"

	"storj.io/metastore/storage"
)

var (
	mon = monkit.Package()

	// Error is the default meta store errs class
	Error = errs.Class("metastore error")
)

// Table key prefixes inside the shared key/value store. The store orders
// keys bytewise, so each prefix is one contiguous logical table.
const (
	volumePrefix    = "volumes/"
	multipartPrefix = "multipart/"
	openPartPrefix  = "open/"
	tombstonePrefix = "deleted/"
)

// Store gives typed, table-scoped access to the metadata key/value store.
//
// Reads are point lookups against the committed state. Writes and deletes
// are only ever staged into a caller-supplied batch; committing the batch is
// owned by the caller.
type Store struct {
	log *zap.Logger
	kv  storage.KeyValueStore
}

// NewStore creates a Store on top of kv.
func NewStore(log *zap.Logger, kv storage.KeyValueStore) *Store {
	return &Store{log: log, kv: kv}
}

// Volume reads the volume record for name. Absent volumes return a
// storage.ErrKeyNotFound class error.
func (store *Store) Volume(ctx context.Context, name string) (_ *VolumeInfo, err error) {
	defer mon.Task()(&ctx)(&err)
	data, err := store.kv.Get(ctx, storage.Key(volumePrefix+name))
	if err != nil {
		return nil, err
	}
	return UnmarshalVolume(data)
}

// StageVolume stages a full overwrite of the volume record into batch.
func (store *Store) StageVolume(batch *storage.Batch, info *VolumeInfo) error {
	data, err := info.Marshal()
	if err != nil {
		return Error.Wrap(err)
	}
	batch.Put(storage.Key(volumePrefix+VolumeKey(info.Volume())), data)
	return nil
}

// MultipartInfo reads the assembly record at key. Absent records return a
// storage.ErrKeyNotFound class error.
func (store *Store) MultipartInfo(ctx context.Context, key string) (_ *MultipartUploadInfo, err error) {
	defer mon.Task()(&ctx)(&err)
	data, err := store.kv.Get(ctx, storage.Key(multipartPrefix+key))
	if err != nil {
		return nil, err
	}
	return UnmarshalMultipartInfo(data)
}

// StageMultipartInfo stages a full overwrite of the assembly record at key.
func (store *Store) StageMultipartInfo(batch *storage.Batch, key string, info *MultipartUploadInfo) error {
	data, err := info.Marshal()
	if err != nil {
		return Error.Wrap(err)
	}
	batch.Put(storage.Key(multipartPrefix+key), data)
	return nil
}

// OpenPart reads the staging entry at key. Absent entries return a
// storage.ErrKeyNotFound class error.
func (store *Store) OpenPart(ctx context.Context, key string) (_ *PartInfo, err error) {
	defer mon.Task()(&ctx)(&err)
	data, err := store.kv.Get(ctx, storage.Key(openPartPrefix+key))
	if err != nil {
		return nil, err
	}
	return UnmarshalPart(data)
}

// StageOpenPart stages an upsert of the staging entry at key.
func (store *Store) StageOpenPart(batch *storage.Batch, key string, part *PartInfo) error {
	data, err := json.Marshal(part)
	if err != nil {
		return Error.Wrap(err)
	}
	batch.Put(storage.Key(openPartPrefix+key), data)
	return nil
}

// StageOpenPartDelete stages a removal of the staging entry at key.
func (store *Store) StageOpenPartDelete(batch *storage.Batch, key string) {
	batch.Delete(storage.Key(openPartPrefix + key))
}

// Tombstones reads the tombstone collection at key, absent meaning empty.
// Read failures other than absence propagate, a corrupt tombstone entry
// invalidates the whole command being applied.
func (store *Store) Tombstones(ctx context.Context, key string) (_ *Tombstones, err error) {
	defer mon.Task()(&ctx)(&err)
	data, err := store.kv.Get(ctx, storage.Key(tombstonePrefix+key))
	if err != nil {
		if storage.ErrKeyNotFound.Has(err) {
			return nil, nil
		}
		return nil, err
	}
	return UnmarshalTombstones(data)
}

// StageTombstones stages a full overwrite of the tombstone collection at key.
func (store *Store) StageTombstones(batch *storage.Batch, key string, ts *Tombstones) error {
	data, err := ts.Marshal()
	if err != nil {
		return Error.Wrap(err)
	}
	batch.Put(storage.Key(tombstonePrefix+key), data)
	return nil
}

// CommitBatch commits all operations staged in batch atomically.
func (store *Store) CommitBatch(ctx context.Context, batch *storage.Batch) (err error) {
	defer mon.Task()(&ctx)(&err)
	return store.kv.CommitBatch(ctx, batch)
}
