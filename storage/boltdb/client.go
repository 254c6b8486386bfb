// Copyright (C) 2019 Storj Labs, Inc.
// See LICENSE for copying information.

package boltdb

import (
	"context"
	"time"

	"github.com/boltdb/bolt"
	"github.com/zeebo/errs"
	"go.uber.org/zap"
	monkit "gopkg.in/spacemonkeygo/monkit.v2"

	"storj.io/metastore/storage"
)

var (
	mon = monkit.Package()

	// Error is the default boltdb errs class
	Error = errs.Class("boltdb error")
)

var (
	defaultTimeout = 1 * time.Second
)

const (
	// fileMode sets permissions so owner can read and write
	fileMode = 0600
)

// Client is the storage interface for the Bolt database
type Client struct {
	logger *zap.Logger
	db     *bolt.DB
	Path   string
	Bucket []byte
}

// New instantiates a new BoltDB client given a zap logger, db file path and a
// bucket name to hold the keys
func New(logger *zap.Logger, path, bucket string) (*Client, error) {
	db, err := bolt.Open(path, fileMode, &bolt.Options{Timeout: defaultTimeout})
	if err != nil {
		return nil, Error.Wrap(err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucket))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, Error.Wrap(err)
	}

	return &Client{
		logger: logger,
		db:     db,
		Path:   path,
		Bucket: []byte(bucket),
	}, nil
}

// Get looks up the provided key from boltdb, returning either an error or the result.
func (client *Client) Get(ctx context.Context, key storage.Key) (_ storage.Value, err error) {
	defer mon.Task()(&ctx)(&err)
	if key.IsZero() {
		return nil, storage.ErrEmptyKey.New("")
	}

	var value storage.Value
	err = client.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(client.Bucket).Get([]byte(key))
		if data == nil {
			return storage.ErrKeyNotFound.New("%q", key)
		}
		value = storage.CloneValue(storage.Value(data))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Put adds a key/value to boltDB
func (client *Client) Put(ctx context.Context, key storage.Key, value storage.Value) (err error) {
	defer mon.Task()(&ctx)(&err)
	if key.IsZero() {
		return storage.ErrEmptyKey.New("")
	}

	return Error.Wrap(client.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(client.Bucket).Put([]byte(key), []byte(value))
	}))
}

// Delete deletes a key/value pair from boltdb, for a given the key
func (client *Client) Delete(ctx context.Context, key storage.Key) (err error) {
	defer mon.Task()(&ctx)(&err)
	if key.IsZero() {
		return storage.ErrEmptyKey.New("")
	}

	return Error.Wrap(client.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(client.Bucket).Delete([]byte(key))
	}))
}

// CommitBatch replays all staged operations inside a single bolt update
// transaction, so the batch lands all-or-nothing.
func (client *Client) CommitBatch(ctx context.Context, batch *storage.Batch) (err error) {
	defer mon.Task()(&ctx)(&err)
	if batch.Len() == 0 {
		return nil
	}

	return Error.Wrap(client.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(client.Bucket)
		for _, op := range batch.Ops() {
			if op.Key.IsZero() {
				return storage.ErrEmptyKey.New("")
			}
			if op.Delete {
				if err := bucket.Delete([]byte(op.Key)); err != nil {
					return err
				}
				continue
			}
			if err := bucket.Put([]byte(op.Key), []byte(op.Value)); err != nil {
				return err
			}
		}
		return nil
	}))
}

// Close closes a BoltDB client
func (client *Client) Close() error {
	return Error.Wrap(client.db.Close())
}
