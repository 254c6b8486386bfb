// Copyright (C) 2019 Storj Labs, Inc.
// See LICENSE for copying information.

// Package apply turns decided command outcomes into staged metadata
// mutations.
//
// Commands are ordered and decided elsewhere; by the time a Response exists
// its terminal status and every payload needed to mutate the store have been
// computed. Applying a response is therefore deterministic: every replica
// that applies the same responses in the same order stages byte-identical
// batches.
package apply

import (
	"context"

	"github.com/zeebo/errs"
	monkit "gopkg.in/spacemonkeygo/monkit.v2"

	"storj.io/metastore/pkg/meta"
	"storj.io/metastore/storage"
)

var (
	mon = monkit.Package()

	// Error is the default apply errs class
	Error = errs.Class("apply error")
)

// Status is the terminal outcome of a decided command.
type Status int

// Terminal statuses.
const (
	StatusOK Status = iota
	StatusUploadNotFound
	StatusVolumeAlreadyExists
	StatusAccessDenied
	StatusInternalError
)

// String returns the status name.
func (status Status) String() string {
	switch status {
	case StatusOK:
		return "ok"
	case StatusUploadNotFound:
		return "upload not found"
	case StatusVolumeAlreadyExists:
		return "volume already exists"
	case StatusAccessDenied:
		return "access denied"
	case StatusInternalError:
		return "internal error"
	default:
		return "unknown"
	}
}

// Response carries one decided command outcome together with the payloads
// needed to mutate the metadata store.
//
// ApplyTo inspects the terminal status and stages the mutations for it into
// batch. Statuses a response does not recognize stage nothing: the command
// was rejected upstream and no state changed. ApplyTo never commits the
// batch and never re-derives payloads from the store; its only reads are the
// read-merge-write lookups of existing tombstone collections, and any failure
// of those propagates before anything is staged.
type Response interface {
	ApplyTo(ctx context.Context, db *meta.Store, batch *storage.Batch) error
}
