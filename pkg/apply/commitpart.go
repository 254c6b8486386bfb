// Copyright (C) 2019 Storj Labs, Inc.
// See LICENSE for copying information.

package apply

import (
	"context"

	"storj.io/metastore/pkg/meta"
	"storj.io/metastore/storage"
)

// CommitPartResponse applies the outcome of committing one part of a
// multipart upload. It reconciles the staging table, the assembly table and
// the tombstone table under one batch, and handles the race between
// committing a part and a concurrent abort of the whole upload.
type CommitPartResponse struct {
	// multipartKey locates the assembly record of the upload.
	multipartKey string
	// openKey locates the staging entry of the in-flight part.
	openKey string
	// discardedPart describes the staged part's data, tombstoned when the
	// upload turns out to be gone.
	discardedPart *meta.PartInfo
	// uploadInfo is the fully updated assembly record to persist on success.
	uploadInfo *meta.MultipartUploadInfo
	// supersededPart is a previously committed part at the same slot that
	// this commit replaces, if any.
	supersededPart *meta.PartInfo

	status Status
}

// NewCommitPartResponse constructs the response for one decided commit-part
// command. All payloads are computed by the decision stage; nothing is
// derived from the store here.
func NewCommitPartResponse(multipartKey, openKey string,
	discardedPart *meta.PartInfo, uploadInfo *meta.MultipartUploadInfo,
	supersededPart *meta.PartInfo, status Status) *CommitPartResponse {
	return &CommitPartResponse{
		multipartKey:   multipartKey,
		openKey:        openKey,
		discardedPart:  discardedPart,
		uploadInfo:     uploadInfo,
		supersededPart: supersededPart,
		status:         status,
	}
}

// ApplyTo stages the mutations for the decided status.
//
// Upload-not-found means the upload was aborted before this commit could
// apply: the staged part's data is folded into the tombstone entry at the
// open key so it is reclaimed rather than leaked, and nothing else changes.
//
// Success lands three operations in one batch: tombstone any superseded
// prior-slot part, overwrite the assembly record, remove the staging entry.
// The tombstone write is staged before the assembly write so a partially
// inspected batch never shows a new assembly record without its garbage
// accounted for.
func (response *CommitPartResponse) ApplyTo(ctx context.Context, db *meta.Store, batch *storage.Batch) (err error) {
	defer mon.Task()(&ctx)(&err)

	switch response.status {
	case StatusUploadNotFound:
		return response.applyAborted(ctx, db, batch)
	case StatusOK:
		return response.applyCommitted(ctx, db, batch)
	default:
		return nil
	}
}

func (response *CommitPartResponse) applyAborted(ctx context.Context, db *meta.Store, batch *storage.Batch) error {
	if response.discardedPart == nil {
		return Error.Wrap(meta.ErrInvariant.New("aborted commit of %q has no part descriptor", response.openKey))
	}

	existing, err := db.Tombstones(ctx, response.openKey)
	if err != nil {
		return Error.Wrap(err)
	}

	merged := meta.MergeTombstones(existing, response.discardedPart.ObjectInfo)
	return Error.Wrap(db.StageTombstones(batch, response.openKey, &merged))
}

func (response *CommitPartResponse) applyCommitted(ctx context.Context, db *meta.Store, batch *storage.Batch) error {
	if response.uploadInfo == nil {
		return Error.Wrap(meta.ErrInvariant.New("committed part %q has no assembly record", response.openKey))
	}

	// the only read happens before anything is staged, so a read failure
	// leaves the batch exactly as it was
	if response.supersededPart != nil {
		existing, err := db.Tombstones(ctx, response.supersededPart.Name)
		if err != nil {
			return Error.Wrap(err)
		}
		merged := meta.MergeTombstones(existing, response.supersededPart.ObjectInfo)
		if err := db.StageTombstones(batch, response.supersededPart.Name, &merged); err != nil {
			return Error.Wrap(err)
		}
	}

	if err := db.StageMultipartInfo(batch, response.multipartKey, response.uploadInfo); err != nil {
		return Error.Wrap(err)
	}

	// the part now lives inside the assembly record, so the staging entry
	// can go; keeping both would let a later abort double-account the part
	db.StageOpenPartDelete(batch, response.openKey)
	return nil
}
