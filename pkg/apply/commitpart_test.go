// Copyright (C) 2019 Storj Labs, Inc.
// See LICENSE for copying information.

package apply

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"storj.io/metastore/internal/testcontext"
	"storj.io/metastore/pkg/meta"
	"storj.io/metastore/storage"
	"storj.io/metastore/storage/teststore"
)

type fixture struct {
	kv    *teststore.Client
	db    *meta.Store
	batch *storage.Batch
}

func newFixture(t *testing.T) *fixture {
	kv := teststore.New()
	return &fixture{
		kv:    kv,
		db:    meta.NewStore(zaptest.NewLogger(t), kv),
		batch: storage.NewBatch(),
	}
}

func (f *fixture) commit(ctx *testcontext.Context, t *testing.T) {
	require.NoError(t, f.db.CommitBatch(ctx, f.batch))
	f.batch = storage.NewBatch()
}

func part(name, dataKey string, number int) *meta.PartInfo {
	return &meta.PartInfo{
		ObjectInfo: meta.ObjectInfo{Name: name, DataKey: dataKey, Size: int64(number) * 100},
		PartNumber: number,
	}
}

func TestCommitPartSuccess(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()
	f := newFixture(t)

	multipartKey := meta.MultipartKey("bucket", "object", "upload-1")
	openKey := meta.OpenPartKey("bucket", "object", "upload-1", 1)
	p1 := part("p1", "data-1", 1)

	require.NoError(t, f.db.StageOpenPart(f.batch, openKey, p1))
	f.commit(ctx, t)

	upload := &meta.MultipartUploadInfo{UploadID: "upload-1"}
	upload.AddPart(*p1)

	response := NewCommitPartResponse(multipartKey, openKey, p1, upload, nil, StatusOK)
	require.NoError(t, response.ApplyTo(ctx, f.db, f.batch))
	f.commit(ctx, t)

	// assembly record present with the part recorded
	stored, err := f.db.MultipartInfo(ctx, multipartKey)
	require.NoError(t, err)
	got, ok := stored.Part(1)
	require.True(t, ok)
	assert.Equal(t, "data-1", got.DataKey)

	// staging entry gone
	_, err = f.db.OpenPart(ctx, openKey)
	require.True(t, storage.ErrKeyNotFound.Has(err))

	// no tombstones created
	ts, err := f.db.Tombstones(ctx, openKey)
	require.NoError(t, err)
	assert.Nil(t, ts)
}

func TestCommitPartSupersession(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()
	f := newFixture(t)

	multipartKey := meta.MultipartKey("bucket", "object", "upload-2")
	openKey := meta.OpenPartKey("bucket", "object", "upload-2", 1)

	p0 := part("p0", "data-old", 1)
	p1 := part("p1", "data-new", 1)

	upload := &meta.MultipartUploadInfo{UploadID: "upload-2"}
	upload.AddPart(*p0)
	replaced := upload.AddPart(*p1)
	require.NotNil(t, replaced)

	response := NewCommitPartResponse(multipartKey, openKey, p1, upload, p0, StatusOK)
	require.NoError(t, response.ApplyTo(ctx, f.db, f.batch))

	// tombstone staged before the assembly write
	ops := f.batch.Ops()
	require.Len(t, ops, 3)
	assert.Contains(t, ops[0].Key.String(), "deleted/")
	assert.Contains(t, ops[1].Key.String(), "multipart/")
	assert.True(t, ops[2].Delete)

	f.commit(ctx, t)

	// tombstone at the prior part's name holds the prior part
	ts, err := f.db.Tombstones(ctx, p0.Name)
	require.NoError(t, err)
	require.NotNil(t, ts)
	require.Len(t, ts.Objects, 1)
	assert.Equal(t, "data-old", ts.Objects[0].DataKey)

	// assembly record reflects the new part only
	stored, err := f.db.MultipartInfo(ctx, multipartKey)
	require.NoError(t, err)
	got, ok := stored.Part(1)
	require.True(t, ok)
	assert.Equal(t, "data-new", got.DataKey)
}

func TestCommitPartAbortRace(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()
	f := newFixture(t)

	multipartKey := meta.MultipartKey("bucket", "object", "upload-3")
	openKey := meta.OpenPartKey("bucket", "object", "upload-3", 2)
	p2 := part("p2", "data-2", 2)

	require.NoError(t, f.db.StageOpenPart(f.batch, openKey, p2))
	f.commit(ctx, t)

	response := NewCommitPartResponse(multipartKey, openKey, p2, nil, nil, StatusUploadNotFound)
	require.NoError(t, response.ApplyTo(ctx, f.db, f.batch))
	f.commit(ctx, t)

	// the part's data is tombstoned under the open key
	ts, err := f.db.Tombstones(ctx, openKey)
	require.NoError(t, err)
	require.NotNil(t, ts)
	require.Equal(t, []meta.ObjectInfo{p2.ObjectInfo}, ts.Objects)

	// the assembly table is untouched
	_, err = f.db.MultipartInfo(ctx, multipartKey)
	require.True(t, storage.ErrKeyNotFound.Has(err))
}

func TestCommitPartTombstoneAccumulation(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()
	f := newFixture(t)

	multipartKey := meta.MultipartKey("bucket", "object", "upload-4")
	openKey := meta.OpenPartKey("bucket", "object", "upload-4", 1)

	p3 := part("p3", "data-3", 1)
	p4 := part("p4", "data-4", 1)

	for _, p := range []*meta.PartInfo{p3, p4} {
		response := NewCommitPartResponse(multipartKey, openKey, p, nil, nil, StatusUploadNotFound)
		require.NoError(t, response.ApplyTo(ctx, f.db, f.batch))
		f.commit(ctx, t)
	}

	// both descriptors accumulate under the same key, in apply order
	ts, err := f.db.Tombstones(ctx, openKey)
	require.NoError(t, err)
	require.NotNil(t, ts)
	require.Equal(t, []meta.ObjectInfo{p3.ObjectInfo, p4.ObjectInfo}, ts.Objects)

	// re-applying the identical descriptor does not double-count
	response := NewCommitPartResponse(multipartKey, openKey, p4, nil, nil, StatusUploadNotFound)
	require.NoError(t, response.ApplyTo(ctx, f.db, f.batch))
	f.commit(ctx, t)

	ts, err = f.db.Tombstones(ctx, openKey)
	require.NoError(t, err)
	require.Equal(t, []meta.ObjectInfo{p3.ObjectInfo, p4.ObjectInfo}, ts.Objects)
}

func TestCommitPartUnrecognizedStatus(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()
	f := newFixture(t)

	p := part("p", "data", 1)
	upload := &meta.MultipartUploadInfo{UploadID: "upload-5"}
	upload.AddPart(*p)

	for _, status := range []Status{StatusAccessDenied, StatusInternalError, StatusVolumeAlreadyExists} {
		response := NewCommitPartResponse("mk", "ok", p, upload, p, status)
		require.NoError(t, response.ApplyTo(ctx, f.db, f.batch))
		assert.Zero(t, f.batch.Len(), "status %v staged operations", status)
	}
}

func TestCommitPartReadErrorPropagates(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()
	f := newFixture(t)

	p := part("p", "data", 1)

	f.kv.ForceError = 1
	response := NewCommitPartResponse("mk", "ok", p, nil, nil, StatusUploadNotFound)
	err := response.ApplyTo(ctx, f.db, f.batch)
	require.Error(t, err)
	// nothing was staged before the failing read
	assert.Zero(t, f.batch.Len())

	upload := &meta.MultipartUploadInfo{UploadID: "upload-6"}
	upload.AddPart(*p)

	f.kv.ForceError = 1
	response = NewCommitPartResponse("mk", "ok", p, upload, p, StatusOK)
	err = response.ApplyTo(ctx, f.db, f.batch)
	require.Error(t, err)
	assert.Zero(t, f.batch.Len())
}

func TestCommitPartInvariants(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()
	f := newFixture(t)

	// aborted commit without a part descriptor would leak staged data
	response := NewCommitPartResponse("mk", "ok", nil, nil, nil, StatusUploadNotFound)
	err := response.ApplyTo(ctx, f.db, f.batch)
	require.True(t, meta.ErrInvariant.Has(err))

	// successful commit without an assembly record is a decision-stage bug
	response = NewCommitPartResponse("mk", "ok", part("p", "d", 1), nil, nil, StatusOK)
	err = response.ApplyTo(ctx, f.db, f.batch)
	require.True(t, meta.ErrInvariant.Has(err))

	assert.Zero(t, f.batch.Len())
}
