// Copyright (C) 2019 Storj Labs, Inc.
// See LICENSE for copying information.

package apply

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"storj.io/metastore/internal/testcontext"
	"storj.io/metastore/pkg/acl"
	"storj.io/metastore/pkg/meta"
	"storj.io/metastore/storage"
)

func buildVolume(t *testing.T, name string, objectID int64) *meta.VolumeInfo {
	builder := meta.NewBuilder().
		SetAdmin("admin").
		SetOwner("owner").
		SetVolume(name).
		SetObjectID(objectID)
	require.NoError(t, builder.AddGrant(acl.Grant{Principal: "owner", Rights: acl.Read | acl.Write}))

	info, err := builder.Build()
	require.NoError(t, err)
	return info
}

func TestApplierFlush(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()
	f := newFixture(t)

	applier := NewApplier(zaptest.NewLogger(t), f.db, 0)

	volume := buildVolume(t, "vol1", 1)
	require.NoError(t, applier.Queue(ctx, NewVolumeCreateResponse(volume, StatusOK)))

	// nothing durable before the flush
	_, err := f.db.Volume(ctx, "vol1")
	require.True(t, storage.ErrKeyNotFound.Has(err))

	require.NoError(t, applier.Flush(ctx))

	stored, err := f.db.Volume(ctx, "vol1")
	require.NoError(t, err)
	assert.True(t, volume.Equal(stored))
	assert.Equal(t, "owner", stored.Owner())
}

func TestApplierBatchesManyResponses(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()
	f := newFixture(t)

	applier := NewApplier(zaptest.NewLogger(t), f.db, 0)

	for i := int64(1); i <= 5; i++ {
		volume := buildVolume(t, "vol"+string(rune('a'+i)), i)
		require.NoError(t, applier.Queue(ctx, NewVolumeCreateResponse(volume, StatusOK)))
	}
	require.NoError(t, applier.Flush(ctx))

	// all decided commands landed in a single durable commit
	assert.Equal(t, 1, f.kv.CallCount.CommitBatch)
}

func TestApplierAutoFlush(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()
	f := newFixture(t)

	applier := NewApplier(zaptest.NewLogger(t), f.db, 2)

	for i := int64(1); i <= 4; i++ {
		volume := buildVolume(t, "auto"+string(rune('a'+i)), i)
		require.NoError(t, applier.Queue(ctx, NewVolumeCreateResponse(volume, StatusOK)))
	}

	assert.NotZero(t, f.kv.CallCount.CommitBatch)
	require.NoError(t, applier.Flush(ctx))
}

func TestApplierCommitErrorKeepsBatch(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()
	f := newFixture(t)

	applier := NewApplier(zaptest.NewLogger(t), f.db, 0)

	volume := buildVolume(t, "vol-err", 9)
	require.NoError(t, applier.Queue(ctx, NewVolumeCreateResponse(volume, StatusOK)))

	f.kv.ForceError = 1
	require.Error(t, applier.Flush(ctx))

	// the staged operations survive the failed commit and land on retry
	require.NoError(t, applier.Flush(ctx))

	stored, err := f.db.Volume(ctx, "vol-err")
	require.NoError(t, err)
	assert.True(t, volume.Equal(stored))
}

func TestVolumeCreateNoOp(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()
	f := newFixture(t)

	volume := buildVolume(t, "existing", 2)

	response := NewVolumeCreateResponse(volume, StatusVolumeAlreadyExists)
	require.NoError(t, response.ApplyTo(ctx, f.db, f.batch))
	assert.Zero(t, f.batch.Len())
}

func TestVolumeCreateInvariants(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()
	f := newFixture(t)

	err := NewVolumeCreateResponse(nil, StatusOK).ApplyTo(ctx, f.db, f.batch)
	require.True(t, meta.ErrInvariant.Has(err))

	// a volume record without an identity must not be persisted
	noID, buildErr := meta.NewBuilder().SetAdmin("a").SetOwner("o").SetVolume("v").Build()
	require.NoError(t, buildErr)

	err = NewVolumeCreateResponse(noID, StatusOK).ApplyTo(ctx, f.db, f.batch)
	require.True(t, meta.ErrInvariant.Has(err))
	assert.Zero(t, f.batch.Len())
}
