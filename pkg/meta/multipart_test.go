// Copyright (C) 2019 Storj Labs, Inc.
// See LICENSE for copying information.

package meta

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddPart(t *testing.T) {
	info := &MultipartUploadInfo{UploadID: NewUploadID()}

	replaced := info.AddPart(PartInfo{
		ObjectInfo: ObjectInfo{Name: "p2", DataKey: "d2"},
		PartNumber: 2,
	})
	require.Nil(t, replaced)

	replaced = info.AddPart(PartInfo{
		ObjectInfo: ObjectInfo{Name: "p1", DataKey: "d1"},
		PartNumber: 1,
	})
	require.Nil(t, replaced)

	// ordered by part number
	require.Len(t, info.Parts, 2)
	assert.Equal(t, 1, info.Parts[0].PartNumber)
	assert.Equal(t, 2, info.Parts[1].PartNumber)

	// same slot replaces and reports the old part
	replaced = info.AddPart(PartInfo{
		ObjectInfo: ObjectInfo{Name: "p2b", DataKey: "d2b"},
		PartNumber: 2,
	})
	require.NotNil(t, replaced)
	assert.Equal(t, "d2", replaced.DataKey)

	part, ok := info.Part(2)
	require.True(t, ok)
	assert.Equal(t, "d2b", part.DataKey)

	_, ok = info.Part(5)
	assert.False(t, ok)
}

func TestMultipartRoundTrip(t *testing.T) {
	info := &MultipartUploadInfo{UploadID: "upload-1"}
	info.AddPart(PartInfo{ObjectInfo: ObjectInfo{Name: "p1", DataKey: "d1", Size: 5}, PartNumber: 1})

	data, err := info.Marshal()
	require.NoError(t, err)

	decoded, err := UnmarshalMultipartInfo(data)
	require.NoError(t, err)
	assert.Equal(t, info, decoded)

	_, err = UnmarshalMultipartInfo([]byte("{}"))
	require.True(t, ErrDecode.Has(err))
}

func TestMergeTombstones(t *testing.T) {
	p1 := ObjectInfo{Name: "p1", DataKey: "d1"}
	p2 := ObjectInfo{Name: "p2", DataKey: "d2"}

	merged := MergeTombstones(nil, p1)
	require.Equal(t, []ObjectInfo{p1}, merged.Objects)

	merged = MergeTombstones(&merged, p2)
	require.Equal(t, []ObjectInfo{p1, p2}, merged.Objects)

	// identical data reference is not double-counted
	merged = MergeTombstones(&merged, p1)
	require.Equal(t, []ObjectInfo{p1, p2}, merged.Objects)

	// merge does not mutate its input
	existing := Tombstones{Objects: []ObjectInfo{p1}}
	_ = MergeTombstones(&existing, p2)
	require.Equal(t, []ObjectInfo{p1}, existing.Objects)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "b/o/u", MultipartKey("b", "o", "u"))
	assert.Equal(t, "b/o/u/3", OpenPartKey("b", "o", "u", 3))
	assert.NotEqual(t, NewUploadID(), NewUploadID())
}
