// Copyright (C) 2019 Storj Labs, Inc.
// See LICENSE for copying information.

package meta

import (
	"strconv"

	"github.com/google/uuid"
)

// NewUploadID returns a fresh multipart upload id.
func NewUploadID() string { return uuid.NewString() }

// VolumeKey returns the volume-table key for a volume.
func VolumeKey(volume string) string { return volume }

// MultipartKey returns the assembly-record key for a multipart upload.
func MultipartKey(bucket, object, uploadID string) string {
	return bucket + "/" + object + "/" + uploadID
}

// OpenPartKey returns the staging-entry key for one in-flight part upload.
func OpenPartKey(bucket, object, uploadID string, partNumber int) string {
	return MultipartKey(bucket, object, uploadID) + "/" + strconv.Itoa(partNumber)
}
