// Copyright (C) 2019 Storj Labs, Inc.
// See LICENSE for copying information.

package apply

import (
	"context"

	"storj.io/metastore/pkg/meta"
	"storj.io/metastore/storage"
)

// VolumeCreateResponse applies the outcome of creating a volume. On success
// the fully built volume record is written; any other status, such as the
// volume already existing, stages nothing.
type VolumeCreateResponse struct {
	info   *meta.VolumeInfo
	status Status
}

// NewVolumeCreateResponse constructs the response for one decided
// create-volume command.
func NewVolumeCreateResponse(info *meta.VolumeInfo, status Status) *VolumeCreateResponse {
	return &VolumeCreateResponse{info: info, status: status}
}

// ApplyTo stages the volume record write when the command succeeded.
func (response *VolumeCreateResponse) ApplyTo(ctx context.Context, db *meta.Store, batch *storage.Batch) (err error) {
	defer mon.Task()(&ctx)(&err)

	if response.status != StatusOK {
		return nil
	}
	if response.info == nil {
		return Error.Wrap(meta.ErrInvariant.New("created volume has no record"))
	}
	if response.info.ObjectID() == 0 {
		return Error.Wrap(meta.ErrInvariant.New("created volume %q has no object id", response.info.Volume()))
	}
	return Error.Wrap(db.StageVolume(batch, response.info))
}
