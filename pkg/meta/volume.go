// Copyright (C) 2019 Storj Labs, Inc.
// See LICENSE for copying information.

package meta

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/zeebo/errs"

	"storj.io/metastore/pkg/acl"
)

var (
	// ErrInvariant is returned when a caller violates an entity invariant,
	// which signals a bug in the surrounding orchestration.
	ErrInvariant = errs.Class("invariant violation")

	// ErrDecode is returned when a stored record cannot be decoded.
	ErrDecode = errs.Class("decode error")
)

// VolumeInfo is the authoritative metadata record for one volume.
//
// The object id is an immutable identity assigned exactly once; the update id
// is a monotonically increasing counter bumped by whoever mutates the durable
// content. Two VolumeInfos with the same object id are the same logical
// object regardless of the remaining fields.
type VolumeInfo struct {
	admin        string
	owner        string
	volume       string
	quotaBytes   int64
	creationTime int64
	metadata     map[string]string
	grants       *acl.Set
	objectID     int64
	updateID     int64
}

// Admin returns the administrator principal, fixed at construction.
func (info *VolumeInfo) Admin() string { return info.admin }

// Owner returns the owner principal.
func (info *VolumeInfo) Owner() string { return info.owner }

// Volume returns the volume name.
func (info *VolumeInfo) Volume() string { return info.volume }

// QuotaBytes returns the quota ceiling in bytes, 0 meaning no quota is set.
// Enforcing the ceiling is up to the policy layer.
func (info *VolumeInfo) QuotaBytes() int64 { return info.quotaBytes }

// CreationTime returns the creation time in epoch milliseconds,
// 0 meaning unset.
func (info *VolumeInfo) CreationTime() int64 { return info.creationTime }

// ObjectID returns the immutable identity of this object.
func (info *VolumeInfo) ObjectID() int64 { return info.objectID }

// UpdateID returns the counter denoting the last update of this object.
func (info *VolumeInfo) UpdateID() int64 { return info.updateID }

// SetObjectID assigns the identity. It fails when the identity is already
// set, including assigning the current value again; the id exists so records
// deserialized with a zero id can be completed, never so ids can change.
func (info *VolumeInfo) SetObjectID(id int64) error {
	if info.objectID != 0 {
		return ErrInvariant.New("object id already set to %d", info.objectID)
	}
	info.objectID = id
	return nil
}

// SetUpdateID sets the update counter. Callers are expected to only ever
// pass values greater than the current one.
func (info *VolumeInfo) SetUpdateID(id int64) { info.updateID = id }

// SetOwner changes the owner principal.
func (info *VolumeInfo) SetOwner(owner string) { info.owner = owner }

// SetQuotaBytes changes the quota ceiling.
func (info *VolumeInfo) SetQuotaBytes(quota int64) { info.quotaBytes = quota }

// SetCreationTime sets the creation time in epoch milliseconds.
func (info *VolumeInfo) SetCreationTime(millis int64) { info.creationTime = millis }

// Metadata returns the custom metadata value for key.
func (info *VolumeInfo) Metadata(key string) (string, bool) {
	value, ok := info.metadata[key]
	return value, ok
}

// SetMetadata sets a custom metadata key, last write wins.
func (info *VolumeInfo) SetMetadata(key, value string) {
	if info.metadata == nil {
		info.metadata = map[string]string{}
	}
	info.metadata[key] = value
}

// Grants returns the access grants in principal order.
func (info *VolumeInfo) Grants() []acl.Grant { return info.grants.Grants() }

// AddGrant adds an access grant.
func (info *VolumeInfo) AddGrant(grant acl.Grant) error { return info.grants.Add(grant) }

// RemoveGrant removes the exact access grant.
func (info *VolumeInfo) RemoveGrant(grant acl.Grant) error { return info.grants.Remove(grant) }

// ReplaceGrants replaces all access grants.
func (info *VolumeInfo) ReplaceGrants(grants []acl.Grant) error {
	return info.grants.ReplaceAll(grants)
}

// Equal reports whether other is the same logical object, which is decided
// by object id alone. A stale copy compares equal to a fresh one; do not use
// this as a freshness check.
func (info *VolumeInfo) Equal(other *VolumeInfo) bool {
	if other == nil {
		return false
	}
	return info.objectID == other.objectID
}

// AuditEntry is one label/value pair of the audit projection.
type AuditEntry struct {
	Label string
	Value string
}

// Audit labels.
const (
	auditAdmin        = "admin"
	auditOwner        = "owner"
	auditVolume       = "volume"
	auditCreationTime = "creationTime"
	auditQuotaBytes   = "quotaBytes"
	auditObjectID     = "objectID"
	auditUpdateID     = "updateID"
)

// AuditMap projects the entity into the ordered list of audit attributes.
func (info *VolumeInfo) AuditMap() []AuditEntry {
	return []AuditEntry{
		{auditAdmin, info.admin},
		{auditOwner, info.owner},
		{auditVolume, info.volume},
		{auditCreationTime, strconv.FormatInt(info.creationTime, 10)},
		{auditQuotaBytes, strconv.FormatInt(info.quotaBytes, 10)},
		{auditObjectID, strconv.FormatInt(info.objectID, 10)},
		{auditUpdateID, strconv.FormatInt(info.updateID, 10)},
	}
}

// CopyObject returns a deep copy sharing no mutable state with the original.
func (info *VolumeInfo) CopyObject() *VolumeInfo {
	metadata := make(map[string]string, len(info.metadata))
	for k, v := range info.metadata {
		metadata[k] = v
	}
	return &VolumeInfo{
		admin:        info.admin,
		owner:        info.owner,
		volume:       info.volume,
		quotaBytes:   info.quotaBytes,
		creationTime: info.creationTime,
		metadata:     metadata,
		grants:       info.grants.Copy(),
		objectID:     info.objectID,
		updateID:     info.updateID,
	}
}

// volumeRecord is the stored wire form of VolumeInfo.
type volumeRecord struct {
	Admin        string            `json:"admin"`
	Owner        string            `json:"owner"`
	Volume       string            `json:"volume"`
	QuotaBytes   int64             `json:"quota_bytes"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	Grants       []string          `json:"grants,omitempty"`
	CreationTime int64             `json:"creation_time"`
	ObjectID     int64             `json:"object_id"`
	UpdateID     int64             `json:"update_id"`
}

// Marshal encodes the volume record. A zero creation time is replaced by the
// current time in the encoded output only.
func (info *VolumeInfo) Marshal() ([]byte, error) {
	creationTime := info.creationTime
	if creationTime == 0 {
		creationTime = time.Now().UnixMilli()
	}
	data, err := json.Marshal(volumeRecord{
		Admin:        info.admin,
		Owner:        info.owner,
		Volume:       info.volume,
		QuotaBytes:   info.quotaBytes,
		Metadata:     info.metadata,
		Grants:       info.grants.ToWire(),
		CreationTime: creationTime,
		ObjectID:     info.objectID,
		UpdateID:     info.updateID,
	})
	return data, errs.Wrap(err)
}

// UnmarshalVolume decodes a stored volume record.
func UnmarshalVolume(data []byte) (*VolumeInfo, error) {
	var record volumeRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, ErrDecode.Wrap(err)
	}
	if record.Admin == "" || record.Owner == "" || record.Volume == "" {
		return nil, ErrDecode.New("volume record missing required fields")
	}

	grants, err := acl.SetFromWire(record.Grants)
	if err != nil {
		return nil, ErrDecode.Wrap(err)
	}

	metadata := map[string]string{}
	for k, v := range record.Metadata {
		metadata[k] = v
	}

	return &VolumeInfo{
		admin:        record.Admin,
		owner:        record.Owner,
		volume:       record.Volume,
		quotaBytes:   record.QuotaBytes,
		creationTime: record.CreationTime,
		metadata:     metadata,
		grants:       grants,
		objectID:     record.ObjectID,
		updateID:     record.UpdateID,
	}, nil
}

// Builder constructs VolumeInfo values. Admin, owner and volume name are
// required before Build succeeds.
type Builder struct {
	info VolumeInfo
}

// NewBuilder returns an empty volume builder.
func NewBuilder() *Builder {
	return &Builder{info: VolumeInfo{
		metadata: map[string]string{},
		grants:   acl.NewSet(),
	}}
}

// SetAdmin sets the administrator principal.
func (b *Builder) SetAdmin(admin string) *Builder {
	b.info.admin = admin
	return b
}

// SetOwner sets the owner principal.
func (b *Builder) SetOwner(owner string) *Builder {
	b.info.owner = owner
	return b
}

// SetVolume sets the volume name.
func (b *Builder) SetVolume(volume string) *Builder {
	b.info.volume = volume
	return b
}

// SetQuotaBytes sets the quota ceiling.
func (b *Builder) SetQuotaBytes(quota int64) *Builder {
	b.info.quotaBytes = quota
	return b
}

// SetCreationTime sets the creation time in epoch milliseconds.
func (b *Builder) SetCreationTime(millis int64) *Builder {
	b.info.creationTime = millis
	return b
}

// SetObjectID sets the immutable identity.
func (b *Builder) SetObjectID(id int64) *Builder {
	b.info.objectID = id
	return b
}

// SetUpdateID sets the update counter.
func (b *Builder) SetUpdateID(id int64) *Builder {
	b.info.updateID = id
	return b
}

// AddMetadata adds one custom metadata entry, overwriting when present.
func (b *Builder) AddMetadata(key, value string) *Builder {
	b.info.metadata[key] = value
	return b
}

// AddAllMetadata merges all entries, last write wins per key.
func (b *Builder) AddAllMetadata(metadata map[string]string) *Builder {
	for k, v := range metadata {
		b.info.metadata[k] = v
	}
	return b
}

// AddGrant adds an access grant.
func (b *Builder) AddGrant(grant acl.Grant) error {
	return b.info.grants.Add(grant)
}

// Build validates and returns the volume record.
func (b *Builder) Build() (*VolumeInfo, error) {
	switch {
	case b.info.admin == "":
		return nil, ErrInvariant.New("admin is required")
	case b.info.owner == "":
		return nil, ErrInvariant.New("owner is required")
	case b.info.volume == "":
		return nil, ErrInvariant.New("volume name is required")
	case b.info.quotaBytes < 0:
		return nil, ErrInvariant.New("negative quota %d", b.info.quotaBytes)
	}

	info := b.info
	return &info, nil
}
