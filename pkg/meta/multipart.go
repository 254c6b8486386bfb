// Copyright (C) 2019 Storj Labs, Inc.
// See LICENSE for copying information.

package meta

import (
	"encoding/json"
	"sort"

	"github.com/zeebo/errs"
)

// ObjectInfo describes one piece of stored object data. DataKey is the
// physical-data reference the reclamation worker deletes by.
type ObjectInfo struct {
	Name    string `json:"name"`
	DataKey string `json:"data_key"`
	Size    int64  `json:"size"`
	ModTime int64  `json:"mod_time"`
}

// PartInfo describes one committed or in-flight part of a multipart upload.
type PartInfo struct {
	ObjectInfo
	PartNumber int `json:"part_number"`
}

// MultipartUploadInfo is the assembly record of one multipart upload. It is
// the single source of truth for all committed parts and is only ever
// written as a full overwrite.
type MultipartUploadInfo struct {
	UploadID string     `json:"upload_id"`
	Parts    []PartInfo `json:"parts,omitempty"`
}

// AddPart records a committed part, replacing any previous part at the same
// part number and returning the replaced part when there was one. Parts stay
// ordered by part number.
func (info *MultipartUploadInfo) AddPart(part PartInfo) (replaced *PartInfo) {
	for i := range info.Parts {
		if info.Parts[i].PartNumber == part.PartNumber {
			old := info.Parts[i]
			info.Parts[i] = part
			return &old
		}
	}
	info.Parts = append(info.Parts, part)
	sort.Slice(info.Parts, func(i, k int) bool {
		return info.Parts[i].PartNumber < info.Parts[k].PartNumber
	})
	return nil
}

// Part returns the part at the given part number.
func (info *MultipartUploadInfo) Part(partNumber int) (PartInfo, bool) {
	for _, part := range info.Parts {
		if part.PartNumber == partNumber {
			return part, true
		}
	}
	return PartInfo{}, false
}

// Marshal encodes the assembly record.
func (info *MultipartUploadInfo) Marshal() ([]byte, error) {
	data, err := json.Marshal(info)
	return data, errs.Wrap(err)
}

// UnmarshalMultipartInfo decodes a stored assembly record.
func UnmarshalMultipartInfo(data []byte) (*MultipartUploadInfo, error) {
	var info MultipartUploadInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, ErrDecode.Wrap(err)
	}
	if info.UploadID == "" {
		return nil, ErrDecode.New("multipart record missing upload id")
	}
	return &info, nil
}

// UnmarshalPart decodes a stored staging entry.
func UnmarshalPart(data []byte) (*PartInfo, error) {
	var part PartInfo
	if err := json.Unmarshal(data, &part); err != nil {
		return nil, ErrDecode.Wrap(err)
	}
	if part.Name == "" {
		return nil, ErrDecode.New("part record missing name")
	}
	return &part, nil
}

// Tombstones is the accumulating collection of superseded object descriptors
// at one logical key, awaiting physical reclamation.
type Tombstones struct {
	Objects []ObjectInfo `json:"objects,omitempty"`
}

// Marshal encodes the tombstone collection.
func (ts *Tombstones) Marshal() ([]byte, error) {
	data, err := json.Marshal(ts)
	return data, errs.Wrap(err)
}

// UnmarshalTombstones decodes a stored tombstone collection.
func UnmarshalTombstones(data []byte) (*Tombstones, error) {
	var ts Tombstones
	if err := json.Unmarshal(data, &ts); err != nil {
		return nil, ErrDecode.Wrap(err)
	}
	return &ts, nil
}

// MergeTombstones folds add into the existing collection, which may be nil.
// Entries referencing data already present are skipped, so re-applying the
// same supersession never double-counts reclamation work, while distinct
// descriptors under the same key all accumulate.
func MergeTombstones(existing *Tombstones, add ObjectInfo) Tombstones {
	var merged Tombstones
	if existing != nil {
		merged.Objects = append(merged.Objects, existing.Objects...)
	}
	for _, obj := range merged.Objects {
		if obj.DataKey == add.DataKey {
			return merged
		}
	}
	merged.Objects = append(merged.Objects, add)
	return merged
}
