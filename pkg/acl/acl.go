// Copyright (C) 2019 Storj Labs, Inc.
// See LICENSE for copying information.

// Package acl implements the ordered set of access grants owned by volume
// metadata.
package acl

import (
	"sort"
	"strings"

	"github.com/zeebo/errs"
)

// Error is the default acl errs class
var Error = errs.Class("acl error")

// Rights is a bit set of capabilities granted to a principal.
type Rights uint8

// Rights that can be granted on a volume.
const (
	Read Rights = 1 << iota
	Write
	List
	Delete
)

var rightLetters = []struct {
	right  Rights
	letter byte
}{
	{Read, 'r'},
	{Write, 'w'},
	{List, 'l'},
	{Delete, 'd'},
}

// String encodes rights as a subset of "rwld".
func (rights Rights) String() string {
	var b strings.Builder
	for _, rl := range rightLetters {
		if rights&rl.right != 0 {
			b.WriteByte(rl.letter)
		}
	}
	return b.String()
}

// ParseRights decodes the string form produced by Rights.String.
func ParseRights(s string) (Rights, error) {
	if s == "" {
		return 0, Error.New("empty rights")
	}
	var rights Rights
	for i := 0; i < len(s); i++ {
		matched := false
		for _, rl := range rightLetters {
			if s[i] == rl.letter {
				if rights&rl.right != 0 {
					return 0, Error.New("repeated right %q", string(s[i]))
				}
				rights |= rl.right
				matched = true
				break
			}
		}
		if !matched {
			return 0, Error.New("unknown right %q", string(s[i]))
		}
	}
	return rights, nil
}

// Grant gives rights to a single principal.
type Grant struct {
	Principal string
	Rights    Rights
}

func (grant Grant) validate() error {
	if grant.Principal == "" {
		return Error.New("empty principal")
	}
	if strings.ContainsRune(grant.Principal, ':') {
		return Error.New("principal %q contains reserved separator", grant.Principal)
	}
	if grant.Rights == 0 {
		return Error.New("no rights for principal %q", grant.Principal)
	}
	return nil
}

// Set is an ordered collection of grants, unique per principal.
// The zero value is not usable, use NewSet.
type Set struct {
	grants []Grant
}

// NewSet returns an empty grant set.
func NewSet() *Set { return &Set{} }

// indexOf finds index of principal or where it could be inserted
func (set *Set) indexOf(principal string) (int, bool) {
	i := sort.Search(len(set.grants), func(k int) bool {
		return set.grants[k].Principal >= principal
	})
	if i >= len(set.grants) {
		return i, false
	}
	return i, set.grants[i].Principal == principal
}

// Add inserts a grant, failing on malformed grants and on principals that
// already hold one.
func (set *Set) Add(grant Grant) error {
	if err := grant.validate(); err != nil {
		return err
	}

	i, found := set.indexOf(grant.Principal)
	if found {
		return Error.New("duplicate grant for principal %q", grant.Principal)
	}

	set.grants = append(set.grants, Grant{})
	copy(set.grants[i+1:], set.grants[i:])
	set.grants[i] = grant
	return nil
}

// Remove deletes the exact grant, failing when it is not present.
func (set *Set) Remove(grant Grant) error {
	if err := grant.validate(); err != nil {
		return err
	}

	i, found := set.indexOf(grant.Principal)
	if !found || set.grants[i].Rights != grant.Rights {
		return Error.New("no such grant for principal %q", grant.Principal)
	}

	copy(set.grants[i:], set.grants[i+1:])
	set.grants = set.grants[:len(set.grants)-1]
	return nil
}

// ReplaceAll swaps the set contents for grants. The existing contents are
// kept when any of the new grants is invalid.
func (set *Set) ReplaceAll(grants []Grant) error {
	replacement := NewSet()
	for _, grant := range grants {
		if err := replacement.Add(grant); err != nil {
			return err
		}
	}
	set.grants = replacement.grants
	return nil
}

// Grants returns a copy of the grants in principal order.
func (set *Set) Grants() []Grant {
	return append(set.grants[:0:0], set.grants...)
}

// Len returns the number of grants.
func (set *Set) Len() int { return len(set.grants) }

// Copy returns a set sharing no state with the original.
func (set *Set) Copy() *Set {
	return &Set{grants: append(set.grants[:0:0], set.grants...)}
}

// ToWire encodes the set as an ordered list of "principal:rights" entries.
func (set *Set) ToWire() []string {
	wire := make([]string, 0, len(set.grants))
	for _, grant := range set.grants {
		wire = append(wire, grant.Principal+":"+grant.Rights.String())
	}
	return wire
}

// SetFromWire decodes the list form produced by ToWire.
func SetFromWire(wire []string) (*Set, error) {
	set := NewSet()
	for _, entry := range wire {
		sep := strings.LastIndexByte(entry, ':')
		if sep < 0 {
			return nil, Error.New("malformed grant %q", entry)
		}
		rights, err := ParseRights(entry[sep+1:])
		if err != nil {
			return nil, err
		}
		if err := set.Add(Grant{Principal: entry[:sep], Rights: rights}); err != nil {
			return nil, err
		}
	}
	return set, nil
}
