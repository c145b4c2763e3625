// Package identity derives the stable integer keys used to index commits and
// branch tips inside a repository snapshot.
package identity

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/go-git/go-git/v5/plumbing"
)

// ID is a process-independent key derived from an object's content hash.
// The same hash always yields the same ID, so IDs stay valid across refills.
type ID uint64

// Zero is never produced for a real hash in practice and marks "no commit".
const Zero ID = 0

// ShortHashLen is the number of hex digits shown for abbreviated hashes.
const ShortHashLen = 7

// FromString hashes the canonical hex text of an object id.
func FromString(hex string) ID {
	return ID(xxhash.Sum64String(hex))
}

// FromHash returns the ID of a commit (or of a reference's target commit).
func FromHash(h plumbing.Hash) ID {
	return FromString(h.String())
}

// FromReference returns the ID of the commit a direct reference points to.
func FromReference(ref *plumbing.Reference) ID {
	if ref == nil || ref.Type() != plumbing.HashReference {
		return Zero
	}
	return FromHash(ref.Hash())
}

// String renders the ID as 16 lowercase hex digits.
func (id ID) String() string {
	return fmt.Sprintf("%016x", uint64(id))
}

// Parse is the inverse of ID.String.
func Parse(s string) (ID, error) {
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return Zero, fmt.Errorf("invalid identifier %q: %w", s, err)
	}
	return ID(v), nil
}

// ParseAny accepts either an ID as printed by String or a full 40-digit
// object hash.
func ParseAny(s string) (ID, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) == 2*len(plumbing.ZeroHash) {
		if _, err := hex.DecodeString(s); err != nil {
			return Zero, fmt.Errorf("invalid object hash %q", s)
		}
		return FromString(s), nil
	}
	return Parse(s)
}

// Short abbreviates a full object hash for display.
func Short(h plumbing.Hash) string {
	s := h.String()
	if len(s) > ShortHashLen {
		return s[:ShortHashLen]
	}
	return s
}
