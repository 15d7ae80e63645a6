// Package wire provides the low-level value types and binary primitives
// shared by the ibundle container and the metadata store: object identifiers,
// reference entries, head descriptors, LEB128 varints, and length-prefixed
// byte strings.
package wire

import (
	"encoding/hex"
	"fmt"
)

// OID sizes in raw bytes for the two Git object formats.
const (
	OIDSizeSHA1   = 20
	OIDSizeSHA256 = 32
)

// OID is a Git object identifier held in its lowercase hexadecimal form.
// The empty string means "no OID".
type OID string

// ParseOID validates s as a lowercase hex object id of a known width.
func ParseOID(s string) (OID, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return "", fmt.Errorf("invalid object id %q: %w", s, err)
	}
	if len(raw) != OIDSizeSHA1 && len(raw) != OIDSizeSHA256 {
		return "", fmt.Errorf("invalid object id %q: %d raw bytes", s, len(raw))
	}
	for _, c := range s {
		if c >= 'A' && c <= 'F' {
			return "", fmt.Errorf("invalid object id %q: uppercase hex", s)
		}
	}
	return OID(s), nil
}

// OIDFromRaw converts raw hash bytes to an OID.
func OIDFromRaw(raw []byte) OID {
	return OID(hex.EncodeToString(raw))
}

// Raw returns the raw hash bytes.
func (o OID) Raw() ([]byte, error) {
	raw, err := hex.DecodeString(string(o))
	if err != nil {
		return nil, fmt.Errorf("invalid object id %q: %w", string(o), err)
	}
	return raw, nil
}

// RawSize returns the width of the raw hash in bytes.
func (o OID) RawSize() int {
	return len(o) / 2
}

func (o OID) String() string {
	return string(o)
}

// Ref is a named pointer to an object.
type Ref struct {
	Name string
	OID  OID
}

// Head describes a repository HEAD: symbolic (naming another ref) or
// detached (holding an OID directly). The zero value means "no head
// descriptor".
type Head struct {
	Symbolic bool
	Ref      string // symbolic target; valid when Symbolic
	OID      OID    // detached target; valid when !Symbolic
}

// SymbolicHead returns a head descriptor naming ref.
func SymbolicHead(ref string) Head {
	return Head{Symbolic: true, Ref: ref}
}

// DetachedHead returns a head descriptor holding oid directly.
func DetachedHead(oid OID) Head {
	return Head{OID: oid}
}

// Present reports whether a head descriptor was recorded at all.
func (h Head) Present() bool {
	return h.Symbolic || h.OID != ""
}

// String renders the head for human-facing status output.
func (h Head) String() string {
	switch {
	case h.Symbolic:
		return h.Ref
	case h.OID != "":
		return fmt.Sprintf("%s (detached)", h.OID)
	default:
		return "(none)"
	}
}
