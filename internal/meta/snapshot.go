// Package meta persists per-repository mirroring state under the metadata
// directory beside the Git object store: the repository identity and one
// captured reference snapshot per synchronization point.
package meta

import (
	"fmt"
	"sort"
	"time"

	"github.com/drmikehenry/git-ibundle/internal/wire"
)

// Snapshot is the reference state captured at a sync point.
type Snapshot struct {
	Head wire.Head

	// Refs maps reference name bytes to OID, excluding the HEAD pseudo-ref.
	Refs map[string]wire.OID

	// Prereqs holds the commit OIDs that must already exist at a
	// destination using this snapshot as a basis (the peeled commits of
	// Refs plus a detached HEAD commit, if any).
	Prereqs []wire.OID

	// CapturedAt records when the snapshot was taken; zero when unknown.
	CapturedAt time.Time
}

// NewSnapshot returns an empty snapshot (the seq-num-0 basis).
func NewSnapshot() *Snapshot {
	return &Snapshot{Refs: map[string]wire.OID{}}
}

// SortedNames returns the ref names in byte order.
func (s *Snapshot) SortedNames() []string {
	names := make([]string, 0, len(s.Refs))
	for name := range s.Refs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SortedRefs returns the refs ordered by name bytes.
func (s *Snapshot) SortedRefs() []wire.Ref {
	refs := make([]wire.Ref, 0, len(s.Refs))
	for _, name := range s.SortedNames() {
		refs = append(refs, wire.Ref{Name: name, OID: s.Refs[name]})
	}
	return refs
}

// Snapshot files use the same varint and length-prefix discipline as the
// ibundle container, with a leading format byte and an explicit OID width
// (snapshots are read without a repository at hand).
const snapshotFormatV1 = 0x01

const (
	snapFlagHeadSymbolic = 1 << 0
	snapFlagHeadPresent  = 1 << 1
)

func encodeSnapshot(s *Snapshot) ([]byte, error) {
	var w wire.Writer
	w.Byte(snapshotFormatV1)

	oidSize := wire.OIDSizeSHA1
	for _, oid := range s.Refs {
		oidSize = oid.RawSize()
		break
	}
	for _, oid := range s.Prereqs {
		oidSize = oid.RawSize()
		break
	}
	if !s.Head.Symbolic && s.Head.OID != "" {
		oidSize = s.Head.OID.RawSize()
	}
	w.Byte(byte(oidSize))

	var flags byte
	if s.Head.Present() {
		flags |= snapFlagHeadPresent
		if s.Head.Symbolic {
			flags |= snapFlagHeadSymbolic
		}
	}
	w.Byte(flags)
	if s.Head.Present() {
		if s.Head.Symbolic {
			w.Bytes([]byte(s.Head.Ref))
		} else if err := w.OID(s.Head.OID); err != nil {
			return nil, err
		}
	}

	w.Uvarint(uint64(len(s.Refs)))
	for _, ref := range s.SortedRefs() {
		w.Bytes([]byte(ref.Name))
		if err := w.OID(ref.OID); err != nil {
			return nil, err
		}
	}

	prereqs := append([]wire.OID(nil), s.Prereqs...)
	sort.Slice(prereqs, func(i, j int) bool { return prereqs[i] < prereqs[j] })
	w.Uvarint(uint64(len(prereqs)))
	for _, oid := range prereqs {
		if err := w.OID(oid); err != nil {
			return nil, err
		}
	}

	var captured uint64
	if !s.CapturedAt.IsZero() {
		captured = uint64(s.CapturedAt.Unix())
	}
	w.Uvarint(captured)
	return w.Output(), nil
}

func decodeSnapshot(data []byte) (*Snapshot, error) {
	r := wire.NewReader(data)
	format, err := r.Byte()
	if err != nil {
		return nil, fmt.Errorf("snapshot: missing format byte")
	}
	if format != snapshotFormatV1 {
		return nil, fmt.Errorf("snapshot: unsupported format %d", format)
	}
	oidSizeByte, err := r.Byte()
	if err != nil {
		return nil, fmt.Errorf("snapshot: missing oid width")
	}
	oidSize := int(oidSizeByte)
	if oidSize != wire.OIDSizeSHA1 && oidSize != wire.OIDSizeSHA256 {
		return nil, fmt.Errorf("snapshot: bad oid width %d", oidSize)
	}

	s := NewSnapshot()
	flags, err := r.Byte()
	if err != nil {
		return nil, fmt.Errorf("snapshot: missing flags")
	}
	if flags&snapFlagHeadPresent != 0 {
		if flags&snapFlagHeadSymbolic != 0 {
			name, err := r.Bytes()
			if err != nil {
				return nil, fmt.Errorf("snapshot: head ref: %w", err)
			}
			s.Head = wire.SymbolicHead(string(name))
		} else {
			oid, err := r.OID(oidSize)
			if err != nil {
				return nil, fmt.Errorf("snapshot: head oid: %w", err)
			}
			s.Head = wire.DetachedHead(oid)
		}
	}

	count, err := r.Uvarint()
	if err != nil {
		return nil, fmt.Errorf("snapshot: ref count: %w", err)
	}
	for i := uint64(0); i < count; i++ {
		name, err := r.Bytes()
		if err != nil {
			return nil, fmt.Errorf("snapshot: ref %d name: %w", i, err)
		}
		oid, err := r.OID(oidSize)
		if err != nil {
			return nil, fmt.Errorf("snapshot: ref %d oid: %w", i, err)
		}
		s.Refs[string(name)] = oid
	}

	count, err = r.Uvarint()
	if err != nil {
		return nil, fmt.Errorf("snapshot: prereq count: %w", err)
	}
	for i := uint64(0); i < count; i++ {
		oid, err := r.OID(oidSize)
		if err != nil {
			return nil, fmt.Errorf("snapshot: prereq %d: %w", i, err)
		}
		s.Prereqs = append(s.Prereqs, oid)
	}

	captured, err := r.Uvarint()
	if err != nil {
		return nil, fmt.Errorf("snapshot: capture time: %w", err)
	}
	if captured != 0 {
		s.CapturedAt = time.Unix(int64(captured), 0).UTC()
	}
	return s, nil
}
