// Package ibundle implements the V2 ibundle binary container: the
// self-describing incremental bundle file exchanged across the one-way
// transfer boundary. An ibundle carries identity and sequencing metadata,
// a head descriptor, the reference delta against a basis sync point,
// optionally the full reference set and prerequisite commits (standalone
// form), and a raw Git PACK payload.
package ibundle

import (
	"sort"

	"github.com/google/uuid"

	"github.com/drmikehenry/git-ibundle/internal/wire"
)

// Op is a reference mutation operator.
type Op byte

const (
	// OpAdd introduces a reference or moves it to a new OID.
	OpAdd Op = 1
	// OpDel removes a reference.
	OpDel Op = 2
)

func (op Op) String() string {
	switch op {
	case OpAdd:
		return "add"
	case OpDel:
		return "del"
	default:
		return "op?"
	}
}

// Mutation is one reference change relative to the basis snapshot.
// OID is set only for OpAdd.
type Mutation struct {
	Op   Op
	Name string
	OID  wire.OID
}

// File is a decoded ibundle.
type File struct {
	RepoID      uuid.UUID
	SeqNum      uint64
	BasisSeqNum uint64
	Standalone  bool

	Head      wire.Head
	Mutations []Mutation

	// FullRefs and Prereqs are present only in standalone ibundles.
	FullRefs []wire.Ref
	Prereqs  []wire.OID

	// Pack is the raw PACK payload (possibly the empty pack).
	Pack []byte
}

// SortMutations orders mutations by reference name bytes for deterministic
// output.
func SortMutations(muts []Mutation) {
	sort.Slice(muts, func(i, j int) bool {
		return muts[i].Name < muts[j].Name
	})
}

// SortRefs orders refs by name bytes for deterministic output.
func SortRefs(refs []wire.Ref) {
	sort.Slice(refs, func(i, j int) bool {
		return refs[i].Name < refs[j].Name
	})
}

// SortOIDs orders OIDs bytewise for deterministic output.
func SortOIDs(oids []wire.OID) {
	sort.Slice(oids, func(i, j int) bool {
		return oids[i] < oids[j]
	})
}
