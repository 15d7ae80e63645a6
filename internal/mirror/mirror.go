// Package mirror implements the synchronization engines: computing
// incremental ibundles from a chosen basis (create), validating and
// integrating them at the destination (fetch), plus the status report and
// sync-point retention trimming.
package mirror

import (
	"github.com/drmikehenry/git-ibundle/internal/gitx"
	"github.com/drmikehenry/git-ibundle/internal/meta"
	"github.com/drmikehenry/git-ibundle/internal/wire"
)

// Options is the configuration record accepted by the engines. Zero values
// select the defaults.
type Options struct {
	// BasisNum selects an explicit basis sync point for create; nil means
	// the most recent one.
	BasisNum *uint64

	// BasisCurrent makes the basis equal the snapshot about to be
	// recorded; implies Standalone and AllowEmpty.
	BasisCurrent bool

	// Standalone embeds the full ref set and prerequisites so the
	// ibundle can be applied without the basis snapshot present.
	Standalone bool

	// AllowEmpty permits creating an ibundle with no changes.
	AllowEmpty bool

	// Force overrides the missing-basis check for standalone fetches and
	// the uninitialized-repository check.
	Force bool

	// DryRun makes fetch validate and trial-integrate without mutating
	// refs, HEAD, or metadata.
	DryRun bool

	// Progress passes git's progress meter through during bundle
	// creation.
	Progress bool

	// Quiet suppresses git's own chatter on fetch.
	Quiet bool
}

// A synthetic branch namespace used to work around git's loss of objects
// referenced only by HEAD in a bundle. Refs in it exist only while a
// bundle is being created or applied and are removed afterwards.
const syntheticHeadPrefix = "refs/heads/HEAD-"

func syntheticHeadRef(oid wire.OID) string {
	return syntheticHeadPrefix + string(oid)
}

// snapshotFrom converts a live ref snapshot into a storable sync-point
// snapshot: its prereq set is the peeled commit set of the captured refs.
func snapshotFrom(rs *gitx.RefSnapshot) *meta.Snapshot {
	snap := meta.NewSnapshot()
	snap.Head = rs.Head
	for name, oid := range rs.Refs {
		snap.Refs[name] = oid
	}
	for oid := range rs.Commits {
		snap.Prereqs = append(snap.Prereqs, oid)
	}
	return snap
}

func refsEqual(a, b map[string]wire.OID) bool {
	if len(a) != len(b) {
		return false
	}
	for name, oid := range a {
		if b[name] != oid {
			return false
		}
	}
	return true
}
