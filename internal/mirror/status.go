package mirror

import (
	"github.com/drmikehenry/git-ibundle/internal/meta"
	"github.com/drmikehenry/git-ibundle/internal/wire"
)

// StatusEntry describes one retained sync point.
type StatusEntry struct {
	SeqNum uint64
	Refs   int
	Head   wire.Head
	Err    error
}

// Status is the repository's mirroring state.
type Status struct {
	RepoID     string // "NONE" when unset
	MaxSeqNum  uint64
	NextSeqNum uint64
	Kept       int

	// Entries lists retained sync points newest-first; populated only
	// when requested.
	Entries []StatusEntry
}

// GetStatus reports the metadata store's state. With long set, every
// retained snapshot is loaded; a snapshot that fails to load is reported in
// its entry's Err.
func GetStatus(store *meta.Store, long bool) (*Status, error) {
	st := &Status{RepoID: "NONE"}
	if id, ok, err := store.ID(); err != nil {
		return nil, err
	} else if ok {
		st.RepoID = id.String()
	}

	nums, err := store.SeqNums()
	if err != nil {
		return nil, err
	}
	st.Kept = len(nums)
	if len(nums) > 0 {
		st.MaxSeqNum = nums[len(nums)-1]
	}
	st.NextSeqNum = st.MaxSeqNum + 1

	if long {
		for i := len(nums) - 1; i >= 0; i-- {
			entry := StatusEntry{SeqNum: nums[i]}
			snap, err := store.Get(nums[i])
			if err != nil {
				entry.Err = err
			} else {
				entry.Refs = len(snap.Refs)
				entry.Head = snap.Head
			}
			st.Entries = append(st.Entries, entry)
		}
	}
	return st, nil
}
