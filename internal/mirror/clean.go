package mirror

import (
	"fmt"

	"github.com/drmikehenry/git-ibundle/internal/logx"
	"github.com/drmikehenry/git-ibundle/internal/meta"
)

// Clean removes old sync points, retaining the keep most recent (at least
// one; the entry for max_seq_num always survives). Returns the number of
// sync points removed.
func Clean(store *meta.Store, keep uint64) (int, error) {
	if keep < 1 {
		return 0, fmt.Errorf("keep must be at least 1")
	}
	if _, ok, err := store.ID(); err != nil {
		return 0, err
	} else if !ok {
		return 0, fmt.Errorf("missing repo_id; no sync points to clean")
	}

	nums, err := store.SeqNums()
	if err != nil {
		return 0, err
	}
	if uint64(len(nums)) <= keep {
		logx.L().Debugf("have %d sync points, keeping up to %d; nothing to clean",
			len(nums), keep)
		return 0, nil
	}

	removed := 0
	for _, seqNum := range nums[:uint64(len(nums))-keep] {
		if err := store.Remove(seqNum); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}
