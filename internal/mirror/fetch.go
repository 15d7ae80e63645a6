package mirror

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/drmikehenry/git-ibundle/internal/gitx"
	"github.com/drmikehenry/git-ibundle/internal/ibundle"
	"github.com/drmikehenry/git-ibundle/internal/logx"
	"github.com/drmikehenry/git-ibundle/internal/meta"
	"github.com/drmikehenry/git-ibundle/internal/pack"
	"github.com/drmikehenry/git-ibundle/internal/wire"
)

// FetchResult summarizes a successful fetch.
type FetchResult struct {
	SeqNum uint64
	Refs   int
	Head   wire.Head
	DryRun bool
}

// Fetch validates an ibundle against this repository, reconstructs a
// temporary Git bundle from it, integrates it with `git fetch`, updates
// HEAD, and records the new sync point.
func Fetch(ctx context.Context, repo *gitx.Repo, store *meta.Store, path string, opts Options) (*FetchResult, error) {
	if !repo.IsBare() {
		return nil, ErrNotBare
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read ibundle %q: %w", path, err)
	}
	ib, err := ibundle.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("ibundle %q: %w", path, err)
	}
	logx.L().Debugf("read ibundle seq_num %d (basis %d, standalone %v, %d mutations)",
		ib.SeqNum, ib.BasisSeqNum, ib.Standalone, len(ib.Mutations))

	cur, err := repo.Snapshot()
	if err != nil {
		return nil, err
	}

	// Identity: a recorded repo_id must match; a repository with refs but
	// no metadata is only accepted under --force.
	storedID, haveID, err := store.ID()
	if err != nil {
		return nil, err
	}
	if haveID {
		if storedID != ib.RepoID {
			return nil, fmt.Errorf("%w: repository %s, ibundle %s",
				ErrRepoIDMismatch, storedID, ib.RepoID)
		}
	} else if len(cur.Refs) > 0 && !opts.Force {
		return nil, fmt.Errorf("%w; consider `--force`", ErrUninitialized)
	}

	// Basis resolution.
	var basisSnap *meta.Snapshot
	switch {
	case ib.BasisSeqNum == 0:
		basisSnap = meta.NewSnapshot()
	case store.Has(ib.BasisSeqNum):
		if basisSnap, err = store.Get(ib.BasisSeqNum); err != nil {
			return nil, err
		}
	case !ib.Standalone:
		return nil, fmt.Errorf("%w: basis_seq_num %d not recorded and ibundle is not standalone; consider `create --standalone`",
			ErrMissingBasis, ib.BasisSeqNum)
	case !opts.Force:
		return nil, fmt.Errorf("%w: basis_seq_num %d not recorded; ibundle is standalone, consider `--force`",
			ErrMissingBasis, ib.BasisSeqNum)
	default:
		// Standalone under --force: trust the embedded refs/prereqs.
		basisSnap = meta.NewSnapshot()
	}

	// Reconstruct the target ref set.
	refs := map[string]wire.OID{}
	if ib.Standalone {
		for _, ref := range ib.FullRefs {
			refs[ref.Name] = ref.OID
		}
	} else {
		for name, oid := range basisSnap.Refs {
			refs[name] = oid
		}
		for _, m := range ib.Mutations {
			switch m.Op {
			case ibundle.OpAdd:
				refs[m.Name] = m.OID
			case ibundle.OpDel:
				delete(refs, m.Name)
			}
		}
	}

	// Prerequisites: embedded for standalone, otherwise the basis sync
	// point's recorded commit set.
	prereqs := ib.Prereqs
	if !ib.Standalone {
		prereqs = basisSnap.Prereqs
	}
	var missing []wire.OID
	for _, oid := range prereqs {
		if !repo.HasCommit(oid) {
			missing = append(missing, oid)
		}
	}
	if len(missing) > 0 {
		if logx.DebugEnabled() {
			for _, oid := range missing {
				logx.L().Debugf("missing prerequisite %s", oid)
			}
		}
		return nil, fmt.Errorf("%w: %d of %d not present for basis_seq_num %d",
			ErrMissingPrereq, len(missing), len(prereqs), ib.BasisSeqNum)
	}

	bundleRefs := make([]wire.Ref, 0, len(refs)+1)
	for name, oid := range refs {
		bundleRefs = append(bundleRefs, wire.Ref{Name: name, OID: oid})
	}
	ibundle.SortRefs(bundleRefs)

	// A detached HEAD commit reachable from no ref must ride under a
	// synthetic branch name; a bundle whose only reference is HEAD loses
	// its objects on fetch.
	if !ib.Head.Symbolic && ib.Head.OID != "" && !coveredByRef(refs, ib.Head.OID) {
		bundleRefs = append(bundleRefs, wire.Ref{
			Name: syntheticHeadRef(ib.Head.OID),
			OID:  ib.Head.OID,
		})
	}

	tempDir, err := store.TempDir()
	if err != nil {
		return nil, err
	}
	bundlePath := filepath.Join(tempDir, "temp.bundle")
	defer os.Remove(bundlePath)

	f, err := os.Create(bundlePath)
	if err != nil {
		return nil, err
	}
	sortedPrereqs := append([]wire.OID(nil), prereqs...)
	ibundle.SortOIDs(sortedPrereqs)
	if err := pack.Assemble(f, sortedPrereqs, bundleRefs, ib.Pack); err != nil {
		f.Close()
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, err
	}

	if err := repo.FetchBundle(ctx, bundlePath, opts.DryRun, opts.Quiet); err != nil {
		return nil, err
	}

	result := &FetchResult{
		SeqNum: ib.SeqNum,
		Refs:   len(refs),
		Head:   ib.Head,
		DryRun: opts.DryRun,
	}
	if opts.DryRun {
		return result, nil
	}

	if ib.Head.Present() {
		if ib.Head.Symbolic {
			if err := repo.SetSymbolicHead(ib.Head.Ref); err != nil {
				return nil, err
			}
		} else if repo.HasObject(ib.Head.OID) {
			if err := repo.SetDetachedHead(ib.Head.OID); err != nil {
				return nil, err
			}
		}
	}

	if err := removeSyntheticRefs(repo); err != nil {
		return nil, err
	}

	// The repository must now mirror the ibundle exactly.
	post, err := repo.Snapshot()
	if err != nil {
		return nil, err
	}
	if !refsEqual(post.Refs, refs) {
		return nil, fmt.Errorf("final repository refs do not match those in ibundle")
	}
	if ib.Head.Present() && post.Head != ib.Head {
		return nil, fmt.Errorf("repository HEAD (%s) does not match ibundle HEAD (%s)",
			post.Head, ib.Head)
	}

	if err := store.Put(ib.SeqNum, snapshotFrom(post)); err != nil {
		return nil, err
	}
	if err := store.WriteIDOnce(ib.RepoID); err != nil {
		return nil, err
	}
	return result, nil
}

// removeSyntheticRefs deletes any refs/heads/HEAD-* left over from the
// detached-HEAD workaround.
func removeSyntheticRefs(repo *gitx.Repo) error {
	names, err := repo.ListRefs(syntheticHeadPrefix + "*")
	if err != nil {
		return err
	}
	for _, name := range names {
		if !strings.HasPrefix(name, syntheticHeadPrefix) {
			continue
		}
		if err := repo.DeleteRef(name); err != nil {
			return err
		}
	}
	return nil
}
