package mirror

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/drmikehenry/git-ibundle/internal/gitx"
	"github.com/drmikehenry/git-ibundle/internal/ibundle"
	"github.com/drmikehenry/git-ibundle/internal/logx"
	"github.com/drmikehenry/git-ibundle/internal/meta"
	"github.com/drmikehenry/git-ibundle/internal/pack"
	"github.com/drmikehenry/git-ibundle/internal/wire"
)

// CreateResult summarizes a successful create.
type CreateResult struct {
	SeqNum      uint64
	BasisSeqNum uint64
	Standalone  bool
	Adds        int
	Dels        int
	Prereqs     int
	PackBytes   int
	EmptyPack   bool
}

// Create computes the incremental ibundle for the chosen basis and writes
// it to outPath, then records the captured snapshot as a new sync point.
func Create(ctx context.Context, repo *gitx.Repo, store *meta.Store, outPath string, opts Options) (*CreateResult, error) {
	cur, err := repo.Snapshot()
	if err != nil {
		return nil, err
	}

	maxSeq, err := store.MaxSeqNum()
	if err != nil {
		return nil, err
	}
	seqNum := maxSeq + 1

	standalone := opts.Standalone
	allowEmpty := opts.AllowEmpty

	var basisSeq uint64
	var basisSnap *meta.Snapshot
	switch {
	case opts.BasisCurrent:
		// The basis is the snapshot being recorded right now, so the
		// delta is empty by construction and the result only makes
		// sense standalone.
		basisSeq = seqNum
		basisSnap = snapshotFrom(cur)
		standalone = true
		allowEmpty = true
	case opts.BasisNum != nil:
		basisSeq = *opts.BasisNum
		if basisSeq == 0 {
			basisSnap = meta.NewSnapshot()
		} else if basisSnap, err = store.Get(basisSeq); err != nil {
			return nil, fmt.Errorf("%w: %d", ErrUnknownBasis, basisSeq)
		}
	default:
		basisSeq = maxSeq
		if basisSeq == 0 {
			basisSnap = meta.NewSnapshot()
		} else if basisSnap, err = store.Get(basisSeq); err != nil {
			return nil, err
		}
	}
	if basisSeq == 0 {
		standalone = true
	}

	mutations := diffRefs(basisSnap.Refs, cur.Refs)

	basisCommits := map[wire.OID]bool{}
	for _, oid := range basisSnap.Prereqs {
		basisCommits[oid] = true
	}

	if len(mutations) == 0 && cur.Head == basisSnap.Head && subset(cur.Commits, basisCommits) {
		if !allowEmpty {
			return nil, fmt.Errorf("%w; consider `--allow-empty`", ErrEmptyRefused)
		}
	}

	// Positive revisions for bundle create: the refs being transported
	// (which also covers tag objects), plus a synthetic branch when a
	// detached HEAD commit is covered by no ref — git loses objects
	// reachable only from HEAD in a bundle.
	positives := make([]string, 0, len(cur.Refs)+1)
	if standalone {
		for name := range cur.Refs {
			positives = append(positives, name)
		}
	} else {
		for _, m := range mutations {
			if m.Op == ibundle.OpAdd {
				positives = append(positives, m.Name)
			}
		}
	}

	var synthetic string
	if !cur.Head.Symbolic && cur.Head.OID != "" && !coveredByRef(cur.Refs, cur.Head.OID) {
		synthetic = syntheticHeadRef(cur.Head.OID)
		if err := repo.UpdateRef(synthetic, cur.Head.OID); err != nil {
			return nil, err
		}
		defer repo.DeleteRef(synthetic)
		positives = append(positives, synthetic)
	}

	// Exclude what the basis already holds: its commits, and the tag
	// objects its refs point at (excluding a commit does not exclude a tag
	// object pointing at it).
	var negatives []wire.OID
	for oid := range basisCommits {
		if repo.HasObject(oid) {
			negatives = append(negatives, oid)
		}
	}
	seenTags := map[wire.OID]bool{}
	for _, oid := range basisSnap.Refs {
		if seenTags[oid] || basisCommits[oid] || !repo.HasObject(oid) {
			continue
		}
		seenTags[oid] = true
		if typ, err := repo.TypeOf(oid); err == nil && typ == gitx.TypeTag {
			negatives = append(negatives, oid)
		}
	}
	ibundle.SortOIDs(negatives)

	tempDir, err := store.TempDir()
	if err != nil {
		return nil, err
	}
	bundlePath := filepath.Join(tempDir, "temp.bundle")
	defer os.Remove(bundlePath)

	empty, err := repo.BundleCreate(ctx, bundlePath, gitx.BundleOptions{
		Positives: positives,
		Negatives: negatives,
		Progress:  opts.Progress,
	})
	if err != nil {
		return nil, err
	}

	var packData []byte
	var prereqs []wire.OID
	packedNames := map[string]bool{}
	if empty {
		packData = pack.Empty()
	} else {
		bundleBytes, err := os.ReadFile(bundlePath)
		if err != nil {
			return nil, err
		}
		header, data, err := pack.Split(bundleBytes)
		if err != nil {
			return nil, err
		}
		packData = data
		var packedRefs []wire.Ref
		if prereqs, packedRefs, err = pack.ParseHeader(header); err != nil {
			return nil, err
		}
		for _, ref := range packedRefs {
			packedNames[ref.Name] = true
		}
	}

	// Git drops a requested ref from the bundle when its peeled commit
	// was excluded by the basis. The object must then pre-exist at the
	// destination, so surface the commit as an explicit prerequisite.
	if standalone {
		have := map[wire.OID]bool{}
		for _, oid := range prereqs {
			have[oid] = true
		}
		for name, oid := range cur.Refs {
			if packedNames[name] {
				continue
			}
			peeled, typ, err := repo.Peel(oid)
			if err != nil {
				return nil, err
			}
			if typ == gitx.TypeCommit && !have[peeled] {
				have[peeled] = true
				prereqs = append(prereqs, peeled)
			}
		}
	}

	id, haveID, err := store.ID()
	if err != nil {
		return nil, err
	}
	if !haveID {
		id = uuid.New()
	}

	file := &ibundle.File{
		RepoID:      id,
		SeqNum:      seqNum,
		BasisSeqNum: basisSeq,
		Standalone:  standalone,
		Head:        cur.Head,
		Mutations:   mutations,
		Pack:        packData,
	}
	if standalone {
		for name, oid := range cur.Refs {
			file.FullRefs = append(file.FullRefs, wire.Ref{Name: name, OID: oid})
		}
		file.Prereqs = prereqs
	}

	encoded, err := ibundle.Encode(file)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(outPath, encoded, 0o666); err != nil {
		return nil, fmt.Errorf("failed to write ibundle %q: %w", outPath, err)
	}

	if err := store.Put(seqNum, snapshotFrom(cur)); err != nil {
		return nil, err
	}
	if err := store.WriteIDOnce(id); err != nil {
		return nil, err
	}

	result := &CreateResult{
		SeqNum:      seqNum,
		BasisSeqNum: basisSeq,
		Standalone:  standalone,
		Prereqs:     len(prereqs),
		PackBytes:   len(packData),
		EmptyPack:   empty,
	}
	for _, m := range file.Mutations {
		if m.Op == ibundle.OpAdd {
			result.Adds++
		} else {
			result.Dels++
		}
	}
	logx.L().Debugf("created ibundle seq_num %d (basis %d, %d adds, %d dels, %d pack bytes)",
		result.SeqNum, result.BasisSeqNum, result.Adds, result.Dels, result.PackBytes)
	return result, nil
}

// diffRefs expresses cur relative to basis as ordered ADD/DEL operations.
func diffRefs(basis, cur map[string]wire.OID) []ibundle.Mutation {
	var muts []ibundle.Mutation
	for name := range basis {
		if _, ok := cur[name]; !ok {
			muts = append(muts, ibundle.Mutation{Op: ibundle.OpDel, Name: name})
		}
	}
	for name, oid := range cur {
		if basisOID, ok := basis[name]; !ok || basisOID != oid {
			muts = append(muts, ibundle.Mutation{Op: ibundle.OpAdd, Name: name, OID: oid})
		}
	}
	ibundle.SortMutations(muts)
	return muts
}

func subset(of map[wire.OID]bool, in map[wire.OID]bool) bool {
	for oid := range of {
		if !in[oid] {
			return false
		}
	}
	return true
}

func coveredByRef(refs map[string]wire.OID, oid wire.OID) bool {
	for _, refOID := range refs {
		if refOID == oid {
			return true
		}
	}
	return false
}
