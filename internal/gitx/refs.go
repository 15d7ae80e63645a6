package gitx

import (
	"bytes"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/drmikehenry/git-ibundle/internal/wire"
)

// ObjType is a Git object type as reported by `cat-file -t`.
type ObjType string

const (
	TypeCommit ObjType = "commit"
	TypeTag    ObjType = "tag"
	TypeTree   ObjType = "tree"
	TypeBlob   ObjType = "blob"
)

// RefSnapshot is a deterministic capture of the repository's references,
// taken once per operation.
type RefSnapshot struct {
	Head wire.Head

	// Refs maps ref name to OID; the HEAD pseudo-ref is excluded.
	Refs map[string]wire.OID

	// Commits is the set of commits every ref (and a detached HEAD)
	// peels to. Refs peeling to trees or blobs contribute nothing.
	Commits map[wire.OID]bool

	// TagObjects holds the OIDs of refs that point at tag objects; the
	// tag objects themselves must travel in packs even when their peeled
	// target is excluded.
	TagObjects []wire.OID
}

// Snapshot captures the current references, HEAD target, and the peeled
// classification of every referenced object.
func (r *Repo) Snapshot() (*RefSnapshot, error) {
	snap := &RefSnapshot{
		Refs:    map[string]wire.OID{},
		Commits: map[wire.OID]bool{},
	}

	head, err := r.Head()
	if err != nil {
		return nil, err
	}
	snap.Head = head

	refs, err := r.ShowRef()
	if err != nil {
		return nil, err
	}
	snap.Refs = refs

	// Classify each distinct OID once; many refs can share a target.
	classified := map[wire.OID]bool{}
	classify := func(oid wire.OID) error {
		if classified[oid] {
			return nil
		}
		classified[oid] = true
		typ, err := r.TypeOf(oid)
		if err != nil {
			return err
		}
		switch typ {
		case TypeCommit:
			snap.Commits[oid] = true
		case TypeTag:
			snap.TagObjects = append(snap.TagObjects, oid)
			peeled, peeledType, err := r.Peel(oid)
			if err != nil {
				return err
			}
			if peeledType == TypeCommit {
				snap.Commits[peeled] = true
			}
		}
		return nil
	}
	for _, oid := range refs {
		if err := classify(oid); err != nil {
			return nil, err
		}
	}
	if !head.Symbolic && head.OID != "" {
		if err := classify(head.OID); err != nil {
			return nil, err
		}
	}
	return snap, nil
}

// Head resolves HEAD: the symbolic target when HEAD is symbolic (including
// unborn branches), otherwise the detached OID.
func (r *Repo) Head() (wire.Head, error) {
	out, err := r.run("symbolic-ref", "HEAD")
	if err == nil {
		return wire.SymbolicHead(strings.TrimRight(string(out), "\n")), nil
	}
	out, err = r.run("rev-parse", "HEAD")
	if err != nil {
		return wire.Head{}, fmt.Errorf("cannot resolve HEAD: %w", err)
	}
	oid, err := wire.ParseOID(strings.TrimSpace(string(out)))
	if err != nil {
		return wire.Head{}, fmt.Errorf("cannot resolve HEAD: %w", err)
	}
	return wire.DetachedHead(oid), nil
}

// ShowRef lists every reference. An empty repository yields an empty map
// (show-ref exits 1 with no output in that case).
func (r *Repo) ShowRef() (map[string]wire.OID, error) {
	out, err := r.run("show-ref")
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 && len(bytes.TrimSpace(out)) == 0 {
			return map[string]wire.OID{}, nil
		}
		return nil, err
	}

	refs := map[string]wire.OID{}
	for _, line := range strings.Split(strings.TrimRight(string(out), "\n"), "\n") {
		if line == "" {
			continue
		}
		oidHex, name, found := strings.Cut(line, " ")
		if !found {
			return nil, fmt.Errorf("unexpected show-ref line: %q", line)
		}
		if name == "HEAD" {
			continue
		}
		oid, err := wire.ParseOID(oidHex)
		if err != nil {
			return nil, fmt.Errorf("unexpected show-ref line %q: %w", line, err)
		}
		refs[name] = oid
	}
	return refs, nil
}

// TypeOf returns the object type of oid.
func (r *Repo) TypeOf(oid wire.OID) (ObjType, error) {
	out, err := r.run("cat-file", "-t", string(oid))
	if err != nil {
		return "", err
	}
	return ObjType(strings.TrimSpace(string(out))), nil
}

// Peel resolves tag objects transitively to their non-tag target, returning
// the target OID and its type.
func (r *Repo) Peel(oid wire.OID) (wire.OID, ObjType, error) {
	out, err := r.run("rev-parse", string(oid)+"^{}")
	if err != nil {
		return "", "", err
	}
	peeled, err := wire.ParseOID(strings.TrimSpace(string(out)))
	if err != nil {
		return "", "", fmt.Errorf("peeling %s: %w", oid, err)
	}
	typ, err := r.TypeOf(peeled)
	if err != nil {
		return "", "", err
	}
	return peeled, typ, nil
}

// HasObject reports whether oid exists in the object database.
func (r *Repo) HasObject(oid wire.OID) bool {
	_, err := r.run("cat-file", "-e", string(oid))
	return err == nil
}

// HasCommit reports whether oid exists and is a commit; used to confirm
// prerequisites are locally present.
func (r *Repo) HasCommit(oid wire.OID) bool {
	if !r.HasObject(oid) {
		return false
	}
	typ, err := r.TypeOf(oid)
	return err == nil && typ == TypeCommit
}

// UpdateRef points name at oid, creating it if needed.
func (r *Repo) UpdateRef(name string, oid wire.OID) error {
	_, err := r.run("update-ref", name, string(oid))
	return err
}

// DeleteRef removes name.
func (r *Repo) DeleteRef(name string) error {
	_, err := r.run("update-ref", "-d", name)
	return err
}

// ListRefs returns the full names of refs matching the given patterns.
func (r *Repo) ListRefs(patterns ...string) ([]string, error) {
	args := append([]string{"for-each-ref", "--format=%(refname)"}, patterns...)
	out, err := r.run(args...)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, line := range strings.Split(strings.TrimRight(string(out), "\n"), "\n") {
		if line != "" {
			names = append(names, line)
		}
	}
	return names, nil
}

// SetSymbolicHead points HEAD at the named ref (which may be unborn).
func (r *Repo) SetSymbolicHead(name string) error {
	_, err := r.run("symbolic-ref", "HEAD", name)
	return err
}

// SetDetachedHead detaches HEAD at oid.
func (r *Repo) SetDetachedHead(oid wire.OID) error {
	_, err := r.run("update-ref", "--no-deref", "HEAD", string(oid))
	return err
}
