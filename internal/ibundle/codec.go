package ibundle

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/drmikehenry/git-ibundle/internal/wire"
)

// ErrMalformed is returned for any ibundle that fails decoding: bad magic,
// unknown version, truncated PACK, or missing trailer.
var ErrMalformed = errors.New("malformed ibundle")

const (
	magic   = "ibundle\n"
	version = 0x02
	trailer = "IBND"
)

const (
	flagStandalone     = 1 << 0
	flagHeadIsSymbolic = 1 << 1
	flagHeadPresent    = 1 << 2
)

// Encode serializes f into the V2 binary container. Mutations, full refs,
// and prereqs are sorted in place so equal inputs produce identical bytes.
func Encode(f *File) ([]byte, error) {
	var w wire.Writer
	w.Raw([]byte(magic))
	w.Byte(version)
	w.Raw(f.RepoID[:])
	w.Uvarint(f.SeqNum)
	w.Uvarint(f.BasisSeqNum)

	var flags byte
	if f.Standalone {
		flags |= flagStandalone
	}
	if f.Head.Present() {
		flags |= flagHeadPresent
		if f.Head.Symbolic {
			flags |= flagHeadIsSymbolic
		}
	}
	w.Byte(flags)

	if f.Head.Present() {
		if f.Head.Symbolic {
			w.Bytes([]byte(f.Head.Ref))
		} else if err := w.OID(f.Head.OID); err != nil {
			return nil, err
		}
	}

	SortMutations(f.Mutations)
	w.Uvarint(uint64(len(f.Mutations)))
	for _, m := range f.Mutations {
		w.Byte(byte(m.Op))
		w.Bytes([]byte(m.Name))
		if m.Op == OpAdd {
			if err := w.OID(m.OID); err != nil {
				return nil, err
			}
		}
	}

	if f.Standalone {
		SortRefs(f.FullRefs)
		w.Uvarint(uint64(len(f.FullRefs)))
		for _, ref := range f.FullRefs {
			w.Bytes([]byte(ref.Name))
			if err := w.OID(ref.OID); err != nil {
				return nil, err
			}
		}
		SortOIDs(f.Prereqs)
		w.Uvarint(uint64(len(f.Prereqs)))
		for _, oid := range f.Prereqs {
			if err := w.OID(oid); err != nil {
				return nil, err
			}
		}
	}

	w.Uvarint(uint64(len(f.Pack)))
	w.Raw(f.Pack)
	w.Raw([]byte(trailer))
	return w.Output(), nil
}

// Decode parses an ibundle. Raw OIDs in the container have no width marker;
// their size is implied by the repository's object format. Decode first
// assumes SHA-1 width and falls back to SHA-256 width when the pack-length
// and trailer consistency checks fail, which a wrong width always trips
// because it misaligns every later field.
func Decode(data []byte) (*File, error) {
	f, err := decode(data, wire.OIDSizeSHA1)
	if err != nil {
		if f32, err32 := decode(data, wire.OIDSizeSHA256); err32 == nil {
			return f32, nil
		}
		return nil, err
	}
	return f, nil
}

func decode(data []byte, oidSize int) (*File, error) {
	r := wire.NewReader(data)

	m, err := r.Raw(len(magic))
	if err != nil || string(m) != magic {
		return nil, fmt.Errorf("%w: bad magic", ErrMalformed)
	}
	v, err := r.Byte()
	if err != nil {
		return nil, fmt.Errorf("%w: missing version", ErrMalformed)
	}
	if v != version {
		return nil, fmt.Errorf("%w: unsupported format version %d", ErrMalformed, v)
	}

	f := &File{}
	idRaw, err := r.Raw(16)
	if err != nil {
		return nil, fmt.Errorf("%w: truncated repo id", ErrMalformed)
	}
	id, err := uuid.FromBytes(idRaw)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid repo id", ErrMalformed)
	}
	f.RepoID = id

	if f.SeqNum, err = r.Uvarint(); err != nil {
		return nil, fmt.Errorf("%w: seq_num: %v", ErrMalformed, err)
	}
	if f.BasisSeqNum, err = r.Uvarint(); err != nil {
		return nil, fmt.Errorf("%w: basis_seq_num: %v", ErrMalformed, err)
	}

	flags, err := r.Byte()
	if err != nil {
		return nil, fmt.Errorf("%w: missing flags", ErrMalformed)
	}
	f.Standalone = flags&flagStandalone != 0

	if flags&flagHeadPresent != 0 {
		if flags&flagHeadIsSymbolic != 0 {
			name, err := r.Bytes()
			if err != nil {
				return nil, fmt.Errorf("%w: head ref: %v", ErrMalformed, err)
			}
			f.Head = wire.SymbolicHead(string(name))
		} else {
			oid, err := r.OID(oidSize)
			if err != nil {
				return nil, fmt.Errorf("%w: head oid: %v", ErrMalformed, err)
			}
			f.Head = wire.DetachedHead(oid)
		}
	}

	count, err := r.Uvarint()
	if err != nil {
		return nil, fmt.Errorf("%w: mutation count: %v", ErrMalformed, err)
	}
	for i := uint64(0); i < count; i++ {
		opByte, err := r.Byte()
		if err != nil {
			return nil, fmt.Errorf("%w: mutation %d: %v", ErrMalformed, i, err)
		}
		op := Op(opByte)
		if op != OpAdd && op != OpDel {
			return nil, fmt.Errorf("%w: mutation %d: unknown op %d", ErrMalformed, i, opByte)
		}
		name, err := r.Bytes()
		if err != nil {
			return nil, fmt.Errorf("%w: mutation %d name: %v", ErrMalformed, i, err)
		}
		m := Mutation{Op: op, Name: string(name)}
		if op == OpAdd {
			if m.OID, err = r.OID(oidSize); err != nil {
				return nil, fmt.Errorf("%w: mutation %d oid: %v", ErrMalformed, i, err)
			}
		}
		f.Mutations = append(f.Mutations, m)
	}

	if f.Standalone {
		count, err := r.Uvarint()
		if err != nil {
			return nil, fmt.Errorf("%w: full_refs count: %v", ErrMalformed, err)
		}
		for i := uint64(0); i < count; i++ {
			name, err := r.Bytes()
			if err != nil {
				return nil, fmt.Errorf("%w: full_refs %d name: %v", ErrMalformed, i, err)
			}
			oid, err := r.OID(oidSize)
			if err != nil {
				return nil, fmt.Errorf("%w: full_refs %d oid: %v", ErrMalformed, i, err)
			}
			f.FullRefs = append(f.FullRefs, wire.Ref{Name: string(name), OID: oid})
		}
		count, err = r.Uvarint()
		if err != nil {
			return nil, fmt.Errorf("%w: prereq count: %v", ErrMalformed, err)
		}
		for i := uint64(0); i < count; i++ {
			oid, err := r.OID(oidSize)
			if err != nil {
				return nil, fmt.Errorf("%w: prereq %d: %v", ErrMalformed, i, err)
			}
			f.Prereqs = append(f.Prereqs, oid)
		}
	}

	packLen, err := r.Uvarint()
	if err != nil {
		return nil, fmt.Errorf("%w: pack_len: %v", ErrMalformed, err)
	}
	if uint64(r.Remaining()) != packLen+uint64(len(trailer)) {
		return nil, fmt.Errorf("%w: pack_len %d does not match remainder %d",
			ErrMalformed, packLen, r.Remaining())
	}
	if f.Pack, err = r.Raw(int(packLen)); err != nil {
		return nil, fmt.Errorf("%w: truncated pack", ErrMalformed)
	}
	t, err := r.Raw(len(trailer))
	if err != nil || string(t) != trailer {
		return nil, fmt.Errorf("%w: missing trailer", ErrMalformed)
	}
	return f, nil
}
