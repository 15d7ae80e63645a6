package meta

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// DirName is the metadata directory created inside the Git directory.
const DirName = "ibundle"

const (
	idFileName  = "id"
	seqDirName  = "seq"
	tempDirName = "temp"
	logDirName  = "log"
	tempPrefix  = ".tmp-"
)

// Store is the per-repository metadata store: an `id` file holding the
// repo_id and one binary snapshot file per sync point under `seq/`.
// A single concurrent invocation per repository is assumed.
type Store struct {
	dir string
}

// Open returns a store rooted at `<gitDir>/ibundle`. The directory is
// created lazily by the first mutating operation; stale temp files from an
// interrupted writer are removed.
func Open(gitDir string) *Store {
	s := &Store{dir: filepath.Join(gitDir, DirName)}
	s.cleanStaleTemps()
	return s
}

// Dir returns the metadata directory path.
func (s *Store) Dir() string {
	return s.dir
}

// TempDir returns the per-invocation scratch directory, creating it if
// needed.
func (s *Store) TempDir() (string, error) {
	dir := filepath.Join(s.dir, tempDirName)
	if err := os.MkdirAll(dir, 0o777); err != nil {
		return "", fmt.Errorf("failed to create scratch directory: %w", err)
	}
	return dir, nil
}

// LogDir returns the log directory path (not created here).
func (s *Store) LogDir() string {
	return filepath.Join(s.dir, logDirName)
}

func (s *Store) seqDir() string {
	return filepath.Join(s.dir, seqDirName)
}

func (s *Store) seqPath(seqNum uint64) string {
	return filepath.Join(s.seqDir(), strconv.FormatUint(seqNum, 10))
}

func (s *Store) cleanStaleTemps() {
	for _, dir := range []string{s.dir, s.seqDir()} {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if strings.HasPrefix(e.Name(), tempPrefix) {
				os.Remove(filepath.Join(dir, e.Name()))
			}
		}
	}
}

// writeFileAtomic writes data to path via a sibling temp file and rename.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o777); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, tempPrefix+filepath.Base(path)+"-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// ID reads the stored repo_id. ok is false when no id has been written.
func (s *Store) ID() (id uuid.UUID, ok bool, err error) {
	data, err := os.ReadFile(filepath.Join(s.dir, idFileName))
	if errors.Is(err, os.ErrNotExist) {
		return uuid.UUID{}, false, nil
	}
	if err != nil {
		return uuid.UUID{}, false, fmt.Errorf("failed to read repo id: %w", err)
	}
	id, err = uuid.Parse(strings.TrimSpace(string(data)))
	if err != nil {
		return uuid.UUID{}, false, fmt.Errorf("invalid repo id file: %w", err)
	}
	return id, true, nil
}

// WriteIDOnce persists id unless an id already exists. Writing the same id
// again is a no-op; a different existing id is an error.
func (s *Store) WriteIDOnce(id uuid.UUID) error {
	existing, ok, err := s.ID()
	if err != nil {
		return err
	}
	if ok {
		if existing != id {
			return fmt.Errorf("repo id already set to %s", existing)
		}
		return nil
	}
	return writeFileAtomic(filepath.Join(s.dir, idFileName), []byte(id.String()+"\n"))
}

// EnsureID returns the stored repo_id, generating and persisting a fresh
// random UUID when none exists yet.
func (s *Store) EnsureID() (uuid.UUID, error) {
	id, ok, err := s.ID()
	if err != nil {
		return uuid.UUID{}, err
	}
	if ok {
		return id, nil
	}
	id = uuid.New()
	if err := s.WriteIDOnce(id); err != nil {
		return uuid.UUID{}, err
	}
	return id, nil
}

// Put records snap as the snapshot for seqNum.
func (s *Store) Put(seqNum uint64, snap *Snapshot) error {
	data, err := encodeSnapshot(snap)
	if err != nil {
		return err
	}
	return writeFileAtomic(s.seqPath(seqNum), data)
}

// ErrNoSnapshot is returned by Get for an unrecorded sequence number.
var ErrNoSnapshot = errors.New("no snapshot for sequence number")

// Get loads the snapshot recorded for seqNum.
func (s *Store) Get(seqNum uint64) (*Snapshot, error) {
	data, err := os.ReadFile(s.seqPath(seqNum))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %d", ErrNoSnapshot, seqNum)
	}
	if err != nil {
		return nil, err
	}
	snap, err := decodeSnapshot(data)
	if err != nil {
		return nil, fmt.Errorf("sync point %d: %w", seqNum, err)
	}
	return snap, nil
}

// Remove deletes the snapshot for seqNum.
func (s *Store) Remove(seqNum uint64) error {
	if err := os.Remove(s.seqPath(seqNum)); err != nil {
		return fmt.Errorf("failed to remove sync point %d: %w", seqNum, err)
	}
	return nil
}

// SeqNums returns the recorded sequence numbers in ascending order.
func (s *Store) SeqNums() ([]uint64, error) {
	entries, err := os.ReadDir(s.seqDir())
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var nums []uint64
	for _, e := range entries {
		n, err := strconv.ParseUint(e.Name(), 10, 64)
		if err != nil {
			continue
		}
		nums = append(nums, n)
	}
	sort.Slice(nums, func(i, j int) bool { return nums[i] < nums[j] })
	return nums, nil
}

// MaxSeqNum returns the largest recorded sequence number, 0 if none.
func (s *Store) MaxSeqNum() (uint64, error) {
	nums, err := s.SeqNums()
	if err != nil {
		return 0, err
	}
	if len(nums) == 0 {
		return 0, nil
	}
	return nums[len(nums)-1], nil
}

// Has reports whether a snapshot exists for seqNum.
func (s *Store) Has(seqNum uint64) bool {
	_, err := os.Stat(s.seqPath(seqNum))
	return err == nil
}
