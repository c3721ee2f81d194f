// Package snapshot persists point-in-time copies of the managed service's
// mutable state under timestamp-named directories, together with the
// version-control reference that was checked out when the copy was taken.
package snapshot

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/stewardhq/steward/util"
)

const (
	refFileName = "previous_ref.txt"
	nameFormat  = "20060102-150405"
)

// snapshot directory names: timestamp plus an optional insertion-order
// suffix for same-second creations, e.g. 20240501-120000-2
var nameRE = regexp.MustCompile(`^(\d{8}-\d{6})(?:-(\d+))?$`)

// Snapshot is one immutable point-in-time backup directory.
type Snapshot struct {
	Name string
	Dir  string

	createdAt time.Time
	seq       int

	stateName  string
	configName string
}

// StatePath returns the path of the state-file copy inside the snapshot and
// whether the copy exists.
func (s *Snapshot) StatePath() (string, bool) {
	if s.stateName == "" {
		return "", false
	}
	p := filepath.Join(s.Dir, s.stateName)
	return p, util.FileExists(p)
}

// ConfigPath returns the path of the configuration-file copy inside the
// snapshot and whether the copy exists.
func (s *Snapshot) ConfigPath() (string, bool) {
	if s.configName == "" {
		return "", false
	}
	p := filepath.Join(s.Dir, s.configName)
	return p, util.FileExists(p)
}

// PreviousRef reads the version-control reference recorded when the
// snapshot was taken.
func (s *Snapshot) PreviousRef() (string, error) {
	bs, err := os.ReadFile(filepath.Join(s.Dir, refFileName))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", refFileName, err)
	}
	return strings.TrimSpace(string(bs)), nil
}

// Store manages the snapshot directory tree for one deployment.
type Store struct {
	mu     sync.Mutex
	root   string
	pinned map[string]struct{}

	stateFile  string
	configFile string
}

// NewStore creates a store rooted at root. stateFile and configFile are the
// live source paths whose copies snapshots hold; configFile may be empty.
func NewStore(root, stateFile, configFile string) *Store {
	return &Store{
		root:       root,
		pinned:     make(map[string]struct{}),
		stateFile:  stateFile,
		configFile: configFile,
	}
}

// Root returns the snapshot root directory.
func (s *Store) Root() string {
	return s.root
}

// Create captures a new snapshot: copies of the state and configuration
// files for each source that exists, plus the recorded previous reference.
// The snapshot is fully written before Create returns.
func (s *Store) Create(previousRef string) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.root, 0750); err != nil {
		return nil, fmt.Errorf("create snapshot root: %w", err)
	}

	name, dir, seq, createdAt, err := s.createDir()
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		Name:       name,
		Dir:        dir,
		createdAt:  createdAt,
		seq:        seq,
		stateName:  filepath.Base(s.stateFile),
		configName: baseOrEmpty(s.configFile),
	}

	if util.FileExists(s.stateFile) {
		if err := util.CopyFileContents(s.stateFile, filepath.Join(dir, snap.stateName)); err != nil {
			return nil, fmt.Errorf("copy state file: %w", err)
		}
	}

	if s.configFile != "" && util.FileExists(s.configFile) {
		if err := util.CopyFileContents(s.configFile, filepath.Join(dir, snap.configName)); err != nil {
			return nil, fmt.Errorf("copy config file: %w", err)
		}
	}

	if err := os.WriteFile(filepath.Join(dir, refFileName), []byte(previousRef+"\n"), 0600); err != nil {
		return nil, fmt.Errorf("record previous reference: %w", err)
	}

	return snap, nil
}

// createDir picks the first free timestamp-derived name. Same-second
// collisions get an increasing insertion-order suffix.
func (s *Store) createDir() (string, string, int, time.Time, error) {
	createdAt := time.Now()
	base := createdAt.Format(nameFormat)

	for seq := 1; ; seq++ {
		name := base
		if seq > 1 {
			name = fmt.Sprintf("%s-%d", base, seq)
		}
		dir := filepath.Join(s.root, name)

		err := os.Mkdir(dir, 0750)
		if err == nil {
			return name, dir, seq, createdAt, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return "", "", 0, time.Time{}, fmt.Errorf("create snapshot dir: %w", err)
		}
	}
}

// List returns all snapshots, newest first. Snapshots sharing a timestamp
// are ordered by their insertion-order suffix.
func (s *Store) List() ([]*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.list()
}

func (s *Store) list() ([]*Snapshot, error) {
	entries, err := os.ReadDir(s.root)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot root: %w", err)
	}

	var snaps []*Snapshot
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		m := nameRE.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}

		createdAt, err := time.ParseInLocation(nameFormat, m[1], time.Local)
		if err != nil {
			continue
		}

		seq := 1
		if m[2] != "" {
			seq, _ = strconv.Atoi(m[2])
		}

		snaps = append(snaps, &Snapshot{
			Name:       entry.Name(),
			Dir:        filepath.Join(s.root, entry.Name()),
			createdAt:  createdAt,
			seq:        seq,
			stateName:  filepath.Base(s.stateFile),
			configName: baseOrEmpty(s.configFile),
		})
	}

	sort.Slice(snaps, func(i, j int) bool {
		if !snaps[i].createdAt.Equal(snaps[j].createdAt) {
			return snaps[i].createdAt.After(snaps[j].createdAt)
		}
		return snaps[i].seq > snaps[j].seq
	})

	return snaps, nil
}

// Prune deletes all but the keep most recent snapshots. Pinned snapshots
// are never deleted. Prune is idempotent.
func (s *Store) Prune(keep int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if keep < 0 {
		keep = 0
	}

	snaps, err := s.list()
	if err != nil {
		return 0, err
	}

	if len(snaps) <= keep {
		return 0, nil
	}

	removed := 0
	for _, snap := range snaps[keep:] {
		if _, ok := s.pinned[snap.Name]; ok {
			log.Debugf("prune: skipping pinned snapshot %s", snap.Name)
			continue
		}
		if err := os.RemoveAll(snap.Dir); err != nil {
			return removed, fmt.Errorf("remove snapshot %s: %w", snap.Name, err)
		}
		log.Infof("pruned snapshot %s", snap.Name)
		removed++
	}

	return removed, nil
}

// Delete removes one snapshot by name. Pinned snapshots cannot be deleted.
func (s *Store) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.pinned[name]; ok {
		return fmt.Errorf("snapshot %s is in use", name)
	}

	dir := filepath.Join(s.root, name)
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("snapshot %s: %w", name, err)
	}

	return os.RemoveAll(dir)
}

// Pin protects a snapshot from Prune and Delete until Unpin is called.
func (s *Store) Pin(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pinned[name] = struct{}{}
}

// Unpin releases a pinned snapshot.
func (s *Store) Unpin(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pinned, name)
}

func baseOrEmpty(path string) string {
	if path == "" {
		return ""
	}
	return filepath.Base(path)
}
