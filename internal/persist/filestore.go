package persist

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
)

const snapshotExt = ".snap"

// Store saves and loads scene snapshots.
type Store interface {
	Save(ctx context.Context, s Snapshot) error
	Latest(ctx context.Context, scene string) (Snapshot, error)
	Scenes(ctx context.Context) ([]string, error)
}

// FileStore keeps the latest snapshot of each scene as <dir>/<scene>.snap.
type FileStore struct {
	dir string
	log *zap.Logger
}

func NewFileStore(dir string, log *zap.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &FileStore{dir: dir, log: log}, nil
}

func (fs *FileStore) path(scene string) (string, error) {
	if scene == "" || strings.ContainsAny(scene, `/\`) || scene == "." || scene == ".." {
		return "", fmt.Errorf("invalid scene name %q", scene)
	}
	return filepath.Join(fs.dir, scene+snapshotExt), nil
}

// Save writes through a temp file and renames it over the old snapshot.
func (fs *FileStore) Save(_ context.Context, s Snapshot) error {
	path, err := fs.path(s.Scene)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(fs.dir, s.Scene+"-*.tmp")
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(Seal(s)); err != nil {
		tmp.Close()
		return fmt.Errorf("save snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	fs.log.Debug("snapshot saved", zap.String("path", path), zap.Int("bytes", len(s.Payload)), zap.Uint64("frame", s.Frame))
	return nil
}

func (fs *FileStore) Latest(_ context.Context, scene string) (Snapshot, error) {
	path, err := fs.path(scene)
	if err != nil {
		return Snapshot{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Snapshot{}, fmt.Errorf("scene %s: %w", scene, ErrNoSnapshot)
		}
		return Snapshot{}, fmt.Errorf("load snapshot: %w", err)
	}
	s, err := Open(data)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load snapshot %s: %w", path, err)
	}
	s.Scene = scene
	return s, nil
}

func (fs *FileStore) Scenes(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(fs.dir)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != snapshotExt {
			continue
		}
		out = append(out, strings.TrimSuffix(e.Name(), snapshotExt))
	}
	sort.Strings(out)
	return out, nil
}

var (
	_ Store = (*FileStore)(nil)
	_ Store = (*SnapshotRepo)(nil)
)
