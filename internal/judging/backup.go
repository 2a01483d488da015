package judging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/mind-engage/judging/internal/storage"
)

const backupPrefix = "backups"

// BackupSet is one pre-reset backup: the files written together under a
// timestamped name.
type BackupSet struct {
	Name  string   `json:"name"`
	Files []string `json:"files"`
}

// Backup writes the full snapshot as JSON and the score export as CSV under
// a timestamped prefix and returns the stored keys.
func (s *Service) Backup(ctx context.Context) ([]string, error) {
	if s.backups == nil {
		return nil, nil
	}
	snap, err := s.Snapshot(ctx, false)
	if err != nil {
		return nil, err
	}
	dir := path.Join(backupPrefix, s.now().UTC().Format("20060102T150405.000Z"))

	doc, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, err
	}
	var csvBuf bytes.Buffer
	if err := exportOf(snap).WriteCSV(&csvBuf); err != nil {
		return nil, err
	}

	var keys []string
	for _, f := range []struct {
		name string
		data []byte
	}{
		{"snapshot.json", doc},
		{"scores_detailed.csv", csvBuf.Bytes()},
	} {
		key, err := s.backups.Put(ctx, path.Join(dir, f.name), f.data)
		if err != nil {
			return keys, err
		}
		keys = append(keys, key)
	}
	s.log.Info("backup written", "keys", keys)
	return keys, nil
}

// Backups lists stored backups, newest first. Without a backup store the
// list is empty.
func (s *Service) Backups(ctx context.Context) ([]BackupSet, error) {
	out := []BackupSet{}
	if s.backups == nil {
		return out, nil
	}
	keys, err := s.backups.List(ctx, backupPrefix+"/")
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}
	byName := map[string]int{}
	for _, k := range keys {
		name := path.Base(path.Dir(k))
		i, ok := byName[name]
		if !ok {
			i = len(out)
			byName[name] = i
			out = append(out, BackupSet{Name: name})
		}
		out[i].Files = append(out[i].Files, k)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name > out[j].Name })
	return out, nil
}

// BackupFile returns one stored backup file. Keys outside the backup prefix
// are reported as not found.
func (s *Service) BackupFile(ctx context.Context, key string) ([]byte, error) {
	key = strings.TrimPrefix(path.Clean("/"+key), "/")
	if s.backups == nil || !strings.HasPrefix(key, backupPrefix+"/") {
		return nil, fmt.Errorf("backup %q: %w", key, ErrNotFound)
	}
	b, err := s.backups.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("backup %q: %w", key, ErrNotFound)
	}
	return b, err
}
