package generations

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/jward/playpack/internal/errs"
	"github.com/jward/playpack/internal/hashcodec"
	"github.com/jward/playpack/internal/manifest"
)

// Store is the generations index plus one full-snapshot file per
// generation, rooted at a directory.
type Store struct {
	root string
}

// Open opens (creating if absent) the generations store rooted at dir.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &errs.IOError{Op: "mkdir", Path: dir, Err: err}
	}
	return &Store{root: dir}, nil
}

func (s *Store) indexPath() string { return filepath.Join(s.root, "generations.json") }

func (s *Store) genPath(h hashcodec.H) string {
	return filepath.Join(s.root, hashcodec.Encode(h))
}

// TempPath returns h's in-flight build path in the generations folder,
// base32(h).tmp.
func (s *Store) TempPath(h hashcodec.H) string {
	return filepath.Join(s.root, hashcodec.Encode(h)+".tmp")
}

func (s *Store) readIndex() (map[string]int64, error) {
	data, err := os.ReadFile(s.indexPath())
	if os.IsNotExist(err) {
		return map[string]int64{}, nil
	}
	if err != nil {
		return nil, &errs.IOError{Op: "read", Path: s.indexPath(), Err: err}
	}
	var idx map[string]int64
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, &errs.SerializeError{Offset: -1, Err: err}
	}
	return idx, nil
}

// writeIndex writes the index atomically: write to a temp file in the
// same directory, then rename over the target.
func (s *Store) writeIndex(idx map[string]int64) error {
	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return &errs.SerializeError{Offset: -1, Err: err}
	}
	tmp := s.indexPath() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return &errs.IOError{Op: "write", Path: tmp, Err: err}
	}
	if err := os.Rename(tmp, s.indexPath()); err != nil {
		return &errs.IOError{Op: "rename", Path: s.indexPath(), Err: err}
	}
	return nil
}

// Insert computes h = H(generation's bytes), writes base32(h) as
// pretty-printed JSON, and updates the index, preserving existing
// entries.
func (s *Store) Insert(gen *manifest.GenerationManifest) (hashcodec.H, error) {
	h, err := gen.Hash()
	if err != nil {
		return 0, err
	}
	data, err := gen.Bytes()
	if err != nil {
		return 0, err
	}
	pretty, err := prettyPrint(data)
	if err != nil {
		return 0, err
	}
	path := s.genPath(h)
	if err := os.WriteFile(path, pretty, 0o644); err != nil {
		return 0, &errs.IOError{Op: "write", Path: path, Err: err}
	}

	idx, err := s.readIndex()
	if err != nil {
		return 0, err
	}
	idx[hashcodec.Encode(h)] = int64(gen.GeneratedAt)
	if err := s.writeIndex(idx); err != nil {
		return 0, err
	}
	return h, nil
}

func prettyPrint(data []byte) ([]byte, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, &errs.SerializeError{Offset: -1, Err: err}
	}
	return json.MarshalIndent(v, "", "  ")
}

// List returns every generation hash ordered by ascending timestamp.
func (s *Store) List() ([]hashcodec.H, error) {
	idx, err := s.readIndex()
	if err != nil {
		return nil, err
	}
	type entry struct {
		h  hashcodec.H
		ts int64
	}
	entries := make([]entry, 0, len(idx))
	for encoded, ts := range idx {
		h, ok := hashcodec.Decode(encoded)
		if !ok {
			continue
		}
		entries = append(entries, entry{h, ts})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].ts != entries[j].ts {
			return entries[i].ts < entries[j].ts
		}
		return entries[i].h < entries[j].h
	})
	out := make([]hashcodec.H, len(entries))
	for i, e := range entries {
		out[i] = e.h
	}
	return out, nil
}

// Latest returns the most recently inserted generation hash, or ok=false
// if the store is empty.
func (s *Store) Latest() (h hashcodec.H, ok bool, err error) {
	list, err := s.List()
	if err != nil {
		return 0, false, err
	}
	if len(list) == 0 {
		return 0, false, nil
	}
	return list[len(list)-1], true, nil
}

// Load parses the generation stored at h, or ok=false if absent.
func (s *Store) Load(h hashcodec.H) (gen *manifest.GenerationManifest, ok bool, err error) {
	data, readErr := os.ReadFile(s.genPath(h))
	if os.IsNotExist(readErr) {
		return nil, false, nil
	}
	if readErr != nil {
		return nil, false, &errs.IOError{Op: "read", Path: s.genPath(h), Err: readErr}
	}
	gen, err = manifest.ParseGenerationManifest(data)
	if err != nil {
		return nil, false, err
	}
	return gen, true, nil
}

// Remove deletes h's file and index entry. Both operations are
// best-effort idempotent: removing an already-absent generation is not
// an error.
func (s *Store) Remove(h hashcodec.H) error {
	path := s.genPath(h)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return &errs.IOError{Op: "remove", Path: path, Err: err}
	}

	idx, err := s.readIndex()
	if err != nil {
		return err
	}
	delete(idx, hashcodec.Encode(h))
	return s.writeIndex(idx)
}
