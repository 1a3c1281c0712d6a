package manifest

import (
	"encoding/json"

	"github.com/jward/playpack/internal/errs"
	"github.com/jward/playpack/internal/hashcodec"
)

// GameLock pins one game-manifest fetch within a generation: the
// games-registry entry's resolved hash plus its own declared integrations,
// resolved the same way a package's outputs are.
type GameLock struct {
	Slug    string
	Lock    Lock
	Tags    []GameTag
	Addons  map[string]Lock // installable integrations, by declared name
}

type gameLockWire struct {
	Slug   string          `json:"slug"`
	Lock   Lock            `json:"lock"`
	Tags   []GameTag       `json:"tags,omitempty"`
	Addons map[string]Lock `json:"addons,omitempty"`
}

func (g GameLock) MarshalJSON() ([]byte, error) {
	return json.Marshal(gameLockWire{Slug: g.Slug, Lock: g.Lock, Tags: g.Tags, Addons: g.Addons})
}

func (g *GameLock) UnmarshalJSON(data []byte) error {
	var w gameLockWire
	if err := json.Unmarshal(data, &w); err != nil {
		return &errs.SerializeError{Offset: -1, Err: err}
	}
	if w.Slug == "" {
		return &errs.AsJSONError{Kind: errs.FieldNotFound, Path: "slug"}
	}
	g.Slug, g.Lock, g.Tags, g.Addons = w.Slug, w.Lock, w.Tags, w.Addons
	return nil
}

// GenerationManifest wraps a built lockfile with the games it was built
// against and a build timestamp. A generation is identified by
// H(bytes of its own serialization) and indexed in generations.json by
// that hash.
type GenerationManifest struct {
	LockFile    LockfileManifest
	Games       []GameLock
	GeneratedAt uint64
}

type generationWire struct {
	LockFile    LockfileManifest `json:"lock_file"`
	Games       []GameLock       `json:"games"`
	GeneratedAt uint64           `json:"generated_at"`
}

// ParseGenerationManifest decodes generation JSON bytes.
func ParseGenerationManifest(data []byte) (*GenerationManifest, error) {
	var w generationWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, &errs.SerializeError{Offset: -1, Err: err}
	}
	if w.Games == nil {
		w.Games = []GameLock{}
	}
	return &GenerationManifest{LockFile: w.LockFile, Games: w.Games, GeneratedAt: w.GeneratedAt}, nil
}

// Bytes re-encodes the generation as canonical JSON.
func (m *GenerationManifest) Bytes() ([]byte, error) {
	return json.Marshal(generationWire{LockFile: m.LockFile, Games: m.Games, GeneratedAt: m.GeneratedAt})
}

// Hash computes the generation's identity, H(bytes of its own
// serialization), used as the generations.json index key and the
// on-disk filename (base32-encoded).
func (m *GenerationManifest) Hash() (hashcodec.H, error) {
	b, err := m.Bytes()
	if err != nil {
		return 0, err
	}
	return hashcodec.ForSlice(b), nil
}
