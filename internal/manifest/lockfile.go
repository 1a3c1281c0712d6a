package manifest

import (
	"encoding/json"

	"github.com/jward/playpack/internal/errs"
	"github.com/jward/playpack/internal/hashcodec"
)

// CurrentLockfileStandard is the only lockfile standard version playpack
// produces or accepts.
const CurrentLockfileStandard = 1

// Lock pins an artifact's content hash and recorded byte size (L3, L4).
type Lock struct {
	Hash hashcodec.H
	Size uint64
}

type lockWire struct {
	Hash string `json:"hash"`
	Size uint64 `json:"size"`
}

// MarshalJSON implements json.Marshaler.
func (l Lock) MarshalJSON() ([]byte, error) {
	return json.Marshal(lockWire{Hash: hashcodec.Encode(l.Hash), Size: l.Size})
}

// UnmarshalJSON implements json.Unmarshaler.
func (l *Lock) UnmarshalJSON(data []byte) error {
	var w lockWire
	if err := json.Unmarshal(data, &w); err != nil {
		return &errs.SerializeError{Offset: -1, Err: err}
	}
	h, ok := hashcodec.Decode(w.Hash)
	if !ok {
		return &errs.AsJSONError{Kind: errs.InvalidFieldValue, Path: "lock.hash", Value: w.Hash}
	}
	l.Hash = h
	l.Size = w.Size
	return nil
}

// ResourceLock is one resolved entry in a lockfile's resources array.
// Inputs/Outputs are present only when Format is FormatPackage (L1) and
// index other entries in the same resources array.
type ResourceLock struct {
	URL     string
	Format  ResourceFormat
	Lock    Lock
	Inputs  map[string]uint32 // nil for non-package formats
	Outputs map[string]uint32 // nil for non-package formats
}

type resourceLockWire struct {
	URL     string            `json:"url"`
	Format  string            `json:"format"`
	Lock    Lock              `json:"lock"`
	Inputs  map[string]uint32 `json:"inputs,omitempty"`
	Outputs map[string]uint32 `json:"outputs,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (r ResourceLock) MarshalJSON() ([]byte, error) {
	return json.Marshal(resourceLockWire{
		URL:     r.URL,
		Format:  r.Format.String(),
		Lock:    r.Lock,
		Inputs:  r.Inputs,
		Outputs: r.Outputs,
	})
}

// UnmarshalJSON implements json.Unmarshaler. Unknown formats reject (§6).
func (r *ResourceLock) UnmarshalJSON(data []byte) error {
	var w resourceLockWire
	if err := json.Unmarshal(data, &w); err != nil {
		return &errs.SerializeError{Offset: -1, Err: err}
	}
	f, ok := ParseResourceFormat(w.Format)
	if !ok {
		return &errs.AsJSONError{Kind: errs.InvalidFieldValue, Path: "format", Value: w.Format}
	}
	r.URL = w.URL
	r.Format = f
	r.Lock = w.Lock
	r.Inputs = w.Inputs
	r.Outputs = w.Outputs
	return nil
}

// LockfileMetadata carries the lockfile's build timestamp.
type LockfileMetadata struct {
	GeneratedAt uint64
}

// LockfileManifest is the resolver's deterministic output: every resolved
// resource plus an index of which entries are roots.
type LockfileManifest struct {
	Standard  uint64
	Metadata  LockfileMetadata
	Root      []uint32
	Resources []ResourceLock
}

type lockfileWire struct {
	Standard uint64 `json:"standard"`
	Metadata struct {
		GeneratedAt uint64 `json:"generated_at"`
	} `json:"metadata"`
	Root      []uint32       `json:"root"`
	Resources []ResourceLock `json:"resources"`
}

// ParseLockfileManifest decodes lockfile JSON bytes.
func ParseLockfileManifest(data []byte) (*LockfileManifest, error) {
	var w lockfileWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, &errs.SerializeError{Offset: -1, Err: err}
	}
	if w.Standard == 0 {
		return nil, &errs.AsJSONError{Kind: errs.FieldNotFound, Path: "standard"}
	}
	if w.Root == nil {
		w.Root = []uint32{}
	}
	if w.Resources == nil {
		w.Resources = []ResourceLock{}
	}
	return &LockfileManifest{
		Standard:  w.Standard,
		Metadata:  LockfileMetadata{GeneratedAt: w.Metadata.GeneratedAt},
		Root:      w.Root,
		Resources: w.Resources,
	}, nil
}

// Bytes re-encodes the lockfile as canonical JSON, the bytes hashed to
// identify a generation (spec.md §3: "generation identified by
// H(serialized generation)" composes the lockfile's own serialization).
func (m *LockfileManifest) Bytes() ([]byte, error) {
	w := lockfileWire{Standard: m.Standard, Root: m.Root, Resources: m.Resources}
	w.Metadata.GeneratedAt = m.Metadata.GeneratedAt
	return json.Marshal(w)
}

// Validate checks the lockfile's structural invariants L1 and L2 that can
// be verified without touching the store: package entries carry
// inputs/outputs indexing into range, non-package entries carry neither,
// and every root index names a Package entry.
func (m *LockfileManifest) Validate() error {
	n := uint32(len(m.Resources))
	for i, r := range m.Resources {
		isPackage := r.Format == FormatPackage
		if !isPackage && (r.Inputs != nil || r.Outputs != nil) {
			return &errs.AsJSONError{Kind: errs.Other, Err: lockfileInvariantError{"L1", i}}
		}
		for _, idx := range r.Inputs {
			if idx >= n {
				return &errs.AsJSONError{Kind: errs.Other, Err: lockfileInvariantError{"L1", i}}
			}
		}
		for _, idx := range r.Outputs {
			if idx >= n {
				return &errs.AsJSONError{Kind: errs.Other, Err: lockfileInvariantError{"L1", i}}
			}
		}
	}
	for _, idx := range m.Root {
		if idx >= n || m.Resources[idx].Format != FormatPackage {
			return &errs.AsJSONError{Kind: errs.Other, Err: lockfileInvariantError{"L2", int(idx)}}
		}
	}
	return nil
}

type lockfileInvariantError struct {
	invariant string
	index     int
}

func (e lockfileInvariantError) Error() string {
	return "lockfile violates " + e.invariant
}
