package manifest

import (
	"encoding/json"

	"github.com/jward/playpack/internal/errs"
)

// CurrentPackageStandard is the only package manifest standard version
// playpack accepts today.
const CurrentPackageStandard = 1

// PackageManifest is served as package.json at a package's URL.
type PackageManifest struct {
	Standard uint64
	Metadata PackageMetadata
	Inputs   map[string]Resource // may be nil
	Outputs  map[string]Resource // must have at least one entry
}

// PackageMetadata carries free-form author-supplied fields. Homepage and
// Maintainers are named because the spec calls them out explicitly;
// Extra preserves anything else without losing it on a round trip.
type PackageMetadata struct {
	Homepage    string          `json:"homepage,omitempty"`
	Maintainers []string        `json:"maintainers,omitempty"`
	Extra       json.RawMessage `json:"-"`
}

type packageWire struct {
	Standard uint64              `json:"standard"`
	Metadata json.RawMessage     `json:"metadata"`
	Inputs   map[string]Resource `json:"inputs,omitempty"`
	Outputs  map[string]Resource `json:"outputs"`
}

// ParsePackageManifest decodes package.json bytes.
func ParsePackageManifest(data []byte) (*PackageManifest, error) {
	var w packageWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, &errs.SerializeError{Offset: -1, Err: err}
	}
	if w.Standard == 0 {
		return nil, &errs.AsJSONError{Kind: errs.FieldNotFound, Path: "standard"}
	}
	if w.Standard != CurrentPackageStandard {
		return nil, &errs.AsJSONError{Kind: errs.Other, Err: unsupportedStandardError{w.Standard}}
	}
	if len(w.Outputs) == 0 {
		return nil, &errs.AsJSONError{Kind: errs.FieldNotFound, Path: "outputs"}
	}

	meta := PackageMetadata{Extra: w.Metadata}
	if len(w.Metadata) > 0 {
		// Best-effort extraction of the named fields; anything else stays
		// in Extra so it survives round-tripping even though this type
		// doesn't model it.
		var named struct {
			Homepage    string   `json:"homepage"`
			Maintainers []string `json:"maintainers"`
		}
		if err := json.Unmarshal(w.Metadata, &named); err == nil {
			meta.Homepage = named.Homepage
			meta.Maintainers = named.Maintainers
		}
	}

	return &PackageManifest{
		Standard: w.Standard,
		Metadata: meta,
		Inputs:   w.Inputs,
		Outputs:  w.Outputs,
	}, nil
}

// Bytes re-encodes the manifest as canonical JSON bytes, the form the
// store hashes and stores at h.src.
func (m *PackageManifest) Bytes() ([]byte, error) {
	w := packageWire{
		Standard: m.Standard,
		Metadata: m.Metadata.Extra,
		Inputs:   m.Inputs,
		Outputs:  m.Outputs,
	}
	if w.Metadata == nil {
		meta := struct {
			Homepage    string   `json:"homepage,omitempty"`
			Maintainers []string `json:"maintainers,omitempty"`
		}{m.Metadata.Homepage, m.Metadata.Maintainers}
		encoded, err := json.Marshal(meta)
		if err != nil {
			return nil, err
		}
		w.Metadata = encoded
	}
	return json.Marshal(w)
}

type unsupportedStandardError struct{ standard uint64 }

func (e unsupportedStandardError) Error() string {
	return "unsupported package manifest standard"
}
