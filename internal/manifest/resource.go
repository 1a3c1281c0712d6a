package manifest

import (
	"encoding/json"
	"fmt"

	"github.com/jward/playpack/internal/errs"
	"github.com/jward/playpack/internal/hashcodec"
)

// Resource is a declared dependency: a URI to fetch, an optional format
// hint (predicted from the URL when absent), and an optional pinned hash.
type Resource struct {
	URI    string
	Format ResourceFormat // FormatUnknown means "predict from URI"
	Hash   *hashcodec.H   // nil means "not pinned"
}

// resourceWire is Resource's JSON shape: optional fields accept either an
// absent key or an explicit null, per spec.md §4.D.
type resourceWire struct {
	URI    string  `json:"uri"`
	Format *string `json:"format,omitempty"`
	Hash   *string `json:"hash,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (r Resource) MarshalJSON() ([]byte, error) {
	w := resourceWire{URI: r.URI}
	if r.Format != FormatUnknown {
		f := r.Format.String()
		w.Format = &f
	}
	if r.Hash != nil {
		h := hashcodec.Encode(*r.Hash)
		w.Hash = &h
	}
	return json.Marshal(w)
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Resource) UnmarshalJSON(data []byte) error {
	var w resourceWire
	if err := json.Unmarshal(data, &w); err != nil {
		return &errs.SerializeError{Offset: -1, Err: err}
	}
	if w.URI == "" {
		return &errs.AsJSONError{Kind: errs.FieldNotFound, Path: "uri"}
	}
	r.URI = w.URI
	r.Format = FormatUnknown
	if w.Format != nil {
		f, ok := ParseResourceFormat(*w.Format)
		if !ok {
			return &errs.AsJSONError{Kind: errs.InvalidFieldValue, Path: "format", Value: *w.Format}
		}
		r.Format = f
	}
	r.Hash = nil
	if w.Hash != nil {
		h, ok := hashcodec.Decode(*w.Hash)
		if !ok {
			return &errs.AsJSONError{Kind: errs.InvalidFieldValue, Path: "hash", Value: *w.Hash}
		}
		r.Hash = &h
	}
	return nil
}

// EffectiveFormat returns r.Format, predicting it from r.URI when unset.
func (r Resource) EffectiveFormat() ResourceFormat {
	if r.Format != FormatUnknown {
		return r.Format
	}
	return PredictFormat(r.URI)
}

// String implements fmt.Stringer for debugging/logging.
func (r Resource) String() string {
	return fmt.Sprintf("%s (%s)", r.URI, r.EffectiveFormat())
}
