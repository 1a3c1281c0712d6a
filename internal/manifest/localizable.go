package manifest

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/jward/playpack/internal/errs"
	"github.com/jward/playpack/internal/hashcodec"
)

// LocalizableString is either a raw string (no translations) or a map of
// language id ("en", "en-US", "fr", ...) to value.
type LocalizableString struct {
	Raw  string            // used when Vals is nil
	Vals map[string]string // nil means "Raw only"
}

// NewLocalizable wraps a raw, untranslated string.
func NewLocalizable(raw string) LocalizableString {
	return LocalizableString{Raw: raw}
}

// MarshalJSON encodes a raw string as a JSON string and a translated one
// as a JSON object of langid → string.
func (l LocalizableString) MarshalJSON() ([]byte, error) {
	if l.Vals == nil {
		return json.Marshal(l.Raw)
	}
	return json.Marshal(l.Vals)
}

// UnmarshalJSON accepts either shape.
func (l *LocalizableString) UnmarshalJSON(data []byte) error {
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		l.Raw = asString
		l.Vals = nil
		return nil
	}
	var asMap map[string]string
	if err := json.Unmarshal(data, &asMap); err != nil {
		return &errs.SerializeError{Offset: -1, Err: err}
	}
	l.Vals = asMap
	l.Raw = ""
	return nil
}

// stripRegion returns the language subtag of a langid like "en-US",
// lower-cased.
func stripRegion(langid string) string {
	langid = strings.ToLower(langid)
	if i := strings.IndexByte(langid, '-'); i >= 0 {
		return langid[:i]
	}
	return langid
}

// Translate resolves value for langid following spec.md §3's lookup
// chain: exact match → same-language any-region → English → stub.
func (l LocalizableString) Translate(langid string) string {
	if l.Vals == nil {
		return l.Raw
	}
	if v, ok := l.Vals[langid]; ok {
		return v
	}
	base := stripRegion(langid)
	var sameLangKeys []string
	for k := range l.Vals {
		if stripRegion(k) == base {
			sameLangKeys = append(sameLangKeys, k)
		}
	}
	if len(sameLangKeys) > 0 {
		sort.Strings(sameLangKeys)
		return l.Vals[sameLangKeys[0]]
	}
	if v, ok := l.Vals["en"]; ok {
		return v
	}
	var enKeys []string
	for k := range l.Vals {
		if stripRegion(k) == "en" {
			enKeys = append(enKeys, k)
		}
	}
	if len(enKeys) > 0 {
		sort.Strings(enKeys)
		return l.Vals[enKeys[0]]
	}
	return "<untranslated>"
}

// Hash computes an order-independent hash over the translatable form:
// XOR over every (langid, value) entry of H(langid) xor H(value). A raw
// (untranslated) string hashes as if it were a single "en" entry, so
// that promoting a raw string to a one-language map doesn't change its
// hash.
func (l LocalizableString) Hash() hashcodec.H {
	vals := l.Vals
	if vals == nil {
		vals = map[string]string{"en": l.Raw}
	}
	var total hashcodec.H
	for k, v := range vals {
		term := hashcodec.Xor(hashcodec.ForSlice([]byte(k)), hashcodec.ForSlice([]byte(v)))
		hashcodec.XorAssign(&total, term)
	}
	return total
}
