package resolver

import (
	"fmt"
	"net/url"
	"strings"
)

// normalizeURL implements spec.md §4.F's normalization rule: split
// scheme://rest; collapse backslashes to slashes, "/./" to "/", "//" to
// "/"; drop "x/.." segments left to right; rejoin. When forcePackage is
// true the result is given a "/package.json" suffix if it doesn't
// already have one.
func normalizeURL(raw string, forcePackage bool) (string, error) {
	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok {
		return "", fmt.Errorf("resolver: %q has no scheme", raw)
	}
	rest = strings.ReplaceAll(rest, "\\", "/")
	for strings.Contains(rest, "/./") {
		rest = strings.ReplaceAll(rest, "/./", "/")
	}
	for strings.Contains(rest, "//") {
		rest = strings.ReplaceAll(rest, "//", "/")
	}

	segments := strings.Split(rest, "/")
	out := segments[:0:0]
	for _, seg := range segments {
		if seg == ".." {
			if len(out) > 0 {
				out = out[:len(out)-1]
			}
			continue
		}
		out = append(out, seg)
	}
	rest = strings.Join(out, "/")

	result := scheme + "://" + rest
	if forcePackage && !strings.HasSuffix(result, "/package.json") {
		result = strings.TrimSuffix(result, "/") + "/package.json"
	}
	return result, nil
}

// resolveRelative resolves a resource's declared URI against the URL of
// the package that declared it, then runs the result through
// normalizeURL.
func resolveRelative(baseURL, ref string, forcePackage bool) (string, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("resolver: parse base %q: %w", baseURL, err)
	}
	target, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("resolver: parse ref %q: %w", ref, err)
	}
	resolved := base.ResolveReference(target).String()
	return normalizeURL(resolved, forcePackage)
}
