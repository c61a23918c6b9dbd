package doccache

import (
	"net/url"
	"strings"
)

// Key identifies a logical document resource in the cache.
// Format: {version}|{normalized absolute URL}. Two keys are equal iff both
// the version tag and the normalized URL are equal.
type Key string

// Normalizer canonicalizes document locators into cache keys, so that a
// path-relative locator and its fully qualified form address the same entry.
type Normalizer struct {
	// version tags every key. Bumping it process-wide makes keys from
	// prior versions unreachable, which passively invalidates old entries
	// without touching stored data.
	version string

	// base is the API origin used to resolve path-only locators.
	base *url.URL
}

// NewNormalizer creates a normalizer with the given cache-format version tag
// and API base URL. The base may be empty if all locators are absolute.
func NewNormalizer(version, base string) (*Normalizer, error) {
	n := &Normalizer{version: version}

	if base != "" {
		u, err := url.Parse(base)
		if err != nil {
			return nil, err
		}
		n.base = u
	}

	return n, nil
}

// Normalize canonicalizes locator into a cache key. Malformed locators still
// produce a stable key; they simply fail later at fetch time.
func (n *Normalizer) Normalize(locator string) Key {
	return Key(n.version + "|" + n.URL(locator))
}

// URL returns the canonical absolute URL for locator, the form handed to the
// fetcher.
func (n *Normalizer) URL(locator string) string {
	u, err := url.Parse(strings.TrimSpace(locator))
	if err != nil {
		return locator
	}

	if n.base != nil {
		u = n.base.ResolveReference(u)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	// Default ports carry no information.
	switch {
	case u.Scheme == "http" && u.Port() == "80",
		u.Scheme == "https" && u.Port() == "443":
		u.Host = u.Hostname()
	}

	if u.Path == "" {
		u.Path = "/"
	}

	// Re-encoding sorts query parameters, so parameter order never splits
	// one resource across two keys.
	if u.RawQuery != "" {
		u.RawQuery = u.Query().Encode()
	}

	return u.String()
}

// Version returns the cache-format version tag.
func (n *Normalizer) Version() string {
	return n.version
}
