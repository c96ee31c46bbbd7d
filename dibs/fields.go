// Package dibs holds the protocol core shared by the FlexWin and Payment
// Window clients: the ordered field mapping, digest canonicalization, the
// outcome taxonomy, the structured error type and the transport capability.
package dibs

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// Fields is an ordered mapping of gateway field names to scalar values.
// Insertion order is significant: the legacy MD5 digest canonicalizes in
// insertion order, while the JSON MAC sorts keys first. Amounts are integer
// minor units and must be set through SetInt.
type Fields struct {
	keys   []string
	values map[string]string
}

func NewFields() *Fields {
	return &Fields{values: make(map[string]string)}
}

// FieldsFromValues converts parsed form values into Fields. Form parsing
// loses wire order, so keys are sorted for determinism; every verification
// recipe rebuilds its own order and is unaffected.
func FieldsFromValues(v url.Values) *Fields {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	f := NewFields()
	for _, k := range keys {
		f.Set(k, v.Get(k))
	}
	return f
}

// Set stores value under key, appending the key on first use and keeping its
// original position on overwrite.
func (f *Fields) Set(key, value string) *Fields {
	if _, ok := f.values[key]; !ok {
		f.keys = append(f.keys, key)
	}
	f.values[key] = value
	return f
}

// SetInt stores an integer minor-unit value. Amounts never pass through
// floating point.
func (f *Fields) SetInt(key string, value int64) *Fields {
	return f.Set(key, strconv.FormatInt(value, 10))
}

func (f *Fields) Get(key string) string {
	return f.values[key]
}

func (f *Fields) Lookup(key string) (string, bool) {
	v, ok := f.values[key]
	return v, ok
}

func (f *Fields) Has(key string) bool {
	_, ok := f.values[key]
	return ok
}

func (f *Fields) Delete(key string) {
	if _, ok := f.values[key]; !ok {
		return
	}
	delete(f.values, key)
	for i, k := range f.keys {
		if k == key {
			f.keys = append(f.keys[:i], f.keys[i+1:]...)
			break
		}
	}
}

func (f *Fields) Len() int {
	return len(f.keys)
}

// Keys returns the field names in insertion order.
func (f *Fields) Keys() []string {
	out := make([]string, len(f.keys))
	copy(out, f.keys)
	return out
}

func (f *Fields) Clone() *Fields {
	out := NewFields()
	for _, k := range f.keys {
		out.Set(k, f.values[k])
	}
	return out
}

// Merge copies every field of other into f. Later values override earlier
// ones, which gives the caller-supplied custom fields the last word when
// building operation parameters.
func (f *Fields) Merge(other *Fields) *Fields {
	if other == nil {
		return f
	}
	for _, k := range other.keys {
		f.Set(k, other.values[k])
	}
	return f
}

// Values converts the fields into url.Values for the transport.
func (f *Fields) Values() url.Values {
	v := make(url.Values, len(f.keys))
	for _, k := range f.keys {
		v.Set(k, f.values[k])
	}
	return v
}

// MarshalJSON writes the fields as a JSON object in insertion order. All
// values are emitted as strings; the gateway form-parses scalars either way
// and the MAC is computed over the canonical query form, not the JSON.
func (f *Fields) MarshalJSON() ([]byte, error) {
	var b strings.Builder
	b.WriteByte('{')
	for i, k := range f.keys {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Quote(k))
		b.WriteByte(':')
		b.WriteString(strconv.Quote(f.values[k]))
	}
	b.WriteByte('}')
	return []byte(b.String()), nil
}

// Canonical serializes f into a URL form-encoded query string in insertion
// order, then URL-decodes the whole string back to raw bytes. The round trip
// is deliberate: it normalizes '+'/space handling so sender and verifier
// digest identical input, and it must not be shortcut.
func Canonical(f *Fields) string {
	return canonicalize(f, f.keys)
}

// CanonicalSorted canonicalizes with keys sorted byte-wise. Sorting before
// canonicalization is an invariant of the JSON/HMAC digest, not an
// optimization.
func CanonicalSorted(f *Fields) string {
	keys := make([]string, len(f.keys))
	copy(keys, f.keys)
	sort.Strings(keys)
	return canonicalize(f, keys)
}

func canonicalize(f *Fields, keys []string) string {
	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(f.values[k]))
	}
	decoded, err := url.QueryUnescape(b.String())
	if err != nil {
		// Unreachable for output of QueryEscape.
		return b.String()
	}
	return decoded
}
