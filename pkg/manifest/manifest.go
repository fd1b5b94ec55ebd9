// Package manifest reads and writes a project's package.json.
//
// Only the fields gpack acts on are decoded. Every other top-level field
// is kept as raw JSON and written back unchanged, in its original
// position, so an install never reformats or drops foreign settings.
package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"sort"

	"github.com/matzehuels/gpack/pkg/errors"
)

const (
	fieldDependencies    = "dependencies"
	fieldDevDependencies = "devDependencies"
)

// Manifest is a decoded package.json.
type Manifest struct {
	Name            string            `json:"name,omitempty"`
	Version         string            `json:"version,omitempty"`
	Dependencies    map[string]string `json:"dependencies,omitempty"`
	DevDependencies map[string]string `json:"devDependencies,omitempty"`
	Bin             Bin               `json:"bin,omitempty"`
	Scripts         map[string]string `json:"scripts,omitempty"`

	keys  []string
	raw   map[string]json.RawMessage
	dirty map[string]bool
}

// Bin is the executable table of a package. package.json allows either an
// object of name to path or a single path string; the string form decodes
// to a single entry under the empty key until [Bin.Named] assigns it.
type Bin map[string]string

// UnmarshalJSON accepts both the object and the string form.
func (b *Bin) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*b = nil
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*b = Bin{"": single}
		return nil
	}
	var table map[string]string
	if err := json.Unmarshal(data, &table); err != nil {
		return fmt.Errorf("bin must be a string or an object: %w", err)
	}
	*b = table
	return nil
}

// Named returns a copy of b in which the shorthand entry is keyed by the
// package's unscoped name.
func (b Bin) Named(pkg string) map[string]string {
	if len(b) == 0 {
		return nil
	}
	out := make(map[string]string, len(b))
	for name, rel := range b {
		if name == "" {
			name = path.Base(pkg)
		}
		out[name] = rel
	}
	return out
}

// Read loads and parses the manifest at path.
func Read(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.ErrCodeInvalidManifest, "package.json not found at %s", path).
				WithHints("run gpack from the project root", "create a package.json with at least a \"name\" field")
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "read %s", path)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "parse %s", path)
	}
	return m, nil
}

// Parse decodes a manifest and records the order of its top-level fields.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}

	keys, raw, err := objectFields(data)
	if err != nil {
		return nil, err
	}
	m.keys, m.raw = keys, raw
	return &m, nil
}

// objectFields returns the top-level keys of a JSON object in document
// order along with their raw values.
func objectFields(data []byte) ([]string, map[string]json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, nil, fmt.Errorf("manifest must be a JSON object")
	}

	var keys []string
	raw := make(map[string]json.RawMessage)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key := tok.(string)
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, nil, err
		}
		if _, seen := raw[key]; !seen {
			keys = append(keys, key)
		}
		raw[key] = value
	}
	return keys, raw, nil
}

// AllDependencies merges dependencies and devDependencies. A name present
// in both takes the devDependencies range.
func (m *Manifest) AllDependencies() map[string]string {
	all := make(map[string]string, len(m.Dependencies)+len(m.DevDependencies))
	for name, rng := range m.Dependencies {
		all[name] = rng
	}
	for name, rng := range m.DevDependencies {
		all[name] = rng
	}
	return all
}

// AddDependency records name at rng in dependencies, or devDependencies
// when dev is set.
func (m *Manifest) AddDependency(name, rng string, dev bool) {
	field := fieldDependencies
	target := &m.Dependencies
	if dev {
		field = fieldDevDependencies
		target = &m.DevDependencies
	}
	if *target == nil {
		*target = make(map[string]string)
	}
	(*target)[name] = rng
	m.markDirty(field)
}

func (m *Manifest) markDirty(field string) {
	if m.dirty == nil {
		m.dirty = make(map[string]bool)
	}
	m.dirty[field] = true
}

// ScriptNames returns the script names sorted alphabetically.
func (m *Manifest) ScriptNames() []string {
	names := make([]string, 0, len(m.Scripts))
	for name := range m.Scripts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Marshal encodes the manifest with 2-space indentation and a trailing
// newline. Untouched fields keep their original value and position;
// modified dependency tables are appended when they did not exist before.
func (m *Manifest) Marshal() ([]byte, error) {
	keys := m.defaultKeys()
	if m.raw != nil {
		keys = append([]string(nil), m.keys...)
		for _, field := range []string{fieldDependencies, fieldDevDependencies} {
			if m.dirty[field] && m.raw[field] == nil {
				keys = append(keys, field)
			}
		}
	}

	var compact bytes.Buffer
	compact.WriteByte('{')
	for i, key := range keys {
		if i > 0 {
			compact.WriteByte(',')
		}
		k, err := encode(key)
		if err != nil {
			return nil, err
		}
		v, err := m.value(key)
		if err != nil {
			return nil, err
		}
		compact.Write(k)
		compact.WriteByte(':')
		compact.Write(v)
	}
	compact.WriteByte('}')

	var out bytes.Buffer
	if err := json.Indent(&out, compact.Bytes(), "", "  "); err != nil {
		return nil, err
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

// defaultKeys lists the populated known fields of a manifest built in code.
func (m *Manifest) defaultKeys() []string {
	var keys []string
	if m.Name != "" {
		keys = append(keys, "name")
	}
	if m.Version != "" {
		keys = append(keys, "version")
	}
	if len(m.Scripts) > 0 {
		keys = append(keys, "scripts")
	}
	if len(m.Bin) > 0 {
		keys = append(keys, "bin")
	}
	if len(m.Dependencies) > 0 {
		keys = append(keys, fieldDependencies)
	}
	if len(m.DevDependencies) > 0 {
		keys = append(keys, fieldDevDependencies)
	}
	return keys
}

func (m *Manifest) value(key string) ([]byte, error) {
	if raw, ok := m.raw[key]; ok && !m.dirty[key] {
		return raw, nil
	}
	switch key {
	case "name":
		return encode(m.Name)
	case "version":
		return encode(m.Version)
	case "scripts":
		return encode(m.Scripts)
	case "bin":
		return encode(m.Bin)
	case fieldDependencies:
		return encode(m.Dependencies)
	case fieldDevDependencies:
		return encode(m.DevDependencies)
	}
	return nil, fmt.Errorf("no value for manifest field %q", key)
}

// encode marshals v without HTML escaping so ranges like ">=1 <2" survive.
func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Write encodes m to path.
func Write(path string, m *Manifest) error {
	data, err := m.Marshal()
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode manifest")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "write %s", path)
	}
	return nil
}
