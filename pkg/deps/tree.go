package deps

import (
	"bytes"
	"encoding/json"
	"fmt"
	"iter"
	"slices"
)

// Node is one resolved package.
type Node struct {
	Name         string            `json:"name"`
	Version      string            `json:"version"`
	Resolved     string            `json:"resolved,omitempty"` // file:<path> for local packages
	Bin          map[string]string `json:"bin,omitempty"`
	Dependencies *Tree             `json:"dependencies,omitempty"`
}

// ID returns "name@version".
func (n *Node) ID() string {
	return n.Name + "@" + n.Version
}

// IsLocal reports whether the node was resolved from a local path.
func (n *Node) IsLocal() bool {
	return n.Resolved != ""
}

// Tree is an insertion-ordered mapping from dependency name to node.
// The zero value is empty and ready to use; a nil *Tree reads as empty.
type Tree struct {
	keys  []string
	nodes map[string]*Node
}

// NewTree returns an empty tree.
func NewTree() *Tree {
	return &Tree{nodes: make(map[string]*Node)}
}

// Set stores n under name. Replacing an existing name keeps its position.
func (t *Tree) Set(name string, n *Node) {
	if t.nodes == nil {
		t.nodes = make(map[string]*Node)
	}
	if _, ok := t.nodes[name]; !ok {
		t.keys = append(t.keys, name)
	}
	t.nodes[name] = n
}

// Get returns the node stored under name.
func (t *Tree) Get(name string) (*Node, bool) {
	if t == nil {
		return nil, false
	}
	n, ok := t.nodes[name]
	return n, ok
}

// Len returns the number of direct entries.
func (t *Tree) Len() int {
	if t == nil {
		return 0
	}
	return len(t.keys)
}

// Names returns the keys in insertion order.
func (t *Tree) Names() []string {
	if t == nil {
		return nil
	}
	return slices.Clone(t.keys)
}

// All iterates over the entries in insertion order.
func (t *Tree) All() iter.Seq2[string, *Node] {
	return func(yield func(string, *Node) bool) {
		if t == nil {
			return
		}
		for _, k := range t.keys {
			if !yield(k, t.nodes[k]) {
				return
			}
		}
	}
}

// Sorted returns a deep copy with keys in alphabetical order at every
// level. The receiver is left untouched.
func (t *Tree) Sorted() *Tree {
	out := NewTree()
	if t == nil {
		return out
	}
	keys := slices.Clone(t.keys)
	slices.Sort(keys)
	for _, k := range keys {
		n := t.nodes[k]
		if n == nil {
			out.Set(k, nil)
			continue
		}
		cp := *n
		if n.Bin != nil {
			cp.Bin = make(map[string]string, len(n.Bin))
			for name, rel := range n.Bin {
				cp.Bin[name] = rel
			}
		}
		if n.Dependencies != nil {
			cp.Dependencies = n.Dependencies.Sorted()
		}
		out.Set(k, &cp)
	}
	return out
}

// MarshalJSON encodes the tree as a JSON object in insertion order.
func (t *Tree) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range t.Names() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(t.nodes[k])
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", k, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, keeping its key order.
func (t *Tree) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("dependency tree must be a JSON object")
	}

	*t = Tree{nodes: make(map[string]*Node)}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name := tok.(string)
		var n *Node
		if err := dec.Decode(&n); err != nil {
			return fmt.Errorf("decode %s: %w", name, err)
		}
		t.Set(name, n)
	}
	_, err = dec.Token()
	return err
}
