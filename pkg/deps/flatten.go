package deps

// Ref identifies a package version.
type Ref struct {
	Name    string
	Version string
}

func (r Ref) String() string { return r.Name + "@" + r.Version }

// Flatten lists every distinct name@version in the tree, depth-first in
// insertion order.
func Flatten(t *Tree) []Ref {
	seen := make(map[Ref]bool)
	var out []Ref
	var walk func(*Tree)
	walk = func(t *Tree) {
		for _, n := range t.All() {
			if n == nil || n.Name == "" {
				continue
			}
			ref := Ref{Name: n.Name, Version: n.Version}
			if !seen[ref] {
				seen[ref] = true
				out = append(out, ref)
			}
			walk(n.Dependencies)
		}
	}
	walk(t)
	return out
}

// Count returns the total number of nodes, duplicates included.
func Count(t *Tree) int {
	total := 0
	for _, n := range t.All() {
		if n == nil {
			continue
		}
		total += 1 + Count(n.Dependencies)
	}
	return total
}
