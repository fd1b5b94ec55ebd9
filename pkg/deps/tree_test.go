package deps

import (
	"encoding/json"
	"reflect"
	"testing"
)

func sampleTree() *Tree {
	inner := NewTree()
	inner.Set("zeta", &Node{Name: "zeta", Version: "1.0.0"})
	inner.Set("alpha", &Node{Name: "alpha", Version: "2.0.0"})

	tree := NewTree()
	tree.Set("react", &Node{Name: "react", Version: "18.2.0", Dependencies: inner})
	tree.Set("eslint", &Node{Name: "eslint", Version: "8.0.0", Bin: map[string]string{"eslint": "bin/eslint.js"}})
	return tree
}

func TestTreeOrder(t *testing.T) {
	tree := sampleTree()
	if got, want := tree.Names(), []string{"react", "eslint"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}

	tree.Set("react", &Node{Name: "react", Version: "18.3.0"})
	if got, want := tree.Names(), []string{"react", "eslint"}; !reflect.DeepEqual(got, want) {
		t.Errorf("replacing an entry moved it: %v", got)
	}
	if n, _ := tree.Get("react"); n.Version != "18.3.0" {
		t.Errorf("Get(react).Version = %q", n.Version)
	}
}

func TestNilTree(t *testing.T) {
	var tree *Tree
	if tree.Len() != 0 {
		t.Error("nil tree should be empty")
	}
	if _, ok := tree.Get("x"); ok {
		t.Error("nil tree Get should miss")
	}
	for range tree.All() {
		t.Error("nil tree should not yield")
	}
	if tree.Sorted().Len() != 0 {
		t.Error("Sorted() of nil tree should be empty")
	}
}

func TestSortedIsDeepAndNonMutating(t *testing.T) {
	tree := sampleTree()
	sorted := tree.Sorted()

	if got, want := sorted.Names(), []string{"eslint", "react"}; !reflect.DeepEqual(got, want) {
		t.Errorf("sorted top level = %v, want %v", got, want)
	}
	react, _ := sorted.Get("react")
	if got, want := react.Dependencies.Names(), []string{"alpha", "zeta"}; !reflect.DeepEqual(got, want) {
		t.Errorf("sorted nested level = %v, want %v", got, want)
	}

	if got, want := tree.Names(), []string{"react", "eslint"}; !reflect.DeepEqual(got, want) {
		t.Errorf("receiver top level changed: %v", got)
	}
	orig, _ := tree.Get("react")
	if got, want := orig.Dependencies.Names(), []string{"zeta", "alpha"}; !reflect.DeepEqual(got, want) {
		t.Errorf("receiver nested level changed: %v", got)
	}
	if orig == react {
		t.Error("Sorted() shares nodes with the receiver")
	}
}

func TestTreeJSON(t *testing.T) {
	tree := sampleTree()
	data, err := json.Marshal(tree)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := `{"react":{"name":"react","version":"18.2.0","dependencies":{"zeta":{"name":"zeta","version":"1.0.0"},"alpha":{"name":"alpha","version":"2.0.0"}}},"eslint":{"name":"eslint","version":"8.0.0","bin":{"eslint":"bin/eslint.js"}}}`
	if string(data) != want {
		t.Errorf("Marshal() =\n%s\nwant\n%s", data, want)
	}

	var back Tree
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !reflect.DeepEqual(back.Names(), tree.Names()) {
		t.Errorf("order lost: %v", back.Names())
	}
	react, _ := back.Get("react")
	if !reflect.DeepEqual(react.Dependencies.Names(), []string{"zeta", "alpha"}) {
		t.Errorf("nested order lost: %v", react.Dependencies.Names())
	}
	eslint, _ := back.Get("eslint")
	if eslint.Bin["eslint"] != "bin/eslint.js" || eslint.Dependencies != nil {
		t.Errorf("eslint = %+v", eslint)
	}
}

func TestTreeUnmarshalInvalid(t *testing.T) {
	for _, data := range []string{`[]`, `{"a": 1}`, `{"a": {"name": 3}}`} {
		var tree Tree
		if err := json.Unmarshal([]byte(data), &tree); err == nil {
			t.Errorf("Unmarshal(%s) succeeded", data)
		}
	}
}

func TestFlatten(t *testing.T) {
	shared := &Node{Name: "ms", Version: "2.1.3"}
	debugDeps := NewTree()
	debugDeps.Set("ms", shared)
	expressDeps := NewTree()
	expressDeps.Set("debug", &Node{Name: "debug", Version: "4.3.4", Dependencies: debugDeps})
	expressDeps.Set("ms", &Node{Name: "ms", Version: "2.1.3"})

	tree := NewTree()
	tree.Set("express", &Node{Name: "express", Version: "4.18.2", Dependencies: expressDeps})
	tree.Set("ms", &Node{Name: "ms", Version: "2.0.0"})
	tree.Set("ghost", &Node{})

	var got []string
	for _, r := range Flatten(tree) {
		got = append(got, r.String())
	}
	want := []string{"express@4.18.2", "debug@4.3.4", "ms@2.1.3", "ms@2.0.0"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Flatten() = %v, want %v", got, want)
	}
	if n := Count(tree); n != 6 {
		t.Errorf("Count() = %d, want 6", n)
	}
}
