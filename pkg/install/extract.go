package install

import (
	"archive/tar"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// symlink is a link entry whose creation is deferred until every regular
// entry has been written.
type symlink struct {
	name, linkname string
}

// Extract unpacks a gzipped tarball into dest, dropping the first path
// component of every entry. Entries that would land outside dest are
// rejected.
//
// Directories, files and hard links are written through an [os.Root] on
// dest while the tree holds no symlinks. Symlinks are created afterwards,
// once all of them are known, and only when neither their location nor
// their target walks through another link.
func Extract(r io.Reader, dest string) error {
	gzr, err := gzip.NewReader(r)
	if err != nil {
		return err
	}
	defer gzr.Close()

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return err
	}
	base, err := filepath.EvalSymlinks(dest)
	if err != nil {
		return err
	}
	root, err := os.OpenRoot(base)
	if err != nil {
		return err
	}
	defer root.Close()

	var links []symlink
	tr := tar.NewReader(gzr)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		rel, ok := stripFirst(hdr.Name)
		if !ok {
			continue
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := mkdirAll(root, rel); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := writeFile(root, rel, tr, hdr.FileInfo().Mode().Perm()|0o600); err != nil {
				return err
			}
		case tar.TypeSymlink:
			links = append(links, symlink{name: rel, linkname: hdr.Linkname})
		case tar.TypeLink:
			src, ok := stripFirst(hdr.Linkname)
			if !ok {
				return fmt.Errorf("invalid hard link: %s -> %s", hdr.Name, hdr.Linkname)
			}
			if err := hardLink(root, base, src, rel); err != nil {
				return fmt.Errorf("invalid hard link: %s -> %s: %w", hdr.Name, hdr.Linkname, err)
			}
		}
	}

	return createSymlinks(root, base, links)
}

// stripFirst removes the leading path component. Entries with nothing
// left after stripping are reported as not ok.
func stripFirst(name string) (string, bool) {
	name = strings.TrimPrefix(path.Clean("/"+name), "/")
	_, rest, found := strings.Cut(name, "/")
	if !found || rest == "" {
		return "", false
	}
	return rest, true
}

func mkdirAll(root *os.Root, rel string) error {
	if rel == "." || rel == "" {
		return nil
	}
	cur := ""
	for _, part := range strings.Split(rel, "/") {
		cur = path.Join(cur, part)
		if err := root.Mkdir(cur, 0o755); err != nil && !errors.Is(err, fs.ErrExist) {
			return err
		}
	}
	return nil
}

func writeFile(root *os.Root, rel string, r io.Reader, mode os.FileMode) error {
	if err := mkdirAll(root, path.Dir(rel)); err != nil {
		return err
	}
	f, err := root.OpenFile(rel, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// hardLink links rel to the regular file src. No symlinks exist in the
// tree yet, so the host paths under base are the real ones.
func hardLink(root *os.Root, base, src, rel string) error {
	info, err := root.Lstat(src)
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", src)
	}
	if err := mkdirAll(root, path.Dir(rel)); err != nil {
		return err
	}
	if err := removeEntry(root, rel); err != nil {
		return err
	}
	return os.Link(filepath.Join(base, filepath.FromSlash(src)), filepath.Join(base, filepath.FromSlash(rel)))
}

// createSymlinks validates every link against the complete set before
// creating any of them. A later entry for the same name replaces an
// earlier one.
func createSymlinks(root *os.Root, base string, links []symlink) error {
	targets := make(map[string]string, len(links))
	var order []string
	for _, l := range links {
		if _, seen := targets[l.name]; !seen {
			order = append(order, l.name)
		}
		targets[l.name] = l.linkname
	}

	for _, name := range order {
		if err := checkSymlink(name, targets[name], targets); err != nil {
			return err
		}
	}
	for _, name := range order {
		if err := mkdirAll(root, path.Dir(name)); err != nil {
			return err
		}
		if err := removeEntry(root, name); err != nil {
			return err
		}
		if err := os.Symlink(targets[name], filepath.Join(base, filepath.FromSlash(name))); err != nil {
			return err
		}
	}
	return nil
}

// checkSymlink rejects a link that is absolute, sits below another link,
// or whose target leaves the root or passes through another link before
// its last component.
func checkSymlink(name, linkname string, links map[string]string) error {
	invalid := fmt.Errorf("invalid symlink: %s -> %s", name, linkname)
	if linkname == "" || path.IsAbs(linkname) || filepath.IsAbs(linkname) || strings.Contains(linkname, `\`) {
		return invalid
	}

	dir := path.Dir(name)
	for p := dir; p != "."; p = path.Dir(p) {
		if _, ok := links[p]; ok {
			return invalid
		}
	}

	cur := dir
	parts := strings.Split(linkname, "/")
	for i, part := range parts {
		switch part {
		case "", ".":
			continue
		case "..":
			if cur == "." {
				return invalid
			}
			cur = path.Dir(cur)
		default:
			cur = path.Join(cur, part)
		}
		if _, ok := links[cur]; ok && i < len(parts)-1 {
			return invalid
		}
	}
	return nil
}

func removeEntry(root *os.Root, rel string) error {
	if err := root.Remove(rel); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
