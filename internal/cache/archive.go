package cache

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ulikunitz/xz"
)

// WriteArchive writes an xz-compressed tar of roots to w. Entries of roots[i]
// are stored under the "<i>/" prefix so ExtractArchive can put them back.
// Missing roots are skipped.
func WriteArchive(w io.Writer, roots []string) error {
	xw, err := xz.NewWriter(w)
	if err != nil {
		return fmt.Errorf("failed to create xz writer: %w", err)
	}
	tw := tar.NewWriter(xw)

	for i, root := range roots {
		if _, err := os.Lstat(root); errors.Is(err, fs.ErrNotExist) {
			slog.Debug("cache path does not exist, skipping", "path", root)
			continue
		}
		if err := addTree(tw, strconv.Itoa(i), root); err != nil {
			return err
		}
	}

	if err := tw.Close(); err != nil {
		return fmt.Errorf("failed to finalize tar: %w", err)
	}
	if err := xw.Close(); err != nil {
		return fmt.Errorf("failed to finalize xz stream: %w", err)
	}
	return nil
}

func addTree(tw *tar.Writer, prefix, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		var link string
		if info.Mode()&fs.ModeSymlink != 0 {
			if link, err = os.Readlink(p); err != nil {
				return fmt.Errorf("failed to read symlink %s: %w", p, err)
			}
		}

		hdr, err := tar.FileInfoHeader(info, link)
		if err != nil {
			return fmt.Errorf("failed to create tar header for %s: %w", p, err)
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		hdr.Name = path.Join(prefix, filepath.ToSlash(rel))
		if d.IsDir() {
			hdr.Name += "/"
		}

		if err := tw.WriteHeader(hdr); err != nil {
			return fmt.Errorf("failed to write tar header for %s: %w", p, err)
		}

		if !info.Mode().IsRegular() {
			return nil
		}

		f, err := os.Open(p)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", p, err)
		}
		defer f.Close()

		if _, err := io.Copy(tw, f); err != nil {
			return fmt.Errorf("failed to archive %s: %w", p, err)
		}
		return nil
	})
}

// ExtractArchive extracts an archive produced by WriteArchive, placing the
// entries of prefix "<i>/" under roots[i].
func ExtractArchive(r io.Reader, roots []string) error {
	xr, err := xz.NewReader(r)
	if err != nil {
		return fmt.Errorf("failed to create xz reader: %w", err)
	}
	tr := tar.NewReader(xr)

	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read tar header: %w", err)
		}

		root, target, err := resolveEntry(roots, hdr.Name)
		if err != nil {
			return err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, os.FileMode(hdr.Mode).Perm()|0700); err != nil {
				return fmt.Errorf("failed to create directory: %w", err)
			}
		case tar.TypeReg:
			if err := extractFile(tr, target, os.FileMode(hdr.Mode).Perm()); err != nil {
				return err
			}
		case tar.TypeSymlink:
			// Security: validate symlink target
			if filepath.IsAbs(hdr.Linkname) || !isInsideDir(root, filepath.Join(filepath.Dir(target), hdr.Linkname)) {
				return fmt.Errorf("invalid symlink target: %s -> %s", hdr.Name, hdr.Linkname)
			}
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return fmt.Errorf("failed to create directory: %w", err)
			}
			_ = os.Remove(target)
			if err := os.Symlink(hdr.Linkname, target); err != nil {
				return fmt.Errorf("failed to create symlink: %w", err)
			}
		default:
			slog.Debug("skipping unsupported tar entry", "name", hdr.Name, "type", hdr.Typeflag)
		}
	}

	return nil
}

// resolveEntry maps an archive entry name to its root and on-disk target.
func resolveEntry(roots []string, name string) (string, string, error) {
	idx, rest, _ := strings.Cut(strings.TrimSuffix(name, "/"), "/")
	i, err := strconv.Atoi(idx)
	if err != nil || i < 0 || i >= len(roots) {
		return "", "", fmt.Errorf("invalid archive entry: %s", name)
	}

	root := filepath.Clean(roots[i])
	if rest == "" {
		return root, root, nil
	}

	target := filepath.Join(root, filepath.FromSlash(rest))

	// Security: prevent path traversal
	if !isInsideDir(root, target) {
		return "", "", fmt.Errorf("invalid file path: %s", name)
	}
	if err := checkNoSymlinkParent(root, target); err != nil {
		return "", "", fmt.Errorf("invalid file path: %s: %w", name, err)
	}
	return root, target, nil
}

// checkNoSymlinkParent fails if any directory between root and target is a
// symlink. Archives written by WriteArchive never place entries below a
// symlink, and following one would let a later entry land outside root.
func checkNoSymlinkParent(root, target string) error {
	rel, err := filepath.Rel(root, filepath.Dir(target))
	if err != nil {
		return err
	}
	if rel == "." {
		return nil
	}

	cur := root
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		cur = filepath.Join(cur, part)
		info, err := os.Lstat(cur)
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		if err != nil {
			return err
		}
		if info.Mode()&fs.ModeSymlink != 0 {
			return fmt.Errorf("parent %s is a symlink", cur)
		}
	}
	return nil
}

// extractFile extracts a single file from an archive.
func extractFile(r io.Reader, target string, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	_ = os.Remove(target)
	f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

// isInsideDir checks if target path is the base directory or inside it.
func isInsideDir(baseDir, target string) bool {
	rel, err := filepath.Rel(baseDir, target)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}
