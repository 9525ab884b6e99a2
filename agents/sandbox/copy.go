/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package sandbox

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// DefaultSkipDirs are directory names never copied into a sandbox.
var DefaultSkipDirs = []string{
	".git", "node_modules", "bower_components", ".venv", "venv",
	"__pycache__", ".gradle", ".tox", ".pnpm-store",
}

// copyTree copies src into dst, skipping directories named in skip at
// any depth. Symlinks are recreated, not followed; other special files are
// ignored.
func copyTree(src, dst string, skip map[string]struct{}) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		target := filepath.Join(dst, rel)

		switch {
		case d.IsDir():
			if _, ok := skip[d.Name()]; ok {
				return filepath.SkipDir
			}
			info, err := d.Info()
			if err != nil {
				return err
			}
			return os.MkdirAll(target, info.Mode().Perm()|0o700)

		case d.Type()&fs.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			return os.Symlink(link, target)

		case d.Type().IsRegular():
			return copyFile(path, target)
		}
		return nil
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm()|0o600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy %s: %w", src, err)
	}
	return out.Close()
}

// resolveDir maps a caller-supplied cwd onto the sandbox root. Paths that
// would leave the root are clamped to it; note explains any adjustment.
func resolveDir(workspace, root, cwd string) (dir, rel, note string) {
	cwd = strings.TrimSpace(cwd)
	if cwd == "" || cwd == "." {
		return root, ".", ""
	}
	if filepath.IsAbs(cwd) {
		r, err := filepath.Rel(workspace, cwd)
		if err != nil {
			return root, ".", fmt.Sprintf("cwd %q is outside the workspace; using the sandbox root", cwd)
		}
		cwd = r
	}

	clean := filepath.Clean(cwd)
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) || filepath.IsAbs(clean) {
		return root, ".", fmt.Sprintf("cwd %q escapes the sandbox; using the sandbox root", cwd)
	}

	dir = filepath.Join(root, clean)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return root, ".", fmt.Sprintf("cwd %q does not exist in the sandbox; using the sandbox root", cwd)
	}
	// Copied symlinks keep their targets, which may lie outside the root.
	if !within(root, dir) {
		return root, ".", fmt.Sprintf("cwd %q links outside the sandbox; using the sandbox root", cwd)
	}
	return dir, clean, ""
}

// within reports whether dir, with every symlink resolved, is root or
// lies under it.
func within(root, dir string) bool {
	realRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return false
	}
	realDir, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(realRoot, realDir)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
