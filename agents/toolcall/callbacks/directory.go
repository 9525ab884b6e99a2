/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package callbacks

import (
	"bufio"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
)

// MaxMatches bounds the number of results returned by SearchCodebase and Glob.
const MaxMatches = 200

// ForDirectory creates WorktreeCallbacks scoped to root.
// Every path is validated so that it cannot escape root.
func ForDirectory(root string) WorktreeCallbacks {
	root = filepath.Clean(root)

	return WorktreeCallbacks{
		ReadFile: func(_ context.Context, p string) (string, error) {
			fullPath, err := resolve(root, p)
			if err != nil {
				return "", err
			}
			data, err := os.ReadFile(fullPath)
			if err != nil {
				return "", err
			}
			return string(data), nil
		},
		ListDirectory: func(_ context.Context, p string) ([]string, error) {
			fullPath, err := resolve(root, p)
			if err != nil {
				return nil, err
			}
			entries, err := os.ReadDir(fullPath)
			if err != nil {
				return nil, err
			}
			names := make([]string, 0, len(entries))
			for _, e := range entries {
				name := e.Name()
				if e.IsDir() {
					name += "/"
				}
				names = append(names, name)
			}
			return names, nil
		},
		SearchCodebase: func(ctx context.Context, pattern string) ([]Match, error) {
			return grep(ctx, root, pattern)
		},
		Glob: func(ctx context.Context, pattern string) ([]string, error) {
			return glob(ctx, root, pattern)
		},
	}
}

// resolve joins p onto root, refusing paths that escape it.
func resolve(root, p string) (string, error) {
	fullPath := filepath.Join(root, filepath.Clean(p))
	rel, err := filepath.Rel(root, fullPath)
	if err != nil {
		return "", fmt.Errorf("path %q: %w", p, err)
	}
	if strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("path %q escapes workspace", p)
	}
	return fullPath, nil
}

// walk visits the regular, non-binary files under root, skipping hidden
// and dependency directories.
func walk(ctx context.Context, root string, visit func(rel, full string) (stop bool)) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // Skip files we can't access
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			if p != root && (strings.HasPrefix(d.Name(), ".") || d.Name() == "node_modules") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || isBinaryFile(p) {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return nil
		}
		if visit(filepath.ToSlash(rel), p) {
			return filepath.SkipAll
		}
		return nil
	})
}

func grep(ctx context.Context, root, pattern string) ([]Match, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern: %w", err)
	}

	var matches []Match
	err = walk(ctx, root, func(rel, full string) bool {
		fileMatches, err := searchFile(full, rel, re)
		if err != nil {
			return false // Skip files we can't read
		}
		matches = append(matches, fileMatches...)
		return len(matches) >= MaxMatches
	})
	if err != nil {
		return nil, err
	}
	if len(matches) > MaxMatches {
		matches = matches[:MaxMatches]
	}
	return matches, nil
}

func glob(ctx context.Context, root, pattern string) ([]string, error) {
	if _, err := path.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("invalid pattern: %w", err)
	}
	var out []string
	err := walk(ctx, root, func(rel, _ string) bool {
		if ok, _ := path.Match(pattern, rel); ok {
			out = append(out, rel)
		} else if ok, _ := path.Match(pattern, path.Base(rel)); ok && !strings.Contains(pattern, "/") {
			out = append(out, rel)
		}
		return len(out) >= MaxMatches
	})
	return out, err
}

func searchFile(full, rel string, re *regexp.Regexp) ([]Match, error) {
	f, err := os.Open(full)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var matches []Match
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if re.MatchString(line) {
			matches = append(matches, Match{
				Path:    rel,
				Line:    lineNum,
				Content: line,
			})
		}
	}
	return matches, scanner.Err()
}

var binaryExts = map[string]struct{}{
	".exe": {}, ".dll": {}, ".so": {}, ".dylib": {},
	".zip": {}, ".tar": {}, ".gz": {}, ".bz2": {},
	".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {}, ".ico": {},
	".pdf": {}, ".doc": {}, ".docx": {},
	".bin": {}, ".dat": {}, ".wasm": {},
}

func isBinaryFile(p string) bool {
	_, ok := binaryExts[strings.ToLower(filepath.Ext(p))]
	return ok
}
