package adapter

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// ClassFS abstracts the filesystem operations the commands rely on when
// collecting class files, so command logic can be tested without
// touching the disk layout directly.
type ClassFS interface {
	// ListClasses expands the given paths into class files. A directory
	// is walked recursively for .class files; a file is taken as is.
	// Files whose path matches one of the exclude regexps are dropped.
	ListClasses(paths []string, exclude []string) ([]string, error)

	ReadFile(path string) ([]byte, error)
	WriteFile(path string, data []byte, perm os.FileMode) error
}

// NewLocalClassFS returns a ClassFS backed by the local filesystem.
func NewLocalClassFS() ClassFS {
	return localClassFS{}
}

type localClassFS struct{}

func (localClassFS) ListClasses(paths []string, exclude []string) ([]string, error) {
	excludes := make([]*regexp.Regexp, 0, len(exclude))
	for _, pattern := range exclude {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad exclude pattern %q: %w", pattern, err)
		}
		excludes = append(excludes, re)
	}
	excluded := func(path string) bool {
		for _, re := range excludes {
			if re.MatchString(path) {
				return true
			}
		}
		return false
	}

	seen := make(map[string]bool)
	var classes []string
	add := func(path string) {
		if !seen[path] && !excluded(path) {
			seen[path] = true
			classes = append(classes, path)
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			add(path)
			continue
		}
		err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.HasSuffix(p, ".class") {
				add(p)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	sort.Strings(classes)
	return classes, nil
}

func (localClassFS) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

func (localClassFS) WriteFile(path string, data []byte, perm os.FileMode) error {
	return os.WriteFile(path, data, perm)
}
