// Package pathutil resolves the data and metadata file paths given to the
// streaming façade against a configured external directory, rejecting any
// path that attempts to escape it.
package pathutil

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ErrTraversal is returned (wrapped) when a path contains "..".
type ErrTraversal struct {
	Path string
}

func (e *ErrTraversal) Error() string {
	return fmt.Sprintf("path must not include '..' but %q does", e.Path)
}

// Resolve joins dir and relPath and rejects the result, and the inputs, if
// any of them contains the substring "..". An empty dir is treated as the
// current directory, matching the original's kDefaultFilePath fallback.
func Resolve(dir, relPath string) (string, error) {
	if strings.Contains(relPath, "..") {
		return "", &ErrTraversal{Path: relPath}
	}
	if strings.Contains(dir, "..") {
		return "", &ErrTraversal{Path: dir}
	}
	if dir == "" {
		dir = "."
	}
	full := filepath.Join(dir, relPath)
	if strings.Contains(full, "..") {
		return "", &ErrTraversal{Path: full}
	}
	return full, nil
}
