//go:build !unix

package signals

import "path/filepath"

// identify falls back to the fully resolved path where inode numbers are
// unavailable. Hard-linked directories are not detected.
func identify(path string) (fileID, error) {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return fileID{}, err
	}
	abs, err := filepath.Abs(resolved)
	if err != nil {
		return fileID{}, err
	}
	return fileID{path: abs}, nil
}
