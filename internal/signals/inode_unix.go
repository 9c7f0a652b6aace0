//go:build unix

package signals

import "golang.org/x/sys/unix"

// identify returns the device and inode of path, following symlinks.
func identify(path string) (fileID, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return fileID{}, err
	}
	return fileID{dev: uint64(st.Dev), ino: uint64(st.Ino)}, nil
}
