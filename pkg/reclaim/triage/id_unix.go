//go:build unix

package triage

import (
	"io/fs"
	"syscall"
)

type fileID struct {
	dev uint64
	ino uint64
}

// idOf returns the device and inode of info.
func idOf(info fs.FileInfo) (fileID, bool) {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return fileID{}, false
	}
	return fileID{dev: uint64(stat.Dev), ino: uint64(stat.Ino)}, true //nolint:unconvert // Dev is int32 on darwin
}
