//go:build linux || darwin || freebsd || dragonfly

package diskspace

import (
	"golang.org/x/sys/unix"
)

func availableBytes(dir string) (int64, bool) {
	var stat unix.Statfs_t
	if err := unix.Statfs(dir, &stat); err != nil {
		return 0, false
	}
	// Bavail = blocks available to non-root users
	return int64(stat.Bavail) * int64(stat.Bsize), true
}
