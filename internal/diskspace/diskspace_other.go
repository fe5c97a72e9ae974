//go:build !linux && !darwin && !freebsd && !dragonfly && !windows

package diskspace

func availableBytes(dir string) (int64, bool) {
	return 0, false
}
