//go:build windows

package diskspace

import (
	"golang.org/x/sys/windows"
)

func availableBytes(dir string) (int64, bool) {
	dirPtr, err := windows.UTF16PtrFromString(dir)
	if err != nil {
		return 0, false
	}
	var freeToCaller, total, totalFree uint64
	if err := windows.GetDiskFreeSpaceEx(dirPtr, &freeToCaller, &total, &totalFree); err != nil {
		return 0, false
	}
	return int64(freeToCaller), true
}
