package funccache

import (
	"syscall"
	"unsafe"
)

// msync forces the mapped region to disk (ground: teacher's
// internal/nodeindex/mmap.go's MmapIndex.Sync, generalized to a free
// function since Store wraps more than one mapped file).
func msync(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	_, _, errno := syscall.Syscall(syscall.SYS_MSYNC,
		uintptr(unsafe.Pointer(&data[0])),
		uintptr(len(data)),
		uintptr(syscall.MS_SYNC))
	if errno != 0 {
		return errno
	}
	return nil
}
