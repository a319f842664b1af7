//go:build unix || darwin || linux || freebsd || openbsd || netbsd

// pkg/sstable/file_unix.go
package sstable

import (
	"os"

	"golang.org/x/sys/unix"
)

// preadFull repeatedly calls Pread until buf is full, matching the
// fixed-offset positional-read contract FileObject.Read promises.
func preadFull(f *os.File, buf []byte, offset int64) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := unix.Pread(int(f.Fd()), buf[total:], offset+int64(total))
		if n > 0 {
			total += n
		}
		if err != nil {
			return total, err
		}
		if n == 0 {
			break
		}
	}
	return total, nil
}
