package util

import (
	"os"

	"golang.org/x/sys/unix"
)

// WriteFileAt writes to a new file in given directory
func WriteFileAt(dir *os.File, filename string, data []byte, perm os.FileMode) error {
	fd, oerr := unix.Openat(int(dir.Fd()), filename, unix.O_WRONLY|unix.O_CREAT|unix.O_TRUNC, uint32(perm))
	if oerr != nil {
		return oerr
	}
	_, werr := unix.Write(fd, data)
	unix.Close(fd)
	return werr
}
