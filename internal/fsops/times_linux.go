//go:build linux

package fsops

import (
	"os"
	"syscall"
	"time"
)

// createdTime returns the inode change time, the closest thing Linux offers
// to a creation timestamp.
func createdTime(fi os.FileInfo) time.Time {
	if st, ok := fi.Sys().(*syscall.Stat_t); ok {
		return time.Unix(st.Ctim.Sec, st.Ctim.Nsec)
	}
	return fi.ModTime()
}
