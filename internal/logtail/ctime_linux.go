//go:build linux

package logtail

import (
	"os"
	"syscall"
	"time"
)

// Linux has no portable birth time; the inode change time stands in.
func creationTime(fi os.FileInfo) time.Time {
	if st, ok := fi.Sys().(*syscall.Stat_t); ok {
		return time.Unix(st.Ctim.Unix())
	}
	return fi.ModTime()
}
