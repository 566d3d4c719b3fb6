//go:build !windows && !darwin && !linux

package logtail

import (
	"os"
	"time"
)

// Birth time is not portable here; folder modification time stands in.
func creationTime(fi os.FileInfo) time.Time {
	return fi.ModTime()
}
