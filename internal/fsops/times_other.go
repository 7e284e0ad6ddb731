//go:build !linux && !darwin

package fsops

import (
	"os"
	"time"
)

func createdTime(fi os.FileInfo) time.Time {
	return fi.ModTime()
}
