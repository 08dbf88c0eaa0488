package fetch

import (
	"errors"
	"io/fs"
	"math"
	"os"
	"time"
)

// Status describes whether a records file can be harvested.
type Status string

// File statuses. Their string values are part of the API.
const (
	StatusOK           Status = "ok"
	StatusNotExists    Status = "not exists"
	StatusNotFile      Status = "not file"
	StatusAccessDenied Status = "access denied"
	StatusUnreachable  Status = "unreachable"
)

func (s Status) String() string {
	return string(s)
}

// OK reports whether the file can be read.
func (s Status) OK() bool {
	return s == StatusOK
}

// FileStatus checks that path exists, is a regular file and is readable.
func FileStatus(path string) Status {
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return StatusNotExists
	case errors.Is(err, fs.ErrPermission):
		return StatusAccessDenied
	case err != nil:
		return StatusNotExists
	case !info.Mode().IsRegular():
		return StatusNotFile
	}

	f, err := os.Open(path)
	if err != nil {
		return StatusAccessDenied
	}
	_ = f.Close()
	return StatusOK
}

// FileInfo is the listing view of a records file.
type FileInfo struct {
	Status  Status    `json:"status"`
	SizeMB  float64   `json:"size_mb"`
	ModTime time.Time `json:"mod_time,omitzero"`
	Size    int64     `json:"-"`
}

const bytesPerMB = 1024 * 1024

// Describe returns the status, size and modification time of a local file.
// Size and time are zero unless the status is ok.
func Describe(path string) FileInfo {
	fi := FileInfo{Status: FileStatus(path)}
	if !fi.Status.OK() {
		return fi
	}
	info, err := os.Stat(path)
	if err != nil {
		fi.Status = StatusNotExists
		return fi
	}
	fi.Size = info.Size()
	fi.SizeMB = SizeMB(fi.Size)
	fi.ModTime = info.ModTime()
	return fi
}

// SizeMB converts bytes to megabytes rounded to 3 decimals.
func SizeMB(size int64) float64 {
	return math.Round(float64(size)/bytesPerMB*1000) / 1000
}
