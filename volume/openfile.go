package volume

import (
	"strings"

	ferrors "github.com/ardalis-fat/fat32vol/errors"
)

// MaxOpenFiles is the fixed capacity of the open-file table.
const MaxOpenFiles = 10

// OpenFile is one entry in the open-file table.
type OpenFile struct {
	Name         string // short form
	Mode         string // canonical: "r", "w", or "rw"
	Offset       uint32
	DirPath      string // absolute path of the containing directory
	FirstCluster Cluster
	Size         uint32
	live         bool
}

func (f *OpenFile) canRead() bool  { return strings.Contains(f.Mode, "r") }
func (f *OpenFile) canWrite() bool { return strings.Contains(f.Mode, "w") }

type openFileTable struct {
	slots [MaxOpenFiles]OpenFile
}

// findLive returns the index of the live handle for (dirPath, name), if
// any. At most one live handle exists per (containing directory,
// short-name) pair.
func (t *openFileTable) findLive(dirPath, name string) (int, bool) {
	target := formatShortName(name)
	for i := range t.slots {
		slot := &t.slots[i]
		if slot.live && slot.DirPath == dirPath && formatShortName(slot.Name) == target {
			return i, true
		}
	}
	return -1, false
}

// allocateSlot returns the index of the first non-live slot, or
// ErrTooManyOpenFiles if the table is full.
func (t *openFileTable) allocateSlot() (int, error) {
	for i := range t.slots {
		if !t.slots[i].live {
			return i, nil
		}
	}
	return -1, ferrors.ErrTooManyOpenFiles
}

// anyLiveUnderPath reports whether any live handle's containing
// directory path is `path` itself or nested under it. This is a prefix
// match requiring a "/" separator or exact equality, so "/FOO" does not
// match "/FOOBAR".
func (t *openFileTable) anyLiveUnderPath(path string) bool {
	for i := range t.slots {
		slot := &t.slots[i]
		if !slot.live {
			continue
		}
		if slot.DirPath == path {
			return true
		}
		if strings.HasPrefix(slot.DirPath, path+"/") {
			return true
		}
	}
	return false
}
