// Package volume implements a user-space FAT32 volume engine: boot
// sector geometry, the dual File Allocation Tables, the cluster
// allocator and chain walker, the directory-entry table, the short-name
// codec, the open-file table, and the high-level verbs built on top of
// them.
package volume

import (
	"io"
	"os"
	"path/filepath"

	ferrors "github.com/ardalis-fat/fat32vol/errors"
)

// Volume is the full mounted state of one FAT32 image: the image
// handle, parsed geometry, current working cluster, current working
// path, image display name, and the open-file table. It's created by
// Mount and destroyed by Unmount, and mutated only by the high-level
// operations in ops.go.
type Volume struct {
	img       *image
	file      *os.File
	geom      Geometry
	allocator *clusterAllocator

	currentCluster Cluster
	currentPath    string
	imageName      string

	openFiles openFileTable
}

// Mount opens the image file read-write, parses its boot sector,
// derives geometry, and resets traversal and open-file state.
func Mount(imagePath string) (*Volume, error) {
	file, err := os.OpenFile(imagePath, os.O_RDWR, 0)
	if err != nil {
		return nil, ferrors.ErrMountFailed.WrapError(err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, ferrors.ErrMountFailed.WrapError(err)
	}

	v, mountErr := mountFromImage(newImage(file, info.Size()))
	if mountErr != nil {
		file.Close()
		return nil, mountErr
	}
	v.file = file
	v.imageName = filepath.Base(imagePath)
	return v, nil
}

// MountReadWriter mounts a volume backed by an arbitrary
// io.ReaderAt+io.WriterAt, such as an in-memory buffer built by
// internal/testimage or github.com/xaionaro-go/bytesextra. It's the
// entry point tests use to avoid touching the filesystem.
func MountReadWriter(backing interface {
	io.ReaderAt
	io.WriterAt
}, size int64, displayName string) (*Volume, error) {
	v, err := mountFromImage(newImage(backing, size))
	if err != nil {
		return nil, err
	}
	v.imageName = displayName
	return v, nil
}

func mountFromImage(img *image) (*Volume, error) {
	raw, err := img.readAt(0, bootSectorSize)
	if err != nil {
		return nil, ferrors.ErrMountFailed.WrapError(err)
	}

	geom, err := parseBootSector(raw)
	if err != nil {
		return nil, err
	}

	v := &Volume{
		img:            img,
		geom:           geom,
		currentCluster: Cluster(geom.RootCluster),
		currentPath:    "/",
	}

	if err := v.rebuildAllocatorCache(); err != nil {
		return nil, ferrors.ErrMountFailed.WrapError(err)
	}

	return v, nil
}

// Unmount releases the image handle. It's a no-op for volumes mounted
// over an in-memory backing (MountReadWriter) since there's nothing to
// close.
func (v *Volume) Unmount() error {
	if v.file == nil {
		return nil
	}
	return v.file.Close()
}

// ImageName returns the display name recorded at mount; a
// collaborator shell uses it for prompts.
func (v *Volume) ImageName() string {
	return v.imageName
}

// CurrentPath returns the current working directory's absolute path.
func (v *Volume) CurrentPath() string {
	return v.currentPath
}
