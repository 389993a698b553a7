package volume

import (
	"fmt"
	"io"

	ferrors "github.com/ardalis-fat/fat32vol/errors"
)

// image is the random-access byte-addressable backing store every
// higher layer of the engine funnels through. It wraps anything that
// can read and write at arbitrary offsets: a real os.File when mounting
// a host image, or an in-memory bytesextra.NewReadWriteSeeker buffer in
// tests.
type image struct {
	backing interface {
		io.ReaderAt
		io.WriterAt
	}
	syncer interface{ Sync() error }
	size   int64
}

func newImage(backing interface {
	io.ReaderAt
	io.WriterAt
}, size int64) *image {
	img := &image{backing: backing, size: size}
	if s, ok := backing.(interface{ Sync() error }); ok {
		img.syncer = s
	}
	return img
}

// readAt returns length bytes starting at byteOffset. It fails if the
// requested range runs past the end of the backing image.
func (img *image) readAt(byteOffset int64, length int) ([]byte, error) {
	if byteOffset < 0 || length < 0 || byteOffset+int64(length) > img.size {
		return nil, ferrors.ErrMountFailed.WithMessage(
			fmt.Sprintf("read [%d, %d) is out of bounds for a %d-byte image",
				byteOffset, byteOffset+int64(length), img.size))
	}

	buffer := make([]byte, length)
	n, err := img.backing.ReadAt(buffer, byteOffset)
	if err != nil && err != io.EOF {
		return nil, err
	}
	if n != length {
		return nil, fmt.Errorf("short read at offset %d: wanted %d bytes, got %d", byteOffset, length, n)
	}
	return buffer, nil
}

// writeAt writes data at byteOffset. It fails if the write would run
// past the end of the backing image.
func (img *image) writeAt(byteOffset int64, data []byte) error {
	if byteOffset < 0 || byteOffset+int64(len(data)) > img.size {
		return ferrors.ErrMountFailed.WithMessage(
			fmt.Sprintf("write [%d, %d) is out of bounds for a %d-byte image",
				byteOffset, byteOffset+int64(len(data)), img.size))
	}

	n, err := img.backing.WriteAt(data, byteOffset)
	if err != nil {
		return err
	}
	if n != len(data) {
		return fmt.Errorf("short write at offset %d: wanted %d bytes, wrote %d", byteOffset, len(data), n)
	}
	return nil
}

// flush persists any buffered writes to the backing store. Not every
// backing implementation buffers (the in-memory test backend doesn't),
// so this is a no-op unless the backing implements Sync().
func (img *image) flush() error {
	if img.syncer == nil {
		return nil
	}
	return img.syncer.Sync()
}

// sizeBytes returns the total size of the backing image.
func (img *image) sizeBytes() int64 {
	return img.size
}
