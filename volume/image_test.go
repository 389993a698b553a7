package volume

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ardalis-fat/fat32vol/internal/testimage"
)

func TestImage_ReadWriteRoundTrip(t *testing.T) {
	raw := make([]byte, 4096)
	backing := testimage.NewBacking(raw)
	img := newImage(backing, int64(len(raw)))

	payload := []byte("some bytes")
	require.NoError(t, img.writeAt(100, payload))

	got, err := img.readAt(100, len(payload))
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestImage_ReadPastEndFails(t *testing.T) {
	raw := make([]byte, 16)
	backing := testimage.NewBacking(raw)
	img := newImage(backing, int64(len(raw)))

	_, err := img.readAt(10, 100)
	require.Error(t, err)
}

func TestImage_WritePastEndFails(t *testing.T) {
	raw := make([]byte, 16)
	backing := testimage.NewBacking(raw)
	img := newImage(backing, int64(len(raw)))

	err := img.writeAt(10, make([]byte, 100))
	require.Error(t, err)
}

func TestImage_SizeBytes(t *testing.T) {
	raw := make([]byte, 2048)
	backing := testimage.NewBacking(raw)
	img := newImage(backing, int64(len(raw)))

	require.Equal(t, int64(2048), img.sizeBytes())
}
