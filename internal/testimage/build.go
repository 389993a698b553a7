// Package testimage synthesizes small in-memory FAT32 images for tests,
// so volume tests never have to read a fixture off disk. Construction
// follows testing/images.go's approach of handing back an
// io.ReadWriteSeeker over an in-memory buffer, built here with
// github.com/noxer/bytewriter the same way file_systems/unixv1/format.go
// lays out its superblock: sequential binary.Write calls against a
// bytewriter positioned at the region being filled.
package testimage

import (
	"encoding/binary"
	"io"

	"github.com/noxer/bytewriter"
	"github.com/xaionaro-go/bytesextra"

	"github.com/ardalis-fat/fat32vol/internal/geometry"
)

// rawBootSector mirrors volume.rawBootSector's on-disk layout; kept as
// its own copy here since a test-fixture builder writing raw bytes isn't
// the volume package's concern.
type rawBootSector struct {
	JmpBoot             [3]byte
	OEMName             [8]byte
	BytesPerSector      uint16
	SectorsPerCluster   uint8
	ReservedSectorCount uint16
	NumFATs             uint8
	RootEntryCount      uint16
	TotalSectors16      uint16
	Media               uint8
	FATSize16           uint16
	SectorsPerTrack     uint16
	NumHeads            uint16
	HiddenSectors       uint32
	TotalSectors32      uint32
	FATSize32           uint32
	ExtFlags            uint16
	FSVersion           uint16
	RootCluster         uint32
	FSInfoSector        uint16
	BackupBootSector    uint16
	Reserved            [12]byte
	DriveNumber         uint8
	Reserved1           uint8
	BootSignature       uint8
	VolumeID            uint32
	VolumeLabel         [11]byte
	FileSystemType      [8]byte
}

// Build lays out a fresh, empty FAT32 image for the given preset: a
// populated boot sector, every FAT copy with its two reserved entries,
// the root cluster marked end-of-chain and every other data cluster
// marked free, and a zeroed (so: empty) root
// directory cluster. It returns the raw bytes, ready to be wrapped with
// NewBacking.
func Build(preset geometry.Preset) []byte {
	bytesPerSector := int(preset.BytesPerSector)
	totalSize := int(preset.TotalSectors32) * bytesPerSector
	buf := make([]byte, totalSize)

	bs := rawBootSector{
		JmpBoot:             [3]byte{0xEB, 0x58, 0x90},
		OEMName:             [8]byte{'F', 'A', 'T', '3', '2', 'V', 'O', 'L'},
		BytesPerSector:      preset.BytesPerSector,
		SectorsPerCluster:   preset.SectorsPerCluster,
		ReservedSectorCount: preset.ReservedSectorCount,
		NumFATs:             preset.NumFATs,
		TotalSectors32:      preset.TotalSectors32,
		FATSize32:           preset.FATSize32,
		RootCluster:         preset.RootCluster,
		BootSignature:       0x29,
		VolumeLabel:         [11]byte{'N', 'O', ' ', 'N', 'A', 'M', 'E', ' ', ' ', ' ', ' '},
		FileSystemType:      [8]byte{'F', 'A', 'T', '3', '2', ' ', ' ', ' '},
	}

	bootWriter := bytewriter.New(buf)
	binary.Write(bootWriter, binary.LittleEndian, &bs)
	buf[510] = 0x55
	buf[511] = 0xAA

	fatStartByte := int(preset.ReservedSectorCount) * bytesPerSector
	fatSizeBytes := int(preset.FATSize32) * bytesPerSector

	for fatIndex := 0; fatIndex < int(preset.NumFATs); fatIndex++ {
		offset := fatStartByte + fatIndex*fatSizeBytes
		fatWriter := bytewriter.New(buf[offset : offset+fatSizeBytes])
		binary.Write(fatWriter, binary.LittleEndian, uint32(0x0FFFFFF8))
		binary.Write(fatWriter, binary.LittleEndian, uint32(0x0FFFFFFF))
		binary.Write(fatWriter, binary.LittleEndian, uint32(0x0FFFFFFF)) // root cluster (2): allocated, end of chain
	}

	// Root directory cluster is left zeroed: an empty directory (first
	// byte 0x00 terminates the scan immediately).

	return buf
}

// backingFromSeeker adapts an io.ReadWriteSeeker to the io.ReaderAt +
// io.WriterAt pair volume.image needs, via Seek immediately before each
// access. This is safe only for single-threaded, synchronous access,
// exactly how this image is used in every test.
type backingFromSeeker struct {
	rws io.ReadWriteSeeker
}

func (b *backingFromSeeker) ReadAt(p []byte, off int64) (int, error) {
	if _, err := b.rws.Seek(off, io.SeekStart); err != nil {
		return 0, err
	}
	return io.ReadFull(b.rws, p)
}

func (b *backingFromSeeker) WriteAt(p []byte, off int64) (int, error) {
	if _, err := b.rws.Seek(off, io.SeekStart); err != nil {
		return 0, err
	}
	return b.rws.Write(p)
}

// NewBacking wraps raw image bytes, as built by Build, with
// bytesextra.NewReadWriteSeeker (the same way testing/images.go builds
// its fixtures) and adapts the result to io.ReaderAt + io.WriterAt so
// it can be passed straight to volume.MountReadWriter.
func NewBacking(raw []byte) interface {
	io.ReaderAt
	io.WriterAt
} {
	return &backingFromSeeker{rws: bytesextra.NewReadWriteSeeker(raw)}
}
