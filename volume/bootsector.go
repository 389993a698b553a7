package volume

import (
	"bytes"
	"encoding/binary"
	"fmt"

	ferrors "github.com/ardalis-fat/fat32vol/errors"
)

// bootSectorSize is the number of bytes of the boot sector this driver
// cares about: fields through FileSystemType end at offset 90.
const bootSectorSize = 90

// rawBootSector is the on-disk boot sector layout, little-endian,
// bit-exact.
type rawBootSector struct {
	JmpBoot              [3]byte
	OEMName              [8]byte
	BytesPerSector       uint16
	SectorsPerCluster    uint8
	ReservedSectorCount  uint16
	NumFATs              uint8
	RootEntryCount       uint16
	TotalSectors16       uint16
	Media                uint8
	FATSize16            uint16
	SectorsPerTrack      uint16
	NumHeads             uint16
	HiddenSectors        uint32
	TotalSectors32       uint32
	FATSize32            uint32
	ExtFlags             uint16
	FSVersion            uint16
	RootCluster          uint32
	FSInfoSector         uint16
	BackupBootSector     uint16
	Reserved             [12]byte
	DriveNumber          uint8
	Reserved1            uint8
	BootSignature        uint8
	VolumeID             uint32
	VolumeLabel          [11]byte
	FileSystemType       [8]byte
}

// Geometry holds every derived value needed to address the volume.
// It's immutable once computed at mount.
type Geometry struct {
	BytesPerSector    uint32
	SectorsPerCluster uint32
	FATStartSector    uint32
	NumFATs           uint32
	FATSizeSectors    uint32
	DataStartSector   uint32
	RootCluster       uint32
	TotalClusters     uint32

	BytesPerCluster   uint32
	EntriesPerFAT     uint32
	DirentsPerCluster uint32
}

// parseBootSector decodes the first 90 bytes of the image and derives
// the volume's addressing geometry from them.
func parseBootSector(raw []byte) (Geometry, error) {
	if len(raw) < bootSectorSize {
		return Geometry{}, ferrors.ErrMountFailed.WithMessage(
			fmt.Sprintf("boot sector short read: need %d bytes, got %d", bootSectorSize, len(raw)))
	}

	var bs rawBootSector
	reader := bytes.NewReader(raw)
	if err := binary.Read(reader, binary.LittleEndian, &bs); err != nil {
		return Geometry{}, ferrors.ErrMountFailed.WrapError(err)
	}

	totalSectors := uint32(bs.TotalSectors32)
	if totalSectors == 0 {
		totalSectors = uint32(bs.TotalSectors16)
	}

	fatStart := uint32(bs.ReservedSectorCount)
	fatSize := bs.FATSize32
	if fatSize == 0 {
		fatSize = uint32(bs.FATSize16)
	}
	numFATs := uint32(bs.NumFATs)
	dataStart := fatStart + numFATs*fatSize

	bytesPerCluster := uint32(bs.BytesPerSector) * uint32(bs.SectorsPerCluster)

	var totalClusters uint32
	if totalSectors > dataStart && bs.SectorsPerCluster > 0 {
		totalClusters = (totalSectors - dataStart) / uint32(bs.SectorsPerCluster)
	}

	geom := Geometry{
		BytesPerSector:    uint32(bs.BytesPerSector),
		SectorsPerCluster: uint32(bs.SectorsPerCluster),
		FATStartSector:    fatStart,
		NumFATs:           numFATs,
		FATSizeSectors:    fatSize,
		DataStartSector:   dataStart,
		RootCluster:       bs.RootCluster,
		TotalClusters:     totalClusters,
		BytesPerCluster:   bytesPerCluster,
		DirentsPerCluster: bytesPerCluster / direntSize,
	}
	if uint32(bs.BytesPerSector) > 0 {
		geom.EntriesPerFAT = (fatSize * uint32(bs.BytesPerSector)) / 4
	}

	return geom, nil
}
