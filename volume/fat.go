package volume

import (
	"encoding/binary"
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// Cluster is a 32-bit cluster address. Values 0 and 1 are reserved;
// valid data clusters are in [2, totalClusters+2).
type Cluster uint32

const (
	clusterFree            = 0
	clusterEndOfChainWrite = uint32(0x0FFFFFFF)
	clusterEndOfChainFloor = uint32(0x0FFFFFF8)
	fatEntryValueMask      = uint32(0x0FFFFFFF)
)

// isEndOfChain reports whether a raw FAT entry value marks the end of a
// cluster chain: any value >= 0x0FFFFFF8.
func isEndOfChain(entry uint32) bool {
	return entry >= clusterEndOfChainFloor
}

// isValidCluster reports whether c addresses a real data cluster: in
// range and not itself an end-of-chain marker.
func (v *Volume) isValidCluster(c Cluster) bool {
	return c >= 2 && uint32(c) < v.geom.TotalClusters+2 && uint32(c) < clusterEndOfChainFloor
}

// fatEntryOffset returns the absolute byte offset of cluster c's entry
// within FAT copy fatIndex.
func (v *Volume) fatEntryOffset(fatIndex uint32, c Cluster) int64 {
	fatByteStart := int64(v.geom.FATStartSector)*int64(v.geom.BytesPerSector) +
		int64(fatIndex)*int64(v.geom.FATSizeSectors)*int64(v.geom.BytesPerSector)
	return fatByteStart + int64(c)*4
}

// getFATEntry reads cluster c's link/marker from the first FAT copy,
// masked to the defined low 28 bits.
func (v *Volume) getFATEntry(c Cluster) (uint32, error) {
	raw, err := v.img.readAt(v.fatEntryOffset(0, c), 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(raw) & fatEntryValueMask, nil
}

// setFATEntry writes value (masked to 28 bits) into cluster c's entry in
// every FAT copy, preserving each copy's upper 4 bits via
// read-modify-write, and flushes once all copies are written. Every
// copy is attempted even if an earlier one fails, and failures are
// aggregated so the caller can see exactly which copies did not get
// mirrored.
func (v *Volume) setFATEntry(c Cluster, value uint32) error {
	var errs *multierror.Error

	for fatIndex := uint32(0); fatIndex < v.geom.NumFATs; fatIndex++ {
		offset := v.fatEntryOffset(fatIndex, c)
		raw, err := v.img.readAt(offset, 4)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("FAT copy %d: %w", fatIndex, err))
			continue
		}

		existing := binary.LittleEndian.Uint32(raw)
		merged := (existing &^ fatEntryValueMask) | (value & fatEntryValueMask)

		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], merged)
		if err := v.img.writeAt(offset, buf[:]); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("FAT copy %d: %w", fatIndex, err))
		}
	}

	if errs.ErrorOrNil() != nil {
		return errs
	}
	return v.img.flush()
}
