package volume

import (
	"encoding/binary"

	ferrors "github.com/ardalis-fat/fat32vol/errors"
)

// Directory entry attribute flags.
const (
	AttrReadOnly  = 0x01
	AttrHidden    = 0x02
	AttrSystem    = 0x04
	AttrVolumeID  = 0x08
	AttrDirectory = 0x10
	AttrArchive   = 0x20
	// AttrLongName is the composite value that marks an LFN continuation
	// entry. Entries tagged with it are skipped on read and never
	// written; long file names aren't supported.
	AttrLongName = 0x0F
)

// direntSize is the fixed size of one on-disk directory entry, in
// bytes.
const direntSize = 32

const (
	nameSentinelEnd     = 0x00
	nameSentinelDeleted = 0xE5
)

// rawDirent is the decoded form of one 32-byte directory-entry slot,
// carrying only the fields this driver acts on. Timestamp fields exist
// on disk but are never populated or interpreted.
type rawDirent struct {
	Name         [11]byte
	Attr         uint8
	FirstCluster uint32
	FileSize     uint32
}

func decodeDirentSlot(data []byte) rawDirent {
	var name [11]byte
	copy(name[:], data[0:11])

	hi := binary.LittleEndian.Uint16(data[20:22])
	lo := binary.LittleEndian.Uint16(data[26:28])

	return rawDirent{
		Name:         name,
		Attr:         data[11],
		FirstCluster: uint32(hi)<<16 | uint32(lo),
		FileSize:     binary.LittleEndian.Uint32(data[28:32]),
	}
}

func encodeDirentSlot(e rawDirent) [direntSize]byte {
	var buf [direntSize]byte
	copy(buf[0:11], e.Name[:])
	buf[11] = e.Attr

	hi := uint16(e.FirstCluster >> 16)
	lo := uint16(e.FirstCluster & 0xFFFF)
	binary.LittleEndian.PutUint16(buf[20:22], hi)
	binary.LittleEndian.PutUint16(buf[26:28], lo)
	binary.LittleEndian.PutUint32(buf[28:32], e.FileSize)
	return buf
}

func (e rawDirent) isDirectory() bool {
	return e.Attr&AttrDirectory != 0
}

// DirEntry is the user-facing, already-decoded view of one live
// directory entry, tagged with the physical slot index it occupies so
// callers can address it again for write/delete.
type DirEntry struct {
	Name         string
	Attr         uint8
	FirstCluster Cluster
	Size         uint32
	index        int
}

func (e DirEntry) IsDir() bool {
	return e.Attr&AttrDirectory != 0
}

// readClusterData reads the full contents of one cluster.
func (v *Volume) readClusterData(c Cluster) ([]byte, error) {
	return v.img.readAt(v.clusterByteOffset(c), int(v.geom.BytesPerCluster))
}

// enumerate walks 32-byte slots across the directory's cluster chain,
// stopping at the first 0x00 terminator or when the chain is exhausted,
// skipping 0xE5 (deleted) and long-name slots. The index recorded on
// each returned DirEntry is the physical slot index (counting every
// slot seen, including skipped ones), matching the index contract
// findFreeEntryIndex/writeEntryAt use.
func (v *Volume) enumerate(dirCluster Cluster) ([]DirEntry, error) {
	var result []DirEntry
	index := 0
	cluster := dirCluster

	for {
		data, err := v.readClusterData(cluster)
		if err != nil {
			return nil, err
		}

		for slot := 0; slot < int(v.geom.DirentsPerCluster); slot++ {
			raw := data[slot*direntSize : (slot+1)*direntSize]
			switch raw[0] {
			case nameSentinelEnd:
				return result, nil
			case nameSentinelDeleted:
				index++
				continue
			}

			decoded := decodeDirentSlot(raw)
			if decoded.Attr == AttrLongName {
				index++
				continue
			}

			result = append(result, DirEntry{
				Name:         parseShortName(decoded.Name),
				Attr:         decoded.Attr,
				FirstCluster: Cluster(decoded.FirstCluster),
				Size:         decoded.FileSize,
				index:        index,
			})
			index++
		}

		next, err := v.getFATEntry(cluster)
		if err != nil {
			return nil, err
		}
		if isEndOfChain(next) {
			return result, nil
		}
		cluster = Cluster(next)
	}
}

// findDirent formats name to its short form and byte-compares it
// against each yielded entry's raw name.
func (v *Volume) findDirent(dirCluster Cluster, name string) (DirEntry, bool, error) {
	entries, err := v.enumerate(dirCluster)
	if err != nil {
		return DirEntry{}, false, err
	}

	target := formatShortName(name)
	for _, entry := range entries {
		if formatShortName(entry.Name) == target {
			return entry, true, nil
		}
	}
	return DirEntry{}, false, nil
}

// locateSlot returns the cluster hosting physical slot `index` within
// dirCluster's chain, and the absolute byte offset of that slot.
func (v *Volume) locateSlot(dirCluster Cluster, index int) (Cluster, int64, error) {
	entriesPerCluster := int(v.geom.DirentsPerCluster)
	steps := uint32(index / entriesPerCluster)
	within := index % entriesPerCluster

	cluster, err := v.walkSteps(dirCluster, steps)
	if err != nil {
		return 0, 0, err
	}

	offset := v.clusterByteOffset(cluster) + int64(within*direntSize)
	return cluster, offset, nil
}

// findFreeEntryIndex walks entries counting from 0, returning the first
// index whose raw slot is free (0x00 or 0xE5). If the chain is
// exhausted without one, a new cluster is allocated and linked, and the
// first index in it is returned.
func (v *Volume) findFreeEntryIndex(dirCluster Cluster) (int, error) {
	entriesPerCluster := int(v.geom.DirentsPerCluster)
	index := 0
	cluster := dirCluster

	for {
		data, err := v.readClusterData(cluster)
		if err != nil {
			return 0, err
		}

		for slot := 0; slot < entriesPerCluster; slot++ {
			b := data[slot*direntSize]
			if b == nameSentinelEnd || b == nameSentinelDeleted {
				return index, nil
			}
			index++
		}

		next, err := v.getFATEntry(cluster)
		if err != nil {
			return 0, err
		}
		if isEndOfChain(next) {
			newCluster, err := v.allocateCluster()
			if err != nil {
				return 0, err
			}
			if err := v.setFATEntry(cluster, uint32(newCluster)); err != nil {
				return 0, err
			}
			return index, nil
		}
		cluster = Cluster(next)
	}
}

// writeEntryAt writes the 32-byte slot at physical `index` in
// dirCluster's chain and flushes.
func (v *Volume) writeEntryAt(dirCluster Cluster, index int, entry rawDirent) error {
	_, offset, err := v.locateSlot(dirCluster, index)
	if err != nil {
		return err
	}

	encoded := encodeDirentSlot(entry)
	if err := v.img.writeAt(offset, encoded[:]); err != nil {
		return err
	}
	return v.img.flush()
}

// deleteDirent finds the entry by name and tombstones its slot
// (name[0] = 0xE5) in place. The 0x00 terminator is never rewritten,
// preserving scan invariants.
func (v *Volume) deleteDirent(dirCluster Cluster, name string) error {
	entry, found, err := v.findDirent(dirCluster, name)
	if err != nil {
		return err
	}
	if !found {
		return ferrors.ErrNotFound
	}

	_, offset, err := v.locateSlot(dirCluster, entry.index)
	if err != nil {
		return err
	}

	raw, err := v.img.readAt(offset, direntSize)
	if err != nil {
		return err
	}
	raw[0] = nameSentinelDeleted

	if err := v.img.writeAt(offset, raw); err != nil {
		return err
	}
	return v.img.flush()
}

// isDirectoryEmpty reports whether, ignoring 0x00/0xE5/long-name slots
// and the ./.. entries, there are no other entries.
func (v *Volume) isDirectoryEmpty(dirCluster Cluster) (bool, error) {
	entries, err := v.enumerate(dirCluster)
	if err != nil {
		return false, err
	}

	for _, e := range entries {
		if e.Name == "." || e.Name == ".." {
			continue
		}
		return false, nil
	}
	return true, nil
}
