package volume

import (
	"strings"

	ferrors "github.com/ardalis-fat/fat32vol/errors"
)

// Info is the volume-level geometry and size information the `info`
// verb reports.
type Info struct {
	RootCluster       uint32
	BytesPerSector    uint32
	SectorsPerCluster uint32
	TotalDataClusters uint32
	FATEntriesPerFAT  uint32
	ImageSizeBytes    int64
}

// Info reports the volume's geometry and size.
func (v *Volume) Info() Info {
	return Info{
		RootCluster:       v.geom.RootCluster,
		BytesPerSector:    v.geom.BytesPerSector,
		SectorsPerCluster: v.geom.SectorsPerCluster,
		TotalDataClusters: v.geom.TotalClusters,
		FATEntriesPerFAT:  v.geom.EntriesPerFAT,
		ImageSizeBytes:    v.img.sizeBytes(),
	}
}

// Ls lists the names of the current directory's entries, in physical
// on-disk order.
func (v *Volume) Ls() ([]string, error) {
	entries, err := v.enumerate(v.currentCluster)
	if err != nil {
		return nil, err
	}

	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return names, nil
}

func stripLastSegment(path string) string {
	if path == "/" {
		return "/"
	}
	idx := strings.LastIndex(path, "/")
	if idx <= 0 {
		return "/"
	}
	return path[:idx]
}

func appendSegment(path, name string) string {
	if path == "/" {
		return "/" + name
	}
	return path + "/" + name
}

// Cd changes the current working directory to name, updating the
// current path and working cluster. "." is a no-op and ".." moves to
// the parent directory.
func (v *Volume) Cd(name string) error {
	if name == "." {
		return nil
	}

	entry, found, err := v.findDirent(v.currentCluster, name)
	if err != nil {
		return err
	}
	if !found {
		return ferrors.ErrNotFound.WithMessage("Directory does not exist")
	}
	if !entry.IsDir() {
		return ferrors.ErrNotADirectory
	}

	target := entry.FirstCluster
	if name == ".." {
		if target == 0 {
			target = Cluster(v.geom.RootCluster)
		}
		v.currentPath = stripLastSegment(v.currentPath)
	} else {
		v.currentPath = appendSegment(v.currentPath, name)
	}

	v.currentCluster = target
	return nil
}

// Mkdir creates a new subdirectory of the current directory, wiring up
// its "." and ".." entries and allocating its first cluster.
func (v *Volume) Mkdir(name string) error {
	_, found, err := v.findDirent(v.currentCluster, name)
	if err != nil {
		return err
	}
	if found {
		return ferrors.ErrAlreadyExists
	}

	newCluster, err := v.allocateCluster()
	if err != nil {
		return err
	}

	parent := v.currentCluster
	parentForDotDot := uint32(parent)
	if parent == Cluster(v.geom.RootCluster) {
		parentForDotDot = 0
	}

	dot := rawDirent{Name: formatShortName("."), Attr: AttrDirectory, FirstCluster: uint32(newCluster)}
	dotdot := rawDirent{Name: formatShortName(".."), Attr: AttrDirectory, FirstCluster: parentForDotDot}

	if err := v.writeEntryAt(newCluster, 0, dot); err != nil {
		v.freeClusterChain(newCluster)
		return err
	}
	if err := v.writeEntryAt(newCluster, 1, dotdot); err != nil {
		v.freeClusterChain(newCluster)
		return err
	}

	idx, err := v.findFreeEntryIndex(parent)
	if err != nil {
		v.freeClusterChain(newCluster)
		return err
	}

	entry := rawDirent{Name: formatShortName(name), Attr: AttrDirectory, FirstCluster: uint32(newCluster)}
	if err := v.writeEntryAt(parent, idx, entry); err != nil {
		v.freeClusterChain(newCluster)
		return err
	}

	return nil
}

// Creat creates an empty file in the current directory.
func (v *Volume) Creat(name string) error {
	_, found, err := v.findDirent(v.currentCluster, name)
	if err != nil {
		return err
	}
	if found {
		return ferrors.ErrAlreadyExists
	}

	idx, err := v.findFreeEntryIndex(v.currentCluster)
	if err != nil {
		return err
	}

	entry := rawDirent{Name: formatShortName(name), Attr: AttrArchive}
	return v.writeEntryAt(v.currentCluster, idx, entry)
}

func canonicalMode(mode string) (string, error) {
	switch mode {
	case "-r", "-w", "-rw", "-wr":
		return mode[1:], nil
	default:
		return "", ferrors.ErrInvalidMode
	}
}

// Open opens a file in the current directory under mode ("-r", "-w",
// "-rw", or "-wr") and adds it to the open-file table.
func (v *Volume) Open(name, mode string) error {
	canonical, err := canonicalMode(mode)
	if err != nil {
		return err
	}

	entry, found, err := v.findDirent(v.currentCluster, name)
	if err != nil {
		return err
	}
	if !found {
		return ferrors.ErrNotFound.WithMessage("File does not exist")
	}
	if entry.IsDir() {
		return ferrors.ErrIsADirectory.WithMessage("Cannot open a directory")
	}
	if _, alreadyOpen := v.openFiles.findLive(v.currentPath, name); alreadyOpen {
		return ferrors.ErrAlreadyOpen
	}

	slotIdx, err := v.openFiles.allocateSlot()
	if err != nil {
		return err
	}

	v.openFiles.slots[slotIdx] = OpenFile{
		Name:         entry.Name,
		Mode:         canonical,
		Offset:       0,
		DirPath:      v.currentPath,
		FirstCluster: entry.FirstCluster,
		Size:         entry.Size,
		live:         true,
	}
	return nil
}

// Close removes an open file's entry from the open-file table.
func (v *Volume) Close(name string) error {
	_, found, err := v.findDirent(v.currentCluster, name)
	if err != nil {
		return err
	}
	if !found {
		return ferrors.ErrNotFound
	}

	idx, live := v.openFiles.findLive(v.currentPath, name)
	if !live {
		return ferrors.ErrNotOpen
	}

	v.openFiles.slots[idx] = OpenFile{}
	return nil
}

// LsofEntry is one row of the `lsof` verb's output.
type LsofEntry struct {
	Index  int
	Name   string
	Mode   string
	Offset uint32
	Path   string
}

// Lsof lists every currently open file across the whole volume.
func (v *Volume) Lsof() []LsofEntry {
	var out []LsofEntry
	for i := range v.openFiles.slots {
		slot := &v.openFiles.slots[i]
		if !slot.live {
			continue
		}
		out = append(out, LsofEntry{
			Index:  i,
			Name:   slot.Name,
			Mode:   slot.Mode,
			Offset: slot.Offset,
			Path:   slot.DirPath,
		})
	}
	return out
}

// Lseek moves an open file's read/write offset, rejecting any offset
// past the file's current on-disk size.
func (v *Volume) Lseek(name string, offset uint32) error {
	entry, found, err := v.findDirent(v.currentCluster, name)
	if err != nil {
		return err
	}
	if !found {
		return ferrors.ErrNotFound
	}

	idx, live := v.openFiles.findLive(v.currentPath, name)
	if !live {
		return ferrors.ErrNotOpen
	}
	if offset > entry.Size {
		return ferrors.ErrOffsetOutOfRange
	}

	v.openFiles.slots[idx].Offset = offset
	return nil
}

// Read returns up to n bytes from an open file starting at its current
// offset, advancing the offset by the number of bytes actually read.
// Writing the result to standard output is the collaborator's job, not
// the core's.
func (v *Volume) Read(name string, n int) ([]byte, error) {
	entry, found, err := v.findDirent(v.currentCluster, name)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ferrors.ErrNotFound
	}
	if entry.IsDir() {
		return nil, ferrors.ErrIsADirectory.WithMessage("Cannot read a directory")
	}

	idx, live := v.openFiles.findLive(v.currentPath, name)
	if !live {
		return nil, ferrors.ErrNotOpen
	}
	slot := &v.openFiles.slots[idx]
	if !slot.canRead() {
		return nil, ferrors.ErrNotReadable
	}

	remainingInFile := int(entry.Size) - int(slot.Offset)
	if remainingInFile < 0 {
		remainingInFile = 0
	}
	if n > remainingInFile {
		n = remainingInFile
	}
	if n <= 0 {
		return nil, nil
	}

	result := make([]byte, 0, n)
	pos, err := v.walkToOffset(entry.FirstCluster, slot.Offset)
	if err != nil {
		return nil, err
	}

	cluster := pos.cluster
	offsetInCluster := pos.offsetInCluster
	for len(result) < n {
		toRead := min(n-len(result), int(v.geom.BytesPerCluster-offsetInCluster))
		data, err := v.img.readAt(v.clusterByteOffset(cluster)+int64(offsetInCluster), toRead)
		if err != nil {
			return nil, err
		}
		result = append(result, data...)

		if len(result) == n {
			break
		}

		next, err := v.getFATEntry(cluster)
		if err != nil {
			return nil, err
		}
		cluster = Cluster(next)
		offsetInCluster = 0
	}

	slot.Offset += uint32(len(result))
	return result, nil
}

func ceilDiv(a, b uint32) uint32 {
	if b == 0 {
		return 0
	}
	return (a + b - 1) / b
}

// Write writes data to an open file at its current offset, extending
// the file's cluster chain and on-disk size as needed, and advances the
// offset by len(data).
func (v *Volume) Write(name string, data []byte) error {
	entry, found, err := v.findDirent(v.currentCluster, name)
	if err != nil {
		return err
	}
	if !found {
		return ferrors.ErrNotFound
	}
	if entry.IsDir() {
		return ferrors.ErrIsADirectory.WithMessage("Cannot write to a directory")
	}

	idx, live := v.openFiles.findLive(v.currentPath, name)
	if !live {
		return ferrors.ErrNotOpen
	}
	slot := &v.openFiles.slots[idx]
	if !slot.canWrite() {
		return ferrors.ErrNotWritable
	}

	firstCluster := entry.FirstCluster
	L := uint32(len(data))
	newSize := slot.Offset + L

	if firstCluster == 0 && L > 0 {
		firstCluster, err = v.allocateCluster()
		if err != nil {
			return err
		}
	}

	if L > 0 {
		existing, err := v.countClusters(firstCluster)
		if err != nil {
			return err
		}
		needed := ceilDiv(newSize, v.geom.BytesPerCluster)
		for existing < needed {
			if _, err := v.appendCluster(firstCluster); err != nil {
				return err
			}
			existing++
		}

		pos, err := v.walkToOffset(firstCluster, slot.Offset)
		if err != nil {
			return err
		}

		cluster := pos.cluster
		offsetInCluster := pos.offsetInCluster
		remaining := data
		for len(remaining) > 0 {
			writeLen := min(len(remaining), int(v.geom.BytesPerCluster-offsetInCluster))
			if err := v.img.writeAt(v.clusterByteOffset(cluster)+int64(offsetInCluster), remaining[:writeLen]); err != nil {
				return err
			}
			remaining = remaining[writeLen:]

			if len(remaining) > 0 {
				next, err := v.getFATEntry(cluster)
				if err != nil {
					return err
				}
				cluster = Cluster(next)
				offsetInCluster = 0
			}
		}

		if err := v.img.flush(); err != nil {
			return err
		}
	}

	if newSize > entry.Size {
		updated := rawDirent{
			Name:         formatShortName(name),
			Attr:         entry.Attr,
			FirstCluster: uint32(firstCluster),
			FileSize:     newSize,
		}
		if err := v.writeEntryAt(v.currentCluster, entry.index, updated); err != nil {
			return err
		}
	}

	slot.Offset += L
	return nil
}

// Mv renames or moves a file or directory within the current
// directory. If dest names an existing directory, source is moved into
// it; otherwise source is renamed to dest in place.
func (v *Volume) Mv(source, dest string) error {
	srcEntry, found, err := v.findDirent(v.currentCluster, source)
	if err != nil {
		return err
	}
	if !found {
		return ferrors.ErrNotFound.WithMessage("Source does not exist")
	}

	if !srcEntry.IsDir() {
		if _, open := v.openFiles.findLive(v.currentPath, source); open {
			return ferrors.ErrSourceOpen
		}
	}

	destEntry, destFound, err := v.findDirent(v.currentCluster, dest)
	if err != nil {
		return err
	}

	if destFound && destEntry.IsDir() {
		_, existsInDest, err := v.findDirent(destEntry.FirstCluster, source)
		if err != nil {
			return err
		}
		if existsInDest {
			return ferrors.ErrAlreadyExists.WithMessage("File already exists in destination")
		}

		idx, err := v.findFreeEntryIndex(destEntry.FirstCluster)
		if err != nil {
			return err
		}

		moved := rawDirent{
			Name:         formatShortName(source),
			Attr:         srcEntry.Attr,
			FirstCluster: uint32(srcEntry.FirstCluster),
			FileSize:     srcEntry.Size,
		}
		if err := v.writeEntryAt(destEntry.FirstCluster, idx, moved); err != nil {
			return err
		}
		return v.deleteDirent(v.currentCluster, source)
	}

	if destFound {
		return ferrors.ErrAlreadyExists.WithMessage("Destination is a file")
	}

	renamed := rawDirent{
		Name:         formatShortName(dest),
		Attr:         srcEntry.Attr,
		FirstCluster: uint32(srcEntry.FirstCluster),
		FileSize:     srcEntry.Size,
	}
	return v.writeEntryAt(v.currentCluster, srcEntry.index, renamed)
}

// Rm deletes a file from the current directory, freeing its cluster
// chain.
func (v *Volume) Rm(name string) error {
	entry, found, err := v.findDirent(v.currentCluster, name)
	if err != nil {
		return err
	}
	if !found {
		return ferrors.ErrNotFound
	}
	if entry.IsDir() {
		return ferrors.ErrIsADirectory
	}
	if _, open := v.openFiles.findLive(v.currentPath, name); open {
		return ferrors.ErrSourceOpen.WithMessage("File is open")
	}

	if entry.FirstCluster != 0 {
		if err := v.freeClusterChain(entry.FirstCluster); err != nil {
			return err
		}
	}
	return v.deleteDirent(v.currentCluster, name)
}

// Rmdir deletes an empty subdirectory of the current directory.
func (v *Volume) Rmdir(name string) error {
	entry, found, err := v.findDirent(v.currentCluster, name)
	if err != nil {
		return err
	}
	if !found {
		return ferrors.ErrNotFound.WithMessage("Directory does not exist")
	}
	if !entry.IsDir() {
		return ferrors.ErrNotADirectory
	}

	empty, err := v.isDirectoryEmpty(entry.FirstCluster)
	if err != nil {
		return err
	}
	if !empty {
		return ferrors.ErrDirectoryNotEmpty
	}

	targetPath := appendSegment(v.currentPath, name)
	if v.openFiles.anyLiveUnderPath(targetPath) {
		return ferrors.ErrFileOpenInSubtree
	}

	if entry.FirstCluster != 0 {
		if err := v.freeClusterChain(entry.FirstCluster); err != nil {
			return err
		}
	}
	return v.deleteDirent(v.currentCluster, name)
}
