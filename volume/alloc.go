package volume

import (
	"github.com/boljen/go-bitmap"

	ferrors "github.com/ardalis-fat/fat32vol/errors"
)

// clusterAllocator mirrors the free/used state of every data cluster in
// a bitmap so allocateCluster doesn't have to re-scan the FAT from
// cluster 2 on every call. It's purely a cache: the FAT table is always
// the ground truth, and the bitmap is built from it once at mount
// (see (*Volume).rebuildAllocatorCache) and kept in lockstep by
// allocateCluster/freeClusterChain.
type clusterAllocator struct {
	free  bitmap.Bitmap
	total uint32
}

func newClusterAllocator(totalClusters uint32) *clusterAllocator {
	return &clusterAllocator{
		free:  bitmap.New(int(totalClusters)),
		total: totalClusters,
	}
}

func (a *clusterAllocator) markUsed(c Cluster) {
	a.free.Set(int(c)-2, true)
}

func (a *clusterAllocator) markFree(c Cluster) {
	a.free.Set(int(c)-2, false)
}

// firstFree returns the lowest-indexed free cluster, or 0 if none
// remain.
func (a *clusterAllocator) firstFree() Cluster {
	for i := 0; i < int(a.total); i++ {
		if !a.free.Get(i) {
			return Cluster(i + 2)
		}
	}
	return 0
}

// rebuildAllocatorCache scans the FAT once at mount and populates the
// bitmap cache from it.
func (v *Volume) rebuildAllocatorCache() error {
	v.allocator = newClusterAllocator(v.geom.TotalClusters)

	for i := uint32(0); i < v.geom.TotalClusters; i++ {
		c := Cluster(i + 2)
		entry, err := v.getFATEntry(c)
		if err != nil {
			return err
		}
		if entry != clusterFree {
			v.allocator.markUsed(c)
		}
	}
	return nil
}

// allocateCluster claims the lowest-indexed free cluster by writing the
// end-of-chain marker into its FAT entry(ies), then zeroes its data
// region. Returns ErrNoFreeClusters if the bitmap has no free bit left.
func (v *Volume) allocateCluster() (Cluster, error) {
	c := v.allocator.firstFree()
	if c == 0 {
		return 0, ferrors.ErrNoFreeClusters
	}

	if err := v.setFATEntry(c, clusterEndOfChainWrite); err != nil {
		return 0, err
	}
	v.allocator.markUsed(c)

	zeros := make([]byte, v.geom.BytesPerCluster)
	if err := v.img.writeAt(v.clusterByteOffset(c), zeros); err != nil {
		return 0, err
	}
	if err := v.img.flush(); err != nil {
		return 0, err
	}

	return c, nil
}

// freeClusterChain walks the chain from start, clearing each entry to
// free (0) as it advances. It stops once the entry read is not a valid
// cluster index (either an end-of-chain marker or something corrupt).
func (v *Volume) freeClusterChain(start Cluster) error {
	if start == 0 {
		return nil
	}

	current := start
	for {
		next, err := v.getFATEntry(current)
		if err != nil {
			return err
		}

		if err := v.setFATEntry(current, clusterFree); err != nil {
			return err
		}
		v.allocator.markFree(current)

		if !v.isValidCluster(Cluster(next)) {
			return nil
		}
		current = Cluster(next)
	}
}
