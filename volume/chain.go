package volume

import (
	"fmt"
)

// firstSectorOfCluster returns the first sector addressed by cluster c.
func (v *Volume) firstSectorOfCluster(c Cluster) uint32 {
	return v.geom.DataStartSector + (uint32(c)-2)*v.geom.SectorsPerCluster
}

// clusterByteOffset returns the absolute byte offset of cluster c's
// first byte in the backing image.
func (v *Volume) clusterByteOffset(c Cluster) int64 {
	return int64(v.firstSectorOfCluster(c)) * int64(v.geom.BytesPerSector)
}

// chainPosition is one record yielded while walking a chain to a byte
// offset: the cluster containing that offset, the offset within the
// cluster, and how many bytes remain in the cluster from there.
type chainPosition struct {
	cluster         Cluster
	offsetInCluster uint32
	bytesAvailable  uint32
}

// walkSteps follows the FAT chain starting at `start` for exactly
// `steps` links and returns the cluster landed on. It's an error to walk
// past the end of the chain.
func (v *Volume) walkSteps(start Cluster, steps uint32) (Cluster, error) {
	current := start
	for i := uint32(0); i < steps; i++ {
		next, err := v.getFATEntry(current)
		if err != nil {
			return 0, err
		}
		if isEndOfChain(next) {
			return 0, fmt.Errorf("chain from cluster %d has only %d cluster(s), asked for step %d", start, i+1, steps)
		}
		current = Cluster(next)
	}
	return current, nil
}

// walkToOffset divides byteOffset by bytes-per-cluster to get a step
// count and remainder, then follows the chain that many steps from
// `start`.
func (v *Volume) walkToOffset(start Cluster, byteOffset uint32) (chainPosition, error) {
	steps := byteOffset / v.geom.BytesPerCluster
	remainder := byteOffset % v.geom.BytesPerCluster

	cluster, err := v.walkSteps(start, steps)
	if err != nil {
		return chainPosition{}, err
	}

	return chainPosition{
		cluster:         cluster,
		offsetInCluster: remainder,
		bytesAvailable:  v.geom.BytesPerCluster - remainder,
	}, nil
}

// walkToEnd follows the chain starting at `start` to its last valid
// cluster, the one whose FAT entry is an end-of-chain marker.
func (v *Volume) walkToEnd(start Cluster) (Cluster, error) {
	current := start
	for {
		next, err := v.getFATEntry(current)
		if err != nil {
			return 0, err
		}
		if isEndOfChain(next) {
			return current, nil
		}
		current = Cluster(next)
	}
}

// countClusters returns the number of clusters in the chain starting at
// `start`. An empty file (start == 0) has 0 clusters.
func (v *Volume) countClusters(start Cluster) (uint32, error) {
	if start == 0 {
		return 0, nil
	}

	count := uint32(0)
	current := start
	for {
		count++
		next, err := v.getFATEntry(current)
		if err != nil {
			return 0, err
		}
		if isEndOfChain(next) {
			return count, nil
		}
		current = Cluster(next)
	}
}

// appendCluster walks to the end of the chain starting at `start` and
// links a freshly allocated cluster onto it. If `start` is 0 (empty
// chain), the newly allocated cluster becomes the chain's first cluster
// and no FAT link is written for a predecessor.
func (v *Volume) appendCluster(start Cluster) (Cluster, error) {
	newCluster, err := v.allocateCluster()
	if err != nil {
		return 0, err
	}

	if start == 0 {
		return newCluster, nil
	}

	last, err := v.walkToEnd(start)
	if err != nil {
		return 0, err
	}
	if err := v.setFATEntry(last, uint32(newCluster)); err != nil {
		return 0, err
	}
	return newCluster, nil
}
