// Package flat provides an exact L2 nearest-neighbour index and its snapshot file.
// It implements the driven.VectorIndex and driven.SnapshotStore interfaces.
package flat
