// Package types defines the domain records shared by the catalog, the node
// registry, and the stats core: node descriptors, sources, datasets, spaces,
// job statistics, accelerations with their layouts and materializations, and
// the search queries used for batched dataset counts.
//
// These are plain in-memory representations. Their JSON form is the storage
// encoding used by the catalog, not the REST wire format.
package types
