// Package arrayio plans reads of rectangular sections of large
// multidimensional arrays stored in self-describing binary files
// (netCDF3, HDF5/netCDF4, HDF4).
//
// A read is described by an IndexSpace (start + shape) over the logical
// array. A Layout turns that request into an ordered sequence of
// contiguous byte-range transfers for one physical storage model:
//
//   - LayoutRegular: one flat row-major array.
//   - LayoutRegularSegmented: netCDF3 record variables, stored as fixed
//     stride records along the outermost dimension.
//   - LayoutTiled: grid-chunked storage, driven by a chunk index such as
//     the HDF5 v1 chunk B-tree (see ChunkIndex).
//
// ReadSection executes a plan against an io.ReaderAt. Transfers of one
// plan write disjoint parts of the destination buffer, so they may be
// issued concurrently.
//
// Header parsing, datatype decoding and decompression are outside this
// package: callers supply shapes, element sizes and file positions.
package arrayio
