// Package rat contains the core components of a raster attribute table (RAT) toolkit for
// segmented (thematic) rasters. This root package defines the types which are employed
// when building per-segment neighbour lists from tiled label images, and when reading and
// writing the typed and ragged columns of an attribute table. It is an overview of the
// key concepts: Tables, Fields, Tiles and Accumulators.
package rat
