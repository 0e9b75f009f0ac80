// Package las reads and writes ASPRS LAS point-cloud files.
//
// Only what scan alignment needs is supported: the public header block of
// versions 1.0 through 1.4 and the X/Y/Z fields of every uncompressed point
// record. VLRs and the remaining per-point attributes are skipped on read.
// The writer emits LAS 1.2, point format 0.
package las
