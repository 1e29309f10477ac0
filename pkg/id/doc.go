// Package id provides a 128-bit, lexicographically sortable identifier.
//
// The ID is 16 bytes big-endian: [8 bytes ms_timestamp][8 bytes sequence],
// so byte-wise comparison preserves chronological order and IDs generated
// within the same millisecond remain strictly increasing by sequence.
// trackd uses these for gateway connection ids, where sortability makes
// stats output stable and debugging sessions easier to correlate.
package id
