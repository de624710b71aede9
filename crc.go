package vhdx

import (
	"hash/crc32"
)

// castagnoliTable is the CRC-32C (Castagnoli) polynomial table used for
// every checksum in the VHDX format (headers, region tables, and log
// entries). hash/crc32 already ships the Castagnoli polynomial, the same
// stdlib facility the rest of the retrieved disk/filesystem-format readers
// reach for to compute CRC-32C (see DESIGN.md for why no third-party
// CRC32C package was used instead).
var castagnoliTable = crc32.MakeTable(crc32.Castagnoli)

// crc32c computes CRC-32C over raw exactly as it appears; callers are
// responsible for zeroing a checksum field window before calling this, per
// every structure's "recompute with the checksum field taking the value of
// zero" rule (§4.2).
func crc32c(raw []byte) uint32 {
	return crc32.Checksum(raw, castagnoliTable)
}

// crc32cZeroed computes CRC-32C over raw with the byte range
// [fieldOffset, fieldOffset+fieldLength) substituted with zeros, without
// mutating the caller's slice.
func crc32cZeroed(raw []byte, fieldOffset, fieldLength int) uint32 {
	scratch := make([]byte, len(raw))
	copy(scratch, raw)

	for i := fieldOffset; i < fieldOffset+fieldLength; i++ {
		scratch[i] = 0
	}

	return crc32c(scratch)
}
