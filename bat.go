package vhdx

import (
	"io"
)

const (
	batEntrySize = 8

	batStateMask     = 0x7
	batReservedShift = 3
	batReservedBits  = 17
	batReservedMask  = (uint64(1)<<batReservedBits - 1) << batReservedShift
	batOffsetShift   = batReservedShift + batReservedBits
)

// BatState is the 3-bit state tag of a BAT entry (§3).
type BatState uint8

const (
	BatStateNotPresent       BatState = 0
	BatStateUndefined        BatState = 1
	BatStateZero             BatState = 2
	BatStateUnmapped         BatState = 3
	BatStateFullyPresent     BatState = 6
	BatStatePartiallyPresent BatState = 7
	BatStateUnknown          BatState = 0xff
)

func (s BatState) String() string {
	switch s {
	case BatStateNotPresent:
		return "NotPresent"
	case BatStateUndefined:
		return "Undefined"
	case BatStateZero:
		return "Zero"
	case BatStateUnmapped:
		return "Unmapped"
	case BatStateFullyPresent:
		return "FullyPresent"
	case BatStatePartiallyPresent:
		return "PartiallyPresent"
	default:
		return "Unknown"
	}
}

func parseBatState(raw uint64) BatState {
	switch BatState(raw & batStateMask) {
	case BatStateNotPresent, BatStateUndefined, BatStateZero, BatStateUnmapped, BatStateFullyPresent, BatStatePartiallyPresent:
		return BatState(raw & batStateMask)
	default:
		return BatStateUnknown
	}
}

// BatEntry is one decoded 8-byte BAT slot (§3, §4.9).
type BatEntry struct {
	State        BatState
	FileOffsetMB uint64
}

// parseBatEntry decodes a single 8-byte BAT entry per §4.9. backingFileLength
// is used to bounds-check the offset field for the two "present" states; it
// is ignored for every other state.
func parseBatEntry(raw uint64, offset int64, backingFileLength int64) BatEntry {
	if raw&batReservedMask != 0 {
		panicWithError(ErrorKindBadBatReserved, offset, "BAT entry reserved bits are nonzero: (0x%016x)", raw)
	}

	state := parseBatState(raw)
	fileOffsetMB := raw >> batOffsetShift

	switch state {
	case BatStateFullyPresent, BatStatePartiallyPresent:
		if fileOffsetMB == 0 {
			panicWithError(ErrorKindBadGeometry, offset, "BAT entry in state (%s) has zero file offset", state)
		}

		if int64(fileOffsetMB)*oneMiB >= backingFileLength {
			panicWithError(ErrorKindBadGeometry, offset, "BAT entry in state (%s) offset (%d MiB) exceeds backing file length (%d)", state, fileOffsetMB, backingFileLength)
		}
	}

	return BatEntry{
		State:        state,
		FileOffsetMB: fileOffsetMB,
	}
}

// BatGeometry is the set of derived quantities relating sector size, block
// size, and virtual-disk size to the shape of the BAT (§4.8).
type BatGeometry struct {
	ChunkRatio               uint64
	PayloadBlocksCount       uint64
	SectorBitmapBlocksCount  uint64
	TotalBatEntriesFixedDyn  uint64
	TotalBatEntriesDiffering uint64
}

// TotalEntries returns the entry count applicable to this container, per
// hasParent (§4.8).
func (g BatGeometry) TotalEntries(hasParent bool) uint64 {
	if hasParent == true {
		return g.TotalBatEntriesDiffering
	}

	return g.TotalBatEntriesFixedDyn
}

// ceilDiv computes ceil(a/b) for positive a, b using only integer arithmetic,
// per the spec's explicit instruction to avoid the floating-point ceil/floor
// the source this was distilled from uses (see DESIGN.md).
func ceilDiv(a, b uint64) uint64 {
	return (a + b - 1) / b
}

// computeBatGeometry implements §4.8 exactly. blockSize must divide the 2^23
// · logicalSectorSize product evenly; otherwise the chunk ratio is not exact
// and BadGeometry is raised.
func computeBatGeometry(logicalSectorSize SectorSize, blockSize uint32, virtualDiskSize uint64) BatGeometry {
	numerator := (uint64(1) << 23) * uint64(logicalSectorSize)

	if numerator%uint64(blockSize) != 0 {
		panicWithError(ErrorKindBadGeometry, 0, "chunk ratio does not divide evenly: (%d) / (%d)", numerator, blockSize)
	}

	chunkRatio := numerator / uint64(blockSize)

	payloadBlocksCount := ceilDiv(virtualDiskSize, uint64(blockSize))
	sectorBitmapBlocksCount := ceilDiv(payloadBlocksCount, chunkRatio)

	totalFixedDyn := (payloadBlocksCount-1)/chunkRatio + payloadBlocksCount
	totalDiffering := sectorBitmapBlocksCount * (chunkRatio + 1)

	return BatGeometry{
		ChunkRatio:               chunkRatio,
		PayloadBlocksCount:       payloadBlocksCount,
		SectorBitmapBlocksCount:  sectorBitmapBlocksCount,
		TotalBatEntriesFixedDyn:  totalFixedDyn,
		TotalBatEntriesDiffering: totalDiffering,
	}
}

// parseBat reads totalEntries consecutive 8-byte entries starting at
// regionOffset.
func parseBat(rs io.ReadSeeker, regionOffset int64, totalEntries uint64, backingFileLength int64) []BatEntry {
	_, err := rs.Seek(regionOffset, io.SeekStart)
	if err != nil {
		panicWithError(ErrorKindIo, regionOffset, "seek to BAT region failed: %s", err)
	}

	entries := make([]BatEntry, totalEntries)

	buf := make([]byte, batEntrySize)

	for i := uint64(0); i < totalEntries; i++ {
		entryOffset := regionOffset + int64(i)*batEntrySize

		_, err = io.ReadFull(rs, buf)
		if err != nil {
			panicWithError(ErrorKindIo, entryOffset, "read BAT entry (%d) failed: %s", i, err)
		}

		c := newCodec(buf, entryOffset)
		raw := c.u64()

		entries[i] = parseBatEntry(raw, entryOffset, backingFileLength)
	}

	return entries
}
