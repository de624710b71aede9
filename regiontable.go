package vhdx

const (
	regionTableSlotSize    = 64 * 1024
	regionTableHeaderSize  = 16
	regionTableEntrySize   = 32
	maxRegionTableEntries  = 2047
	regionRequiredFlagMask = 1

	regionChecksumFieldOffset = 4
	regionChecksumFieldLength = 4
)

// RegionTableEntry locates one major file area (§3).
type RegionTableEntry struct {
	GUID       GUID
	FileOffset uint64
	Length     uint32
	Required   bool
}

// overlaps reports whether two regions' byte ranges intersect.
func (e RegionTableEntry) overlaps(other RegionTableEntry) bool {
	aStart, aEnd := e.FileOffset, e.FileOffset+uint64(e.Length)
	bStart, bEnd := other.FileOffset, other.FileOffset+uint64(other.Length)

	return aStart < bEnd && bStart < aEnd
}

// RegionTable is one of the two redundant 64-KiB region tables (§3, §4.5).
// Bat and MetaData are nil if the corresponding well-known region was not
// present (assembly will fail downstream in that case, since both are
// required for a usable container).
type RegionTable struct {
	Signature  Signature
	Checksum   uint32
	EntryCount uint32
	Bat        *RegionTableEntry
	MetaData   *RegionTableEntry
	Unknown    []RegionTableEntry
}

// parseRegionTable decodes a 64-KiB region-table slot per §4.5: fixed
// 16-byte header, CRC over the whole slot with the checksum field zeroed,
// an entry-count ceiling, GUID-keyed routing of the two well-known region
// kinds, a required-bit check for anything else, and an overlap check
// across every resolved region.
func parseRegionTable(slot []byte, slotOffset int64) RegionTable {
	if len(slot) < regionTableSlotSize {
		panicWithError(ErrorKindIo, slotOffset, "region-table slot shorter than (%d) bytes", regionTableSlotSize)
	}

	c := newCodec(slot, slotOffset)

	signature := c.sig4(sig4Table)
	if signature != SignatureRegi {
		panicWithError(ErrorKindBadMagic, slotOffset, "region-table signature not correct")
	}

	checksum := c.u32()
	entryCount := c.u32()
	c.take(4) // reserved

	if entryCount > maxRegionTableEntries {
		panicWithError(ErrorKindBadAlignment, slotOffset, "region-table entry count exceeds (%d): (%d)", maxRegionTableEntries, entryCount)
	}

	computedChecksum := crc32cZeroed(slot, regionChecksumFieldOffset, regionChecksumFieldLength)
	if computedChecksum != checksum {
		panicWithError(ErrorKindBadChecksum, slotOffset, "region-table checksum mismatch: expected (0x%08x), got (0x%08x)", checksum, computedChecksum)
	}

	rt := RegionTable{
		Signature:  signature,
		Checksum:   checksum,
		EntryCount: entryCount,
	}

	resolved := make([]RegionTableEntry, 0, entryCount)

	for i := uint32(0); i < entryCount; i++ {
		entryOffset := c.currentOffset()

		entryGUID := c.guid()
		fileOffset := c.u64()
		length := c.u32()
		flags := c.u32()

		entry := RegionTableEntry{
			GUID:       entryGUID,
			FileOffset: fileOffset,
			Length:     length,
			Required:   flags&regionRequiredFlagMask != 0,
		}

		switch entryGUID {
		case RegionBatGUID:
			rt.Bat = &entry
		case RegionMetaDataGUID:
			rt.MetaData = &entry
		default:
			if entry.Required == true {
				panicWithError(ErrorKindUnknownRequiredRegion, entryOffset, "unrecognized required region: [%s]", entryGUID)
			}

			rt.Unknown = append(rt.Unknown, entry)
		}

		resolved = append(resolved, entry)
	}

	for i := 0; i < len(resolved); i++ {
		for j := i + 1; j < len(resolved); j++ {
			if resolved[i].FileOffset == resolved[j].FileOffset {
				panicWithError(ErrorKindBadAlignment, slotOffset, "two regions share file-offset (%d)", resolved[i].FileOffset)
			}

			if resolved[i].overlaps(resolved[j]) == true {
				panicWithError(ErrorKindBadAlignment, slotOffset, "regions at (%d) and (%d) overlap", resolved[i].FileOffset, resolved[j].FileOffset)
			}
		}
	}

	return rt
}
