package vhdx

import (
	"io"
)

const (
	metadataTableHeaderSize = 32
	metadataEntrySize       = 32
	maxMetadataEntries      = 2047

	metadataEntryIsUserFlag        = 1 << 0
	metadataEntryIsVirtualDiskFlag = 1 << 1
	metadataEntryIsRequiredFlag    = 1 << 2

	fileParametersLeaveBlockAllocatedFlag = 1 << 0
	fileParametersHasParentFlag           = 1 << 1
)

// SectorSize is the closed enumeration of logical/physical sector sizes a
// VHDX container may declare (§3). Unlike the source this was distilled
// from — whose SectorSize::try_from maps 4096 to the 512 variant, a bug —
// this type preserves the literal value it was given (see DESIGN.md).
type SectorSize uint32

const (
	Sector512  SectorSize = 512
	Sector4096 SectorSize = 4096
)

func parseSectorSize(value uint32, offset int64) SectorSize {
	switch value {
	case uint32(Sector512):
		return Sector512
	case uint32(Sector4096):
		return Sector4096
	default:
		panicWithError(ErrorKindBadSectorSize, offset, "sector-size not one of (512, 4096): (%d)", value)
	}

	panic("unreachable")
}

// FileParameters is the FileParameters metadata item (§3).
type FileParameters struct {
	BlockSize           uint32
	LeaveBlockAllocated bool
	HasParent           bool
}

// MetadataEntry is one raw 32-byte table entry, before its typed payload
// (if recognised) is resolved (§3, §4.7).
type MetadataEntry struct {
	ItemGUID      GUID
	Offset        uint32
	Length        uint32
	IsUser        bool
	IsVirtualDisk bool
	IsRequired    bool
}

// MetaData is the fully-resolved metadata bundle (§3, §4.7).
type MetaData struct {
	Signature          Signature
	EntryCount         uint16
	FileParameters     FileParameters
	VirtualDiskSize    uint64
	VirtualDiskID      GUID
	LogicalSectorSize  SectorSize
	PhysicalSectorSize SectorSize
	Entries            map[GUID]MetadataEntry
}

// parseMetaData reads the metadata table at regionOffset (the metadata
// region's base file offset) per §4.7: fixed 32-byte header, up to
// maxMetadataEntries 32-byte item descriptors, then one bounded seek-and-
// read per recognised item GUID to decode its typed payload.
func parseMetaData(rs io.ReadSeeker, regionOffset int64, regionLength uint32) MetaData {
	_, err := rs.Seek(regionOffset, io.SeekStart)
	if err != nil {
		panicWithError(ErrorKindIo, regionOffset, "seek to metadata region failed: %s", err)
	}

	headerBuf := make([]byte, metadataTableHeaderSize)

	_, err = io.ReadFull(rs, headerBuf)
	if err != nil {
		panicWithError(ErrorKindIo, regionOffset, "read metadata header failed: %s", err)
	}

	c := newCodec(headerBuf, regionOffset)

	signature := c.sig8(sig8Table)
	if signature != SignatureMetadata {
		panicWithError(ErrorKindBadMagic, regionOffset, "metadata table signature not correct")
	}

	entryCount := c.u16()
	if entryCount > maxMetadataEntries {
		panicWithError(ErrorKindBadAlignment, regionOffset, "metadata entry count exceeds (%d): (%d)", maxMetadataEntries, entryCount)
	}

	md := MetaData{
		Signature:  signature,
		EntryCount: entryCount,
		Entries:    make(map[GUID]MetadataEntry, entryCount),
	}

	for i := uint16(0); i < entryCount; i++ {
		entryBuf := make([]byte, metadataEntrySize)

		_, err = io.ReadFull(rs, entryBuf)
		if err != nil {
			panicWithError(ErrorKindIo, regionOffset, "read metadata entry (%d) failed: %s", i, err)
		}

		ec := newCodec(entryBuf, 0)

		itemGUID := ec.guid()
		offset := ec.u32()
		length := ec.u32()
		flags := ec.u32()

		if uint64(offset)+uint64(length) > uint64(regionLength) {
			panicWithError(ErrorKindBadAlignment, regionOffset, "metadata item [%s] extends beyond region: offset (%d) + length (%d) > (%d)", itemGUID, offset, length, regionLength)
		}

		entry := MetadataEntry{
			ItemGUID:      itemGUID,
			Offset:        offset,
			Length:        length,
			IsUser:        flags&metadataEntryIsUserFlag != 0,
			IsVirtualDisk: flags&metadataEntryIsVirtualDiskFlag != 0,
			IsRequired:    flags&metadataEntryIsRequiredFlag != 0,
		}

		md.Entries[itemGUID] = entry
	}

	readItem := func(itemGUID GUID) []byte {
		entry, found := md.Entries[itemGUID]
		if found == false {
			return nil
		}

		itemOffset := regionOffset + int64(entry.Offset)

		_, err := rs.Seek(itemOffset, io.SeekStart)
		if err != nil {
			panicWithError(ErrorKindIo, itemOffset, "seek to metadata item [%s] failed: %s", itemGUID, err)
		}

		buf := make([]byte, entry.Length)

		_, err = io.ReadFull(rs, buf)
		if err != nil {
			panicWithError(ErrorKindIo, itemOffset, "read metadata item [%s] failed: %s", itemGUID, err)
		}

		return buf
	}

	fileParametersRaw := readItem(MetadataFileParametersGUID)
	if fileParametersRaw == nil {
		panicWithError(ErrorKindMissingRequiredMetadata, regionOffset, "missing required metadata item: FileParameters")
	}

	fc := newCodec(fileParametersRaw, 0)
	blockSize := fc.u32()
	flags := fc.u32()

	md.FileParameters = FileParameters{
		BlockSize:           blockSize,
		LeaveBlockAllocated: flags&fileParametersLeaveBlockAllocatedFlag != 0,
		HasParent:           flags&fileParametersHasParentFlag != 0,
	}

	virtualDiskSizeRaw := readItem(MetadataVirtualDiskSizeGUID)
	if virtualDiskSizeRaw == nil {
		panicWithError(ErrorKindMissingRequiredMetadata, regionOffset, "missing required metadata item: VirtualDiskSize")
	}

	md.VirtualDiskSize = newCodec(virtualDiskSizeRaw, 0).u64()

	virtualDiskIDRaw := readItem(MetadataVirtualDiskIDGUID)
	if virtualDiskIDRaw == nil {
		panicWithError(ErrorKindMissingRequiredMetadata, regionOffset, "missing required metadata item: VirtualDiskID")
	}

	md.VirtualDiskID = newCodec(virtualDiskIDRaw, 0).guid()

	logicalSectorSizeRaw := readItem(MetadataLogicalSectorSizeGUID)
	if logicalSectorSizeRaw == nil {
		panicWithError(ErrorKindMissingRequiredMetadata, regionOffset, "missing required metadata item: LogicalSectorSize")
	}

	md.LogicalSectorSize = parseSectorSize(newCodec(logicalSectorSizeRaw, 0).u32(), regionOffset)

	physicalSectorSizeRaw := readItem(MetadataPhysicalSectorSizeGUID)
	if physicalSectorSizeRaw == nil {
		panicWithError(ErrorKindMissingRequiredMetadata, regionOffset, "missing required metadata item: PhysicalSectorSize")
	}

	md.PhysicalSectorSize = parseSectorSize(newCodec(physicalSectorSizeRaw, 0).u32(), regionOffset)

	if md.VirtualDiskSize%uint64(md.LogicalSectorSize) != 0 {
		panicWithError(ErrorKindBadAlignment, regionOffset, "virtual-disk size (%d) not a multiple of logical-sector-size (%d)", md.VirtualDiskSize, md.LogicalSectorSize)
	}

	return md
}
