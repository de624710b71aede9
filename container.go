package vhdx

import (
	"io"
)

const (
	ftiOffset = 0
	h1Offset  = 64 * 1024
	h2Offset  = 128 * 1024
	rt1Offset = 192 * 1024
	rt2Offset = 256 * 1024
)

// Container is the fully assembled, read-only view of an opened VHDX file
// (§3, §6): the elected header, both region tables (kept for audit), the
// selected log-replay sequence, the metadata bundle, and the materialised
// BAT vector.
type Container struct {
	FileTypeIdentifier FileTypeIdentifier
	Header             Header
	RegionTable1       RegionTable
	RegionTable2       RegionTable
	ActiveLogSequence  LogSequence
	MetaData           MetaData
	BatGeometry        BatGeometry
	Bat                []BatEntry
}

// Open reads and validates rs as a VHDX container, per the §4.13 assembly
// order: FTI, both headers, both region tables, current-header election,
// log scan and sequence selection (skipped if the elected log GUID is nil),
// metadata, BAT geometry, BAT. Any step's failure aborts assembly; the
// partially-built container is never returned.
//
// rs must support Seek to arbitrary absolute offsets; Open does not retain
// rs for the lifetime of the returned Container beyond what's needed to
// materialise every field eagerly (§5).
func Open(rs io.ReadSeeker, backingFileLength int64) (c Container, err error) {
	defer recoverAsError(&err)

	fti := readFixedSlot(rs, ftiOffset, fileTypeIdentifierSize)
	c.FileTypeIdentifier = parseFileTypeIdentifier(fti)

	h1Slot := readFixedSlot(rs, h1Offset, headerSlotSize)
	h2Slot := readFixedSlot(rs, h2Offset, headerSlotSize)

	h1 := parseHeaderSlot(h1Slot, h1Offset)
	h2 := parseHeaderSlot(h2Slot, h2Offset)

	rt1Slot := readFixedSlot(rs, rt1Offset, regionTableSlotSize)
	rt2Slot := readFixedSlot(rs, rt2Offset, regionTableSlotSize)

	c.RegionTable1 = parseRegionTable(rt1Slot, rt1Offset)
	c.RegionTable2 = parseRegionTable(rt2Slot, rt2Offset)

	c.Header = electCurrentHeader(h1, h2)

	if c.RegionTable1.Bat == nil || c.RegionTable1.MetaData == nil {
		panicWithError(ErrorKindUnknownRequiredRegion, rt1Offset, "region table 1 is missing the BAT or Metadata region")
	}

	if c.Header.LogGUID != nilGUID {
		logEntries := scanLog(rs, int64(c.Header.LogOffset), c.Header.LogLength)
		c.ActiveLogSequence = selectLogSequence(logEntries, c.Header.LogGUID)
	}

	metaDataRegion := c.RegionTable1.MetaData
	c.MetaData = parseMetaData(rs, int64(metaDataRegion.FileOffset), metaDataRegion.Length)

	c.BatGeometry = computeBatGeometry(c.MetaData.LogicalSectorSize, c.MetaData.FileParameters.BlockSize, c.MetaData.VirtualDiskSize)

	batRegion := c.RegionTable1.Bat
	totalEntries := c.BatGeometry.TotalEntries(c.MetaData.FileParameters.HasParent)

	c.Bat = parseBat(rs, int64(batRegion.FileOffset), totalEntries, backingFileLength)

	return c, nil
}

// readFixedSlot reads exactly size bytes starting at offset. Every one of
// the five fixed header regions (FTI, the two headers, the two region
// tables) is read this way before being handed to its decoder, so that CRC
// recomputation always has the full on-disk slot available (§5).
func readFixedSlot(rs io.ReadSeeker, offset int64, size int) []byte {
	_, err := rs.Seek(offset, io.SeekStart)
	if err != nil {
		panicWithError(ErrorKindIo, offset, "seek to fixed slot at (%d) failed: %s", offset, err)
	}

	buf := make([]byte, size)

	_, err = io.ReadFull(rs, buf)
	if err != nil {
		panicWithError(ErrorKindIo, offset, "read fixed slot failed: %s", err)
	}

	return buf
}
