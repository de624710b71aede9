package vhdx

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// Dump prints a human-readable summary of the container to stdout, in the
// same terse header/divider style the teacher package's structure types use
// for their own Dump() methods.
func (c Container) Dump() {
	fmt.Printf("Container\n")
	fmt.Printf("=========\n")
	fmt.Printf("\n")

	fmt.Printf("Creator: [%s]\n", c.FileTypeIdentifier.Creator)
	fmt.Printf("\n")

	fmt.Printf("Header\n")
	fmt.Printf("------\n")
	fmt.Printf("Sequence number: (%s)\n", humanize.Comma(int64(c.Header.SequenceNumber)))
	fmt.Printf("Log GUID: [%s]\n", c.Header.LogGUID)
	fmt.Printf("Log offset: (%s)\n", humanize.Bytes(c.Header.LogOffset))
	fmt.Printf("Log length: (%s)\n", humanize.Bytes(uint64(c.Header.LogLength)))
	fmt.Printf("\n")

	fmt.Printf("Metadata\n")
	fmt.Printf("--------\n")
	fmt.Printf("Virtual disk size: (%s)\n", humanize.Bytes(c.MetaData.VirtualDiskSize))
	fmt.Printf("Virtual disk ID: [%s]\n", c.MetaData.VirtualDiskID)
	fmt.Printf("Block size: (%s)\n", humanize.Bytes(uint64(c.MetaData.FileParameters.BlockSize)))
	fmt.Printf("Has parent: (%v)\n", c.MetaData.FileParameters.HasParent)
	fmt.Printf("Logical sector size: (%d)\n", c.MetaData.LogicalSectorSize)
	fmt.Printf("Physical sector size: (%d)\n", c.MetaData.PhysicalSectorSize)
	fmt.Printf("\n")

	fmt.Printf("BAT geometry\n")
	fmt.Printf("------------\n")
	fmt.Printf("Chunk ratio: (%s)\n", humanize.Comma(int64(c.BatGeometry.ChunkRatio)))
	fmt.Printf("Payload blocks: (%s)\n", humanize.Comma(int64(c.BatGeometry.PayloadBlocksCount)))
	fmt.Printf("Sector bitmap blocks: (%s)\n", humanize.Comma(int64(c.BatGeometry.SectorBitmapBlocksCount)))
	fmt.Printf("Total BAT entries: (%s)\n", humanize.Comma(int64(len(c.Bat))))
	fmt.Printf("\n")

	fmt.Printf("Log replay\n")
	fmt.Printf("----------\n")

	if c.ActiveLogSequence.isValid() == false {
		fmt.Printf("(no active log sequence)\n")
	} else {
		fmt.Printf("Anchor sequence number: (%s)\n", humanize.Comma(int64(c.ActiveLogSequence.Anchor)))
		fmt.Printf("Entry count: (%d)\n", len(c.ActiveLogSequence.Entries))
		fmt.Printf("Head offset: (%s)\n", humanize.Bytes(uint64(c.ActiveLogSequence.Head)))
		fmt.Printf("Tail offset: (%s)\n", humanize.Bytes(uint64(c.ActiveLogSequence.Tail)))
	}
}

// String renders a BAT entry the way the teacher package's small enum types
// render themselves, e.g. VolumeFlags.String().
func (e BatEntry) String() string {
	if e.State == BatStateFullyPresent || e.State == BatStatePartiallyPresent {
		return fmt.Sprintf("BatEntry<STATE=[%s] OFFSET-MB=(%d)>", e.State, e.FileOffsetMB)
	}

	return fmt.Sprintf("BatEntry<STATE=[%s]>", e.State)
}

// String renders a region-table entry for diagnostics.
func (e RegionTableEntry) String() string {
	return fmt.Sprintf("RegionTableEntry<GUID=[%s] OFFSET=(%d) LENGTH=(%s) REQUIRED=(%v)>", e.GUID, e.FileOffset, humanize.Bytes(uint64(e.Length)), e.Required)
}
