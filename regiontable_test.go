package vhdx

import (
	"testing"
)

// buildRegionTableSlot constructs a well-formed 64-KiB region-table slot
// with the given entries and a correctly computed CRC.
func buildRegionTableSlot(entries []RegionTableEntry) []byte {
	slot := make([]byte, regionTableSlotSize)

	copy(slot[0:4], "regi")
	// checksum field [4:8) left zero for now
	defaultEncoding.PutUint32(slot[8:12], uint32(len(entries)))
	// reserved [12:16)

	cursor := regionTableHeaderSize

	for _, e := range entries {
		copy(slot[cursor:cursor+16], encodeGUIDForTest(e.GUID))
		defaultEncoding.PutUint64(slot[cursor+16:cursor+24], e.FileOffset)
		defaultEncoding.PutUint32(slot[cursor+24:cursor+28], e.Length)

		flags := uint32(0)
		if e.Required == true {
			flags |= regionRequiredFlagMask
		}

		defaultEncoding.PutUint32(slot[cursor+28:cursor+32], flags)

		cursor += regionTableEntrySize
	}

	checksum := crc32cZeroed(slot, regionChecksumFieldOffset, regionChecksumFieldLength)
	defaultEncoding.PutUint32(slot[4:8], checksum)

	return slot
}

func TestParseRegionTable_Valid(t *testing.T) {
	entries := []RegionTableEntry{
		{GUID: RegionBatGUID, FileOffset: 2 * oneMiB, Length: uint32(oneMiB), Required: true},
		{GUID: RegionMetaDataGUID, FileOffset: 3 * oneMiB, Length: uint32(oneMiB), Required: true},
	}

	slot := buildRegionTableSlot(entries)

	rt := parseRegionTable(slot, rt1Offset)

	if rt.Bat == nil {
		t.Fatalf("BAT region not resolved")
	}

	if rt.MetaData == nil {
		t.Fatalf("metadata region not resolved")
	}

	if rt.Bat.FileOffset != 2*oneMiB {
		t.Fatalf("BAT region file offset not correct: (%d)", rt.Bat.FileOffset)
	}
}

func TestParseRegionTable_UnknownRequired(t *testing.T) {
	unknownGUID := mustGUID("11111111-1111-1111-1111-111111111111")

	entries := []RegionTableEntry{
		{GUID: unknownGUID, FileOffset: 2 * oneMiB, Length: uint32(oneMiB), Required: true},
	}

	slot := buildRegionTableSlot(entries)

	var err error

	func() {
		defer recoverAsError(&err)
		parseRegionTable(slot, rt1Offset)
	}()

	if err == nil {
		t.Fatalf("expected an error for an unrecognized required region")
	}

	ae, ok := err.(*Error)
	if ok == false {
		t.Fatalf("error not of expected type: %v", err)
	}

	if ae.Kind != ErrorKindUnknownRequiredRegion {
		t.Fatalf("wrong error kind: (%s)", ae.Kind)
	}
}

func TestParseRegionTable_UnknownOptional_Retained(t *testing.T) {
	unknownGUID := mustGUID("22222222-2222-2222-2222-222222222222")

	entries := []RegionTableEntry{
		{GUID: RegionBatGUID, FileOffset: 2 * oneMiB, Length: uint32(oneMiB), Required: true},
		{GUID: RegionMetaDataGUID, FileOffset: 3 * oneMiB, Length: uint32(oneMiB), Required: true},
		{GUID: unknownGUID, FileOffset: 4 * oneMiB, Length: uint32(oneMiB), Required: false},
	}

	slot := buildRegionTableSlot(entries)

	rt := parseRegionTable(slot, rt1Offset)

	if len(rt.Unknown) != 1 {
		t.Fatalf("expected exactly one retained unknown entry, got (%d)", len(rt.Unknown))
	}

	if rt.Unknown[0].GUID != unknownGUID {
		t.Fatalf("unknown entry GUID not correct")
	}
}

func TestParseRegionTable_OverlapDetected(t *testing.T) {
	entries := []RegionTableEntry{
		{GUID: RegionBatGUID, FileOffset: 2 * oneMiB, Length: uint32(2 * oneMiB), Required: true},
		{GUID: RegionMetaDataGUID, FileOffset: 3 * oneMiB, Length: uint32(oneMiB), Required: true},
	}

	slot := buildRegionTableSlot(entries)

	var err error

	func() {
		defer recoverAsError(&err)
		parseRegionTable(slot, rt1Offset)
	}()

	if err == nil {
		t.Fatalf("expected an error for overlapping regions")
	}

	ae, ok := err.(*Error)
	if ok == false {
		t.Fatalf("error not of expected type: %v", err)
	}

	if ae.Kind != ErrorKindBadAlignment {
		t.Fatalf("wrong error kind: (%s)", ae.Kind)
	}
}
