package vhdx

import (
	"bytes"
	"testing"
)

// buildLogEntry constructs one well-formed log entry with dataDescriptors
// Data descriptors (each with a correctly-tagged DataSector) and a correctly
// computed CRC. If breakCrc is true, a byte inside the entry is flipped
// after the checksum is computed, producing a structurally valid but
// content-invalid entry (the shape scenario S6 exercises).
func buildLogEntry(seqNumber uint64, logGUID GUID, dataDescriptors int, breakCrc bool) []byte {
	descriptorBytes := dataDescriptors * logDescriptorSize
	headerAndDescriptors := logEntryHeaderSize + descriptorBytes

	aligned := headerAndDescriptors
	if rem := aligned % fourKiB; rem != 0 {
		aligned += fourKiB - rem
	}

	entryLength := aligned + dataDescriptors*dataSectorSize

	buf := make([]byte, entryLength)

	copy(buf[0:4], "loge")
	// checksum [4:8) filled in at the end
	defaultEncoding.PutUint32(buf[8:12], uint32(entryLength))
	defaultEncoding.PutUint32(buf[12:16], 0) // tail
	defaultEncoding.PutUint64(buf[16:24], seqNumber)
	defaultEncoding.PutUint32(buf[24:28], uint32(dataDescriptors))
	// reserved [28:32)
	copy(buf[32:48], encodeGUIDForTest(logGUID))
	// flushed file offset [48:56), last file offset [56:64) left zero (multiples of 1 MiB)

	cursor := logEntryHeaderSize

	for i := 0; i < dataDescriptors; i++ {
		copy(buf[cursor:cursor+4], "desc")
		// trailing bytes [cursor+4:cursor+8), leading bytes [cursor+8:cursor+16) left zero
		defaultEncoding.PutUint64(buf[cursor+16:cursor+24], uint64(i)*fourKiB)
		defaultEncoding.PutUint64(buf[cursor+24:cursor+32], seqNumber)

		cursor += logDescriptorSize
	}

	cursor = aligned

	for i := 0; i < dataDescriptors; i++ {
		copy(buf[cursor:cursor+4], "data")
		defaultEncoding.PutUint32(buf[cursor+4:cursor+8], uint32(seqNumber>>32))
		// payload [cursor+8:cursor+4092) left zero
		defaultEncoding.PutUint32(buf[cursor+4092:cursor+4096], uint32(seqNumber))

		cursor += dataSectorSize
	}

	checksum := crc32cZeroed(buf, logChecksumFieldOffset, logChecksumFieldLength)
	defaultEncoding.PutUint32(buf[4:8], checksum)

	if breakCrc == true {
		// byte 28 falls in the header's reserved field, so flipping it
		// invalidates the CRC without perturbing any decoded value.
		buf[28] ^= 0xff
	}

	return buf
}

// buildLogEntryWithZero constructs one well-formed log entry containing a
// single Zero descriptor (no Data descriptors, so no trailing DataSector is
// needed) and a correctly computed CRC. The on-disk Zero descriptor layout
// is signature(4) + reserved(4) + zero_length(8) + file_offset(8) +
// seq_number(8) = 32 bytes (§3) — the reserved field sits between the
// signature and zero_length.
func buildLogEntryWithZero(seqNumber uint64, logGUID GUID, zeroLength, zeroFileOffset uint64) []byte {
	headerAndDescriptors := logEntryHeaderSize + logDescriptorSize

	aligned := headerAndDescriptors
	if rem := aligned % fourKiB; rem != 0 {
		aligned += fourKiB - rem
	}

	entryLength := aligned

	buf := make([]byte, entryLength)

	copy(buf[0:4], "loge")
	// checksum [4:8) filled in at the end
	defaultEncoding.PutUint32(buf[8:12], uint32(entryLength))
	defaultEncoding.PutUint32(buf[12:16], 0) // tail
	defaultEncoding.PutUint64(buf[16:24], seqNumber)
	defaultEncoding.PutUint32(buf[24:28], 1) // descriptor count
	// reserved [28:32)
	copy(buf[32:48], encodeGUIDForTest(logGUID))
	// flushed file offset [48:56), last file offset [56:64) left zero

	cursor := logEntryHeaderSize

	copy(buf[cursor:cursor+4], "zero")
	// reserved [cursor+4:cursor+8)
	defaultEncoding.PutUint64(buf[cursor+8:cursor+16], zeroLength)
	defaultEncoding.PutUint64(buf[cursor+16:cursor+24], zeroFileOffset)
	defaultEncoding.PutUint64(buf[cursor+24:cursor+32], seqNumber)

	checksum := crc32cZeroed(buf, logChecksumFieldOffset, logChecksumFieldLength)
	defaultEncoding.PutUint32(buf[4:8], checksum)

	return buf
}

func TestParseLogEntry_ZeroDescriptor(t *testing.T) {
	logGUID := mustGUID("aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa")

	const zeroLength = 8192
	const zeroFileOffset = 4096

	raw := buildLogEntryWithZero(42, logGUID, zeroLength, zeroFileOffset)

	rs := bytes.NewReader(raw)

	entry := parseLogEntry(rs, 0)

	if len(entry.Descriptors) != 1 {
		t.Fatalf("descriptor count not correct: (%d)", len(entry.Descriptors))
	}

	d := entry.Descriptors[0]

	if d.Kind != DescriptorKindZero {
		t.Fatalf("descriptor kind not correct: (%d)", d.Kind)
	}

	if d.ZeroLength != zeroLength {
		t.Fatalf("zero length not correct: (%d)", d.ZeroLength)
	}

	if d.FileOffset != zeroFileOffset {
		t.Fatalf("file offset not correct: (%d)", d.FileOffset)
	}

	if d.SequenceNumber != 42 {
		t.Fatalf("sequence number not correct: (%d)", d.SequenceNumber)
	}

	if entry.valid(logGUID) == false {
		t.Fatalf("entry with a correctly-aligned zero descriptor should be valid")
	}
}

func TestParseLogEntry_Valid(t *testing.T) {
	logGUID := mustGUID("66666666-6666-6666-6666-666666666666")

	raw := buildLogEntry(10, logGUID, 2, false)

	rs := bytes.NewReader(raw)

	entry := parseLogEntry(rs, 0)

	if entry.Header.SequenceNumber != 10 {
		t.Fatalf("sequence number not correct: (%d)", entry.Header.SequenceNumber)
	}

	if len(entry.Descriptors) != 2 {
		t.Fatalf("descriptor count not correct: (%d)", len(entry.Descriptors))
	}

	if len(entry.DataSectors) != 2 {
		t.Fatalf("data sector count not correct: (%d)", len(entry.DataSectors))
	}

	if entry.valid(logGUID) == false {
		t.Fatalf("entry should be valid")
	}
}

func TestParseLogEntry_InvalidWrongLogGuid(t *testing.T) {
	logGUID := mustGUID("77777777-7777-7777-7777-777777777777")
	otherGUID := mustGUID("88888888-8888-8888-8888-888888888888")

	raw := buildLogEntry(1, logGUID, 1, false)

	rs := bytes.NewReader(raw)

	entry := parseLogEntry(rs, 0)

	if entry.valid(otherGUID) == true {
		t.Fatalf("entry should be invalid for a mismatched log GUID")
	}
}

func TestParseLogEntry_InvalidBrokenCrc(t *testing.T) {
	logGUID := mustGUID("99999999-9999-9999-9999-999999999999")

	raw := buildLogEntry(1, logGUID, 1, true)

	rs := bytes.NewReader(raw)

	entry := parseLogEntry(rs, 0)

	if entry.valid(logGUID) == true {
		t.Fatalf("entry with broken CRC should be invalid")
	}
}
