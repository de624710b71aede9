package vhdx

import (
	"io"
)

const (
	logEntryHeaderSize = 64
	logDescriptorSize  = 32
	dataSectorSize     = 4096
	fourKiB            = 4096

	logChecksumFieldOffset = 4
	logChecksumFieldLength = 4
)

// LogEntryHeader is the fixed 64-byte header at the start of every log entry
// (§3, §4.10).
type LogEntryHeader struct {
	Signature         Signature
	Checksum          uint32
	EntryLength       uint32
	Tail              uint32
	SequenceNumber    uint64
	DescriptorCount   uint32
	LogGUID           GUID
	FlushedFileOffset uint64
	LastFileOffset    uint64
}

// DescriptorKind tags the two log-descriptor variants (§3).
type DescriptorKind int

const (
	DescriptorKindZero DescriptorKind = iota
	DescriptorKindData
)

// Descriptor is one 32-byte log sub-record. For Zero descriptors ZeroLength
// is populated and TrailingBytes/LeadingBytes are unused; for Data
// descriptors the reverse.
type Descriptor struct {
	Kind           DescriptorKind
	ZeroLength     uint64
	TrailingBytes  [4]byte
	LeadingBytes   [8]byte
	FileOffset     uint64
	SequenceNumber uint64
}

// DataSector is a 4096-byte payload sector trailing a log entry's descriptor
// array, one per Data descriptor (§3).
type DataSector struct {
	SeqHigh uint32
	Payload [4084]byte
	SeqLow  uint32
}

// SequenceNumber composes the split 64-bit sequence number a DataSector
// carries (§3).
func (d DataSector) SequenceNumber() uint64 {
	return uint64(d.SeqHigh)<<32 | uint64(d.SeqLow)
}

// LogEntry is one fully decoded log entry: header, descriptors, and their
// associated data sectors in descriptor order (§3, §4.10).
//
// Decoding a LogEntry only fails (panics) when the bytes cannot be located
// or framed at all: a short read, a malformed alignment field, a zero
// sequence number, or a descriptor/data-sector signature the format doesn't
// define. The content
// checks §4.12 folds into the replay-selection predicate — log GUID match,
// checksum match, descriptor/data-sector sequence-number agreement with the
// header — are deliberately NOT fatal here, since a corrupt tail entry must
// not abort the whole scan (§4.11, §4.12, scenario S6). They are exposed via
// valid() instead.
type LogEntry struct {
	Offset           int64
	Header           LogEntryHeader
	Descriptors      []Descriptor
	DataSectors      []DataSector
	ComputedChecksum uint32
}

// valid implements the §4.12 entry-validity predicate: header signature is
// "loge", the header's log GUID matches logGUID, the recomputed CRC matches
// the stored checksum, every descriptor's sequence number matches the
// header's, and every data sector's composed sequence number matches the
// header's.
func (e LogEntry) valid(logGUID GUID) bool {
	if e.Header.Signature != SignatureLoge {
		return false
	}

	if e.Header.LogGUID != logGUID {
		return false
	}

	if e.ComputedChecksum != e.Header.Checksum {
		return false
	}

	for _, d := range e.Descriptors {
		if d.SequenceNumber != e.Header.SequenceNumber {
			return false
		}
	}

	for _, s := range e.DataSectors {
		if s.SequenceNumber() != e.Header.SequenceNumber {
			return false
		}
	}

	return true
}

// parseLogEntry decodes one log entry starting at entryOffset within rs. The
// caller is expected to have already peeked the 4-byte "loge" signature.
func parseLogEntry(rs io.ReadSeeker, entryOffset int64) LogEntry {
	headerBuf := make([]byte, logEntryHeaderSize)

	_, err := rs.Seek(entryOffset, io.SeekStart)
	if err != nil {
		panicWithError(ErrorKindIo, entryOffset, "seek to log entry failed: %s", err)
	}

	_, err = io.ReadFull(rs, headerBuf)
	if err != nil {
		panicWithError(ErrorKindIo, entryOffset, "read log-entry header failed: %s", err)
	}

	hc := newCodec(headerBuf, entryOffset)

	signature := hc.sig4(sig4Table)

	checksum := hc.u32()
	entryLength := hc.u32()
	tail := hc.u32()
	seqNumber := hc.u64()
	descriptorCount := hc.u32()
	hc.take(4) // reserved
	logGUID := hc.guid()
	flushedFileOffset := hc.u64()
	lastFileOffset := hc.u64()

	if entryLength%fourKiB != 0 {
		panicWithError(ErrorKindBadAlignment, entryOffset, "log-entry length not a multiple of 4096: (%d)", entryLength)
	}

	if tail%fourKiB != 0 {
		panicWithError(ErrorKindBadAlignment, entryOffset, "log-entry tail not a multiple of 4096: (%d)", tail)
	}

	if flushedFileOffset%oneMiB != 0 {
		panicWithError(ErrorKindBadAlignment, entryOffset, "log-entry flushed file offset not a multiple of 1 MiB: (%d)", flushedFileOffset)
	}

	if lastFileOffset%oneMiB != 0 {
		panicWithError(ErrorKindBadAlignment, entryOffset, "log-entry last file offset not a multiple of 1 MiB: (%d)", lastFileOffset)
	}

	if seqNumber == 0 {
		panicWithError(ErrorKindBadAlignment, entryOffset, "log-entry sequence number is zero")
	}

	header := LogEntryHeader{
		Signature:         signature,
		Checksum:          checksum,
		EntryLength:       entryLength,
		Tail:              tail,
		SequenceNumber:    seqNumber,
		DescriptorCount:   descriptorCount,
		LogGUID:           logGUID,
		FlushedFileOffset: flushedFileOffset,
		LastFileOffset:    lastFileOffset,
	}

	entryBuf := make([]byte, entryLength)
	copy(entryBuf, headerBuf)

	_, err = io.ReadFull(rs, entryBuf[logEntryHeaderSize:])
	if err != nil {
		panicWithError(ErrorKindIo, entryOffset, "read log entry body failed: %s", err)
	}

	descriptors := make([]Descriptor, descriptorCount)

	cursor := logEntryHeaderSize

	for i := uint32(0); i < descriptorCount; i++ {
		descOffset := entryOffset + int64(cursor)

		dc := newCodec(entryBuf[cursor:cursor+logDescriptorSize], descOffset)

		sig := dc.sig4(sig4Table)

		var d Descriptor

		switch sig {
		case SignatureZero:
			d.Kind = DescriptorKindZero
			dc.take(4) // reserved
			d.ZeroLength = dc.u64()
			d.FileOffset = dc.u64()
			d.SequenceNumber = dc.u64()
		case SignatureDesc:
			d.Kind = DescriptorKindData
			copy(d.TrailingBytes[:], dc.take(4))
			copy(d.LeadingBytes[:], dc.take(8))
			d.FileOffset = dc.u64()
			d.SequenceNumber = dc.u64()
		default:
			panicWithError(ErrorKindBadDescriptor, descOffset, "unrecognized log-descriptor signature")
		}

		descriptors[i] = d
		cursor += logDescriptorSize
	}

	// advance to the next 4-KiB boundary relative to the entry start (§4.10)
	if rem := cursor % fourKiB; rem != 0 {
		cursor += fourKiB - rem
	}

	dataSectors := make([]DataSector, 0, descriptorCount)

	for _, d := range descriptors {
		if d.Kind != DescriptorKindData {
			continue
		}

		sectorOffset := entryOffset + int64(cursor)

		if cursor+dataSectorSize > len(entryBuf) {
			panicWithError(ErrorKindBadDataSector, sectorOffset, "data sector extends beyond log entry")
		}

		sc := newCodec(entryBuf[cursor:cursor+dataSectorSize], sectorOffset)

		dataSig := sc.sig4(sig4Table)
		if dataSig != SignatureData {
			panicWithError(ErrorKindBadDataSector, sectorOffset, "data-sector signature not correct")
		}

		seqHigh := sc.u32()
		payloadRaw := sc.take(4084)

		var sector DataSector
		sector.SeqHigh = seqHigh
		copy(sector.Payload[:], payloadRaw)
		sector.SeqLow = sc.u32()

		dataSectors = append(dataSectors, sector)
		cursor += dataSectorSize
	}

	computedChecksum := crc32cZeroed(entryBuf, logChecksumFieldOffset, logChecksumFieldLength)

	return LogEntry{
		Offset:           entryOffset,
		Header:           header,
		Descriptors:      descriptors,
		DataSectors:      dataSectors,
		ComputedChecksum: computedChecksum,
	}
}
