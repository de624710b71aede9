package vhdx

const (
	oneMiB = 1024 * 1024

	// headerSlotSize is the 64-KiB aligned slot each header occupies; only
	// the first 4 KiB of the slot carries the header structure itself (§3).
	headerSlotSize   = 64 * 1024
	headerStructSize = 4 * 1024

	headerChecksumFieldOffset = 4
	headerChecksumFieldLength = 4

	requiredVersion    = 1
	requiredLogVersion = 0
)

// Header is one of the two redundant 4-KiB header structures (§3).
type Header struct {
	Signature      Signature
	Checksum       uint32
	SequenceNumber uint64
	FileWriteGUID  GUID
	DataWriteGUID  GUID
	LogGUID        GUID
	LogVersion     uint16
	Version        uint16
	LogLength      uint32
	LogOffset      uint64
}

// HeaderValidation carries a decoded header plus whether it passed every
// check in §4.4. Validation failure is not itself an error — election
// (§4.6) decides whether the container can proceed.
type HeaderValidation struct {
	Header Header
	Valid  bool
	Reason string
}

// parseHeaderSlot decodes a 64-KiB header slot and validates it per §4.4:
// signature, CRC (with the checksum field zeroed), version, log version,
// and the "log length/offset are multiples of 1 MiB" alignment rule.
func parseHeaderSlot(slot []byte, slotOffset int64) HeaderValidation {
	if len(slot) < headerStructSize {
		panicWithError(ErrorKindIo, slotOffset, "header slot shorter than (%d) bytes", headerStructSize)
	}

	blob := slot[:headerStructSize]

	c := newCodec(blob, slotOffset)

	signature := c.sig4(sig4Table)
	checksum := c.u32()
	seqNumber := c.u64()
	fileWriteGUID := c.guid()
	dataWriteGUID := c.guid()
	logGUID := c.guid()
	logVersion := c.u16()
	version := c.u16()
	logLength := c.u32()
	logOffset := c.u64()

	h := Header{
		Signature:      signature,
		Checksum:       checksum,
		SequenceNumber: seqNumber,
		FileWriteGUID:  fileWriteGUID,
		DataWriteGUID:  dataWriteGUID,
		LogGUID:        logGUID,
		LogVersion:     logVersion,
		Version:        version,
		LogLength:      logLength,
		LogOffset:      logOffset,
	}

	if signature != SignatureHead {
		return HeaderValidation{Header: h, Valid: false, Reason: "bad signature"}
	}

	computedChecksum := crc32cZeroed(blob, headerChecksumFieldOffset, headerChecksumFieldLength)
	if computedChecksum != checksum {
		return HeaderValidation{Header: h, Valid: false, Reason: "bad checksum"}
	}

	if version != requiredVersion {
		return HeaderValidation{Header: h, Valid: false, Reason: "bad version"}
	}

	if logVersion != requiredLogVersion {
		return HeaderValidation{Header: h, Valid: false, Reason: "bad log version"}
	}

	if logLength%oneMiB != 0 {
		return HeaderValidation{Header: h, Valid: false, Reason: "log length not a multiple of 1 MiB"}
	}

	if logOffset%oneMiB != 0 {
		return HeaderValidation{Header: h, Valid: false, Reason: "log offset not a multiple of 1 MiB"}
	}

	return HeaderValidation{Header: h, Valid: true}
}

// electCurrentHeader picks the current header from (h1, h2) per §4.6:
//
//  1. both invalid -> NoValidHeader (fatal)
//  2. exactly one valid -> that one
//  3. both valid -> the one with the strictly greater sequence number
//  4. tie -> header 1 deterministically
func electCurrentHeader(h1, h2 HeaderValidation) Header {
	if h1.Valid == false && h2.Valid == false {
		panicWithError(ErrorKindNoValidHeader, 0, "neither header validated: [%s] [%s]", h1.Reason, h2.Reason)
	}

	if h1.Valid == true && h2.Valid == false {
		return h1.Header
	}

	if h1.Valid == false && h2.Valid == true {
		return h2.Header
	}

	if h2.Header.SequenceNumber > h1.Header.SequenceNumber {
		return h2.Header
	}

	return h1.Header
}
