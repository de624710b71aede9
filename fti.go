package vhdx

// fileTypeIdentifierSize is the fixed 64-KiB region the file-type identifier
// occupies at the start of every VHDX file (§3, §6).
const fileTypeIdentifierSize = 64 * 1024

// FileTypeIdentifier is the first structure in a VHDX file: the "vhdxfile"
// magic plus a free-form UTF-16LE creator string (§3).
type FileTypeIdentifier struct {
	Signature Signature
	Creator   string
}

// parseFileTypeIdentifier decodes the 64-KiB FTI slot. Only the first 520
// bytes (8-byte signature + 512-byte creator string) are interpreted; the
// remainder of the slot is padding that the caller has already read as part
// of the fixed-size slot (§4.3).
func parseFileTypeIdentifier(slot []byte) (fti FileTypeIdentifier) {
	c := newCodec(slot, 0)

	signature := c.sig8(sig8Table)
	if signature != SignatureVhdxFile {
		panicWithError(ErrorKindBadMagic, 0, "file-type identifier signature not correct: expected [vhdxfile]")
	}

	creator := c.creatorString()

	return FileTypeIdentifier{
		Signature: signature,
		Creator:   creator,
	}
}
