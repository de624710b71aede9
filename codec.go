// This package manages the low-level, on-disk storage structures of a VHDX
// (virtual hard disk v2) container.

package vhdx

import (
	"encoding/binary"
	"unicode/utf16"

	"github.com/dsoprea/go-logging"
)

// defaultEncoding is the byte order used throughout the VHDX format. Every
// multi-byte integer on disk is little-endian.
var defaultEncoding = binary.LittleEndian

// Signature is a closed enumeration of the raw ASCII byte-strings that tag
// the structures this package decodes. An unrecognized run of bytes decodes
// to SignatureUnknown rather than failing, so that callers can peek a
// signature and branch without the parse itself failing (§4.1/§4.11).
type Signature int

const (
	SignatureUnknown Signature = iota
	SignatureVhdxFile
	SignatureHead
	SignatureRegi
	SignatureLoge
	SignatureDesc
	SignatureZero
	SignatureData
	SignatureMetadata
)

func (s Signature) String() string {
	switch s {
	case SignatureVhdxFile:
		return "vhdxfile"
	case SignatureHead:
		return "head"
	case SignatureRegi:
		return "regi"
	case SignatureLoge:
		return "loge"
	case SignatureDesc:
		return "desc"
	case SignatureZero:
		return "zero"
	case SignatureData:
		return "data"
	case SignatureMetadata:
		return "metadata"
	default:
		return "unknown"
	}
}

// codec is a small cursor over a byte-slice that the fixed-region decoders
// use to pull out little-endian integers, signatures, and strings. Every
// read method panics via log.Panicf when the cursor is short; the panic value
// is a go-logging error, not a typed *Error, so it carries no Kind or Offset
// field (the offset appears only in its message). Callers at an exported
// boundary recover and convert back to a normal returned error, the same
// discipline the teacher package uses in ExfatReader.parseN.
type codec struct {
	raw    []byte
	offset int64
	pos    int
}

// newCodec wraps a byte-slice for sequential decoding. offset is the
// absolute file offset that raw[0] corresponds to, and is only used to
// annotate errors.
func newCodec(raw []byte, offset int64) *codec {
	return &codec{raw: raw, offset: offset}
}

func (c *codec) currentOffset() int64 {
	return c.offset + int64(c.pos)
}

func (c *codec) take(n int) []byte {
	if c.pos+n > len(c.raw) {
		log.Panicf("buffer underrun at offset (%d): need (%d) bytes, have (%d)", c.currentOffset(), n, len(c.raw)-c.pos)
	}

	b := c.raw[c.pos : c.pos+n]
	c.pos += n

	return b
}

func (c *codec) u16() uint16 {
	return defaultEncoding.Uint16(c.take(2))
}

func (c *codec) u32() uint32 {
	return defaultEncoding.Uint32(c.take(4))
}

func (c *codec) u64() uint64 {
	return defaultEncoding.Uint64(c.take(8))
}

// sig8 reads an 8-byte signature, used only by the file-type identifier and
// metadata-table headers.
func (c *codec) sig8(known map[string]Signature) Signature {
	raw := c.take(8)
	if s, found := known[string(raw)]; found == true {
		return s
	}

	return SignatureUnknown
}

// sig4 reads a 4-byte signature, used by headers, region tables, and all
// log structures.
func (c *codec) sig4(known map[string]Signature) Signature {
	raw := c.take(4)
	if s, found := known[string(raw)]; found == true {
		return s
	}

	return SignatureUnknown
}

// guid reads a 16-byte mixed-endian GUID (§3: three little-endian leading
// fields, two big-endian trailing fields, matching Microsoft's on-disk
// convention).
func (c *codec) guid() GUID {
	return decodeGUID(c.take(16))
}

// creatorString reads the 512-byte (256 UTF-16LE code unit) creator field of
// the file-type identifier, trimming trailing NUL code units the way the
// teacher package's UnicodeFromAscii trims a Unicode volume-label field.
func (c *codec) creatorString() string {
	raw := c.take(512)

	codeUnits := make([]uint16, 256)
	for i := 0; i < 256; i++ {
		codeUnits[i] = defaultEncoding.Uint16(raw[i*2 : i*2+2])
	}

	trimmed := 256
	for trimmed > 0 && codeUnits[trimmed-1] == 0 {
		trimmed--
	}

	return string(utf16.Decode(codeUnits[:trimmed]))
}

var (
	sig8Table = map[string]Signature{
		"vhdxfile": SignatureVhdxFile,
		"metadata": SignatureMetadata,
	}

	sig4Table = map[string]Signature{
		"head": SignatureHead,
		"regi": SignatureRegi,
		"loge": SignatureLoge,
		"desc": SignatureDesc,
		"zero": SignatureZero,
		"data": SignatureData,
	}
)
