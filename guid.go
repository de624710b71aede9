package vhdx

import (
	"encoding/binary"

	"github.com/Microsoft/go-winio/pkg/guid"
)

// GUID is the mixed-endian 128-bit identifier type used throughout the VHDX
// format (region kinds, metadata item IDs, the virtual-disk ID, and the log
// GUID). This is the same struct hcsshim's own GPT reader uses to decode
// Microsoft's on-disk GUID convention, which fits a VHDX reader far better
// than a general-purpose (big-endian) UUID package would.
type GUID = guid.GUID

// nilGUID is the all-zero GUID. A current header whose LogGuid is nil means
// the log is empty or has no valid entries and MUST NOT be replayed (§3,
// §4.12).
var nilGUID GUID

// decodeGUID decodes 16 raw on-disk bytes into a GUID. The first three
// fields are little-endian; the trailing 8-byte field is consumed verbatim,
// matching Microsoft's mixed-endian GUID layout.
func decodeGUID(raw []byte) GUID {
	var data4 [8]byte
	copy(data4[:], raw[8:16])

	return GUID{
		Data1: binary.LittleEndian.Uint32(raw[0:4]),
		Data2: binary.LittleEndian.Uint16(raw[4:6]),
		Data3: binary.LittleEndian.Uint16(raw[6:8]),
		Data4: data4,
	}
}

// mustGUID parses a canonical string-form GUID literal. Used only to build
// the well-known region and metadata-item identifiers in §6.
func mustGUID(s string) GUID {
	g, err := guid.FromString(s)
	if err != nil {
		panic(err)
	}

	return g
}

// Well-known region GUIDs (§6).
var (
	RegionBatGUID      = mustGUID("2DC27766-F623-4200-9D64-115E9BFD4A08")
	RegionMetaDataGUID = mustGUID("8B7CA206-4790-4B9A-B8FE-575F050F886E")
)

// Well-known metadata item GUIDs (§6).
var (
	MetadataFileParametersGUID     = mustGUID("CAA16737-FA36-4D43-B3B6-33F0AA44E76B")
	MetadataVirtualDiskSizeGUID    = mustGUID("2FA54224-CD1B-4876-B211-5DBED83BF4B8")
	MetadataVirtualDiskIDGUID      = mustGUID("BECA12AB-B2E6-4523-93EF-C309E000C746")
	MetadataLogicalSectorSizeGUID  = mustGUID("8141BF1D-A96F-4709-BA47-F233A8FAAB5F")
	MetadataPhysicalSectorSizeGUID = mustGUID("CDA348C7-445D-4471-9CC9-E9885251C556")
	MetadataParentLocatorGUID      = mustGUID("A8D35F2D-B30B-454D-ABF7-D3D84834AB0C")
)
