package vhdx

import (
	"testing"
)

func TestCodec_Integers(t *testing.T) {
	raw := []byte{
		0x01, 0x00, // u16 = 1
		0x02, 0x00, 0x00, 0x00, // u32 = 2
		0x03, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, // u64 = 3
	}

	c := newCodec(raw, 0)

	if v := c.u16(); v != 1 {
		t.Fatalf("u16 not correct: (%d)", v)
	}

	if v := c.u32(); v != 2 {
		t.Fatalf("u32 not correct: (%d)", v)
	}

	if v := c.u64(); v != 3 {
		t.Fatalf("u64 not correct: (%d)", v)
	}
}

func TestCodec_Sig4_Known(t *testing.T) {
	c := newCodec([]byte("head"), 0)

	if s := c.sig4(sig4Table); s != SignatureHead {
		t.Fatalf("signature not correct: (%s)", s)
	}
}

func TestCodec_Sig4_Unknown(t *testing.T) {
	c := newCodec([]byte("xxxx"), 0)

	if s := c.sig4(sig4Table); s != SignatureUnknown {
		t.Fatalf("signature should be unknown: (%s)", s)
	}
}

func TestCodec_Sig8_Known(t *testing.T) {
	c := newCodec([]byte("metadata"), 0)

	if s := c.sig8(sig8Table); s != SignatureMetadata {
		t.Fatalf("signature not correct: (%s)", s)
	}
}

func TestCodec_Take_Underrun(t *testing.T) {
	var err error

	func() {
		defer recoverAsError(&err)

		c := newCodec([]byte{0x01}, 0)
		c.u32()
	}()

	if err == nil {
		t.Fatalf("expected a panic for a short buffer")
	}
}

func TestCodec_CreatorString_TrimsTrailingNulls(t *testing.T) {
	raw := make([]byte, 512)

	// "hi" in UTF-16LE, rest left as zero (NUL) code units.
	raw[0] = 'h'
	raw[2] = 'i'

	c := newCodec(raw, 0)

	if s := c.creatorString(); s != "hi" {
		t.Fatalf("creator string not correct: [%s]", s)
	}
}

func TestCodec_CurrentOffset(t *testing.T) {
	c := newCodec([]byte{0, 0, 0, 0, 0, 0, 0, 0}, 100)

	c.u32()

	if off := c.currentOffset(); off != 104 {
		t.Fatalf("current offset not correct: (%d)", off)
	}
}
