package vhdx

import (
	"testing"
)

func buildFtiSlot(creator string) []byte {
	slot := make([]byte, fileTypeIdentifierSize)
	copy(slot[0:8], "vhdxfile")

	for i, r := range creator {
		slot[8+i*2] = byte(r)
	}

	return slot
}

func TestParseFileTypeIdentifier_Valid(t *testing.T) {
	slot := buildFtiSlot("go-vhdx")

	fti := parseFileTypeIdentifier(slot)

	if fti.Signature != SignatureVhdxFile {
		t.Fatalf("signature not correct: (%s)", fti.Signature)
	}

	if fti.Creator != "go-vhdx" {
		t.Fatalf("creator not correct: [%s]", fti.Creator)
	}
}

func TestParseFileTypeIdentifier_BadMagic(t *testing.T) {
	slot := make([]byte, fileTypeIdentifierSize)
	copy(slot[0:8], "notvhdx!")

	var err error

	func() {
		defer recoverAsError(&err)
		parseFileTypeIdentifier(slot)
	}()

	if err == nil {
		t.Fatalf("expected an error for bad magic")
	}

	ae, ok := err.(*Error)
	if ok == false {
		t.Fatalf("error not of expected type: %v", err)
	}

	if ae.Kind != ErrorKindBadMagic {
		t.Fatalf("wrong error kind: (%s)", ae.Kind)
	}
}
