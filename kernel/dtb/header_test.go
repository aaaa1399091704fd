package dtb

import (
	"testing"

	"rvos/kernel"
)

func putU32BE(buf []byte, off uint32, v uint32) {
	buf[off] = byte(v >> 24)
	buf[off+1] = byte(v >> 16)
	buf[off+2] = byte(v >> 8)
	buf[off+3] = byte(v)
}

func fakeHeaderBytes(magic uint32) []byte {
	buf := make([]byte, headerSize)
	putU32BE(buf, 0, magic)
	putU32BE(buf, 4, 0x1000)  // totalsize
	putU32BE(buf, 8, 0x38)    // off_dt_struct
	putU32BE(buf, 12, 0x900)  // off_dt_strings
	putU32BE(buf, 16, 0x28)   // off_mem_rsvmap
	putU32BE(buf, 20, 17)     // version
	putU32BE(buf, 24, 16)     // last_comp_version
	putU32BE(buf, 28, 0)      // boot_cpuid_phys
	putU32BE(buf, 32, 0x100)  // size_dt_strings
	putU32BE(buf, 36, 0x8c8)  // size_dt_struct
	return buf
}

func TestParseHeaderValid(t *testing.T) {
	buf := fakeHeaderBytes(Magic)
	h, err := parseHeader(buf)
	if err != nil {
		t.Fatalf("parseHeader: %v", err)
	}
	if h.totalSize != 0x1000 || h.offStruct != 0x38 || h.offStrings != 0x900 {
		t.Fatalf("unexpected header fields: %+v", h)
	}
}

func TestParseHeaderBadMagic(t *testing.T) {
	buf := fakeHeaderBytes(0xdeadbeef)
	if _, err := parseHeader(buf); err == nil || err.Code() != kernel.ErrDTBMagicNumber {
		t.Fatalf("expected ErrDTBMagicNumber; got %v", err)
	}
}

func TestParseHeaderTruncated(t *testing.T) {
	buf := fakeHeaderBytes(Magic)[:headerSize-1]
	if _, err := parseHeader(buf); err == nil {
		t.Fatal("expected an error for a truncated header")
	}
}
