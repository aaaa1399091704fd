// Package dtb parses the flattened device tree (FDT) firmware hands the
// kernel at boot: a two-pass parser builds a node/property graph from the
// raw token stream (pass 1), then a typed rewrite pass turns well-known
// property names from opaque byte strings into the values they describe
// (pass 2).
package dtb

import "rvos/kernel"

// Magic is the big-endian value every valid FDT blob starts with.
const Magic uint32 = 0xD00DFEED

// headerSize is the byte length of the ten big-endian u32 header fields.
const headerSize = 40

// header mirrors the FDT header. Every field is big-endian in the blob;
// parseHeader flips them to host order.
type header struct {
	magic           uint32
	totalSize       uint32
	offStruct       uint32
	offStrings      uint32
	offMemRsvMap    uint32
	version         uint32
	lastCompVersion uint32
	bootCPUIDPhys   uint32
	sizeStrings     uint32
	sizeStruct      uint32
}

func readU32BE(buf []byte, off uint32) uint32 {
	return uint32(buf[off])<<24 | uint32(buf[off+1])<<16 | uint32(buf[off+2])<<8 | uint32(buf[off+3])
}

func readU64BE(buf []byte, off uint32) uint64 {
	return uint64(readU32BE(buf, off))<<32 | uint64(readU32BE(buf, off+4))
}

// parseHeader validates the magic number and decodes the fixed-size header
// at the start of buf.
func parseHeader(buf []byte) (*header, *kernel.Error) {
	if len(buf) < headerSize {
		return nil, kernel.NewError("dtb", kernel.ErrDTBMagicNumber)
	}

	h := &header{
		magic:           readU32BE(buf, 0),
		totalSize:       readU32BE(buf, 4),
		offStruct:       readU32BE(buf, 8),
		offStrings:      readU32BE(buf, 12),
		offMemRsvMap:    readU32BE(buf, 16),
		version:         readU32BE(buf, 20),
		lastCompVersion: readU32BE(buf, 24),
		bootCPUIDPhys:   readU32BE(buf, 28),
		sizeStrings:     readU32BE(buf, 32),
		sizeStruct:      readU32BE(buf, 36),
	}

	if h.magic != Magic {
		return nil, kernel.NewError("dtb", kernel.ErrDTBMagicNumber)
	}

	return h, nil
}
