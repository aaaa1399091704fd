package dtb

// blobBuilder assembles a minimal in-memory flattened device tree blob for
// tests, so parseBlob can be exercised without any real firmware image.
type blobBuilder struct {
	structBlock []byte
	stringsBlock []byte
	stringOffset map[string]uint32
	reserved     []byte
}

func newBlobBuilder() *blobBuilder {
	return &blobBuilder{stringOffset: map[string]uint32{}}
}

func (b *blobBuilder) putU32(v uint32) {
	var tmp [4]byte
	putU32BE(tmp[:], 0, v)
	b.structBlock = append(b.structBlock, tmp[:]...)
}

func (b *blobBuilder) padTo4() {
	for len(b.structBlock)%4 != 0 {
		b.structBlock = append(b.structBlock, 0)
	}
}

func (b *blobBuilder) beginNode(name string) {
	b.putU32(tokenBeginNode)
	b.structBlock = append(b.structBlock, name...)
	b.structBlock = append(b.structBlock, 0)
	b.padTo4()
}

func (b *blobBuilder) endNode() {
	b.putU32(tokenEndNode)
}

func (b *blobBuilder) internString(name string) uint32 {
	if off, ok := b.stringOffset[name]; ok {
		return off
	}
	off := uint32(len(b.stringsBlock))
	b.stringsBlock = append(b.stringsBlock, name...)
	b.stringsBlock = append(b.stringsBlock, 0)
	b.stringOffset[name] = off
	return off
}

func (b *blobBuilder) prop(name string, value []byte) {
	b.putU32(tokenProp)
	b.putU32(uint32(len(value)))
	b.putU32(b.internString(name))
	b.structBlock = append(b.structBlock, value...)
	b.padTo4()
}

func (b *blobBuilder) propU32(name string, v uint32) {
	var tmp [4]byte
	putU32BE(tmp[:], 0, v)
	b.prop(name, tmp[:])
}

func (b *blobBuilder) propString(name, s string) {
	b.prop(name, append([]byte(s), 0))
}

func (b *blobBuilder) nop() {
	b.putU32(tokenNOP)
}

func (b *blobBuilder) reserve(addr, size uint64) {
	var tmp [16]byte
	putU64BE(tmp[:], 0, addr)
	putU64BE(tmp[:], 8, size)
	b.reserved = append(b.reserved, tmp[:]...)
}

// build assembles the header and full blob byte slice, given pass 1 has
// already emitted FDT_END (callers append it themselves so that malformed
// input can be tested too).
func (b *blobBuilder) build() ([]byte, *header) {
	var tmp [16]byte
	b.reserved = append(b.reserved, tmp[:]...) // (0,0) sentinel

	const headerLen = headerSize
	rsvOff := uint32(headerLen)
	structOff := rsvOff + uint32(len(b.reserved))
	stringsOff := structOff + uint32(len(b.structBlock))
	total := stringsOff + uint32(len(b.stringsBlock))

	blob := make([]byte, total)
	putU32BE(blob, 0, Magic)
	putU32BE(blob, 4, total)
	putU32BE(blob, 8, structOff)
	putU32BE(blob, 12, stringsOff)
	putU32BE(blob, 16, rsvOff)
	putU32BE(blob, 20, 17)
	putU32BE(blob, 24, 16)
	putU32BE(blob, 28, 0)
	putU32BE(blob, 32, uint32(len(b.stringsBlock)))
	putU32BE(blob, 36, uint32(len(b.structBlock)))

	copy(blob[rsvOff:], b.reserved)
	copy(blob[structOff:], b.structBlock)
	copy(blob[stringsOff:], b.stringsBlock)

	hdr := &header{
		magic:        Magic,
		totalSize:    total,
		offStruct:    structOff,
		offStrings:   stringsOff,
		offMemRsvMap: rsvOff,
		version:      17,
		sizeStrings:  uint32(len(b.stringsBlock)),
		sizeStruct:   uint32(len(b.structBlock)),
	}
	return blob, hdr
}

func putU64BE(buf []byte, off uint32, v uint64) {
	putU32BE(buf, off, uint32(v>>32))
	putU32BE(buf, off+4, uint32(v))
}
