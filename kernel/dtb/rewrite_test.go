package dtb

import (
	"testing"

	"rvos/kernel"
)

func parseAndRewrite(t *testing.T, b *blobBuilder) *Node {
	t.Helper()
	root, err := parseStruct(b.structBlock, b.stringsBlock, newTestArena(t))
	if err != nil {
		t.Fatalf("parseStruct: %v", err)
	}
	if err := rewrite(root); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	return root
}

func TestRewriteCompatible(t *testing.T) {
	b := newBlobBuilder()
	b.beginNode("")
	compat := append([]byte("acme,widget"), 0)
	compat = append(compat, []byte("acme,generic")...)
	compat = append(compat, 0)
	b.prop("compatible", compat)
	b.endNode()
	b.putU32(tokenEnd)

	root := parseAndRewrite(t, b)
	p := root.Property("compatible")
	if p == nil || p.Type != PropCompatible {
		t.Fatalf("expected a rewritten COMPATIBLE property; got %+v", p)
	}
	if len(p.Compatible) != 2 || p.Compatible[0] != "acme,widget" || p.Compatible[1] != "acme,generic" {
		t.Fatalf("unexpected compatible strings: %v", p.Compatible)
	}
}

func TestRewriteStatusValues(t *testing.T) {
	cases := []struct {
		raw    string
		status StatusValue
		reason string
	}{
		{"okay", StatusOK, ""},
		{"disabled", StatusDisabled, ""},
		{"reserved", StatusReserved, ""},
		{"fail", StatusFail, ""},
		{"fail-sss", StatusFailWithReason, "sss"},
	}

	for _, c := range cases {
		b := newBlobBuilder()
		b.beginNode("")
		b.propString("status", c.raw)
		b.endNode()
		b.putU32(tokenEnd)

		root := parseAndRewrite(t, b)
		p := root.Property("status")
		if p == nil || p.Type != PropStatus {
			t.Fatalf("%s: expected a rewritten STATUS property; got %+v", c.raw, p)
		}
		if p.Status != c.status {
			t.Fatalf("%s: expected status %v; got %v", c.raw, c.status, p.Status)
		}
		if p.StatusReason != c.reason {
			t.Fatalf("%s: expected reason %q; got %q", c.raw, c.reason, p.StatusReason)
		}
	}
}

func TestRewriteStatusInvalidIsFatal(t *testing.T) {
	b := newBlobBuilder()
	b.beginNode("")
	b.propString("status", "bogus")
	b.endNode()
	b.putU32(tokenEnd)

	root, err := parseStruct(b.structBlock, b.stringsBlock, newTestArena(t))
	if err != nil {
		t.Fatalf("parseStruct: %v", err)
	}
	if err := rewrite(root); err == nil {
		t.Fatal("expected an unrecognized status value to fail rewrite")
	}
}

func TestRewriteAddressCellsTooLarge(t *testing.T) {
	b := newBlobBuilder()
	b.beginNode("")
	b.propU32("#address-cells", 4)
	b.endNode()
	b.putU32(tokenEnd)

	root, err := parseStruct(b.structBlock, b.stringsBlock, newTestArena(t))
	if err != nil {
		t.Fatalf("parseStruct: %v", err)
	}
	if err := rewrite(root); err == nil || err.Code() != kernel.ErrDTBAddressCellsTooLarge {
		t.Fatalf("expected ErrDTBAddressCellsTooLarge; got %v", err)
	}
}

func TestRewriteSizeCellsTooLarge(t *testing.T) {
	b := newBlobBuilder()
	b.beginNode("")
	b.propU32("#size-cells", 3)
	b.endNode()
	b.putU32(tokenEnd)

	root, err := parseStruct(b.structBlock, b.stringsBlock, newTestArena(t))
	if err != nil {
		t.Fatalf("parseStruct: %v", err)
	}
	if err := rewrite(root); err == nil || err.Code() != kernel.ErrDTBSizeCellsTooLarge {
		t.Fatalf("expected ErrDTBSizeCellsTooLarge; got %v", err)
	}
}

// TestRewriteRegInheritsParentCells reproduces the spec's reg-rewrite
// scenario: a parent declaring #address-cells=2 #size-cells=1, and a child
// whose reg property must be decoded at that width.
func TestRewriteRegInheritsParentCells(t *testing.T) {
	b := newBlobBuilder()
	b.beginNode("")
	b.propU32("#address-cells", 2)
	b.propU32("#size-cells", 1)
	b.beginNode("memory@80000000")
	regValue := make([]byte, 0, 12)
	regValue = append(regValue, 0, 0, 0, 0) // address hi
	regValue = append(regValue, 0x80, 0, 0, 0) // address lo
	regValue = append(regValue, 0x10, 0, 0, 0) // size
	b.prop("reg", regValue)
	b.endNode()
	b.endNode()
	b.putU32(tokenEnd)

	root := parseAndRewrite(t, b)
	mem := root.Children
	if mem == nil || mem.Name != "memory@80000000" {
		t.Fatalf("expected a memory@80000000 child; got %+v", mem)
	}

	reg := mem.Property("reg")
	if reg == nil || reg.Type != PropReg {
		t.Fatalf("expected a rewritten REG property; got %+v", reg)
	}
	if len(reg.Reg) != 1 {
		t.Fatalf("expected exactly one (address, size) pair; got %d", len(reg.Reg))
	}
	if reg.Reg[0].Address.Lo != 0x80000000 {
		t.Fatalf("expected address 0x80000000; got %x", reg.Reg[0].Address.Lo)
	}
	if reg.Reg[0].Size.Lo != 0x10000000 {
		t.Fatalf("expected size 0x10000000; got %x", reg.Reg[0].Size.Lo)
	}
}

func TestRewriteDMACoherent(t *testing.T) {
	b := newBlobBuilder()
	b.beginNode("")
	b.prop("dma-coherent", nil)
	b.endNode()
	b.putU32(tokenEnd)

	root := parseAndRewrite(t, b)
	p := root.Property("dma-coherent")
	if p == nil || p.Type != PropDMACoherence || !p.DMACoherent {
		t.Fatalf("expected a true DMA_COHERENCE property; got %+v", p)
	}
}

func TestRewriteUnknownPropertyStaysRaw(t *testing.T) {
	b := newBlobBuilder()
	b.beginNode("")
	b.propString("some-vendor,custom-prop", "hello")
	b.endNode()
	b.putU32(tokenEnd)

	root := parseAndRewrite(t, b)
	p := root.Property("some-vendor,custom-prop")
	if p == nil || p.Type != PropRaw {
		t.Fatalf("expected an unrecognized property to stay RAW; got %+v", p)
	}
}

func TestRewritePropagatesCellsToGrandchildren(t *testing.T) {
	b := newBlobBuilder()
	b.beginNode("")
	b.propU32("#address-cells", 1)
	b.propU32("#size-cells", 1)
	b.beginNode("soc")
	b.beginNode("bus@0")
	regValue := make([]byte, 0, 8)
	regValue = append(regValue, 0, 0, 0, 0x10)
	regValue = append(regValue, 0, 0, 0, 4)
	b.prop("reg", regValue)
	b.endNode()
	b.endNode()
	b.endNode()
	b.putU32(tokenEnd)

	root := parseAndRewrite(t, b)
	bus := root.Children.Children
	if bus == nil || bus.Name != "bus@0" {
		t.Fatalf("expected a bus@0 grandchild; got %+v", bus)
	}
	reg := bus.Property("reg")
	if reg == nil || reg.Type != PropReg || len(reg.Reg) != 1 {
		t.Fatalf("expected a rewritten single-entry REG property; got %+v", reg)
	}
	if reg.Reg[0].Address.Lo != 0x10 || reg.Reg[0].Size.Lo != 4 {
		t.Fatalf("unexpected reg decode: %+v", reg.Reg[0])
	}
}
