package dtb

import (
	"rvos/kernel"
	"rvos/kernel/hal"
	"rvos/kernel/kfmt/early"
)

// nolint
const (
	defaultAddressCells = 2
	defaultSizeCells    = 1
	maxAddressCells     = 3
	maxSizeCells        = 2
)

// rewrite performs pass 2, the typed property rewrite, starting at root
// with the default root cell widths (#address-cells=2, #size-cells=1 when
// the blob doesn't override them).
func rewrite(root *Node) *kernel.Error {
	return rewriteNode(root, defaultAddressCells, defaultSizeCells)
}

// rewriteNode dispatches every RAW property on n by literal name match,
// then recurses into n's children carrying whichever #address-cells and
// #size-cells n itself declares (falling back to the cells inherited from
// n's own parent, passed in as addressCells/sizeCells, if n declares
// neither).
func rewriteNode(n *Node, addressCells, sizeCells uint32) *kernel.Error {
	n.addressCells = addressCells
	n.sizeCells = sizeCells

	childAddressCells, childSizeCells := addressCells, sizeCells

	for p := n.Properties; p != nil; p = p.Next {
		if p.Type != PropRaw {
			continue
		}

		switch p.Name {
		case "compatible":
			p.Compatible = splitNULStrings(p.Raw)
			p.Type = PropCompatible

		case "model":
			p.Model = trimTrailingNUL(string(p.Raw))
			p.Type = PropModel

		case "phandle", "linux,phandle":
			if len(p.Raw) < 4 {
				return kernel.NewError("dtb", kernel.ErrDTBRewriteFailed)
			}
			p.Phandle = readU32BE(p.Raw, 0)
			p.Type = PropPhandle

		case "status":
			if err := rewriteStatus(p); err != nil {
				return err
			}

		case "#address-cells":
			if len(p.Raw) < 4 {
				return kernel.NewError("dtb", kernel.ErrDTBRewriteFailed)
			}
			v := readU32BE(p.Raw, 0)
			if v > maxAddressCells {
				return kernel.NewError("dtb", kernel.ErrDTBAddressCellsTooLarge)
			}
			p.AddressCells = v
			p.Type = PropAddressCells
			childAddressCells = v

		case "#size-cells":
			if len(p.Raw) < 4 {
				return kernel.NewError("dtb", kernel.ErrDTBRewriteFailed)
			}
			v := readU32BE(p.Raw, 0)
			if v > maxSizeCells {
				return kernel.NewError("dtb", kernel.ErrDTBSizeCellsTooLarge)
			}
			p.SizeCells = v
			p.Type = PropSizeCells
			childSizeCells = v

		case "dma-coherent":
			p.DMACoherent = true
			p.Type = PropDMACoherence

		case "dma-noncoherent":
			p.DMACoherent = false
			p.Type = PropDMACoherence

		case "device_type":
			p.DeviceType = trimTrailingNUL(string(p.Raw))
			p.Type = PropDeviceType

		case "reg":
			entries, err := decodeReg(p.Raw, addressCells, sizeCells)
			if err != nil {
				return err
			}
			p.Reg = entries
			p.Type = PropReg

		case "ranges":
			entries, err := decodeRanges(p.Raw, addressCells, sizeCells)
			if err != nil {
				return err
			}
			p.Ranges = entries
			p.Type = PropRanges

		case "dma-ranges":
			entries, err := decodeRanges(p.Raw, addressCells, sizeCells)
			if err != nil {
				return err
			}
			p.Ranges = entries
			p.Type = PropDMARanges

		default:
			// Left as RAW, with a diagnostic naming the property.
			if hal.ActiveConsole != nil {
				early.Printf("dtb: property %s left raw\n", p.Name)
			}
		}
	}

	for child := n.Children; child != nil; child = child.Sibling {
		if err := rewriteNode(child, childAddressCells, childSizeCells); err != nil {
			return err
		}
	}
	return nil
}

func trimTrailingNUL(s string) string {
	if n := len(s); n > 0 && s[n-1] == 0 {
		return s[:n-1]
	}
	return s
}

// splitNULStrings splits a "compatible"-style value into its NUL-delimited
// components.
func splitNULStrings(buf []byte) []string {
	var out []string
	start := 0
	for i, b := range buf {
		if b == 0 {
			if i > start {
				out = append(out, string(buf[start:i]))
			}
			start = i + 1
		}
	}
	return out
}

func rewriteStatus(p *Property) *kernel.Error {
	s := trimTrailingNUL(string(p.Raw))

	switch {
	case s == "okay":
		p.Status = StatusOK
	case s == "disabled":
		p.Status = StatusDisabled
	case s == "reserved":
		p.Status = StatusReserved
	case s == "fail":
		p.Status = StatusFail
	case len(s) > len("fail-") && s[:len("fail-")] == "fail-":
		p.Status = StatusFailWithReason
		p.StatusReason = s[len("fail-"):]
	default:
		return kernel.NewError("dtb", kernel.ErrDTBRewriteFailed)
	}

	p.Type = PropStatus
	return nil
}

func cellsWidth(cells uint32) uint32 {
	return cells * 4
}

// decodeCells decodes a single address- or size-cells-wide big-endian
// value starting at off.
func decodeCells(buf []byte, off uint32, cells uint32) CellValue {
	var v CellValue
	switch cells {
	case 1:
		v.Lo = uint64(readU32BE(buf, off))
	case 2:
		v.Lo = readU64BE(buf, off)
	case 3:
		v.Hi = readU32BE(buf, off)
		v.Lo = readU64BE(buf, off+4)
	}
	return v
}

// decodeReg decodes a "reg" property into (address, size) pairs, each
// addressCells+sizeCells 32-bit words wide.
func decodeReg(buf []byte, addressCells, sizeCells uint32) ([]RegEntry, *kernel.Error) {
	pairWidth := cellsWidth(addressCells) + cellsWidth(sizeCells)
	if pairWidth == 0 || uint32(len(buf))%pairWidth != 0 {
		return nil, kernel.NewError("dtb", kernel.ErrDTBRewriteFailed)
	}

	n := uint32(len(buf)) / pairWidth
	entries := make([]RegEntry, n)
	off := uint32(0)
	for i := uint32(0); i < n; i++ {
		entries[i].Address = decodeCells(buf, off, addressCells)
		off += cellsWidth(addressCells)
		entries[i].Size = decodeCells(buf, off, sizeCells)
		off += cellsWidth(sizeCells)
	}
	return entries, nil
}

// decodeRanges decodes a "ranges"/"dma-ranges" property into (child, parent,
// length) triplets. Both the child-bus and parent-bus address decode at
// the address_cells the node inherits from its parent (the width rewriteNode
// passes in); a #address-cells the node declares itself is not used for
// the child-bus address, so both addresses always have the same width.
func decodeRanges(buf []byte, addressCells, sizeCells uint32) ([]RangeEntry, *kernel.Error) {
	tripletWidth := cellsWidth(addressCells)*2 + cellsWidth(sizeCells)
	if tripletWidth == 0 || uint32(len(buf))%tripletWidth != 0 {
		return nil, kernel.NewError("dtb", kernel.ErrDTBRewriteFailed)
	}

	n := uint32(len(buf)) / tripletWidth
	entries := make([]RangeEntry, n)
	off := uint32(0)
	for i := uint32(0); i < n; i++ {
		entries[i].ChildAddress = decodeCells(buf, off, addressCells)
		off += cellsWidth(addressCells)
		entries[i].ParentAddress = decodeCells(buf, off, addressCells)
		off += cellsWidth(addressCells)
		entries[i].Length = decodeCells(buf, off, sizeCells)
		off += cellsWidth(sizeCells)
	}
	return entries, nil
}
