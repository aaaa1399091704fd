package dtb

import (
	"rvos/kernel"
	"rvos/kernel/mem/bump"
)

// nolint
const (
	tokenBeginNode uint32 = 1
	tokenEndNode   uint32 = 2
	tokenProp      uint32 = 3
	tokenNOP       uint32 = 4
	tokenEnd       uint32 = 9
)

func alignUp4(n uint32) uint32 {
	return (n + 3) &^ 3
}

// parseReservedMemory reads (address, size) u64 pairs starting at off until
// a (0, 0) sentinel terminates the list.
func parseReservedMemory(blob []byte, off uint32) []ReservedRegion {
	var regions []ReservedRegion
	for {
		addr := readU64BE(blob, off)
		size := readU64BE(blob, off+8)
		off += 16
		if addr == 0 && size == 0 {
			break
		}
		regions = append(regions, ReservedRegion{Address: uintptr(addr), Size: uintptr(size)})
	}
	return regions
}

// readCString scans buf starting at off for a NUL terminator and returns
// the string it delimits.
func readCString(buf []byte, off uint32) (string, *kernel.Error) {
	end := off
	for end < uint32(len(buf)) && buf[end] != 0 {
		end++
	}
	if end >= uint32(len(buf)) {
		return "", kernel.NewError("dtb", kernel.ErrDTBUnclosedRootNode)
	}
	return string(buf[off:end]), nil
}

// parseStruct performs pass 1 over the structure block: a single top-down
// walk of FDT_BEGIN_NODE/FDT_END_NODE/FDT_PROP/FDT_NOP/FDT_END tokens that
// builds the raw node/property graph, every property left with type RAW.
func parseStruct(structBlock, stringsBlock []byte, arena *bump.Arena) (*Node, *kernel.Error) {
	root := &Node{}
	curr := root
	haveRoot := false
	rootClosed := false
	off := uint32(0)

	for {
		if off+4 > uint32(len(structBlock)) {
			return nil, kernel.NewError("dtb", kernel.ErrDTBUnclosedRootNode)
		}
		token := readU32BE(structBlock, off)
		off += 4

		switch token {
		case tokenBeginNode:
			name, next, err := readNodeName(structBlock, off)
			if err != nil {
				return nil, err
			}
			off = next

			if !haveRoot {
				if name == "" {
					name = "/"
				}
				arenaName, aerr := arena.AllocString(name)
				if aerr != nil {
					return nil, kernel.Push(aerr, "dtb", kernel.ErrDTBRewriteFailed)
				}
				root.Name = arenaName
				haveRoot = true
				curr = root
				continue
			}

			arenaName, aerr := arena.AllocString(name)
			if aerr != nil {
				return nil, kernel.Push(aerr, "dtb", kernel.ErrDTBRewriteFailed)
			}
			child := &Node{Name: arenaName, Parent: curr}
			appendChild(curr, child)
			curr = child

		case tokenEndNode:
			if !haveRoot || rootClosed {
				return nil, kernel.NewError("dtb", kernel.ErrDTBUnclosedRootNode)
			}
			if curr == root {
				rootClosed = true
			} else {
				curr = curr.Parent
			}

		case tokenProp:
			next, err := parseProperty(curr, structBlock, stringsBlock, off, arena)
			if err != nil {
				return nil, err
			}
			off = next

		case tokenNOP:
			// skip

		case tokenEnd:
			if !haveRoot {
				return nil, kernel.NewError("dtb", kernel.ErrDTBNoNodes)
			}
			if !rootClosed {
				return nil, kernel.NewError("dtb", kernel.ErrDTBUnclosedRootNode)
			}
			return root, nil

		default:
			// An unrecognized structure token means the blob is corrupt or
			// this parser doesn't understand its version; there is no
			// recovery from here, so this halts rather than returning an
			// error a caller could paper over.
			kernel.Panic(&kernel.Error{Module: "dtb", Message: "unknown device tree structure token"})
			return nil, nil
		}
	}
}

// readNodeName reads a node's NUL-terminated name starting at off and
// returns it along with the offset of the next 4-byte-aligned token.
func readNodeName(buf []byte, off uint32) (string, uint32, *kernel.Error) {
	name, err := readCString(buf, off)
	if err != nil {
		return "", 0, err
	}
	next := off + alignUp4(uint32(len(name))+1)
	return name, next, nil
}

// appendChild links child as the last child of parent, preserving sibling
// order as the blob declared it.
func appendChild(parent, child *Node) {
	if parent.Children == nil {
		parent.Children = child
		return
	}
	last := parent.Children
	for last.Sibling != nil {
		last = last.Sibling
	}
	last.Sibling = child
}

// parseProperty reads an FDT_PROP payload (length, name-offset, then the
// raw value) starting at off, copies the name and value into arena, and
// prepends a RAW property to curr. It returns the offset of the next
// token.
func parseProperty(curr *Node, structBlock, stringsBlock []byte, off uint32, arena *bump.Arena) (uint32, *kernel.Error) {
	if off+8 > uint32(len(structBlock)) {
		return 0, kernel.NewError("dtb", kernel.ErrDTBUnclosedRootNode)
	}
	length := readU32BE(structBlock, off)
	nameOff := readU32BE(structBlock, off+4)
	off += 8

	name, err := readCString(stringsBlock, nameOff)
	if err != nil {
		return 0, err
	}
	arenaName, aerr := arena.AllocString(name)
	if aerr != nil {
		return 0, kernel.Push(aerr, "dtb", kernel.ErrDTBRewriteFailed)
	}

	if off+length > uint32(len(structBlock)) {
		return 0, kernel.NewError("dtb", kernel.ErrDTBUnclosedRootNode)
	}

	var value []byte
	if length > 0 {
		v, aerr := arena.AllocCopy(structBlock[off : off+length])
		if aerr != nil {
			return 0, kernel.Push(aerr, "dtb", kernel.ErrDTBRewriteFailed)
		}
		value = v
	}

	prop := &Property{Name: arenaName, Type: PropRaw, Raw: value, Next: curr.Properties}
	curr.Properties = prop

	off += alignUp4(length)
	return off, nil
}
