package dtb

// Node is a single device tree node. Names, and every byte copied out of a
// property's raw value, live in the parser's bump arena so they stay valid
// after the blob itself is unmapped; the node graph structure (this struct
// and Property) is ordinary heap-allocated Go, since by the time the DTB
// parser runs the kernel is well past the allocator-free bootstrap stage
// the slab/PMM/page-table engine is built for.
type Node struct {
	Name       string
	Properties *Property
	Parent     *Node
	Children   *Node
	Sibling    *Node

	addressCells uint32
	sizeCells    uint32
}

// Property looks up a property by name on n's own property list. It does
// not search ancestors or descendants.
func (n *Node) Property(name string) *Property {
	for p := n.Properties; p != nil; p = p.Next {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// PropertyType identifies which of Property's typed fields holds a decoded
// value. RAW is the state every property starts in after pass 1; pass 2
// converts recognized names to one of the others.
type PropertyType uint8

// nolint
const (
	PropRaw PropertyType = iota
	PropCompatible
	PropModel
	PropPhandle
	PropStatus
	PropAddressCells
	PropSizeCells
	PropDMACoherence
	PropDeviceType
	PropReg
	PropRanges
	PropDMARanges
)

// StatusValue is the decoded form of a "status" property.
type StatusValue uint8

// nolint
const (
	StatusOK StatusValue = iota
	StatusDisabled
	StatusReserved
	StatusFail
	StatusFailWithReason
)

// CellValue holds a decoded <#address-cells>/<#size-cells> encoded value.
// The flat tree format allows up to 3 32-bit cells for an address (96
// bits); the bits beyond a uint64 are kept in Hi. Size cells never exceed 2
// (64 bits), so Hi is always zero for a decoded size.
type CellValue struct {
	Hi uint32
	Lo uint64
}

// RegEntry is one decoded (address, size) pair from a "reg" property.
type RegEntry struct {
	Address CellValue
	Size    CellValue
}

// RangeEntry is one decoded (child-bus-addr, parent-bus-addr, length)
// triplet from a "ranges" or "dma-ranges" property.
type RangeEntry struct {
	ChildAddress  CellValue
	ParentAddress CellValue
	Length        CellValue
}

// Property is a single device tree property, prepended to its node's list
// in the order pass 1 encountered it (so Properties walks the blob's
// properties in reverse declaration order). Exactly one of the typed
// fields below is meaningful, selected by Type; Raw holds the untouched
// value for properties pass 2 doesn't recognize.
type Property struct {
	Name string
	Type PropertyType
	Next *Property

	Raw []byte

	Compatible   []string
	Model        string
	Phandle      uint32
	Status       StatusValue
	StatusReason string
	AddressCells uint32
	SizeCells    uint32
	DMACoherent  bool
	DeviceType   string
	Reg          []RegEntry
	Ranges       []RangeEntry
}

// ReservedRegion is one entry from the DTB's memory reservation block: a
// physical range firmware has claimed and the kernel must not hand out.
type ReservedRegion struct {
	Address uintptr
	Size    uintptr
}

// Tree is the fully parsed and rewritten device tree.
type Tree struct {
	Root           *Node
	ReservedMemory []ReservedRegion
}
