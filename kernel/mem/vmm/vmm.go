package vmm

import "rvos/kernel/hal"

// kernelRoot is the statically reserved root page table for the kernel
// address space. Its size (exactly one page) guarantees it lands in BSS
// with the alignment SV39 requires of a page table.
var kernelRoot Table

// RootTable returns the kernel's root page table.
func RootTable() *Table {
	return &kernelRoot
}

// sfenceVMAFn issues an SV39 fence covering the full address space. It is a
// function variable, rather than a direct hal.ActiveCSR.SfenceVMA() call
// site, so tests can substitute a no-op.
var sfenceVMAFn = func() {
	if hal.ActiveCSR != nil {
		hal.ActiveCSR.SfenceVMA()
	}
}

// FlushMapping issues the fence the engine's caller must run after Map
// before relying on the mapping it just installed.
func FlushMapping() {
	sfenceVMAFn()
}
