// Package cpu contains the small set of hart-control primitives that the
// bring-up core needs and that are not already covered by the CSR facade
// in package hal. Unlike satp/sstatus access, halting the hart requires no
// arguments and no supervisor-mode side effects that a caller would need to
// observe, so it is kept here instead of being folded into hal.CSR.
package cpu

// Halt parks the current hart in a tight loop. It never returns.
//
// A real entry point would replace the loop body with a wfi instruction to
// avoid spinning at full clock speed while waiting for an interrupt; wfi
// access goes through the same supervisor-mode surface as the CSR facade
// and is intentionally left to that external collaborator.
func Halt() {
	for {
	}
}
