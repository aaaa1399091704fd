package main

import "rvos/kernel/kmain"

// main is the only Go symbol that is visible (exported) from the rt0
// initialization code. This function works as a trampoline for calling the
// actual kernel entrypoint (kmain.Kmain) and is intentionally defined to
// prevent the Go compiler from optimizing away the actual kernel code since
// it is not aware of the presence of the rt0 code.
//
// The main function is invoked by the rt0 assembly code after setting up
// the trap vector and a minimal stack. The hart's a0 register, holding the
// physical address of the firmware-provided device tree blob, is what the
// assembly trampoline actually passes to kmain.Kmain; this call exists so
// the linker keeps kmain.Kmain reachable.
//
// main is not expected to return. If it does, the rt0 code will halt the
// hart.
func main() {
	kmain.Kmain(0)
}
