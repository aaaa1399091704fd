package kernel

// Each of these variables holds, as its value, the absolute address of the
// boundary it names; kmain reads them directly as addresses. No Go code
// assigns them. They are populated by the linker script sections that place
// .text, .rodata, .data, .bss, the boot stack and the early heap reserved
// for the PMM's first region.
var (
	TEXT_START   uintptr
	TEXT_END     uintptr
	RODATA_START uintptr
	RODATA_END   uintptr
	DATA_START   uintptr
	DATA_END     uintptr
	BSS_START    uintptr
	BSS_END      uintptr
	STACK_START  uintptr
	STACK_END    uintptr
	HEAP_START   uintptr
	HEAP_END     uintptr
	HEAP_SIZE    uintptr
)
