// Package hal defines the narrow contracts that the bring-up core expects
// its embedder to satisfy. The core never talks to hardware directly: it is
// handed a Console for diagnostics and a CSR for the handful of
// supervisor-mode register accesses it needs to enable paging. Both are
// injected once, during entry, and are otherwise treated as opaque.
package hal

// Console is the diagnostic output sink. It is the only contract required
// for the textual tracing that the bring-up path emits; a real
// implementation is expected to wrap a UART, which is explicitly out of
// scope for this module.
type Console interface {
	// PutChar writes a single byte to the sink.
	PutChar(b byte)
}

// CSR is the supervisor-mode register facade. The core only ever enables
// paging (a satp write) and fences the address space through this
// interface; it never reads or writes these registers directly, and it
// never issues sret itself.
type CSR interface {
	ReadSatp() uint64
	WriteSatp(uint64)

	ReadSstatus() uint64
	WriteSstatus(uint64)

	ReadSepc() uint64
	WriteSepc(uint64)

	ReadSie() uint64
	WriteSie(uint64)

	ReadStvec() uint64
	WriteStvec(uint64)

	ReadMideleg() uint64
	WriteMideleg(uint64)

	ReadPmpaddr0() uint64
	WritePmpaddr0(uint64)

	ReadPmpcfg0() uint64
	WritePmpcfg0(uint64)

	// SfenceVMA issues an SV39 fence covering the full address space.
	// The bring-up core calls this (through vmm.FlushMapping) after
	// installing mappings and before relying on them.
	SfenceVMA()

	// Sret returns the hart to the program counter in sepc at the
	// privilege level encoded in sstatus. The core never calls it; it is
	// left to the entry code.
	Sret()
}

var (
	// ActiveConsole is the console that early.Printf and kernel.Panic
	// write diagnostics to. It must be set via SetConsole before any
	// diagnostic output is produced.
	ActiveConsole Console

	// ActiveCSR is the supervisor-mode register facade used by the
	// bring-up core to enable paging. It must be set via SetCSR before
	// kmain.Kmain is called.
	ActiveCSR CSR
)

// SetConsole installs the diagnostic output sink.
func SetConsole(c Console) {
	ActiveConsole = c
}

// SetCSR installs the supervisor-mode register facade.
func SetCSR(c CSR) {
	ActiveCSR = c
}
