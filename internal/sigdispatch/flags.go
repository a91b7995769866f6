// Package sigdispatch implements the signal-handling subsystem: protection
// frames for synchronous faults, a process-global async handler list served
// by a single reporter goroutine, and the OS-disposition bookkeeping needed
// to install and restore real POSIX signal handlers.
//
// Go's runtime intercepts OS signals ahead of user code, so this package
// layers on top of it rather than reimplementing sigsetjmp/siglongjmp:
// synchronous "faults" are emulated with a recover-based protection frame
// (see protect.go) and asynchronous delivery rides on os/signal.Notify,
// while golang.org/x/sys/unix.Sigaction does the real disposition
// capture/restore for every signal this package manages.
package sigdispatch

import "fmt"

// Category is the logical signal category used for handler matching.
// Hardware fault sub-codes (e.g. SIGFPE's several machine causes) collapse
// onto a single category bit, matching how frames are matched by category
// rather than by raw OS signal number.
type Category uint32

const (
	CategorySIGSEGV Category = 1 << iota
	CategorySIGBUS
	CategorySIGILL
	CategorySIGFPE
	CategorySIGTERM
	CategorySIGHUP
	CategorySIGQUIT
	CategorySIGINT
	CategorySIGXFSZ
)

// categoryNames keeps String() allocation-free for the common cases.
var categoryNames = map[Category]string{
	CategorySIGSEGV: "SIGSEGV",
	CategorySIGBUS:  "SIGBUS",
	CategorySIGILL:  "SIGILL",
	CategorySIGFPE:  "SIGFPE",
	CategorySIGTERM: "SIGTERM",
	CategorySIGHUP:  "SIGHUP",
	CategorySIGQUIT: "SIGQUIT",
	CategorySIGINT:  "SIGINT",
	CategorySIGXFSZ: "SIGXFSZ",
}

func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Category(%#x)", uint32(c))
}

// syncCategories is every category a synchronous fault can carry.
const syncCategories = CategorySIGSEGV | CategorySIGBUS | CategorySIGILL | CategorySIGFPE

// asyncCategories is every category delivered through the reporter thread.
const asyncCategories = CategorySIGTERM | CategorySIGHUP | CategorySIGQUIT | CategorySIGINT | CategorySIGXFSZ

// Flags is the bitmask accepted by Protect, SetAsyncSignalHandler, and
// SetSingleAsyncSignalHandler. The low 32 bits name a subset of Category;
// the high bits carry control indicators (sync/async selector, may-return,
// may-continue).
type Flags uint64

const (
	categoryBits = 32

	// IsSync marks this flags value as describing synchronous (protect)
	// coverage. Mutually exclusive with IsAsync.
	IsSync Flags = 1 << categoryBits
	// IsAsync marks this flags value as describing asynchronous handler
	// coverage. Mutually exclusive with IsSync.
	IsAsync Flags = 1 << (categoryBits + 1)
	// MayReturn requests CONTINUE_EXECUTION support: a handler may resume
	// the faulting call instead of unwinding it.
	MayReturn Flags = 1 << (categoryBits + 2)
	// MayContinue requests CONTINUE_SEARCH support: a handler may decline
	// and let the walk continue to the next frame. This is always honored
	// by the dispatch algorithm; the flag exists so callers can assert
	// their handler relies on it.
	MayContinue Flags = 1 << (categoryBits + 3)
)

// Categories extracts the Category subset encoded in flags.
func (f Flags) Categories() Category {
	return Category(f & (1<<categoryBits - 1))
}

// Has reports whether f includes every bit set in other.
func (f Flags) Has(other Flags) bool {
	return f&other == other
}

// HasCategory reports whether f's category subset includes cat.
func (f Flags) HasCategory(cat Category) bool {
	return f.Categories()&cat != 0
}

// SyncFlags builds a Flags value requesting synchronous coverage of cats.
func SyncFlags(cats Category, extra ...Flags) Flags {
	f := Flags(cats) | IsSync
	for _, e := range extra {
		f |= e
	}
	return f
}

// AsyncFlags builds a Flags value requesting asynchronous coverage of cats.
func AsyncFlags(cats Category) Flags {
	return Flags(cats) | IsAsync
}

// ambiguous reports whether flags fails the "exactly one of sync/async"
// validity rule (spec: "non-zero and either both indicator bits are set,
// or neither is set"). Per P8, ambiguous flags fail every public entry
// point that receives them, with no side effects.
func (f Flags) ambiguous() bool {
	if f == 0 {
		return false
	}
	sync, async := f.Has(IsSync), f.Has(IsAsync)
	return sync == async
}
