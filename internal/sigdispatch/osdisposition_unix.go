//go:build unix

package sigdispatch

import (
	"golang.org/x/sys/unix"
)

// platformDisposition is the real OS disposition record on unix builds.
type platformDisposition = unix.Sigaction

// platformCategorySignals is the POSIX signal numbering.
func platformCategorySignals() map[Category]int {
	return map[Category]int{
		CategorySIGSEGV: int(unix.SIGSEGV),
		CategorySIGBUS:  int(unix.SIGBUS),
		CategorySIGILL:  int(unix.SIGILL),
		CategorySIGFPE:  int(unix.SIGFPE),
		CategorySIGTERM: int(unix.SIGTERM),
		CategorySIGHUP:  int(unix.SIGHUP),
		CategorySIGQUIT: int(unix.SIGQUIT),
		CategorySIGINT:  int(unix.SIGINT),
		CategorySIGXFSZ: int(unix.SIGXFSZ),
	}
}

// captureDisposition queries and stores the OS's current disposition for
// sig without changing it (I-S2's "captured on first installation").
func captureDisposition(sig int) (platformDisposition, error) {
	var old unix.Sigaction
	if err := unix.Sigaction(sig, nil, &old); err != nil {
		return unix.Sigaction{}, err
	}
	return old, nil
}

// restoreDisposition reinstalls a previously captured disposition
// (I-S2's "restored at full teardown").
func restoreDisposition(sig int, d platformDisposition) error {
	return unix.Sigaction(sig, &d, nil)
}

// dispositionIsIgnored reports whether sig's current disposition is
// SIG_IGN.
func dispositionIsIgnored(sig int) (bool, error) {
	var cur unix.Sigaction
	if err := unix.Sigaction(sig, nil, &cur); err != nil {
		return false, err
	}
	return cur.Handler == uintptr(unix.SIG_IGN), nil
}
