package jitruntime

import (
	"context"
	"encoding/binary"
	"encoding/hex"

	"golang.org/x/crypto/blake2b"

	"github.com/marmos91/jitcore/internal/logger"
	"github.com/marmos91/jitcore/internal/optimizer"
)

// strategyHash fingerprints a Strategy so invariantstore.DistinctShapes can
// group compile runs that applied the exact same sequence of optimization
// ids, guards, and post-flags.
func strategyHash(strategy optimizer.Strategy) string {
	h, _ := blake2b.New256(nil)
	buf := make([]byte, 8)
	for _, entry := range strategy {
		binary.LittleEndian.PutUint64(buf, uint64(entry.OptID))
		h.Write(buf)
		binary.LittleEndian.PutUint64(buf, uint64(entry.Guard))
		h.Write(buf)
		h.Write([]byte{byte(entry.Post)})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// logRecordFailure logs a failed best-effort store write without failing
// the Compile call itself — a profile or invariant record is an audit
// trail, not something the optimize() result should depend on.
func logRecordFailure(ctx context.Context, store string, err error) {
	logger.WarnCtx(ctx, "jitruntime: failed to persist "+store+" record", "error", err)
}
