package optimizer

import "fmt"

// PostFlag carries the per-entry annotations a strategy can attach beyond
// its guard (spec.md §3: "postFlag may include MustBeDone or MarkLastRun").
type PostFlag uint8

const (
	PostNone PostFlag = 0

	// MustBeDone bypasses the [firstIndex, lastIndex] gate in
	// performOptimization step 5.
	MustBeDone PostFlag = 1 << 0

	// MarkLastRunPost sets the optimization's last-run flag once it has
	// run, independent of any guard that already does so.
	MarkLastRunPost PostFlag = 1 << 1
)

// Entry is one strategy element: an optimization or group reference with
// its guard and post-processing flags.
type Entry struct {
	OptID OptID
	Guard Guard
	Post  PostFlag
}

// Strategy is an ordered, possibly recursive list of entries. Termination
// is the end of the slice; DecodeStrategy additionally recognizes the
// explicit EndOpts sentinel when parsing a custom strategy array.
type Strategy []Entry

// GroupDef is the static description of a group: an OptID that names a
// sub-strategy instead of a pass.
type GroupDef struct {
	ID   OptID
	Name string
	Body Strategy

	// EachLocalAnalysisPass marks the one special group kind
	// (eachLocalAnalysisPassGroup) that re-enters its body up to 5 times
	// while any sub-optimization still has pending blocks requested
	// (spec.md §4.1 step 4 and the per-group state machine).
	EachLocalAnalysisPass bool
}

// MaxLocalAnalysisIterations is the re-entry cap for an
// EachLocalAnalysisPass group (spec.md: "up to 5 times").
const MaxLocalAnalysisIterations = 5

// Registry holds the fixed set of primitive optimizations plus the groups
// registered on top of them. Group IDs are always >= NumOpts(), matching
// spec.md §4.1 step 4's "this is a group (id >= numOpts)".
type Registry struct {
	opts   []*Definition
	groups []*GroupDef
}

// NewRegistry builds a Registry from a fixed slice of optimization
// definitions. defs[i].ID is overwritten to i so callers don't have to
// keep indices and IDs in sync by hand.
func NewRegistry(defs []*Definition) *Registry {
	r := &Registry{opts: make([]*Definition, len(defs))}
	for i, d := range defs {
		d.ID = OptID(i)
		r.opts[i] = d
	}
	return r
}

// NumOpts returns the number of primitive optimizations.
func (r *Registry) NumOpts() int { return len(r.opts) }

// AddGroup registers a new group and returns its OptID.
func (r *Registry) AddGroup(name string, body Strategy, eachLocalAnalysisPass bool) OptID {
	id := OptID(len(r.opts) + len(r.groups))
	r.groups = append(r.groups, &GroupDef{ID: id, Name: name, Body: body, EachLocalAnalysisPass: eachLocalAnalysisPass})
	return id
}

// IsGroup reports whether id names a group rather than a primitive optimization.
func (r *Registry) IsGroup(id OptID) bool {
	return int(id) >= len(r.opts)
}

// Optimization returns the definition for a primitive optimization id.
func (r *Registry) Optimization(id OptID) (*Definition, bool) {
	i := int(id)
	if i < 0 || i >= len(r.opts) {
		return nil, false
	}
	return r.opts[i], true
}

// Group returns the definition for a group id.
func (r *Registry) Group(id OptID) (*GroupDef, bool) {
	i := int(id) - len(r.opts)
	if i < 0 || i >= len(r.groups) {
		return nil, false
	}
	return r.groups[i], true
}

// Name returns the human-readable name for any valid id, or "?" if id is
// out of range.
func (r *Registry) Name(id OptID) string {
	if def, ok := r.Optimization(id); ok {
		return def.Name
	}
	if grp, ok := r.Group(id); ok {
		return grp.Name
	}
	return "?"
}

// mustBeDoneBit is the high bit DecodeStrategy recognizes in a custom
// strategy array entry (spec.md §4.1: "a sparse integer array whose high
// bits encode MustBeDone").
const mustBeDoneBit int32 = 1 << 30

// DecodeStrategy parses a custom strategy array: each element is an
// optimization id optionally OR'd with mustBeDoneBit, terminated by
// EndOpts. Decoded entries always carry GuardAlways — the source format
// has no per-entry guard slot, only frontend-supplied strategies do.
func DecodeStrategy(reg *Registry, raw []int32) (Strategy, error) {
	strat := make(Strategy, 0, len(raw))
	for _, v := range raw {
		if OptID(v) == EndOpts {
			return strat, nil
		}
		id := OptID(v &^ mustBeDoneBit)
		if _, isOpt := reg.Optimization(id); !isOpt {
			if _, isGroup := reg.Group(id); !isGroup {
				return nil, fmt.Errorf("optimizer: invalid strategy: unknown opt id %d", id)
			}
		}
		post := PostNone
		if v&mustBeDoneBit != 0 {
			post |= MustBeDone
		}
		strat = append(strat, Entry{OptID: id, Guard: GuardAlways, Post: post})
	}
	return nil, fmt.Errorf("optimizer: invalid strategy: missing endOpts sentinel")
}
