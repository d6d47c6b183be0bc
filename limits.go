package canoncbor

import "fmt"

// Limit names the ceiling a DecodeError hit.
type Limit uint8

const (
	LimitNone Limit = iota
	LimitDepth
	LimitArrayElements
	LimitMapPairs
	LimitStringLength
	LimitRemainingInput
	LimitInputSize
)

func (l Limit) String() string {
	switch l {
	case LimitDepth:
		return "depth"
	case LimitArrayElements:
		return "array_elements"
	case LimitMapPairs:
		return "map_pairs"
	case LimitStringLength:
		return "string_length"
	case LimitRemainingInput:
		return "remaining_input"
	case LimitInputSize:
		return "input_size"
	default:
		return "none"
	}
}

const (
	DefaultMaxNestedLevels  = 256
	DefaultMaxArrayElements = 131072
	DefaultMaxMapPairs      = 131072
	DefaultMaxStringLen     = 128 << 20
)

// Limits are the resource ceilings enforced while decoding.
// Zero fields take the Default* values.
type Limits struct {
	MaxNestedLevels  int // containers and tags
	MaxArrayElements int
	MaxMapPairs      int
	MaxStringLen     int // bytes, per string (indefinite strings: all chunks together)
}

func (l Limits) withDefaults() Limits {
	l.MaxNestedLevels = coalesce(l.MaxNestedLevels, DefaultMaxNestedLevels)
	l.MaxArrayElements = coalesce(l.MaxArrayElements, DefaultMaxArrayElements)
	l.MaxMapPairs = coalesce(l.MaxMapPairs, DefaultMaxMapPairs)
	l.MaxStringLen = coalesce(l.MaxStringLen, DefaultMaxStringLen)
	return l
}

func (l Limits) validate() error {
	switch {
	case l.MaxNestedLevels < 0:
		return fmt.Errorf("canoncbor: invalid MaxNestedLevels %d", l.MaxNestedLevels)
	case l.MaxArrayElements < 0:
		return fmt.Errorf("canoncbor: invalid MaxArrayElements %d", l.MaxArrayElements)
	case l.MaxMapPairs < 0:
		return fmt.Errorf("canoncbor: invalid MaxMapPairs %d", l.MaxMapPairs)
	case l.MaxStringLen < 0:
		return fmt.Errorf("canoncbor: invalid MaxStringLen %d", l.MaxStringLen)
	}
	return nil
}

// Guard enforces Limits for one decode. Every claim read from a length
// prefix goes through it before anything is sized by that claim.
// A Guard is not safe for concurrent use.
type Guard struct {
	lim   Limits
	depth int
}

// NewGuard returns a guard for l (zero fields take defaults).
func NewGuard(l Limits) *Guard {
	return &Guard{lim: l.withDefaults()}
}

// Depth is the current nesting level.
func (g *Guard) Depth() int { return g.depth }

// Enter accounts for descending into a container or tag at off.
func (g *Guard) Enter(off int) error {
	if g.depth >= g.lim.MaxNestedLevels {
		return limitErr(LimitDepth, off, fmt.Sprintf("nesting deeper than %d", g.lim.MaxNestedLevels))
	}
	g.depth++
	return nil
}

// Leave undoes one Enter.
func (g *Guard) Leave() {
	if g.depth > 0 {
		g.depth--
	}
}

// CheckLength validates a byte/text length claim against the string ceiling
// and the bytes remaining in the input.
func (g *Guard) CheckLength(claim uint64, remaining, off int) (int, error) {
	if claim > uint64(g.lim.MaxStringLen) {
		return 0, limitErr(LimitStringLength, off, fmt.Sprintf("length %d > %d", claim, g.lim.MaxStringLen))
	}
	if remaining < 0 || claim > uint64(remaining) {
		return 0, limitErr(LimitRemainingInput, off, fmt.Sprintf("length %d > %d remaining bytes", claim, remaining))
	}
	return int(claim), nil
}

// CheckCount validates an element/pair count claim. Each item needs at least
// minItemSize bytes of input, so a count the input cannot hold is refused.
// lim must be LimitArrayElements or LimitMapPairs.
func (g *Guard) CheckCount(lim Limit, claim uint64, minItemSize, remaining, off int) (int, error) {
	if err := g.CheckTotal(lim, claim, off); err != nil {
		return 0, err
	}
	if minItemSize < 1 {
		minItemSize = 1
	}
	if remaining < 0 || claim > uint64(remaining)/uint64(minItemSize) {
		return 0, limitErr(LimitRemainingInput, off, fmt.Sprintf("%s %d cannot fit in %d remaining bytes", lim, claim, remaining))
	}
	return int(claim), nil
}

// CheckTotal validates a running total (indefinite-length accumulation)
// against the absolute ceiling for lim.
func (g *Guard) CheckTotal(lim Limit, total uint64, off int) error {
	var ceiling int
	switch lim {
	case LimitArrayElements:
		ceiling = g.lim.MaxArrayElements
	case LimitMapPairs:
		ceiling = g.lim.MaxMapPairs
	case LimitStringLength:
		ceiling = g.lim.MaxStringLen
	default:
		return fmt.Errorf("canoncbor: guard cannot total %s", lim)
	}
	if total > uint64(ceiling) {
		return limitErr(lim, off, fmt.Sprintf("%d > %d", total, ceiling))
	}
	return nil
}
