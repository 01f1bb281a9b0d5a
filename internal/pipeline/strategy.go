package pipeline

import "github.com/wegman-software/pbf2json-go/internal/config"

// Plan is the pass structure chosen for a conversion run.
type Plan int

const (
	// SinglePass streams the file once with no coordinate store at all.
	// Ways carry raw node refs, relations raw member lists, and no
	// record gets centroid or bounds fields.
	SinglePass Plan = iota

	// TwoPass collects node coordinates first, then streams again to
	// emit output. Relations aggregate coordinates from their direct
	// node members.
	TwoPass

	// ThreePass additionally materializes way geometries in memory
	// between the coordinate pass and the output pass, so relations can
	// aggregate over their member ways. Only viable for small inputs.
	ThreePass
)

func (p Plan) String() string {
	switch p {
	case SinglePass:
		return "single-pass"
	case TwoPass:
		return "two-pass"
	case ThreePass:
		return "three-pass"
	default:
		return "unknown"
	}
}

// Passes returns how many times the plan reads the input file
func (p Plan) Passes() int {
	switch p {
	case TwoPass:
		return 2
	case ThreePass:
		return 3
	default:
		return 1
	}
}

const (
	// smallFileBytes is the input size below which keeping every way
	// geometry in memory is acceptable
	smallFileBytes = 100 << 20

	// largeFileBytes is the input size above which automatic selection
	// gives up on relation geometry and degrades to a single pass
	largeFileBytes = 1 << 30
)

// SelectPlan picks the pass structure for the given input size and
// requested geometry level. Basic always streams once. Full uses three
// passes for small inputs and two otherwise. Auto behaves like full up to
// the large-file threshold and like basic beyond it.
func SelectPlan(inputSize int64, level config.GeometryLevel) Plan {
	switch level {
	case config.GeometryBasic:
		return SinglePass
	case config.GeometryFull:
		return fullPlan(inputSize)
	default:
		if inputSize > largeFileBytes {
			return SinglePass
		}
		return fullPlan(inputSize)
	}
}

func fullPlan(inputSize int64) Plan {
	if inputSize < smallFileBytes {
		return ThreePass
	}
	return TwoPass
}
