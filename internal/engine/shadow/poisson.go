package shadow

import (
	"fmt"

	"github.com/Faultbox/midgard-shadows/pkg/math"
)

// Poisson disk sample tables for percentage-closer filtering. Samples lie in
// [-1, 1] on both axes and are scaled by the filter radius at lookup time.
//
// The 25 and 64 tap tables come from a best-candidate generator with a fixed
// seed; the 64 tap table starts with the 25 tap one.
var (
	PoissonDisk16 = [16]math.Vec2{
		{-0.94201624, -0.39906216}, {0.94558609, -0.76890725},
		{-0.094184101, -0.9293887}, {0.34495938, 0.2938776},
		{-0.91588581, 0.45771432}, {-0.81544232, -0.87912464},
		{-0.38277543, 0.27676845}, {0.97484398, 0.75648379},
		{0.44323325, -0.97511554}, {0.53742981, -0.4737342},
		{-0.26496911, -0.41893023}, {0.79197514, 0.19090188},
		{-0.2418884, 0.99706507}, {-0.81409955, 0.9143759},
		{0.19984126, 0.78641367}, {0.14383161, -0.1410079},
	}

	PoissonDisk25 = [25]math.Vec2{
		{0.23550571, 0.06653115}, {-0.66862543, 0.64874749},
		{-0.30539943, -0.86318148}, {0.56891848, -0.68406757},
		{0.07615936, 0.95403866}, {-0.91957652, -0.11767724},
		{0.79988323, 0.55580810}, {0.84114683, -0.06000446},
		{-0.38406396, 0.11663844}, {0.10288493, -0.44344094},
		{-0.72161797, -0.58389340}, {-0.09965241, 0.50546274},
		{0.13123374, -0.95264291}, {0.32600106, 0.52542093},
		{-0.32589870, -0.31679028}, {-0.32193388, 0.84808911},
		{-0.87657951, 0.29848932}, {0.49608973, -0.21790575},
		{0.52754201, 0.84612683}, {0.88820340, -0.44614913},
		{0.57323436, 0.19736108}, {-0.09541349, -0.06734980},
		{0.95550372, 0.27201682}, {-0.42323300, 0.44479035},
		{-0.65372495, -0.25586131},
	}

	PoissonDisk64 = [64]math.Vec2{
		{0.23550571, 0.06653115}, {-0.66862543, 0.64874749},
		{-0.30539943, -0.86318148}, {0.56891848, -0.68406757},
		{0.07615936, 0.95403866}, {-0.91957652, -0.11767724},
		{0.79988323, 0.55580810}, {0.84114683, -0.06000446},
		{-0.38406396, 0.11663844}, {0.10288493, -0.44344094},
		{-0.72161797, -0.58389340}, {-0.09965241, 0.50546274},
		{0.13123374, -0.95264291}, {0.32600106, 0.52542093},
		{-0.32589870, -0.31679028}, {-0.32193388, 0.84808911},
		{-0.87657951, 0.29848932}, {0.49608973, -0.21790575},
		{0.52754201, 0.84612683}, {0.88820340, -0.44614913},
		{0.57323436, 0.19736108}, {-0.09541349, -0.06734980},
		{0.95550372, 0.27201682}, {-0.42323300, 0.44479035},
		{-0.65372495, -0.25586131}, {-0.18798184, -0.58135906},
		{-0.08560581, 0.21435528}, {-0.66857813, 0.05419981},
		{0.27110095, -0.70180747}, {0.21273486, -0.20280912},
		{0.36510924, -0.45430539}, {-0.57681580, -0.80791786},
		{-0.45114180, -0.54994093}, {-0.88559659, -0.38099860},
		{0.12300845, 0.70005866}, {0.14555904, 0.32082194},
		{0.61426024, -0.42541646}, {-0.63270444, 0.30541909},
		{0.55896805, 0.45640237}, {-0.04735837, -0.79888469},
		{0.42022986, -0.90355549}, {-0.48579496, -0.10120995},
		{-0.10539479, -0.32785342}, {0.29535853, 0.88231185},
		{-0.09779306, 0.80714381}, {-0.28993353, 0.63359312},
		{0.46354578, -0.00277504}, {-0.98235064, 0.09544696},
		{0.36384739, 0.28919930}, {-0.83629106, 0.51831763},
		{-0.13451349, -0.98475823}, {-0.54552460, 0.83130679},
		{0.78059803, -0.26977968}, {0.74748816, 0.30453438},
		{0.62097325, 0.66431448}, {-0.24519911, 0.33930030},
		{-0.29297378, -0.05972940}, {0.81951640, 0.13433115},
		{0.76069726, -0.64583063}, {0.97618588, -0.20608655},
		{0.65314872, 0.00824377}, {0.03752490, -0.62590776},
		{-0.47898262, 0.64635327}, {0.03565241, 0.07490453},
	}
)

// PoissonDisk returns the sample table with the given number of taps
// (16, 25 or 64).
func PoissonDisk(taps int) ([]math.Vec2, error) {
	switch taps {
	case 16:
		return PoissonDisk16[:], nil
	case 25:
		return PoissonDisk25[:], nil
	case 64:
		return PoissonDisk64[:], nil
	default:
		return nil, fmt.Errorf("%w: no %d tap poisson table", ErrInvalidArgument, taps)
	}
}

// PCFOffsets scales a Poisson table into shadow-map UV offsets for a filter
// radius given in texels.
func PCFOffsets(taps int, radius float32, resolution int) ([]math.Vec2, error) {
	if resolution <= 0 {
		return nil, fmt.Errorf("%w: resolution %d", ErrInvalidArgument, resolution)
	}
	disk, err := PoissonDisk(taps)
	if err != nil {
		return nil, err
	}

	scale := radius / float32(resolution)
	offsets := make([]math.Vec2, len(disk))
	for i, p := range disk {
		offsets[i] = p.Scale(scale)
	}
	return offsets, nil
}
