package planner

import (
	"math"
	"sort"

	"github.com/cartomix/djcore/internal/djmodel"
)

// orderByEnergyPattern arranges evaluated tracks so their energy_level
// sequence matches pattern, spec §4.4 step 4. Each pattern is realized as a
// sort plus a local 2-opt pass that swaps adjacent-compatible pairs to
// shrink the total BPM jump between neighbors whenever the swap does not
// break the pattern's own shape — the tie-break spec.md asks for.
//
// Grounded on djbot's sortPlaylist, which folds an energy-arc target and a
// BPM-continuity bonus into one greedy score; here the two concerns are
// separated because spec.md specifies the arc shape exactly per pattern
// rather than leaving it to a single bell curve.
func orderByEnergyPattern(tracks []evaluatedTrack, pattern djmodel.EnergyPattern) []evaluatedTrack {
	ordered := append([]evaluatedTrack(nil), tracks...)

	switch pattern {
	case djmodel.PatternBuilding:
		sort.SliceStable(ordered, func(i, j int) bool {
			return ordered[i].track.EnergyLevel < ordered[j].track.EnergyLevel
		})
	case djmodel.PatternCooling:
		sort.SliceStable(ordered, func(i, j int) bool {
			return ordered[i].track.EnergyLevel > ordered[j].track.EnergyLevel
		})
	case djmodel.PatternPeakTime:
		sort.SliceStable(ordered, func(i, j int) bool {
			return ordered[i].track.EnergyLevel > ordered[j].track.EnergyLevel
		})
	case djmodel.PatternWave:
		ordered = waveOrder(ordered)
	default:
		sort.SliceStable(ordered, func(i, j int) bool {
			return ordered[i].track.EnergyLevel < ordered[j].track.EnergyLevel
		})
	}

	return minimizeBPMJumps(ordered, pattern)
}

// waveOrder alternates tracks from the upper and lower halves of the
// energy-sorted list, highest remaining first, spec §4.4 step 4. The energy
// difference between adjacent entries is not checked against
// waveAmplitude, so it can be smaller when candidate energies lie close
// together.
const waveAmplitude = 0.2

func waveOrder(tracks []evaluatedTrack) []evaluatedTrack {
	sorted := append([]evaluatedTrack(nil), tracks...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].track.EnergyLevel < sorted[j].track.EnergyLevel
	})

	n := len(sorted)
	lowHalf := sorted[:(n+1)/2]
	highHalf := sorted[(n+1)/2:]

	result := make([]evaluatedTrack, 0, n)
	li, hi := 0, len(highHalf)-1
	takeHigh := true
	for li < len(lowHalf) || hi >= 0 {
		if takeHigh && hi >= 0 {
			result = append(result, highHalf[hi])
			hi--
		} else if li < len(lowHalf) {
			result = append(result, lowHalf[li])
			li++
		} else if hi >= 0 {
			result = append(result, highHalf[hi])
			hi--
		}
		takeHigh = !takeHigh
	}
	return result
}

// minimizeBPMJumps performs adjacent-pair swaps that reduce the total BPM
// delta between neighbors, skipping any swap that would violate the
// pattern's monotonic, threshold, or alternating shape.
func minimizeBPMJumps(tracks []evaluatedTrack, pattern djmodel.EnergyPattern) []evaluatedTrack {
	if len(tracks) < 3 {
		return tracks
	}

	improved := true
	for pass := 0; improved && pass < len(tracks); pass++ {
		improved = false
		for i := 0; i < len(tracks)-1; i++ {
			j := i + 1
			before := bpmJumpAt(tracks, i) + bpmJumpAt(tracks, j)
			swapped := append([]evaluatedTrack(nil), tracks...)
			swapped[i], swapped[j] = swapped[j], swapped[i]
			after := bpmJumpAt(swapped, i) + bpmJumpAt(swapped, j)
			if after < before && patternShapePreserved(swapped, pattern) {
				tracks = swapped
				improved = true
			}
		}
	}
	return tracks
}

func bpmJumpAt(tracks []evaluatedTrack, i int) float64 {
	total := 0.0
	if i > 0 {
		total += math.Abs(tracks[i].track.BPM - tracks[i-1].track.BPM)
	}
	if i < len(tracks)-1 {
		total += math.Abs(tracks[i+1].track.BPM - tracks[i].track.BPM)
	}
	return total
}

func patternShapePreserved(tracks []evaluatedTrack, pattern djmodel.EnergyPattern) bool {
	switch pattern {
	case djmodel.PatternBuilding:
		return isMonotonic(tracks, true)
	case djmodel.PatternCooling:
		return isMonotonic(tracks, false)
	case djmodel.PatternPeakTime:
		for _, t := range tracks {
			if t.track.EnergyLevel <= 0.8 {
				return false
			}
		}
		return true
	case djmodel.PatternWave:
		for i := 2; i < len(tracks); i++ {
			prev := tracks[i-1].track.EnergyLevel - tracks[i-2].track.EnergyLevel
			cur := tracks[i].track.EnergyLevel - tracks[i-1].track.EnergyLevel
			if prev*cur >= 0 {
				return false
			}
		}
		return true
	default:
		return true
	}
}

func isMonotonic(tracks []evaluatedTrack, increasing bool) bool {
	for i := 1; i < len(tracks); i++ {
		if increasing && tracks[i].track.EnergyLevel < tracks[i-1].track.EnergyLevel {
			return false
		}
		if !increasing && tracks[i].track.EnergyLevel > tracks[i-1].track.EnergyLevel {
			return false
		}
	}
	return true
}
