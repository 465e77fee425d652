package dsp

import (
	"math"
	"sort"

	"github.com/cartomix/djcore/internal/djmodel"
)

// chromaWindow computes a 12-bin chroma vector over one beat-synchronous
// window [startSec, endSec).
func chromaWindow(samples []float64, sr int, startSec, endSec float64) [12]float64 {
	start := int(startSec * float64(sr))
	end := int(endSec * float64(sr))
	if start < 0 {
		start = 0
	}
	if end > len(samples) {
		end = len(samples)
	}
	if end <= start {
		return [12]float64{}
	}
	return Chroma(samples[start:end], sr)
}

// BeatChroma computes one chroma vector per beat interval, the
// beat-synchronous chroma feature of spec §4.1 step 5.
func BeatChroma(samples []float64, sr int, beatTimes []float64, duration float64) [][12]float64 {
	out := make([][12]float64, len(beatTimes))
	for i, t := range beatTimes {
		end := duration
		if i+1 < len(beatTimes) {
			end = beatTimes[i+1]
		}
		out[i] = chromaWindow(samples, sr, t, end)
	}
	return out
}

func cosineSim(a, b [12]float64) float64 {
	var dot, na, nb float64
	for i := 0; i < 12; i++ {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na < 1e-12 || nb < 1e-12 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// SelfSimilarityMatrix builds the recurrence matrix used to drive
// agglomerative structural segmentation (spec §4.1 step 5).
func SelfSimilarityMatrix(chroma [][12]float64) [][]float64 {
	n := len(chroma)
	m := make([][]float64, n)
	for i := range m {
		m[i] = make([]float64, n)
		for j := range m[i] {
			m[i][j] = cosineSim(chroma[i], chroma[j])
		}
	}
	return m
}

// targetBoundaryCount caps agglomerative merging so that long tracks settle
// around ~15 segment boundaries, per spec §4.1 step 5.
const targetBoundaryCount = 15

// boundariesFromSimilarity collapses adjacent-beat similarity into a list of
// beat indices where a new segment starts, via bottom-up agglomerative
// merging of the weakest boundary (most self-similar adjacent pair) until at
// most targetBoundaryCount segments remain.
func boundariesFromSimilarity(sim [][]float64) []int {
	n := len(sim)
	if n == 0 {
		return nil
	}
	// Start with every beat its own boundary, then merge the adjacent pair
	// with the highest recurrence similarity (least change) repeatedly.
	bounds := make([]int, n)
	for i := range bounds {
		bounds[i] = i
	}
	type gap struct {
		idx int
		sim float64
	}
	gaps := make([]gap, 0, n-1)
	for i := 0; i < n-1; i++ {
		gaps = append(gaps, gap{idx: i, sim: sim[i][i+1]})
	}
	sort.Slice(gaps, func(a, b int) bool { return gaps[a].sim > gaps[b].sim })

	merged := make(map[int]bool)
	mergesNeeded := len(bounds) - targetBoundaryCount
	for _, g := range gaps {
		if mergesNeeded <= 0 {
			break
		}
		if merged[g.idx] {
			continue
		}
		merged[g.idx] = true
		mergesNeeded--
	}

	result := []int{0}
	for i := 1; i < n; i++ {
		if !merged[i-1] {
			result = append(result, i)
		}
	}
	return result
}

// ClassifySegments labels each segment boundary by relative energy and
// position per spec §4.1 step 5: first->intro, last->outro,
// energy>1.5*median->chorus, energy<0.8*median->bridge, else verse.
func ClassifySegments(beatTimes []float64, beatEnergy []float64, chroma [][12]float64, duration float64) []djmodel.StructureSegment {
	n := len(beatTimes)
	if n == 0 {
		return nil
	}
	sim := SelfSimilarityMatrix(chroma)
	bounds := boundariesFromSimilarity(sim)
	if len(bounds) == 0 {
		bounds = []int{0}
	}

	segEnergy := make([]float64, len(bounds))
	for i, b := range bounds {
		end := n
		if i+1 < len(bounds) {
			end = bounds[i+1]
		}
		sum, count := 0.0, 0
		for j := b; j < end && j < len(beatEnergy); j++ {
			sum += beatEnergy[j]
			count++
		}
		if count > 0 {
			segEnergy[i] = sum / float64(count)
		}
	}
	median := medianOf(segEnergy)

	segments := make([]djmodel.StructureSegment, len(bounds))
	for i, b := range bounds {
		start := beatTimes[b]
		end := duration
		if i+1 < len(bounds) {
			end = beatTimes[bounds[i+1]]
		}
		e := segEnergy[i]

		var label djmodel.SegmentType
		switch {
		case i == 0:
			label = djmodel.SegmentIntro
		case i == len(bounds)-1:
			label = djmodel.SegmentOutro
		case median > 0 && e > 1.5*median:
			label = djmodel.SegmentChorus
		case median > 0 && e < 0.8*median:
			label = djmodel.SegmentBridge
		default:
			label = djmodel.SegmentVerse
		}

		segments[i] = djmodel.StructureSegment{Start: start, End: end, Type: label, Energy: e}
	}
	return segments
}

func medianOf(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// hotCuePalette is the fixed color table of spec §6.
var hotCuePalette = map[djmodel.SegmentType]string{
	djmodel.SegmentIntro:  "#00FF00",
	djmodel.SegmentVerse:  "#0080FF",
	djmodel.SegmentChorus: "#FF0000",
	djmodel.SegmentBridge: "#FF00FF",
	djmodel.SegmentOutro:  "#FFFF00",
}

const defaultCueColor = "#FFFFFF"

// SynthesizeHotCues implements spec §4.1 step 6: one cue per segment
// boundary of meaningful duration (>=4s), snapped to the nearest beat and
// colored by segment type; injects Mix In/Mix Out when absent; truncates to
// 8 cues.
func SynthesizeHotCues(segments []djmodel.StructureSegment, beatTimes []float64) []djmodel.HotCue {
	var cues []djmodel.HotCue
	idx := 0
	for _, seg := range segments {
		if seg.End-seg.Start < 4 {
			continue
		}
		t := snapToBeat(seg.Start, beatTimes)
		color := hotCuePalette[seg.Type]
		if color == "" {
			color = defaultCueColor
		}
		cues = append(cues, djmodel.HotCue{
			Name:  string(seg.Type),
			Time:  t,
			Color: color,
			Type:  djmodel.CueTypeCue,
			Index: idx,
		})
		idx++
	}

	hasIntro := false
	hasOutro := false
	for _, c := range cues {
		if c.Name == "Mix In" || c.Type == djmodel.CueTypeCue && c.Name == string(djmodel.SegmentIntro) {
			hasIntro = true
		}
		if c.Name == "Mix Out" || c.Name == string(djmodel.SegmentOutro) {
			hasOutro = true
		}
	}

	n := len(beatTimes)
	if !hasIntro && n >= 32 {
		cues = append(cues, djmodel.HotCue{
			Name: "Mix In", Time: beatTimes[16], Color: "#00FF00",
			Type: djmodel.CueTypeCue, Index: len(cues),
		})
	}
	if !hasOutro && n >= 64 {
		cues = append(cues, djmodel.HotCue{
			Name: "Mix Out", Time: beatTimes[n-32], Color: "#FFFF00",
			Type: djmodel.CueTypeCue, Index: len(cues),
		})
	}

	sort.Slice(cues, func(i, j int) bool { return cues[i].Time < cues[j].Time })
	if len(cues) > 8 {
		cues = cues[:8]
	}
	for i := range cues {
		cues[i].Index = i
	}
	return cues
}

func snapToBeat(t float64, beatTimes []float64) float64 {
	if len(beatTimes) == 0 {
		return t
	}
	best := beatTimes[0]
	bestDiff := math.Abs(t - best)
	for _, b := range beatTimes {
		if d := math.Abs(t - b); d < bestDiff {
			bestDiff = d
			best = b
		}
	}
	return best
}
