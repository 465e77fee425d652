package planner

import "github.com/cartomix/djcore/internal/djmodel"

// mixInDefaultFraction / mixOutDefaultFraction are spec §4.4 step 6's
// fallback cue positions when a track lacks an explicit Mix In/Mix Out cue.
const (
	mixInDefaultFraction  = 0.10
	mixOutDefaultFraction = 0.90
)

// materializeTiming computes deck assignments and start/end/fade times for
// every track, spec §4.4 step 6: decks alternate A↔B; each track's playable
// window is [mix_in, mix_out], trimmed to a length cap if set; tracks are
// walked left-to-right so each transition's start_time lines up with the
// preceding track's fade-out point. DJSetTrack.Order is 1-based per spec
// §3, so the first track in the set carries order 1, not 0.
func materializeTiming(ordered []evaluatedTrack, transitions []djmodel.TransitionPlan, lengthCap float64) *djmodel.DJSet {
	set := &djmodel.DJSet{Transitions: transitions}

	cursor := 0.0
	for i, et := range ordered {
		track := et.track
		mixIn, mixOut := playableWindow(track, lengthCap)

		deck := djmodel.DeckA
		if i%2 == 1 {
			deck = djmodel.DeckB
		}

		djt := djmodel.DJSetTrack{
			Order:          i + 1,
			Filepath:       track.Filepath,
			DeckID:         deck,
			StartTime:      cursor,
			HotCueInOffset: mixIn,
		}

		segmentLen := mixOut - mixIn
		djt.EndTime = cursor + segmentLen
		djt.HotCueOutOffset = mixOut

		if i < len(transitions) {
			tr := transitions[i]
			djt.FadeOutTime = djt.EndTime - tr.Duration
			if djt.FadeOutTime < djt.StartTime {
				djt.FadeOutTime = djt.StartTime
			}
		} else {
			djt.FadeOutTime = djt.EndTime
		}
		if i > 0 {
			djt.FadeInTime = djt.StartTime
		}

		set.Tracks = append(set.Tracks, djt)

		if i < len(transitions) {
			transitions[i].StartTime = djt.FadeOutTime
			cursor = djt.FadeOutTime
		} else {
			cursor = djt.EndTime
		}
	}

	if len(set.Tracks) > 0 {
		set.TotalDuration = set.Tracks[len(set.Tracks)-1].EndTime
	}
	set.Transitions = transitions
	return set
}

// playableWindow returns [mix_in, mix_out] for track, defaulting to
// [10%, 90%] of duration when no explicit Mix In/Mix Out cue exists, and
// trimming mix_out to respect lengthCap (0 means uncapped).
func playableWindow(track *djmodel.Track, lengthCap float64) (float64, float64) {
	mixIn := track.Duration * mixInDefaultFraction
	mixOut := track.Duration * mixOutDefaultFraction

	if cue := track.HotCueByName("Mix In"); cue != nil {
		mixIn = cue.Time
	}
	if cue := track.HotCueByName("Mix Out"); cue != nil {
		mixOut = cue.Time
	}

	if lengthCap > 0 && mixOut-mixIn > lengthCap {
		mixOut = mixIn + lengthCap
	}
	return mixIn, mixOut
}
