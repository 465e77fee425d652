package server

import (
	"encoding/json"

	"github.com/cartomix/djcore/gen/go/common"
	eng "github.com/cartomix/djcore/gen/go/engine"
	"github.com/cartomix/djcore/internal/djmodel"
)

// toProtoDJSet converts an internal djmodel.DJSet to its wire
// representation. Transitions are carried as individual JSON blobs (the
// engine.proto field is deliberately typed as opaque bytes to avoid an
// import cycle between the engine and oracle proto packages), matching
// the "protobuf wire type, djmodel domain type" split already established
// by internal/rpcconv.
func toProtoDJSet(set *djmodel.DJSet) *eng.DJSet {
	if set == nil {
		return nil
	}

	out := &eng.DJSet{
		Id:            set.ID,
		Name:          set.Name,
		Vibe:          set.Vibe,
		TotalDuration: set.TotalDuration,
		EnergyPattern: set.EnergyPattern,
	}

	for _, t := range set.Tracks {
		out.Tracks = append(out.Tracks, &eng.DJSetTrack{
			Order:           int32(t.Order),
			Track:           &common.TrackId{Filepath: t.Filepath},
			DeckId:          string(t.DeckID),
			StartTime:       t.StartTime,
			EndTime:         t.EndTime,
			FadeInTime:      t.FadeInTime,
			FadeOutTime:     t.FadeOutTime,
			HotCueInOffset:  t.HotCueInOffset,
			HotCueOutOffset: t.HotCueOutOffset,
			GainAdjust:      t.GainAdjust,
			EqLow:           t.EQLow,
			EqMid:           t.EQMid,
			EqHigh:          t.EQHigh,
			TempoAdjust:     t.TempoAdjust,
		})
	}

	for _, tr := range set.Transitions {
		if blob, err := json.Marshal(tr); err == nil {
			out.TransitionsJson = append(out.TransitionsJson, blob)
		}
	}

	return out
}

// fromProtoDJSet is toProtoDJSet's inverse, used by RenderSet to recover a
// DJSet a caller obtained from PlanSet and now wants rendered.
func fromProtoDJSet(pb *eng.DJSet) *djmodel.DJSet {
	if pb == nil {
		return nil
	}

	set := &djmodel.DJSet{
		ID:            pb.GetId(),
		Name:          pb.GetName(),
		Vibe:          pb.GetVibe(),
		TotalDuration: pb.GetTotalDuration(),
		EnergyPattern: pb.GetEnergyPattern(),
	}

	for _, t := range pb.GetTracks() {
		set.Tracks = append(set.Tracks, djmodel.DJSetTrack{
			Order:           int(t.GetOrder()),
			Filepath:        t.GetTrack().GetFilepath(),
			DeckID:          djmodel.DeckID(t.GetDeckId()),
			StartTime:       t.GetStartTime(),
			EndTime:         t.GetEndTime(),
			FadeInTime:      t.GetFadeInTime(),
			FadeOutTime:     t.GetFadeOutTime(),
			HotCueInOffset:  t.GetHotCueInOffset(),
			HotCueOutOffset: t.GetHotCueOutOffset(),
			GainAdjust:      t.GetGainAdjust(),
			EQLow:           t.GetEqLow(),
			EQMid:           t.GetEqMid(),
			EQHigh:          t.GetEqHigh(),
			TempoAdjust:     t.GetTempoAdjust(),
		})
	}

	for _, blob := range pb.GetTransitionsJson() {
		var tr djmodel.TransitionPlan
		if err := json.Unmarshal(blob, &tr); err == nil {
			set.Transitions = append(set.Transitions, tr)
		}
	}

	return set
}
