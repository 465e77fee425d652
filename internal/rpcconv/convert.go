// Package rpcconv converts between the plain djmodel domain types used by
// business logic and the generated protobuf wire types at RPC/storage
// boundaries. Centralizing the conversion implements spec §9's redesign
// note: "validate all oracle payloads against the §3 schemas at the
// boundary; internal code sees only validated records. Unknown fields are
// ignored, not propagated." Grounded on the teacher's
// internal/storage/analysis.go split between wire messages and row structs.
package rpcconv

import (
	"github.com/cartomix/djcore/gen/go/common"
	"github.com/cartomix/djcore/gen/go/oracle"
	"github.com/cartomix/djcore/internal/djmodel"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// TrackFromProto converts a wire TrackAnalysis into the domain Track,
// defaulting any field the remote side omitted rather than propagating
// zero-value ambiguity.
func TrackFromProto(a *common.TrackAnalysis) *djmodel.Track {
	if a == nil {
		return &djmodel.Track{}
	}
	t := &djmodel.Track{
		FileHash: a.GetFileHash(),
		Title:    a.GetTitle(),
		Artist:   a.GetArtist(),
		Album:    a.GetAlbum(),
		Genre:    a.GetGenre(),
		Year:     int(a.GetYear()),
		Duration: a.GetDuration(),

		BPM:       a.GetBpm(),
		BeatTimes: append([]float64(nil), a.GetBeatTimes()...),

		Key:           a.GetKey(),
		CamelotKey:    a.GetCamelotKey(),
		KeyConfidence: a.GetKeyConfidence(),

		EnergyLevel: a.GetEnergyLevel(),

		AnalysisVersion: int(a.GetAnalysisVersion()),
	}
	if id := a.GetId(); id != nil {
		t.Filepath = id.GetFilepath()
	}
	if ts := a.GetLastModified(); ts != nil {
		t.LastModified = ts.AsTime()
	}
	switch a.GetKeyScale() {
	case common.KeyScale_KEY_SCALE_MAJOR:
		t.KeyScale = djmodel.KeyScaleMajor
	case common.KeyScale_KEY_SCALE_MINOR:
		t.KeyScale = djmodel.KeyScaleMinor
	}
	switch a.GetEnergyProfile() {
	case common.EnergyProfile_ENERGY_PROFILE_LOW:
		t.EnergyProfile = djmodel.EnergyProfileLow
	case common.EnergyProfile_ENERGY_PROFILE_MEDIUM:
		t.EnergyProfile = djmodel.EnergyProfileMedium
	case common.EnergyProfile_ENERGY_PROFILE_HIGH:
		t.EnergyProfile = djmodel.EnergyProfileHigh
	case common.EnergyProfile_ENERGY_PROFILE_DYNAMIC:
		t.EnergyProfile = djmodel.EnergyProfileDynamic
	}
	for _, s := range a.GetSections() {
		t.Sections = append(t.Sections, segmentFromProto(s))
	}
	for _, c := range a.GetCuePoints() {
		t.CuePoints = append(t.CuePoints, cueFromProto(c))
	}
	return t
}

func segmentFromProto(s *common.StructureSegment) djmodel.StructureSegment {
	seg := djmodel.StructureSegment{Start: s.GetStart(), End: s.GetEnd(), Energy: s.GetEnergy()}
	switch s.GetType() {
	case common.SegmentType_SEGMENT_TYPE_INTRO:
		seg.Type = djmodel.SegmentIntro
	case common.SegmentType_SEGMENT_TYPE_VERSE:
		seg.Type = djmodel.SegmentVerse
	case common.SegmentType_SEGMENT_TYPE_CHORUS:
		seg.Type = djmodel.SegmentChorus
	case common.SegmentType_SEGMENT_TYPE_BRIDGE:
		seg.Type = djmodel.SegmentBridge
	case common.SegmentType_SEGMENT_TYPE_OUTRO:
		seg.Type = djmodel.SegmentOutro
	}
	return seg
}

func cueFromProto(c *common.HotCue) djmodel.HotCue {
	cue := djmodel.HotCue{Name: c.GetName(), Time: c.GetTime(), Color: c.GetColor(), Index: int(c.GetIndex())}
	switch c.GetType() {
	case common.CueType_CUE_TYPE_CUE:
		cue.Type = djmodel.CueTypeCue
	case common.CueType_CUE_TYPE_LOOP:
		cue.Type = djmodel.CueTypeLoop
	case common.CueType_CUE_TYPE_PHRASE:
		cue.Type = djmodel.CueTypePhrase
	}
	return cue
}

// TrackToProto converts a domain Track into its wire representation, used
// when serving AnalyzerWorkerAPI/DJCoreAPI responses.
func TrackToProto(t *djmodel.Track) *common.TrackAnalysis {
	if t == nil {
		return nil
	}
	a := &common.TrackAnalysis{
		Id:              &common.TrackId{Filepath: t.Filepath},
		FileHash:        t.FileHash,
		LastModified:    timestamppb.New(t.LastModified),
		Title:           t.Title,
		Artist:          t.Artist,
		Album:           t.Album,
		Genre:           t.Genre,
		Year:            int32(t.Year),
		Duration:        t.Duration,
		Bpm:             t.BPM,
		BeatTimes:       append([]float64(nil), t.BeatTimes...),
		Key:             t.Key,
		CamelotKey:      t.CamelotKey,
		KeyConfidence:   t.KeyConfidence,
		EnergyLevel:     t.EnergyLevel,
		AnalysisVersion: int32(t.AnalysisVersion),
	}
	switch t.KeyScale {
	case djmodel.KeyScaleMajor:
		a.KeyScale = common.KeyScale_KEY_SCALE_MAJOR
	case djmodel.KeyScaleMinor:
		a.KeyScale = common.KeyScale_KEY_SCALE_MINOR
	}
	switch t.EnergyProfile {
	case djmodel.EnergyProfileLow:
		a.EnergyProfile = common.EnergyProfile_ENERGY_PROFILE_LOW
	case djmodel.EnergyProfileMedium:
		a.EnergyProfile = common.EnergyProfile_ENERGY_PROFILE_MEDIUM
	case djmodel.EnergyProfileHigh:
		a.EnergyProfile = common.EnergyProfile_ENERGY_PROFILE_HIGH
	case djmodel.EnergyProfileDynamic:
		a.EnergyProfile = common.EnergyProfile_ENERGY_PROFILE_DYNAMIC
	}
	for _, s := range t.Sections {
		a.Sections = append(a.Sections, segmentToProto(s))
	}
	for _, c := range t.CuePoints {
		a.CuePoints = append(a.CuePoints, cueToProto(c))
	}
	return a
}

func segmentToProto(s djmodel.StructureSegment) *common.StructureSegment {
	out := &common.StructureSegment{Start: s.Start, End: s.End, Energy: s.Energy}
	switch s.Type {
	case djmodel.SegmentIntro:
		out.Type = common.SegmentType_SEGMENT_TYPE_INTRO
	case djmodel.SegmentVerse:
		out.Type = common.SegmentType_SEGMENT_TYPE_VERSE
	case djmodel.SegmentChorus:
		out.Type = common.SegmentType_SEGMENT_TYPE_CHORUS
	case djmodel.SegmentBridge:
		out.Type = common.SegmentType_SEGMENT_TYPE_BRIDGE
	case djmodel.SegmentOutro:
		out.Type = common.SegmentType_SEGMENT_TYPE_OUTRO
	}
	return out
}

func cueToProto(c djmodel.HotCue) *common.HotCue {
	out := &common.HotCue{Name: c.Name, Time: c.Time, Color: c.Color, Index: int32(c.Index)}
	switch c.Type {
	case djmodel.CueTypeCue:
		out.Type = common.CueType_CUE_TYPE_CUE
	case djmodel.CueTypeLoop:
		out.Type = common.CueType_CUE_TYPE_LOOP
	case djmodel.CueTypePhrase:
		out.Type = common.CueType_CUE_TYPE_PHRASE
	}
	return out
}

// VibeAnalysisFromProto validates and converts an oracle VibeAnalysis
// response, substituting spec §4.4 step 1 defaults for any missing range.
func VibeAnalysisFromProto(v *oracle.VibeAnalysis) djmodel.VibeAnalysis {
	out := djmodel.VibeAnalysis{EnergyLevel: 0.5, BPMRange: djmodel.BPMRange{Min: 100, Max: 140}}
	if v == nil {
		return out
	}
	out.EnergyLevel = v.GetEnergyLevel()
	out.MoodKeywords = append([]string(nil), v.GetMoodKeywords()...)
	out.GenrePreferences = append([]string(nil), v.GetGenrePreferences()...)
	if r := v.GetBpmRange(); r != nil && r.GetMax() > r.GetMin() {
		out.BPMRange = djmodel.BPMRange{Min: r.GetMin(), Max: r.GetMax()}
	}
	switch v.GetEnergyProgression() {
	case oracle.EnergyProgression_ENERGY_PROGRESSION_STEADY:
		out.EnergyProgression = djmodel.ProgressionSteady
	case oracle.EnergyProgression_ENERGY_PROGRESSION_BUILDING:
		out.EnergyProgression = djmodel.ProgressionBuilding
	case oracle.EnergyProgression_ENERGY_PROGRESSION_COOLING:
		out.EnergyProgression = djmodel.ProgressionCooling
	case oracle.EnergyProgression_ENERGY_PROGRESSION_WAVE:
		out.EnergyProgression = djmodel.ProgressionWave
	}
	switch v.GetMixingStyle() {
	case oracle.MixingStyle_MIXING_STYLE_SMOOTH:
		out.MixingStyle = djmodel.MixingSmooth
	case oracle.MixingStyle_MIXING_STYLE_AGGRESSIVE:
		out.MixingStyle = djmodel.MixingAggressive
	case oracle.MixingStyle_MIXING_STYLE_CREATIVE:
		out.MixingStyle = djmodel.MixingCreative
	}
	return out
}

// TrackEvaluationFromProto converts an oracle TrackEvaluation response.
func TrackEvaluationFromProto(filepath string, e *oracle.TrackEvaluation) djmodel.TrackEvaluation {
	if e == nil {
		return djmodel.TrackEvaluation{Filepath: filepath}
	}
	return djmodel.TrackEvaluation{
		Filepath:          filepath,
		Score:             e.GetScore(),
		Reasoning:         e.GetReasoning(),
		EnergyMatch:       e.GetEnergyMatch(),
		SuggestedPosition: int(e.GetSuggestedPosition()),
		MixingNotes:       e.GetMixingNotes(),
	}
}

// TransitionPlanFromProto converts and repairs an oracle TransitionPlan
// response per spec §4.4 step 5's validate/repair rules.
func TransitionPlanFromProto(p *oracle.TransitionPlan) djmodel.TransitionPlan {
	out := djmodel.TransitionPlan{Duration: 8, Type: djmodel.TransitionSmoothBlend, CrossfadeCurve: djmodel.CurveSCurve}
	if p == nil {
		return out
	}
	out.FromOrder = int(p.GetFromOrder())
	out.ToOrder = int(p.GetToOrder())
	out.StartTime = p.GetStartTime()
	out.Duration = p.GetDuration()
	out.OutroCue = p.GetOutroCue()
	out.IntroCue = p.GetIntroCue()
	out.CompatibilityScore = p.GetCompatibilityScore()
	out.RiskLevel = p.GetRiskLevel()

	switch p.GetType() {
	case oracle.TransitionType_TRANSITION_TYPE_QUICK_CUT:
		out.Type = djmodel.TransitionQuickCut
	case oracle.TransitionType_TRANSITION_TYPE_EFFECTS_TRANSITION:
		out.Type = djmodel.TransitionEffectsOnly
	case oracle.TransitionType_TRANSITION_TYPE_BEATMATCH_BLEND:
		out.Type = djmodel.TransitionBeatmatchBlend
	case oracle.TransitionType_TRANSITION_TYPE_SCRATCH_CUT:
		out.Type = djmodel.TransitionScratchCut
	case oracle.TransitionType_TRANSITION_TYPE_FADE_TO_SILENCE:
		out.Type = djmodel.TransitionFadeToSilence
	default:
		out.Type = djmodel.TransitionSmoothBlend
	}
	switch p.GetCrossfadeCurve() {
	case oracle.CrossfadeCurve_CROSSFADE_CURVE_LINEAR:
		out.CrossfadeCurve = djmodel.CurveLinear
	case oracle.CrossfadeCurve_CROSSFADE_CURVE_EXPONENTIAL:
		out.CrossfadeCurve = djmodel.CurveExponential
	default:
		out.CrossfadeCurve = djmodel.CurveSCurve
	}
	for _, e := range p.GetEffects() {
		out.Effects = append(out.Effects, effectFromProto(e))
	}
	return out
}

// PlaylistFinalizationFromProto converts an oracle PlaylistFinalization
// response.
func PlaylistFinalizationFromProto(f *oracle.PlaylistFinalization) djmodel.PlaylistFinalization {
	out := djmodel.PlaylistFinalization{}
	if f == nil {
		return out
	}
	for _, id := range f.GetTracks() {
		out.Tracks = append(out.Tracks, id.GetFilepath())
	}
	out.OverallFlow = f.GetOverallFlow()
	out.KeyMoments = append([]string(nil), f.GetKeyMoments()...)
	out.SetDuration = f.GetSetDuration()
	out.EnergyGraph = append([]float64(nil), f.GetEnergyGraph()...)
	switch f.GetMixingStyle() {
	case oracle.MixingStyle_MIXING_STYLE_SMOOTH:
		out.MixingStyle = djmodel.MixingSmooth
	case oracle.MixingStyle_MIXING_STYLE_AGGRESSIVE:
		out.MixingStyle = djmodel.MixingAggressive
	case oracle.MixingStyle_MIXING_STYLE_CREATIVE:
		out.MixingStyle = djmodel.MixingCreative
	}
	return out
}

func effectFromProto(e *oracle.TransitionEffect) djmodel.TransitionEffect {
	out := djmodel.TransitionEffect{
		StartAt:   e.GetStartAt(),
		Duration:  e.GetDuration(),
		Intensity: e.GetIntensity(),
	}
	if params := e.GetParameters(); len(params) > 0 {
		out.Parameters = make(map[string]float64, len(params))
		for k, v := range params {
			out.Parameters[k] = v
		}
	}
	switch e.GetType() {
	case oracle.EffectType_EFFECT_TYPE_ECHO:
		out.Type = djmodel.EffectEcho
	case oracle.EffectType_EFFECT_TYPE_REVERB:
		out.Type = djmodel.EffectReverb
	case oracle.EffectType_EFFECT_TYPE_DELAY:
		out.Type = djmodel.EffectDelay
	case oracle.EffectType_EFFECT_TYPE_GATE:
		out.Type = djmodel.EffectGate
	case oracle.EffectType_EFFECT_TYPE_FLANGER:
		out.Type = djmodel.EffectFlanger
	case oracle.EffectType_EFFECT_TYPE_EQ_SWEEP:
		out.Type = djmodel.EffectEQSweep
	case oracle.EffectType_EFFECT_TYPE_SCRATCH:
		out.Type = djmodel.EffectScratch
	default:
		out.Type = djmodel.EffectFilterSweep
	}
	return out
}
