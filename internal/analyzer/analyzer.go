// Package analyzer implements spec §4.1: given a filepath, produce a
// complete analyzed Track record. Analyzer abstracts the analysis backend —
// can be a remote gRPC worker or the local DSP pipeline — mirroring the
// teacher's internal/analyzer interface split between Client and
// CPUFallback.
package analyzer

import (
	"context"

	"github.com/cartomix/djcore/internal/djmodel"
)

// Analyzer produces an analyzed Track from a filepath.
type Analyzer interface {
	AnalyzeTrack(ctx context.Context, filepath string) (*djmodel.Track, error)
	Close() error
}

// CurrentAnalysisVersion is bumped whenever the analysis algorithm changes
// in a way that should force re-analysis of already-stored tracks.
const CurrentAnalysisVersion = 1

// MinDecodableSeconds is the shortest track the analyzer will accept;
// shorter files return a DecodeError per spec §4.1 failure semantics.
const MinDecodableSeconds = 10.0
