// Package mapmatch is the engine's top-level orchestrator: conditioning,
// candidate search, HMM/router-backed Viterbi decoding, route
// reconstruction, and summary building behind a single Match call.
// Grounded on azybler-map_router's pkg/api handlers — a sentinel-error-to-
// result mapping chain (routing.ErrPointTooFar/ErrNoRoute) and a recover-
// around-the-call boundary (pkg/api/server.go's withMiddleware) —
// generalized from an HTTP handler's request/response pair to a single Go
// call.
package mapmatch

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"mapmatch/internal/candidate"
	"mapmatch/internal/condition"
	"mapmatch/internal/config"
	"mapmatch/internal/decoder"
	"mapmatch/internal/gateway"
	"mapmatch/internal/osm"
	"mapmatch/internal/reconstruct"
	"mapmatch/internal/router"
	"mapmatch/internal/summary"
	"mapmatch/internal/workerpool"
)

// Result classifies one Match call's outcome.
type Result int

const (
	ResultOK Result = iota
	ResultNotEnoughPoints
	ResultDBError
	ResultInternalError
)

func (r Result) String() string {
	switch r {
	case ResultOK:
		return "ok"
	case ResultNotEnoughPoints:
		return "not_enough_points"
	case ResultDBError:
		return "db_error"
	case ResultInternalError:
		return "internal_error"
	default:
		return "unknown"
	}
}

// ErrNotEnoughPoints is returned when fewer than cfg.MinPoints non-gap
// observations survive conditioning and candidate search.
var ErrNotEnoughPoints = errors.New("mapmatch: fewer than min_points non-gap observations")

// ErrInternal wraps any failure that is not a gateway error or a shortage
// of non-gap points: a decode that found no surviving path, or a recovered
// panic.
var ErrInternal = errors.New("mapmatch: internal error")

// reconstructCutoff is effectively unbounded: the decoder has already
// rejected any adjacent pair whose dt-scaled cutoff (router.Distance)
// couldn't reach, so stitching only needs to recover that same path, not
// re-apply the bound.
const reconstructCutoff = math.MaxFloat64

// Output is everything one Match call produces.
type Output struct {
	Points      []summary.Point
	Segments    []summary.Segment
	Stats       summary.Stats
	Linestrings []reconstruct.Linestring
	Result      Result
}

// Match runs the full map-matching pipeline over raw against the road
// network reachable through gw. It never panics across this boundary: a
// recovered panic is reported as ResultInternalError/ErrInternal, the way
// azybler-map_router's HTTP server recovers around each handler.
func Match(ctx context.Context, gw gateway.Gateway, raw []condition.RawPoint, cfg config.Config, log *zap.Logger) (out *Output, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error("mapmatch: recovered panic", zap.Any("panic", rec))
			out = &Output{Result: ResultInternalError}
			err = fmt.Errorf("%w: %v", ErrInternal, rec)
		}
	}()

	return match(ctx, gw, raw, cfg, log)
}

func match(ctx context.Context, gw gateway.Gateway, raw []condition.RawPoint, cfg config.Config, log *zap.Logger) (*Output, error) {
	conditionStart := time.Now()
	conditioned, err := condition.Clean(raw, condition.Params{
		MinVelocity: 0,
		MaxVelocity: cfg.MaxVelocity,
		MinDistance: cfg.MinPointDistance,
		Window:      cfg.ParameterWindow,
	})
	if err != nil {
		log.Warn("mapmatch: conditioning produced no points", zap.Error(err))
		return &Output{Result: ResultNotEnoughPoints}, fmt.Errorf("%w: %v", ErrNotEnoughPoints, err)
	}
	conditioningMS := time.Since(conditionStart).Milliseconds()

	cached := gateway.NewCached(gw)

	searchStart := time.Now()
	rawCands, err := searchCandidates(ctx, cached, conditioned, cfg.SearchRadius, cfg.DBThreads)
	if err != nil {
		return dbErrorOutput(log, err)
	}
	candidateSearchMS := time.Since(searchStart).Milliseconds()

	kept := make([]condition.ConditionedPoint, 0, len(conditioned))
	cands := make([][]candidate.Candidate, 0, len(conditioned))
	var gaps int
	for i, found := range rawCands {
		if found == nil {
			gaps++
			continue
		}
		kept = append(kept, conditioned[i])
		cands = append(cands, found)
	}

	if len(kept) < cfg.MinPoints {
		log.Warn("mapmatch: not enough non-gap points",
			zap.Int("kept", len(kept)), zap.Int("gaps", gaps), zap.Int("min_points", cfg.MinPoints))
		return &Output{Result: ResultNotEnoughPoints}, ErrNotEnoughPoints
	}

	rtr := router.New(cached)
	lattice := decoder.NewLattice(kept, cands, rtr, cfg.SigmaZ, cfg.BearingPenaltyWeight, cfg.Beta, cfg.MaxVelocity)
	dec := &decoder.Decoder{Lookahead: cfg.ViterbiLookahead, MaxIter: cfg.MaxIter, Lazy: cfg.LazyProbabilities}

	decodeStart := time.Now()
	decoded, err := dec.Decode(ctx, lattice, rtr, cfg.SigmaZ, cfg.BearingPenaltyWeight, cfg.Beta, cfg.MaxVelocity)
	if err != nil {
		if errors.Is(err, decoder.ErrNoPath) {
			log.Error("mapmatch: decode found no surviving path", zap.Error(err))
			return &Output{Result: ResultInternalError}, fmt.Errorf("%w: %v", ErrInternal, err)
		}
		return dbErrorOutput(log, err)
	}
	decodingMS := time.Since(decodeStart).Milliseconds()

	reconstructStart := time.Now()
	route, err := reconstruct.Reconstruct(ctx, rtr, decoded.Chosen, reconstructCutoff, decoded.Breaks)
	if err != nil {
		return dbErrorOutput(log, err)
	}
	reconstructionMS := time.Since(reconstructStart).Milliseconds()

	node2Tags, err := buildNode2Tags(ctx, cached, route)
	if err != nil {
		return dbErrorOutput(log, err)
	}

	stats := summary.BuildStats(len(raw), conditioned, decoded.Chosen, route, decoded.Removed)
	stats.ConditioningMS = conditioningMS
	stats.CandidateSearchMS = candidateSearchMS
	stats.DecodingMS = decodingMS
	stats.ReconstructionMS = reconstructionMS

	return &Output{
		Points:      summary.Points(kept, decoded.Chosen, decoded.OriginalIndex, decoded.Removed),
		Segments:    summary.Segments(route, node2Tags),
		Stats:       stats,
		Linestrings: reconstruct.Linestrings(route),
		Result:      ResultOK,
	}, nil
}

// searchCandidates runs candidate.Search for every conditioned point, fanned
// out through workerpool.Run with width db_threads since gateway.Cached is
// safe to call concurrently. The result at index i is nil when the point was
// a gap (candidate.ErrGap), preserving each point's position rather than
// compacting the slice, so the caller can tell a gap from a database error.
func searchCandidates(ctx context.Context, gw gateway.Gateway, conditioned []condition.ConditionedPoint, radiusM float64, width int) ([][]candidate.Candidate, error) {
	out := make([][]candidate.Candidate, len(conditioned))
	err := workerpool.Run(ctx, indices(len(conditioned)), width, func(ctx context.Context, i int) error {
		found, err := candidate.Search(ctx, gw, conditioned[i], radiusM)
		if err != nil {
			if errors.Is(err, candidate.ErrGap) {
				return nil
			}
			return err
		}
		out[i] = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func indices(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

// buildNode2Tags resolves the tags of every segment's Node2, the one piece
// of the segments summary that isn't already carried on wayseg.Segment.
func buildNode2Tags(ctx context.Context, gw gateway.Gateway, route *reconstruct.StitchedRoute) (map[int64]string, error) {
	out := make(map[int64]string, len(route.Segments))
	for _, s := range route.Segments {
		id := int64(s.Node2)
		if _, ok := out[id]; ok {
			continue
		}
		_, _, tags, err := gw.Node(ctx, osm.NodeID(id))
		if err != nil {
			return nil, err
		}
		out[id] = summary.FormatTags(tags)
	}
	return out, nil
}

func dbErrorOutput(log *zap.Logger, err error) (*Output, error) {
	if errors.Is(err, gateway.ErrTransient) {
		log.Error("mapmatch: gateway error", zap.Error(err))
		return &Output{Result: ResultDBError}, err
	}
	log.Error("mapmatch: internal error", zap.Error(err))
	return &Output{Result: ResultInternalError}, fmt.Errorf("%w: %v", ErrInternal, err)
}
