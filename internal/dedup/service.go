// Package dedup implements the cross-source deduplication and merge engine.
// It compares raw incident records pairwise across sources, scores their
// likelihood of describing the same real-world event, picks the
// authoritative record of each matching pair, folds complementary data into
// it, and durably demotes the duplicate so the decision is never
// re-evaluated.
package dedup

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/seawatch/seawatch/internal/database"
	"github.com/seawatch/seawatch/internal/downstream"
	"github.com/seawatch/seawatch/internal/store"
	"github.com/seawatch/seawatch/internal/vocab"
)

// ErrDownstreamTrigger marks a run whose merges committed but whose rescan
// signal failed. Callers distinguish it from pre-merge failures with
// errors.Is; the RunResult is still returned alongside it.
var ErrDownstreamTrigger = errors.New("downstream trigger failed")

const (
	// candidateThreshold is the minimum composite score for a pair to be
	// reported as a potential match at all.
	candidateThreshold = 0.6
	// highConfidenceThreshold tags candidates for reporting; merge
	// eligibility is governed by Options.ConfidenceThreshold.
	highConfidenceThreshold = 0.8

	defaultConfidenceThreshold = 0.7
	defaultMaxRecords          = 100
	defaultLookbackDays        = 30

	fetchPageSize    = 100
	scoreConcurrency = 8
)

// Pair actions recorded in RunResult.PairResults
const (
	ActionMerged         = "merged"
	ActionDryRun         = "dry_run"
	ActionNoop           = "noop"
	ActionSkipped        = "skipped"
	ActionFailed         = "failed"
	ActionBelowThreshold = "below_threshold"
)

// Options configures a single deduplication run
type Options struct {
	// DryRun computes candidates and decisions but skips all writes
	DryRun bool
	// ConfidenceThreshold is the minimum score to commit a merge
	ConfidenceThreshold float64
	// MaxRecords caps how many unprocessed records one run fetches
	MaxRecords int
	// LookbackDays is the trailing fetch window
	LookbackDays int
}

// DefaultOptions returns the standard run configuration
func DefaultOptions() Options {
	return Options{
		DryRun:              false,
		ConfidenceThreshold: defaultConfidenceThreshold,
		MaxRecords:          defaultMaxRecords,
		LookbackDays:        defaultLookbackDays,
	}
}

// withDefaults fills zero values so a partially-populated Options behaves
// like DefaultOptions for the unset fields.
func (o Options) withDefaults() Options {
	if o.ConfidenceThreshold == 0 {
		o.ConfidenceThreshold = defaultConfidenceThreshold
	}
	if o.MaxRecords == 0 {
		o.MaxRecords = defaultMaxRecords
	}
	if o.LookbackDays == 0 {
		o.LookbackDays = defaultLookbackDays
	}
	return o
}

// PairResult is the per-pair decision log entry
type PairResult struct {
	RecordID1    string    `json:"record_id_1"`
	RecordID2    string    `json:"record_id_2"`
	Source1      string    `json:"source_1"`
	Source2      string    `json:"source_2"`
	Score        PairScore `json:"score"`
	Action       string    `json:"action"`
	Reason       string    `json:"reason,omitempty"`
	PrimaryID    string    `json:"primary_id,omitempty"`
	ManualReview bool      `json:"manual_review,omitempty"`
}

// RunResult summarizes one deduplication run
type RunResult struct {
	RunID                   string       `json:"run_id"`
	RecordsAnalyzed         int          `json:"records_analyzed"`
	SourceCount             int          `json:"source_count"`
	PotentialMatchesFound   int          `json:"potential_matches_found"`
	HighConfidenceMatches   int          `json:"high_confidence_matches"`
	MediumConfidenceMatches int          `json:"medium_confidence_matches"`
	MergesPerformed         int          `json:"merges_performed"`
	DryRun                  bool         `json:"dry_run"`
	PairResults             []PairResult `json:"pair_results"`
}

// candidate is a scored cross-source pair awaiting processing
type candidate struct {
	a, b  *database.RawRecord
	score PairScore
}

// Service orchestrates deduplication runs over the record store
type Service struct {
	store    store.Store
	scorer   *Scorer
	selector *Selector
	merger   *Merger
	resolver *Resolver
	trigger  downstream.Trigger
	logger   zerolog.Logger
}

// NewService wires the engine components. vocabulary may be nil for purely
// lexical incident-type comparison.
func NewService(st store.Store, vocabulary vocab.Vocabulary, trigger downstream.Trigger, weights EngineWeights, logger zerolog.Logger) *Service {
	return &Service{
		store:    st,
		scorer:   NewScorer(weights.Score, vocabulary),
		selector: NewSelector(weights.Completeness, weights.Priorities, weights.Selector),
		merger:   NewMerger(),
		resolver: NewResolver(st),
		trigger:  trigger,
		logger:   logger,
	}
}

// Run executes one deduplication pass. A fetch failure is fatal and returns
// no result. Per-pair failures are logged and counted but never abort the
// run. A downstream-trigger failure returns the completed RunResult together
// with an error wrapping ErrDownstreamTrigger.
func (s *Service) Run(ctx context.Context, opts Options) (*RunResult, error) {
	opts = opts.withDefaults()
	runID := uuid.NewString()
	logger := s.logger.With().Str("run_id", runID).Bool("dry_run", opts.DryRun).Logger()

	records, err := s.fetchUnprocessed(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("fetch unprocessed records: %w", err)
	}

	bySource := partitionBySource(records)
	result := &RunResult{
		RunID:           runID,
		RecordsAnalyzed: len(records),
		SourceCount:     len(bySource),
		DryRun:          opts.DryRun,
	}

	logger.Info().
		Int("records", len(records)).
		Int("sources", len(bySource)).
		Msg("deduplication run started")

	candidates, err := s.scoreCandidates(ctx, bySource, logger)
	if err != nil {
		return nil, err
	}

	for _, c := range candidates {
		result.PotentialMatchesFound++
		if c.score.Total >= highConfidenceThreshold {
			result.HighConfidenceMatches++
		} else {
			result.MediumConfidenceMatches++
		}
	}

	// Rank by score descending; ties break on record ids so runs over the
	// same data process pairs in the same order.
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score.Total != candidates[j].score.Total {
			return candidates[i].score.Total > candidates[j].score.Total
		}
		if candidates[i].a.ID != candidates[j].a.ID {
			return candidates[i].a.ID < candidates[j].a.ID
		}
		return candidates[i].b.ID < candidates[j].b.ID
	})

	if err := s.processCandidates(ctx, candidates, opts, result, logger); err != nil {
		return nil, err
	}

	if !opts.DryRun {
		if err := s.trigger.TriggerRescan(ctx); err != nil {
			logger.Error().Err(err).Msg("downstream rescan trigger failed after merges were committed")
			return result, fmt.Errorf("%w: %v", ErrDownstreamTrigger, err)
		}
	}

	logger.Info().
		Int("potential_matches", result.PotentialMatchesFound).
		Int("high_confidence", result.HighConfidenceMatches).
		Int("merges", result.MergesPerformed).
		Msg("deduplication run finished")

	return result, nil
}

// fetchUnprocessed pages through the store until the record cap or
// pagination exhaustion.
func (s *Service) fetchUnprocessed(ctx context.Context, opts Options) ([]database.RawRecord, error) {
	since := time.Now().UTC().AddDate(0, 0, -opts.LookbackDays)
	var records []database.RawRecord
	for offset := 0; len(records) < opts.MaxRecords; offset += fetchPageSize {
		limit := fetchPageSize
		if remaining := opts.MaxRecords - len(records); remaining < limit {
			limit = remaining
		}
		page, err := s.store.ListUnprocessed(ctx, since, limit, offset)
		if err != nil {
			return nil, err
		}
		records = append(records, page...)
		if len(page) < limit {
			break
		}
	}
	return records, nil
}

func partitionBySource(records []database.RawRecord) map[string][]*database.RawRecord {
	bySource := make(map[string][]*database.RawRecord)
	for i := range records {
		record := &records[i]
		bySource[record.Source] = append(bySource[record.Source], record)
	}
	return bySource
}

// scoreCandidates generates the cross product of every unordered pair of
// distinct sources and scores all pairs on a bounded worker pool. Scoring
// has no side effects, so the fan-out is safe; only pairs at or above the
// candidate threshold survive.
func (s *Service) scoreCandidates(ctx context.Context, bySource map[string][]*database.RawRecord, logger zerolog.Logger) ([]candidate, error) {
	sources := make([]string, 0, len(bySource))
	for source := range bySource {
		sources = append(sources, source)
	}
	sort.Strings(sources)

	var pairs []candidate
	for i := 0; i < len(sources); i++ {
		for j := i + 1; j < len(sources); j++ {
			for _, a := range bySource[sources[i]] {
				for _, b := range bySource[sources[j]] {
					pairs = append(pairs, candidate{a: a, b: b})
				}
			}
		}
	}
	if len(pairs) == 0 {
		return nil, nil
	}

	var wg sync.WaitGroup
	indexes := make(chan int)
	errOnce := sync.Once{}
	var scoreErr error

	workers := scoreConcurrency
	if workers > len(pairs) {
		workers = len(pairs)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				score, err := s.scorer.Score(ctx, pairs[i].a, pairs[i].b)
				if err != nil {
					errOnce.Do(func() { scoreErr = err })
					continue
				}
				pairs[i].score = score
			}
		}()
	}
	for i := range pairs {
		indexes <- i
	}
	close(indexes)
	wg.Wait()

	if scoreErr != nil {
		return nil, fmt.Errorf("score candidate pairs: %w", scoreErr)
	}

	var accepted []candidate
	for _, pair := range pairs {
		if pair.score.Reject != "" {
			continue
		}
		if pair.score.Total >= candidateThreshold {
			accepted = append(accepted, pair)
		}
	}
	logger.Debug().
		Int("pairs_scored", len(pairs)).
		Int("pairs_accepted", len(accepted)).
		Msg("candidate scoring complete")
	return accepted, nil
}

// processCandidates applies accepted merges in rank order. The loop is
// strictly sequential: each iteration depends on the processed set built by
// earlier ones and reads store state earlier iterations may have mutated.
func (s *Service) processCandidates(ctx context.Context, candidates []candidate, opts Options, result *RunResult, logger zerolog.Logger) error {
	processed := make(map[string]bool)

	for _, c := range candidates {
		// Cancellation between iterations leaves the store consistent:
		// committed pairs are complete, everything else stays unset.
		if err := ctx.Err(); err != nil {
			return err
		}

		pair := PairResult{
			RecordID1: c.a.ID,
			RecordID2: c.b.ID,
			Source1:   c.a.Source,
			Source2:   c.b.Source,
			Score:     c.score,
		}

		switch {
		case processed[c.a.ID] || processed[c.b.ID]:
			pair.Action = ActionSkipped
			pair.Reason = "record already processed this run"

		case c.score.Total < opts.ConfidenceThreshold:
			pair.Action = ActionBelowThreshold
			pair.Reason = fmt.Sprintf("score %.2f below merge threshold %.2f", c.score.Total, opts.ConfidenceThreshold)

		case sameIncidentNoop(c.a, c.b):
			pair.Action = ActionNoop
			pair.Reason = "records already point at the same consolidated incident"
			processed[c.a.ID] = true
			processed[c.b.ID] = true

		default:
			s.processPair(ctx, c, opts, &pair, processed, logger)
		}

		result.PairResults = append(result.PairResults, pair)
		if pair.Action == ActionMerged {
			result.MergesPerformed++
		}
	}
	return nil
}

// processPair resolves both sides to their roots, selects the primary,
// builds the patches and commits both writes. The pair's original record ids
// are marked processed regardless of outcome to guarantee single-pass
// termination.
func (s *Service) processPair(ctx context.Context, c candidate, opts Options, pair *PairResult, processed map[string]bool, logger zerolog.Logger) {
	processed[c.a.ID] = true
	processed[c.b.ID] = true

	rootA, err := s.resolver.Resolve(ctx, c.a.ID)
	if err != nil {
		pair.Action = ActionSkipped
		pair.Reason = fmt.Sprintf("chain resolution failed for %s: %v", c.a.ID, err)
		logger.Warn().Err(err).Str("record_id", c.a.ID).Msg("skipping pair: chain resolution failed")
		return
	}
	rootB, err := s.resolver.Resolve(ctx, c.b.ID)
	if err != nil {
		pair.Action = ActionSkipped
		pair.Reason = fmt.Sprintf("chain resolution failed for %s: %v", c.b.ID, err)
		logger.Warn().Err(err).Str("record_id", c.b.ID).Msg("skipping pair: chain resolution failed")
		return
	}

	if rootA.ID == rootB.ID {
		pair.Action = ActionNoop
		pair.Reason = "records already share a root"
		return
	}
	processed[rootA.ID] = true
	processed[rootB.ID] = true

	selection := s.selector.Select(rootA, rootB)
	pair.PrimaryID = selection.Primary.ID

	patches := s.merger.Build(selection.Primary, selection.Secondary, c.score.Total)
	pair.ManualReview = patches.ManualReview
	for _, warning := range patches.Warnings {
		logger.Warn().
			Str("primary_id", selection.Primary.ID).
			Str("secondary_id", selection.Secondary.ID).
			Msg(warning)
	}

	if opts.DryRun {
		pair.Action = ActionDryRun
		pair.Reason = fmt.Sprintf("would merge %s into %s", selection.Secondary.ID, selection.Primary.ID)
		return
	}

	// The root update goes first: if it fails the loser is left untouched, so
	// the whole pair stays unset-status and is retried in a future run.
	if err := s.store.Patch(ctx, selection.Primary.ID, patches.Primary); err != nil {
		pair.Action = ActionFailed
		pair.Reason = fmt.Sprintf("root update failed: %v", err)
		logger.Error().Err(err).
			Str("primary_id", selection.Primary.ID).
			Str("secondary_id", selection.Secondary.ID).
			Msg("merge root update failed, continuing run")
		return
	}
	if err := s.store.Patch(ctx, selection.Secondary.ID, patches.Secondary); err != nil {
		pair.Action = ActionFailed
		pair.Reason = fmt.Sprintf("loser update failed: %v", err)
		logger.Error().Err(err).
			Str("primary_id", selection.Primary.ID).
			Str("secondary_id", selection.Secondary.ID).
			Msg("merge loser update failed, continuing run")
		return
	}

	pair.Action = ActionMerged
	logger.Info().
		Str("primary_id", selection.Primary.ID).
		Str("secondary_id", selection.Secondary.ID).
		Float64("score", c.score.Total).
		Msg("merged duplicate record")
}

// sameIncidentNoop reports whether the pair is already consolidated: one
// side carries a merge status and both point at the same consolidated
// incident, so there is nothing left to do.
func sameIncidentNoop(a, b *database.RawRecord) bool {
	if a.MergeStatus == database.MergeStatusNone && b.MergeStatus == database.MergeStatusNone {
		return false
	}
	return a.LinkedIncidentID != "" && a.LinkedIncidentID == b.LinkedIncidentID
}
