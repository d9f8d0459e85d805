// Package engine orchestrates every operation exposed to collaborators:
// it wires the reader, graph, vitality, embedding index, BM25, intent,
// composite, and fusion packages into the retrieval pipeline's single
// external entry point.
package engine

import (
	"context"
	"fmt"
	"math/rand"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/aayoawoyemi/ori-mnemos/internal/bm25"
	"github.com/aayoawoyemi/ori-mnemos/internal/composite"
	"github.com/aayoawoyemi/ori-mnemos/internal/config"
	"github.com/aayoawoyemi/ori-mnemos/internal/embedding"
	"github.com/aayoawoyemi/ori-mnemos/internal/embedindex"
	"github.com/aayoawoyemi/ori-mnemos/internal/fusion"
	"github.com/aayoawoyemi/ori-mnemos/internal/graph"
	"github.com/aayoawoyemi/ori-mnemos/internal/intent"
	"github.com/aayoawoyemi/ori-mnemos/internal/logging"
	"github.com/aayoawoyemi/ori-mnemos/internal/note"
	"github.com/aayoawoyemi/ori-mnemos/internal/propensity"
	"github.com/aayoawoyemi/ori-mnemos/internal/reader"
	"github.com/aayoawoyemi/ori-mnemos/internal/vault"
	"github.com/aayoawoyemi/ori-mnemos/internal/vitality"
)

// Engine is the single-writer, multi-reader retrieval and ranking core
// for one vault.
type Engine struct {
	vault       *vault.Vault
	cfg         *config.Config
	embedEngine embedding.Engine
	store       *embedindex.Store
	accessLog   *propensity.Log
	rng         *rand.Rand
}

// Open discovers the vault at or above root, loads its configuration,
// and wires every subsystem. Vault discovery failure and config parse
// failure are the only two fatal conditions; everything else degrades
// with warnings on individual operations.
func Open(root string) (*Engine, error) {
	v, err := vault.Discover(root)
	if err != nil {
		return nil, fmt.Errorf("vault discovery: %w", err)
	}
	cfg, err := config.Load(v.Root)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := logging.Init(v.Root, cfg.Engine.Debug); err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}

	embedEngine, err := embedding.New(embedding.Config{Provider: "local", Dimensions: cfg.Engine.EmbeddingDims})
	if err != nil {
		return nil, fmt.Errorf("init embedding engine: %w", err)
	}

	store, err := embedindex.Open(resolvePath(v.Root, cfg.Engine.DBPath))
	if err != nil {
		return nil, fmt.Errorf("open embedding store: %w", err)
	}

	logPath := resolvePath(v.Root, cfg.IPS.LogPath)
	accessLog := propensity.Open(logPath)
	mirror, err := propensity.OpenMirror(mirrorPathFor(logPath))
	if err != nil {
		logging.Get(logging.CategoryPropensity).Warn("propensity mirror unavailable, falling back to log scans: %v", err)
	} else {
		accessLog = accessLog.WithMirror(mirror)
	}

	return &Engine{
		vault:       v,
		cfg:         cfg,
		embedEngine: embedEngine,
		store:       store,
		accessLog:   accessLog,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// mirrorPathFor derives the sqlite mirror path from a JSONL log path by
// swapping its extension, e.g. ops/access.jsonl -> ops/access.db.
func mirrorPathFor(jsonlPath string) string {
	return strings.TrimSuffix(jsonlPath, filepath.Ext(jsonlPath)) + ".db"
}

func resolvePath(root, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}

// Close releases the engine's embedding store and propensity mirror handles.
func (e *Engine) Close() error {
	storeErr := e.store.Close()
	logErr := e.accessLog.Close()
	if storeErr != nil {
		return storeErr
	}
	return logErr
}

// RankedResult is one entry in a scored result list, carrying the
// per-space and per-signal breakdowns for observability.
type RankedResult struct {
	Title         string
	Score         float64
	IsExploration bool
	Spaces        composite.SpaceScores
	Raw           fusion.RawScores
}

// QueryRankedOutput is the fused ranked-query result.
type QueryRankedOutput struct {
	Intent  intent.Intent
	Results []RankedResult
}

// state bundles one read pass over the corpus plus its derived metrics.
// The link graph and its metrics are ephemeral and recomputed on
// demand, so every operation calls loadState fresh rather than caching
// across calls.
type state struct {
	corpus   reader.Corpus
	g        *graph.Graph
	metrics  graph.Metrics
	vitality map[string]float64
}

func (e *Engine) loadState() (state, []note.Warning, error) {
	corpus, err := reader.ReadCorpus(e.vault.Root)
	if err != nil {
		return state{}, corpus.Warnings, err
	}
	g := graph.Build(corpus.Notes, reader.ExtractLinks)
	metrics := g.Compute(e.cfg.Graph.PageRankAlpha, e.cfg.Graph.HubDegreeMultiplier)
	vit := e.computeVitality(corpus, g, metrics)
	return state{corpus: corpus, g: g, metrics: metrics, vitality: vit}, corpus.Warnings, nil
}

func (e *Engine) computeVitality(corpus reader.Corpus, g *graph.Graph, metrics graph.Metrics) map[string]float64 {
	now := time.Now()
	params := vitality.Params{
		ACTRDecay: e.cfg.Vitality.ACTRDecay,
		MetabolicRates: vitality.MetabolicRates{
			Self:  e.cfg.Vitality.MetabolicRates.Self,
			Notes: e.cfg.Vitality.MetabolicRates.Notes,
			Ops:   e.cfg.Vitality.MetabolicRates.Ops,
		},
		AccessSaturationK:      e.cfg.Vitality.AccessSaturationK,
		StructuralBoostPerLink: e.cfg.Vitality.StructuralBoostPerLink,
		StructuralBoostCap:     e.cfg.Vitality.StructuralBoostCap,
		RevivalDecayRate:       e.cfg.Vitality.RevivalDecayRate,
		RevivalWindowDays:      e.cfg.Vitality.RevivalWindowDays,
		BridgeVitalityFloor:    e.cfg.Graph.BridgeVitalityFloor,
	}

	out := make(map[string]float64, len(corpus.Notes))
	for _, n := range corpus.Notes {
		in := vitality.Input{
			AccessCount: n.AccessCount,
			AgeDays:     n.AgeDays(now),
			Role:        classifyRole(n),
			InDegree:    g.InDegree(n.Title),
			IsBridge:    metrics.Bridges[n.Title],
			// HasRecentConnection is left false: the corpus reader has no
			// persisted record of when an incoming link first appeared,
			// only its current presence, so the revival bonus has nothing
			// to trigger on without a link-history store. See DESIGN.md.
		}
		out[n.Title] = vitality.Score(in, params)
	}
	return out
}

// classifyRole maps a note to a metabolic-rate role (identity/general/
// operational) using its project tags and type as the closest
// observable proxy, since a note carries no explicit role field of its
// own.
func classifyRole(n note.Note) vitality.Role {
	for _, p := range n.Project {
		switch strings.ToLower(p) {
		case "ops", "operations":
			return vitality.RoleOps
		case "identity", "self":
			return vitality.RoleSelf
		}
	}
	if n.Type == note.TypeBlocker {
		return vitality.RoleOps
	}
	lower := strings.ToLower(n.Title)
	if strings.Contains(lower, "profile") || strings.Contains(lower, "identity") {
		return vitality.RoleSelf
	}
	return vitality.RoleNotes
}

// ensureIndexed builds the embedding index synchronously if it is empty,
// so a freshly discovered vault still answers its first query.
func (e *Engine) ensureIndexed(ctx context.Context, s state) ([]note.Warning, error) {
	count, err := e.store.Count()
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, nil
	}
	warnings := []note.Warning{{Kind: note.WarnMissingIndex, Msg: "embedding index was empty; built synchronously before serving"}}
	if _, err := e.buildIndex(ctx, s, false, nil); err != nil {
		return warnings, err
	}
	return warnings, nil
}

func (e *Engine) buildIndex(ctx context.Context, s state, force bool, progress func(done, total int)) (embedindex.BuildStats, error) {
	inputs := make([]embedindex.BuildInput, len(s.corpus.Notes))
	for i, n := range s.corpus.Notes {
		inputs[i] = embedindex.BuildInput{
			Note:           n,
			OutgoingLinks:  s.g.Outgoing(n.Title),
			CommunityID:    s.metrics.Communities[n.Title],
			NumCommunities: s.metrics.NumCommunities,
		}
	}
	return embedindex.Build(ctx, e.store, e.embedEngine, inputs, e.cfg.Engine.CommunityDims, force, progress)
}

// QueryRanked runs the full pipeline: Reader -> (Graph, BM25, Embedding)
// -> Intent -> Composite, fused by score-weighted RRF with exploration
// injection and propensity logging.
func (e *Engine) QueryRanked(ctx context.Context, query string, limit int) (QueryRankedOutput, []note.Warning, error) {
	if limit <= 0 {
		limit = e.cfg.Retrieval.DefaultLimit
	}

	s, warnings, err := e.loadState()
	if err != nil {
		return QueryRankedOutput{}, warnings, err
	}
	if strings.TrimSpace(query) == "" || len(s.corpus.Notes) == 0 {
		return QueryRankedOutput{Intent: intent.Semantic}, warnings, nil
	}

	indexWarnings, err := e.ensureIndexed(ctx, s)
	warnings = append(warnings, indexWarnings...)
	if err != nil {
		return QueryRankedOutput{}, warnings, err
	}

	titles := s.g.Titles()
	classification := intent.Classify(query, titles)

	poolSize := limit * e.cfg.Retrieval.CandidateMultiplier
	if poolSize <= 0 {
		poolSize = limit
	}

	qVec, embedErr := e.embedEngine.Embed(ctx, query)
	if embedErr != nil {
		warnings = append(warnings, note.Warning{Kind: note.WarnEmbeddingFailed, Msg: embedErr.Error()})
	}

	var (
		bm25Results      []fusion.SignalResult
		graphResults     []fusion.SignalResult
		compositeResults []composite.Result
		compositeErr     error
	)

	var eg errgroup.Group
	eg.Go(func() error {
		bm25Results = e.bm25Signal(s.corpus, query, poolSize)
		return nil
	})
	eg.Go(func() error {
		walk := s.g.PersonalizedWalk(classification.Entities, e.cfg.Graph.PageRankAlpha)
		graphResults = graphToSignal(walk, poolSize)
		return nil
	})
	if embedErr == nil {
		eg.Go(func() error {
			res, err := e.compositeSignal(ctx, s, qVec, classification.Intent, poolSize)
			if err != nil {
				compositeErr = err
				return nil
			}
			compositeResults = res
			return nil
		})
	}
	_ = eg.Wait()

	if compositeErr != nil {
		warnings = append(warnings, note.Warning{Kind: note.WarnEmbeddingFailed, Msg: compositeErr.Error()})
	}

	spacesByTitle := make(map[string]composite.SpaceScores, len(compositeResults))
	for _, r := range compositeResults {
		spacesByTitle[r.Title] = r.Spaces
	}

	fused := fusion.Fuse(compositeToSignal(compositeResults), bm25Results, graphResults, fusion.SignalWeights{
		Composite: e.cfg.Retrieval.SignalWeights.Composite,
		Keyword:   e.cfg.Retrieval.SignalWeights.Keyword,
		Graph:     e.cfg.Retrieval.SignalWeights.Graph,
	}, float64(e.cfg.Retrieval.RRFK))

	final := fusion.InjectExploration(fused, limit, e.cfg.Retrieval.ExplorationBudget, titles, e.rng)

	results := make([]RankedResult, len(final))
	entries := make([]propensity.Entry, len(final))
	for i, f := range final {
		results[i] = RankedResult{
			Title: f.Title, Score: f.Score, IsExploration: f.IsExploration,
			Spaces: spacesByTitle[f.Title], Raw: f.Raw,
		}
		entries[i] = propensity.Entry{Title: f.Title, Rank: i, Score: f.Score, WasExploration: f.IsExploration}
	}

	if e.cfg.IPS.Enabled {
		event := propensity.NewEvent(time.Now().Format(time.RFC3339), query, string(classification.Intent), entries)
		if err := e.accessLog.Append(event); err != nil {
			warnings = append(warnings, note.Warning{Kind: note.WarnLogAppendFailed, Msg: err.Error()})
		}
	}

	return QueryRankedOutput{Intent: classification.Intent, Results: results}, warnings, nil
}

// QuerySimilar runs the composite signal alone, with no fusion or
// exploration.
func (e *Engine) QuerySimilar(ctx context.Context, query string, limit int) ([]RankedResult, []note.Warning, error) {
	if limit <= 0 {
		limit = e.cfg.Retrieval.DefaultLimit
	}

	s, warnings, err := e.loadState()
	if err != nil {
		return nil, warnings, err
	}
	if strings.TrimSpace(query) == "" || len(s.corpus.Notes) == 0 {
		return nil, warnings, nil
	}

	indexWarnings, err := e.ensureIndexed(ctx, s)
	warnings = append(warnings, indexWarnings...)
	if err != nil {
		return nil, warnings, err
	}

	qVec, err := e.embedEngine.Embed(ctx, query)
	if err != nil {
		warnings = append(warnings, note.Warning{Kind: note.WarnEmbeddingFailed, Msg: err.Error()})
		return nil, warnings, nil
	}

	classification := intent.Classify(query, s.g.Titles())
	compositeResults, err := e.compositeSignal(ctx, s, qVec, classification.Intent, limit)
	if err != nil {
		return nil, warnings, err
	}

	out := make([]RankedResult, len(compositeResults))
	for i, r := range compositeResults {
		out[i] = RankedResult{Title: r.Title, Score: r.Score, Spaces: r.Spaces}
	}
	return out, warnings, nil
}

// QueryImportant ranks notes by authority.
func (e *Engine) QueryImportant(limit int) ([]RankedResult, []note.Warning, error) {
	if limit <= 0 {
		limit = e.cfg.Retrieval.DefaultLimit
	}
	s, warnings, err := e.loadState()
	if err != nil {
		return nil, warnings, err
	}

	sorted := sortedByScoreDesc(s.metrics.Authority)
	if limit > 0 && limit < len(sorted) {
		sorted = sorted[:limit]
	}
	return toRankedResults(sorted), warnings, nil
}

// QueryFading returns notes below the vitality threshold, ascending.
func (e *Engine) QueryFading(threshold float64, limit int) ([]RankedResult, []note.Warning, error) {
	if threshold <= 0 {
		threshold = 0.3
	}
	s, warnings, err := e.loadState()
	if err != nil {
		return nil, warnings, err
	}

	var list []scoredTitle
	for _, n := range s.corpus.Notes {
		if v := s.vitality[n.Title]; v < threshold {
			list = append(list, scoredTitle{n.Title, v})
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].score != list[j].score {
			return list[i].score < list[j].score
		}
		return list[i].title < list[j].title
	})
	if limit > 0 && limit < len(list) {
		list = list[:limit]
	}
	return toRankedResults(list), warnings, nil
}

// QueryOrphans returns titles with no incoming links.
func (e *Engine) QueryOrphans() ([]string, []note.Warning, error) {
	s, warnings, err := e.loadState()
	if err != nil {
		return nil, warnings, err
	}
	return s.g.Orphans(), warnings, nil
}

// QueryDangling returns link targets naming no note in the corpus.
func (e *Engine) QueryDangling() ([]string, []note.Warning, error) {
	s, warnings, err := e.loadState()
	if err != nil {
		return nil, warnings, err
	}
	return s.g.DanglingTargets(), warnings, nil
}

// QueryBacklinks returns the titles linking to title.
func (e *Engine) QueryBacklinks(title string) ([]string, []note.Warning, error) {
	s, warnings, err := e.loadState()
	if err != nil {
		return nil, warnings, err
	}
	return s.g.Incoming(title), warnings, nil
}

// QueryCrossProject returns multi-project connector notes.
func (e *Engine) QueryCrossProject() ([]string, []note.Warning, error) {
	s, warnings, err := e.loadState()
	if err != nil {
		return nil, warnings, err
	}
	return s.g.CrossProjectNotes(), warnings, nil
}

// QueryStale returns titles not accessed within the given number of
// days, most-stale first.
func (e *Engine) QueryStale(days int, limit int) ([]string, []note.Warning, error) {
	if days <= 0 {
		days = 30
	}
	s, warnings, err := e.loadState()
	if err != nil {
		return nil, warnings, err
	}

	now := time.Now()
	var list []scoredTitle
	for _, n := range s.corpus.Notes {
		last := n.LastAccessed
		if last.IsZero() {
			last = n.Created
		}
		age := now.Sub(last).Hours() / 24
		if age > float64(days) {
			list = append(list, scoredTitle{n.Title, age})
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].score != list[j].score {
			return list[i].score > list[j].score
		}
		return list[i].title < list[j].title
	})
	if limit > 0 && limit < len(list) {
		list = list[:limit]
	}
	out := make([]string, len(list))
	for i, e2 := range list {
		out[i] = e2.title
	}
	return out, warnings, nil
}

// IndexBuildResult wraps the build stats with a correlation ID so
// concurrent or repeated builds can be told apart in logs.
type IndexBuildResult struct {
	RunID string
	Stats embedindex.BuildStats
}

// IndexBuild runs the incremental embedding build protocol.
func (e *Engine) IndexBuild(ctx context.Context, force bool, progress func(done, total int)) (IndexBuildResult, []note.Warning, error) {
	runID := uuid.NewString()
	logging.Get(logging.CategoryEngine).Info("index_build starting run=%s force=%v", runID, force)

	s, warnings, err := e.loadState()
	if err != nil {
		return IndexBuildResult{RunID: runID}, warnings, err
	}
	stats, err := e.buildIndex(ctx, s, force, progress)
	if err != nil {
		logging.Get(logging.CategoryEngine).Warn("index_build run=%s failed: %v", runID, err)
	} else {
		logging.Get(logging.CategoryEngine).Info("index_build run=%s done indexed=%d skipped=%d total=%d", runID, stats.Indexed, stats.Skipped, stats.Total)
	}
	return IndexBuildResult{RunID: runID, Stats: stats}, warnings, err
}

// GraphMetrics returns the full structural-metrics bundle.
func (e *Engine) GraphMetrics() (graph.Metrics, []note.Warning, error) {
	s, warnings, err := e.loadState()
	if err != nil {
		return graph.Metrics{}, warnings, err
	}
	return s.metrics, warnings, nil
}

// GraphCommunities returns the community assignment per title.
func (e *Engine) GraphCommunities() (map[string]int, []note.Warning, error) {
	s, warnings, err := e.loadState()
	if err != nil {
		return nil, warnings, err
	}
	return s.metrics.Communities, warnings, nil
}

// GraphReport bundles every structural diagnostic into one call:
// orphan/dangling/bridge/cross-project sets plus the top-10 notes by
// authority.
type GraphReport struct {
	NumNotes       int
	NumCommunities int
	Orphans        []string
	Dangling       []string
	Bridges        []string
	CrossProject   []string
	TopAuthority   []RankedResult
}

func (e *Engine) GraphReport() (GraphReport, []note.Warning, error) {
	s, warnings, err := e.loadState()
	if err != nil {
		return GraphReport{}, warnings, err
	}

	var bridges []string
	for title, isBridge := range s.metrics.Bridges {
		if isBridge {
			bridges = append(bridges, title)
		}
	}
	sort.Strings(bridges)

	sorted := sortedByScoreDesc(s.metrics.Authority)
	if len(sorted) > 10 {
		sorted = sorted[:10]
	}

	return GraphReport{
		NumNotes:       len(s.corpus.Notes),
		NumCommunities: s.metrics.NumCommunities,
		Orphans:        s.g.Orphans(),
		Dangling:       s.g.DanglingTargets(),
		Bridges:        bridges,
		CrossProject:   s.g.CrossProjectNotes(),
		TopAuthority:   toRankedResults(sorted),
	}, warnings, nil
}

// bm25Signal builds a fresh BM25 index over the corpus and scores query
// against it. The index is ephemeral, rebuilt fresh on every call.
func (e *Engine) bm25Signal(corpus reader.Corpus, query string, poolSize int) []fusion.SignalResult {
	docs := make([]bm25.Document, len(corpus.Notes))
	for i, n := range corpus.Notes {
		docs[i] = bm25.Document{Title: n.Title, TitleText: n.Title, Description: n.Description, Body: n.Body}
	}
	idx := bm25.Build(docs, bm25.Config{
		K1: e.cfg.BM25.K1, B: e.cfg.BM25.B,
		TitleBoost: e.cfg.BM25.TitleBoost, DescriptionBoost: e.cfg.BM25.DescriptionBoost,
	})
	results := idx.Score(query)
	if poolSize > 0 && poolSize < len(results) {
		results = results[:poolSize]
	}
	out := make([]fusion.SignalResult, len(results))
	for i, r := range results {
		out[i] = fusion.SignalResult{Title: r.Title, Rank: i, Score: r.Score}
	}
	return out
}

// compositeSignal loads every note's persisted embedding record and runs
// the composite scorer against the query vector.
func (e *Engine) compositeSignal(ctx context.Context, s state, qVec []float32, in intent.Intent, poolSize int) ([]composite.Result, error) {
	maxPR := graph.MaxAuthority(s.metrics.Authority)
	candidates := make([]composite.Candidate, 0, len(s.corpus.Notes))
	for _, n := range s.corpus.Notes {
		rec, ok, err := e.store.Get(n.Title)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		candidates = append(candidates, composite.Candidate{
			Note:             n,
			TitleVec:         rec.TitleVec,
			DescVec:          rec.DescVec,
			BodyVec:          rec.BodyVec,
			TypeVec:          rec.TypeVec,
			CommunityVec:     rec.CommunityVec,
			Vitality:         s.vitality[n.Title],
			PageRank:         s.metrics.Authority[n.Title],
			DaysSinceIndexed: time.Since(rec.IndexedAt).Hours() / 24,
		})
	}

	results := composite.Score(qVec, candidates, in, composite.Params{
		Bins: e.cfg.Engine.PiecewiseBins, MaxPageRank: maxPR,
	})
	if poolSize > 0 && poolSize < len(results) {
		results = results[:poolSize]
	}
	return results, nil
}

func compositeToSignal(results []composite.Result) []fusion.SignalResult {
	out := make([]fusion.SignalResult, len(results))
	for i, r := range results {
		out[i] = fusion.SignalResult{Title: r.Title, Rank: i, Score: r.Score}
	}
	return out
}

func graphToSignal(scores map[string]float64, poolSize int) []fusion.SignalResult {
	list := sortedByScoreDesc(scores)
	if poolSize > 0 && poolSize < len(list) {
		list = list[:poolSize]
	}
	out := make([]fusion.SignalResult, len(list))
	for i, e2 := range list {
		out[i] = fusion.SignalResult{Title: e2.title, Rank: i, Score: e2.score}
	}
	return out
}

type scoredTitle struct {
	title string
	score float64
}

func sortedByScoreDesc(m map[string]float64) []scoredTitle {
	out := make([]scoredTitle, 0, len(m))
	for t, s := range m {
		out = append(out, scoredTitle{t, s})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score > out[j].score
		}
		return out[i].title < out[j].title
	})
	return out
}

func toRankedResults(list []scoredTitle) []RankedResult {
	out := make([]RankedResult, len(list))
	for i, e2 := range list {
		out[i] = RankedResult{Title: e2.title, Score: e2.score}
	}
	return out
}
