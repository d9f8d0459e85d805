// Package config loads and validates ori vault configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/aayoawoyemi/ori-mnemos/internal/logging"
)

// Config holds the subset of ori.config.yaml the retrieval core consumes.
// Unknown keys in the file are ignored; the core never owns the full vault
// configuration (capture, CLI, and server own the rest).
type Config struct {
	Engine    EngineConfig    `yaml:"engine"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	BM25      BM25Config      `yaml:"bm25"`
	Graph     GraphConfig     `yaml:"graph"`
	Vitality  VitalityConfig  `yaml:"vitality"`
	IPS       IPSConfig       `yaml:"ips"`
}

// EngineConfig configures the embedding model and shared numeric knobs.
type EngineConfig struct {
	EmbeddingModel string `yaml:"embedding_model"`
	EmbeddingDims  int    `yaml:"embedding_dims"`
	PiecewiseBins  int    `yaml:"piecewise_bins"`
	CommunityDims  int    `yaml:"community_dims"`
	DBPath         string `yaml:"db_path"`
	Debug          bool   `yaml:"debug"`
}

// RetrievalConfig configures the fusion and exploration pipeline.
type RetrievalConfig struct {
	DefaultLimit        int            `yaml:"default_limit"`
	CandidateMultiplier int            `yaml:"candidate_multiplier"`
	RRFK                int            `yaml:"rrf_k"`
	SignalWeights       SignalWeights  `yaml:"signal_weights"`
	ExplorationBudget   float64        `yaml:"exploration_budget"`
}

// SignalWeights are the per-signal multipliers applied before RRF division.
type SignalWeights struct {
	Composite float64 `yaml:"composite"`
	Keyword   float64 `yaml:"keyword"`
	Graph     float64 `yaml:"graph"`
}

// BM25Config configures the keyword index.
type BM25Config struct {
	K1               float64 `yaml:"k1"`
	B                float64 `yaml:"b"`
	TitleBoost       float64 `yaml:"title_boost"`
	DescriptionBoost float64 `yaml:"description_boost"`
}

// GraphConfig configures link-graph metrics.
type GraphConfig struct {
	PageRankAlpha        float64 `yaml:"pagerank_alpha"`
	BridgeVitalityFloor  float64 `yaml:"bridge_vitality_floor"`
	HubDegreeMultiplier  float64 `yaml:"hub_degree_multiplier"`
}

// VitalityConfig configures the ACT-R-inspired activation model.
type VitalityConfig struct {
	ACTRDecay            float64        `yaml:"actr_decay"`
	MetabolicRates       MetabolicRates `yaml:"metabolic_rates"`
	AccessSaturationK    float64        `yaml:"access_saturation_k"`
	StructuralBoostPerLink float64      `yaml:"structural_boost_per_link"`
	StructuralBoostCap   float64        `yaml:"structural_boost_cap"`
	RevivalDecayRate     float64        `yaml:"revival_decay_rate"`
	RevivalWindowDays    int            `yaml:"revival_window_days"`
}

// MetabolicRates are per-role decay multipliers applied to vitality scoring.
type MetabolicRates struct {
	Self  float64 `yaml:"self"`
	Notes float64 `yaml:"notes"`
	Ops   float64 `yaml:"ops"`
}

// IPSConfig configures the propensity ledger.
type IPSConfig struct {
	Enabled bool    `yaml:"enabled"`
	Epsilon float64 `yaml:"epsilon"`
	LogPath string  `yaml:"log_path"`
}

// Default returns the documented configuration defaults.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			EmbeddingModel: "local-feature-extractor",
			EmbeddingDims:  256,
			PiecewiseBins:  8,
			CommunityDims:  16,
			DBPath:         filepath.Join(".ori", "embeddings.db"),
		},
		Retrieval: RetrievalConfig{
			DefaultLimit:        10,
			CandidateMultiplier: 5,
			RRFK:                60,
			SignalWeights: SignalWeights{
				Composite: 2.0,
				Keyword:   1.0,
				Graph:     1.5,
			},
			ExplorationBudget: 0.10,
		},
		BM25: BM25Config{
			K1:               1.2,
			B:                0.75,
			TitleBoost:       3.0,
			DescriptionBoost: 2.0,
		},
		Graph: GraphConfig{
			PageRankAlpha:       0.85,
			BridgeVitalityFloor: 0.5,
			HubDegreeMultiplier: 2.0,
		},
		Vitality: VitalityConfig{
			ACTRDecay: 0.5,
			MetabolicRates: MetabolicRates{
				Self:  0.1,
				Notes: 1.0,
				Ops:   3.0,
			},
			AccessSaturationK:      10,
			StructuralBoostPerLink: 0.1,
			StructuralBoostCap:     10,
			RevivalDecayRate:       0.2,
			RevivalWindowDays:      14,
		},
		IPS: IPSConfig{
			Enabled: true,
			Epsilon: 0.01,
			LogPath: filepath.Join("ops", "access.jsonl"),
		},
	}
}

// Load reads ori.config.yaml from root. A missing file yields defaults.
// A structurally invalid file (wrong type for a field the core requires
// to be numeric) is a fatal error, as is any read failure other than the
// file being absent.
func Load(root string) (*Config, error) {
	cfg := Default()
	path := filepath.Join(root, "ori.config.yaml")

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logging.Get(logging.CategoryEngine).Info("no ori.config.yaml found, using defaults")
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse ori.config.yaml: %w", err)
	}

	applyDefaultsForZeroValues(cfg)
	return cfg, nil
}

// applyDefaultsForZeroValues fills in any field left at its Go zero value
// by a partial YAML document, so a vault that only overrides one key still
// gets sane values everywhere else.
func applyDefaultsForZeroValues(cfg *Config) {
	d := Default()

	if cfg.Engine.EmbeddingDims == 0 {
		cfg.Engine.EmbeddingDims = d.Engine.EmbeddingDims
	}
	if cfg.Engine.PiecewiseBins == 0 {
		cfg.Engine.PiecewiseBins = d.Engine.PiecewiseBins
	}
	if cfg.Engine.CommunityDims == 0 {
		cfg.Engine.CommunityDims = d.Engine.CommunityDims
	}
	if cfg.Engine.DBPath == "" {
		cfg.Engine.DBPath = d.Engine.DBPath
	}
	if cfg.Engine.EmbeddingModel == "" {
		cfg.Engine.EmbeddingModel = d.Engine.EmbeddingModel
	}

	if cfg.Retrieval.DefaultLimit == 0 {
		cfg.Retrieval.DefaultLimit = d.Retrieval.DefaultLimit
	}
	if cfg.Retrieval.CandidateMultiplier == 0 {
		cfg.Retrieval.CandidateMultiplier = d.Retrieval.CandidateMultiplier
	}
	if cfg.Retrieval.RRFK == 0 {
		cfg.Retrieval.RRFK = d.Retrieval.RRFK
	}
	if cfg.Retrieval.SignalWeights == (SignalWeights{}) {
		cfg.Retrieval.SignalWeights = d.Retrieval.SignalWeights
	}
	if cfg.Retrieval.ExplorationBudget == 0 {
		cfg.Retrieval.ExplorationBudget = d.Retrieval.ExplorationBudget
	}

	if cfg.BM25.K1 == 0 {
		cfg.BM25.K1 = d.BM25.K1
	}
	if cfg.BM25.B == 0 {
		cfg.BM25.B = d.BM25.B
	}
	if cfg.BM25.TitleBoost == 0 {
		cfg.BM25.TitleBoost = d.BM25.TitleBoost
	}
	if cfg.BM25.DescriptionBoost == 0 {
		cfg.BM25.DescriptionBoost = d.BM25.DescriptionBoost
	}

	if cfg.Graph.PageRankAlpha == 0 {
		cfg.Graph.PageRankAlpha = d.Graph.PageRankAlpha
	}
	if cfg.Graph.BridgeVitalityFloor == 0 {
		cfg.Graph.BridgeVitalityFloor = d.Graph.BridgeVitalityFloor
	}
	if cfg.Graph.HubDegreeMultiplier == 0 {
		cfg.Graph.HubDegreeMultiplier = d.Graph.HubDegreeMultiplier
	}

	if cfg.Vitality.ACTRDecay == 0 {
		cfg.Vitality.ACTRDecay = d.Vitality.ACTRDecay
	}
	if cfg.Vitality.MetabolicRates == (MetabolicRates{}) {
		cfg.Vitality.MetabolicRates = d.Vitality.MetabolicRates
	}
	if cfg.Vitality.AccessSaturationK == 0 {
		cfg.Vitality.AccessSaturationK = d.Vitality.AccessSaturationK
	}
	if cfg.Vitality.StructuralBoostPerLink == 0 {
		cfg.Vitality.StructuralBoostPerLink = d.Vitality.StructuralBoostPerLink
	}
	if cfg.Vitality.StructuralBoostCap == 0 {
		cfg.Vitality.StructuralBoostCap = d.Vitality.StructuralBoostCap
	}
	if cfg.Vitality.RevivalDecayRate == 0 {
		cfg.Vitality.RevivalDecayRate = d.Vitality.RevivalDecayRate
	}
	if cfg.Vitality.RevivalWindowDays == 0 {
		cfg.Vitality.RevivalWindowDays = d.Vitality.RevivalWindowDays
	}

	if cfg.IPS.Epsilon == 0 {
		cfg.IPS.Epsilon = d.IPS.Epsilon
	}
	if cfg.IPS.LogPath == "" {
		cfg.IPS.LogPath = d.IPS.LogPath
	}
}
