// Package config loads the lorebase configuration file. Every field has a
// default, so a missing file yields a fully usable configuration; values
// present in the file override defaults field by field.
package config

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration document.
type Config struct {
	Models   Models        `yaml:"models"`
	Chunking Chunking      `yaml:"chunking"`
	DocTypes []DocTypeRule `yaml:"doc_types"`
	Search   Search        `yaml:"search"`
	Index    Index         `yaml:"index"`
}

// Models names the external model backends.
type Models struct {
	Embedding Embedding `yaml:"embedding"`
	Reranker  Reranker  `yaml:"reranker"`
}

// Embedding configures the embedding model.
type Embedding struct {
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
}

// Reranker configures the second-stage relevance model.
type Reranker struct {
	Enabled        bool    `yaml:"enabled"`
	Model          string  `yaml:"model"`
	MaxCandidates  int     `yaml:"max_candidates"`
	ScoreThreshold float64 `yaml:"score_threshold"`
}

// Chunking configures the segmentation engine.
type Chunking struct {
	// MinChunkSize is the minimum trimmed length of a paragraph chunk.
	MinChunkSize int `yaml:"min_chunk_size"`
	// MinSectionSize is the minimum trimmed length of a section chunk.
	MinSectionSize int `yaml:"min_section_size"`
	// ContextChars bounds the neighbor context spliced into paragraph chunks.
	ContextChars int  `yaml:"context_chars"`
	AddContext   bool `yaml:"add_context"`
}

// DocTypeRule classifies documents by path substring; the first matching
// rule wins. Strategy names a segmentation strategy ("by_section",
// "by_section_flat", "by_paragraph").
type DocTypeRule struct {
	Name         string   `yaml:"name"`
	PathPatterns []string `yaml:"path_patterns"`
	Strategy     string   `yaml:"strategy"`
}

// Search configures the retrieval pipeline.
type Search struct {
	DefaultTopK  int    `yaml:"default_top_k"`
	MaxTopK      int    `yaml:"max_top_k"`
	EnableRerank bool   `yaml:"enable_rerank"`
	Entity       Entity `yaml:"entity"`
}

// Entity configures entity-variant query expansion.
type Entity struct {
	ExpandAliases    bool                `yaml:"expand_aliases"`
	DefaultTopK      int                 `yaml:"default_top_k"`
	SubQueryTopK     int                 `yaml:"sub_query_top_k"`
	CompendiumMarker string              `yaml:"compendium_marker"`
	Aliases          map[string][]string `yaml:"aliases"`
}

// Index configures the bulk indexing run.
type Index struct {
	Workers          int      `yaml:"workers"`
	StorageBatchSize int      `yaml:"storage_batch_size"`
	IgnorePatterns   []string `yaml:"ignore_patterns"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Models: Models{
			Embedding: Embedding{Model: "nomic-embed-text", Dimensions: 768},
			Reranker: Reranker{
				Enabled:       true,
				Model:         "qwen3-reranker",
				MaxCandidates: 10,
				// No filtering unless the file sets a threshold.
				ScoreThreshold: math.Inf(-1),
			},
		},
		Chunking: Chunking{
			MinChunkSize:   50,
			MinSectionSize: 20,
			ContextChars:   200,
			AddContext:     true,
		},
		DocTypes: []DocTypeRule{
			{Name: "side-plot", PathPatterns: []string{"side-plots"}, Strategy: "by_section"},
			{Name: "setting", PathPatterns: []string{"settings"}, Strategy: "by_section"},
			{Name: "chapter", PathPatterns: []string{"Vol"}, Strategy: "by_paragraph"},
		},
		Search: Search{
			DefaultTopK:  5,
			MaxTopK:      20,
			EnableRerank: true,
			Entity: Entity{
				ExpandAliases:    true,
				DefaultTopK:      3,
				SubQueryTopK:     3,
				CompendiumMarker: "character-compendium",
			},
		},
		Index: Index{
			Workers:          8,
			StorageBatchSize: 50,
			IgnorePatterns: []string{
				".venv", ".env", "venv", "env", "__pycache__",
				".git", "node_modules", "site-packages", "dist-info",
			},
		},
	}
}

// Load reads path and merges it over Default. A missing or empty path is not
// an error; a malformed file is.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}
