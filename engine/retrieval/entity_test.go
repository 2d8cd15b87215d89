package retrieval

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/lorebase/lorebase/engine/domain"
	"github.com/lorebase/lorebase/engine/semantic"
)

func entityTestOptions() Options {
	opts := DefaultOptions()
	opts.RerankEnabled = false
	opts.Entity.Aliases = map[string][]string{
		"Mira": {"The Collector", "M"},
	}
	return opts
}

func TestSearchEntityExpandsAliases(t *testing.T) {
	var queries []string
	searcher := &mockSearcher{}
	embedder := &recordingEmbedder{texts: &queries}

	o := New(embedder, nil, searcher, entityTestOptions(), nil)
	if _, err := o.SearchEntity(context.Background(), "The Collector", 0); err != nil {
		t.Fatal(err)
	}

	// 3 aliases x 3 query angles.
	if len(searcher.calls) != 9 {
		t.Fatalf("sub-searches = %d, want 9", len(searcher.calls))
	}
	for _, c := range searcher.calls {
		if c.topK != 3 {
			t.Errorf("sub-search topK = %d, want 3", c.topK)
		}
		if c.fileType != domain.DocSetting {
			t.Errorf("sub-search fileType = %q, want setting", c.fileType)
		}
	}

	// Sub-queries run concurrently, so only the set is deterministic here;
	// ordering is covered by TestAliasGroupLeadsWithCanonicalName.
	joined := strings.Join(queries, "\n")
	for _, alias := range []string{"Mira", "The Collector", "M"} {
		if !strings.Contains(joined, alias) {
			t.Errorf("no query mentions %q", alias)
		}
	}
}

func TestAliasGroupLeadsWithCanonicalName(t *testing.T) {
	o := New(&mockEmbedder{}, nil, &mockSearcher{}, entityTestOptions(), nil)

	// The canonical name leads the group regardless of which alias was
	// asked about, so its chunks win first-seen dedupe.
	for _, name := range []string{"Mira", "The Collector", "M"} {
		got := o.aliases(name)
		if len(got) != 3 || got[0] != "Mira" {
			t.Errorf("aliases(%q) = %v, want Mira first", name, got)
		}
	}
	if got := o.aliases("Joss"); len(got) != 1 || got[0] != "Joss" {
		t.Errorf("aliases(Joss) = %v, want the name itself", got)
	}
}

type recordingEmbedder struct {
	mu    sync.Mutex
	texts *[]string
}

func (r *recordingEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	*r.texts = append(*r.texts, text)
	return []float32{1}, nil
}

func TestSearchEntityDeduplicatesAndPromotesCompendium(t *testing.T) {
	searcher := &mockSearcher{hits: func(_ int, _ domain.DocType) []semantic.Hit {
		return []semantic.Hit{
			{Content: "ordinary note", Meta: domain.Metadata{FilePath: "settings/world.md"}, Distance: 0.1},
			{Content: "compendium entry", Meta: domain.Metadata{FilePath: "settings/character-compendium/mira.md"}, Distance: 0.2},
		}
	}}

	o := New(&mockEmbedder{}, nil, searcher, entityTestOptions(), nil)
	results, err := o.SearchEntity(context.Background(), "Mira", 5)
	if err != nil {
		t.Fatal(err)
	}

	// Nine sub-searches all return the same two chunks; dedupe leaves two.
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if !strings.Contains(results[0].Meta.FilePath, "character-compendium") {
		t.Errorf("compendium result should come first, got %q", results[0].Meta.FilePath)
	}
}

func TestSearchEntityWithoutExpansion(t *testing.T) {
	searcher := &mockSearcher{}
	opts := entityTestOptions()
	opts.Entity.ExpandAliases = false

	o := New(&mockEmbedder{}, nil, searcher, opts, nil)
	if _, err := o.SearchEntity(context.Background(), "Mira", 0); err != nil {
		t.Fatal(err)
	}
	if len(searcher.calls) != 1 {
		t.Fatalf("sub-searches = %d, want 1", len(searcher.calls))
	}
	if searcher.calls[0].topK != entityTestOptions().Entity.DefaultTopK {
		t.Errorf("topK = %d", searcher.calls[0].topK)
	}
}

func TestSearchEntityUnknownNameSearchesItself(t *testing.T) {
	searcher := &mockSearcher{}
	o := New(&mockEmbedder{}, nil, searcher, entityTestOptions(), nil)
	if _, err := o.SearchEntity(context.Background(), "Joss", 0); err != nil {
		t.Fatal(err)
	}
	// One unknown name, three query angles.
	if len(searcher.calls) != 3 {
		t.Errorf("sub-searches = %d, want 3", len(searcher.calls))
	}
}

func TestSearchEntityEmptyName(t *testing.T) {
	o := New(&mockEmbedder{}, nil, &mockSearcher{}, entityTestOptions(), nil)
	if _, err := o.SearchEntity(context.Background(), " ", 0); !errors.Is(err, domain.ErrEmptyQuery) {
		t.Errorf("err = %v, want ErrEmptyQuery", err)
	}
}

func TestSearchTopic(t *testing.T) {
	var queries []string
	searcher := &mockSearcher{}
	o := New(&recordingEmbedder{texts: &queries}, nil, searcher, entityTestOptions(), nil)

	if _, err := o.SearchTopic(context.Background(), "the lighthouse key", 0); err != nil {
		t.Fatal(err)
	}
	if len(queries) != 1 || !strings.Contains(queries[0], "the lighthouse key") {
		t.Errorf("queries = %v", queries)
	}
	if searcher.calls[0].fileType != domain.DocSetting {
		t.Errorf("topic search should filter to settings, got %q", searcher.calls[0].fileType)
	}

	if _, err := o.SearchTopic(context.Background(), "", 0); !errors.Is(err, domain.ErrEmptyQuery) {
		t.Errorf("err = %v, want ErrEmptyQuery", err)
	}
}
