package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/lorebase/lorebase/engine/domain"
	"github.com/lorebase/lorebase/pkg/fn"
)

// EntityOptions configures alias-expanded entity search.
type EntityOptions struct {
	// ExpandAliases enables multi-query expansion; off, entity search is a
	// single profile query.
	ExpandAliases bool
	// DefaultTopK is the final result count for entity searches.
	DefaultTopK int
	// SubQueryTopK is the per-sub-query result count during expansion.
	SubQueryTopK int
	// CompendiumMarker promotes results whose file path contains it.
	CompendiumMarker string
	// Aliases maps a canonical entity name to its known aliases.
	Aliases map[string][]string
}

// DefaultEntityOptions returns the built-in entity search bounds.
func DefaultEntityOptions() EntityOptions {
	return EntityOptions{
		ExpandAliases:    true,
		DefaultTopK:      3,
		SubQueryTopK:     3,
		CompendiumMarker: "character-compendium",
	}
}

// entityQueries are the angles each alias is searched from.
var entityQueries = []string{
	"%s personality and character traits",
	"%s abilities and appearances",
	"%s dialogue style and quotes",
}

// SearchEntity finds chunks describing one entity. Each alias of the entity
// is searched from several angles against world-building documents; the
// merged results are deduplicated, compendium pages are promoted, and the
// top results returned. topK <= 0 selects the configured default.
func (o *Orchestrator) SearchEntity(ctx context.Context, name string, topK int) ([]domain.SearchResult, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.ErrEmptyQuery
	}
	if topK <= 0 {
		topK = o.opts.Entity.DefaultTopK
	}

	if !o.opts.Entity.ExpandAliases {
		return o.Search(ctx, fmt.Sprintf("%s character profile", name), topK, domain.DocSetting)
	}

	// Sub-queries run concurrently, but FanOutResult keeps their results in
	// query order: canonical-name chunks still get first claim in dedupe.
	var queries []string
	for _, alias := range o.aliases(name) {
		for _, tmpl := range entityQueries {
			queries = append(queries, fmt.Sprintf(tmpl, alias))
		}
	}
	subSearches := fn.Map(queries, func(query string) func() fn.Result[[]domain.SearchResult] {
		return func() fn.Result[[]domain.SearchResult] {
			return fn.FromPair(o.Search(ctx, query, o.opts.Entity.SubQueryTopK, domain.DocSetting))
		}
	})
	groups, err := fn.FanOutResult(subSearches...).Unwrap()
	if err != nil {
		return nil, fmt.Errorf("retrieval: entity %q: %w", name, err)
	}
	merged := fn.FlatMap(groups, func(g []domain.SearchResult) []domain.SearchResult { return g })

	unique := Deduplicate(merged)
	prioritized := o.promoteCompendium(unique)
	return truncate(prioritized, topK), nil
}

// SearchTopic finds chunks about a plot thread or topic keyword in
// world-building documents.
func (o *Orchestrator) SearchTopic(ctx context.Context, keyword string, topK int) ([]domain.SearchResult, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, domain.ErrEmptyQuery
	}
	return o.Search(ctx, fmt.Sprintf("%s foreshadowing and plot threads", keyword), topK, domain.DocSetting)
}

// aliases returns the alias group containing name, or just name itself.
// The canonical key is part of its own group.
func (o *Orchestrator) aliases(name string) []string {
	for canonical, group := range o.opts.Entity.Aliases {
		if canonical == name {
			return prependUnique(canonical, group)
		}
		for _, alias := range group {
			if alias == name {
				return prependUnique(canonical, group)
			}
		}
	}
	return []string{name}
}

func prependUnique(head string, rest []string) []string {
	out := []string{head}
	for _, v := range rest {
		if v != head {
			out = append(out, v)
		}
	}
	return out
}

// promoteCompendium partitions results so those from compendium files come
// first, preserving relative order within each partition.
func (o *Orchestrator) promoteCompendium(results []domain.SearchResult) []domain.SearchResult {
	marker := o.opts.Entity.CompendiumMarker
	if marker == "" {
		return results
	}
	var priority, rest []domain.SearchResult
	for _, r := range results {
		if strings.Contains(r.Meta.FilePath, marker) {
			priority = append(priority, r)
		} else {
			rest = append(rest, r)
		}
	}
	return append(priority, rest...)
}
