package index

import (
	"strings"

	"github.com/lorebase/lorebase/engine/config"
	"github.com/lorebase/lorebase/engine/domain"
	"github.com/lorebase/lorebase/engine/segment"
)

// Classify resolves a document's type and segmentation strategy from its
// path. The first rule with a matching path substring wins; unmatched files
// are "other" and get paragraph chunking.
func Classify(path string, rules []config.DocTypeRule) (domain.DocType, segment.Strategy) {
	for _, rule := range rules {
		for _, pattern := range rule.PathPatterns {
			if strings.Contains(path, pattern) {
				strategy, ok := segment.ParseStrategy(rule.Strategy)
				if !ok {
					strategy = segment.ByParagraph
				}
				return domain.DocType(rule.Name), strategy
			}
		}
	}
	return domain.DocOther, segment.ByParagraph
}
