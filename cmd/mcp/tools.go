package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/lorebase/lorebase/engine/domain"
	"github.com/lorebase/lorebase/engine/retrieval"
)

// docClassNames lists the document-class tags callers may pass as file_type;
// they must match the configured doc-type names exactly or filters silently
// match nothing.
var docClassNames = []string{
	string(domain.DocSetting),
	string(domain.DocSidePlot),
	string(domain.DocChapter),
}

// searchService is what the tool handlers need from the orchestrator.
type searchService interface {
	Search(ctx context.Context, query string, topK int, fileType domain.DocType) ([]domain.SearchResult, error)
	SearchEntity(ctx context.Context, name string, topK int) ([]domain.SearchResult, error)
	SearchTopic(ctx context.Context, keyword string, topK int) ([]domain.SearchResult, error)
}

func registerTools(srv *mcpserver.MCPServer, svc searchService) {
	srv.AddTool(mcp.Tool{
		Name:        "search_story_knowledge",
		Description: "Semantic search across the story repository: settings, character notes, side plots, and chapter text.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Natural-language search query",
				},
				"top_k": map[string]interface{}{
					"type":        "number",
					"description": "Maximum number of results (default: 5)",
				},
				"file_type": map[string]interface{}{
					"type":        "string",
					"description": "Restrict results to one document class: " + strings.Join(docClassNames, ", "),
				},
			},
			Required: []string{"query"},
		},
	}, handleStoryKnowledge(svc))

	srv.AddTool(mcp.Tool{
		Name:        "search_character_info",
		Description: "Gather personality, abilities, and dialogue-style material for a named character, expanding known aliases.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"character_name": map[string]interface{}{
					"type":        "string",
					"description": "Character name or alias",
				},
				"top_k": map[string]interface{}{
					"type":        "number",
					"description": "Maximum number of results (default: 5)",
				},
			},
			Required: []string{"character_name"},
		},
	}, handleCharacterInfo(svc))

	srv.AddTool(mcp.Tool{
		Name:        "search_plot_threads",
		Description: "Find foreshadowing and open plot threads related to a keyword.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"keyword": map[string]interface{}{
					"type":        "string",
					"description": "Plot element to trace, e.g. an object, event, or place",
				},
				"top_k": map[string]interface{}{
					"type":        "number",
					"description": "Maximum number of results (default: 5)",
				},
			},
			Required: []string{"keyword"},
		},
	}, handlePlotThreads(svc))
}

func handleStoryKnowledge(svc searchService) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := request.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError("query argument is required and must be a string"), nil
		}
		topK := request.GetInt("top_k", 0)
		fileType := domain.DocType(request.GetString("file_type", ""))

		results, err := svc.Search(ctx, query, topK, fileType)
		return toolResult(results, err)
	}
}

func handleCharacterInfo(svc searchService) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := request.RequireString("character_name")
		if err != nil {
			return mcp.NewToolResultError("character_name argument is required and must be a string"), nil
		}
		topK := request.GetInt("top_k", 0)

		results, err := svc.SearchEntity(ctx, name, topK)
		return toolResult(results, err)
	}
}

func handlePlotThreads(svc searchService) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		keyword, err := request.RequireString("keyword")
		if err != nil {
			return mcp.NewToolResultError("keyword argument is required and must be a string"), nil
		}
		topK := request.GetInt("top_k", 0)

		results, err := svc.SearchTopic(ctx, keyword, topK)
		return toolResult(results, err)
	}
}

func toolResult(results []domain.SearchResult, err error) (*mcp.CallToolResult, error) {
	if err != nil {
		if errors.Is(err, domain.ErrEmptyQuery) {
			return mcp.NewToolResultError("query must not be empty"), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	formatted := retrieval.Format(results)
	if formatted == nil {
		formatted = []domain.FormattedResult{}
	}
	data, err := json.MarshalIndent(formatted, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(data)), nil
}
