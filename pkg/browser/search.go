package browser

import (
	"context"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/adam-cain/auto-invoice/pkg/agent/tools"
)

const (
	defaultSearchResults = 10
	searchContextChars   = 50
)

// SearchResult represents a single search match.
type SearchResult struct {
	Text    string `json:"text"`
	Context string `json:"context"`
}

// SearchText finds occurrences of pattern in text with surrounding context.
// maxResults <= 0 means unlimited.
func SearchText(text, pattern string, caseSensitive bool, maxResults int) []SearchResult {
	if pattern == "" {
		return nil
	}
	haystack, needle := text, pattern
	if !caseSensitive {
		haystack = strings.ToLower(text)
		needle = strings.ToLower(pattern)
		// Lowercasing can change byte lengths outside ASCII
		if len(haystack) != len(text) {
			text = haystack
		}
	}

	var results []SearchResult
	index := 0
	for {
		pos := strings.Index(haystack[index:], needle)
		if pos == -1 {
			break
		}
		at := index + pos
		start := max(0, at-searchContextChars)
		end := min(len(text), at+len(needle)+searchContextChars)

		results = append(results, SearchResult{
			Text:    text[at : at+len(needle)],
			Context: strings.Join(strings.Fields(text[start:end]), " "),
		})
		index = at + len(needle)

		if maxResults > 0 && len(results) >= maxResults {
			break
		}
	}
	return results
}

// SearchTool searches the visible text of the current page.
type SearchTool struct {
	surface Surface
}

// NewSearchTool creates a new search tool.
func NewSearchTool(surface Surface) *SearchTool {
	return &SearchTool{surface: surface}
}

// Name returns the tool name.
func (t *SearchTool) Name() string {
	return "search_page"
}

// Description returns the tool description.
func (t *SearchTool) Description() string {
	return "Search the visible text of the current page for a phrase (e.g., 'Invoice', 'Download PDF') and return each match with surrounding context."
}

// Schema returns the tool's JSON schema.
func (t *SearchTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{
			"pattern": map[string]interface{}{
				"type":        "string",
				"description": "Text to search for",
			},
			"case_sensitive": map[string]interface{}{
				"type":        "boolean",
				"description": "Match case exactly (default false)",
			},
			"max_results": map[string]interface{}{
				"type":        "integer",
				"description": "Maximum matches to return, 1-100 (default 10)",
			},
		},
		[]string{"pattern"},
	)
}

// SearchInput represents the parameters for searching.
type SearchInput struct {
	XMLName       xml.Name `xml:"arguments"`
	Pattern       string   `xml:"pattern"`
	CaseSensitive *bool    `xml:"case_sensitive"`
	MaxResults    *int     `xml:"max_results"`
}

// Execute searches the page.
func (t *SearchTool) Execute(ctx context.Context, argsXML []byte) (string, map[string]interface{}, error) {
	var input SearchInput
	if err := tools.UnmarshalXMLWithFallback(argsXML, &input); err != nil {
		return "", nil, fmt.Errorf("invalid parameters: %w", err)
	}
	if input.Pattern == "" {
		return "", nil, fmt.Errorf("search pattern is required")
	}

	caseSensitive := false
	if input.CaseSensitive != nil {
		caseSensitive = *input.CaseSensitive
	}
	maxResults := defaultSearchResults
	if input.MaxResults != nil {
		if *input.MaxResults < 1 || *input.MaxResults > 100 {
			return "", nil, fmt.Errorf("max_results must be between 1 and 100")
		}
		maxResults = *input.MaxResults
	}

	raw, err := t.surface.Content(ctx)
	if err != nil {
		return "", nil, err
	}
	obs, err := Observe(raw, t.surface.CurrentURL(), 1<<20)
	if err != nil {
		return "", nil, err
	}
	results := SearchText(obs.Text, input.Pattern, caseSensitive, maxResults)

	var b strings.Builder
	fmt.Fprintf(&b, `Search completed successfully

Search Details:
- Pattern: "%s"
- Case Sensitive: %v
- Results Found: %d
- Current URL: %s

`, input.Pattern, caseSensitive, len(results), t.surface.CurrentURL())

	if len(results) == 0 {
		b.WriteString("No matches found for the search pattern.")
		return b.String(), nil, nil
	}

	b.WriteString("Matches:\n\n")
	for i, r := range results {
		fmt.Fprintf(&b, "Match %d:\nText: %q\nContext: %s\n\n", i+1, r.Text, r.Context)
	}
	if len(results) == maxResults {
		fmt.Fprintf(&b, "[Limited to %d results. There may be more matches in the page.]", maxResults)
	}
	return b.String(), nil, nil
}

// IsLoopBreaking returns whether this tool breaks the agent loop.
func (t *SearchTool) IsLoopBreaking() bool {
	return false
}
