package research

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/hupe1980/deepresearch/search"
)

var (
	fencePattern  = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*(.*?)```")
	arrayPattern  = regexp.MustCompile(`(?s)\[\s*\{.*?\}\s*\]`)
	objectPattern = regexp.MustCompile(`(?s)\{.*\}\s*$`)
)

// Alternative keys models use for result fields, tried in order.
var resultKeys = map[string][]string{
	"title":        {"title", "name"},
	"description":  {"description", "snippet", "content", "summary"},
	"url":          {"url", "link", "href"},
	"published_at": {"published_at", "published_date", "publishedAt", "date"},
	"source":       {"source"},
	"icon":         {"icon"},
}

// ParseResults extracts search results from model output. It accepts a bare
// JSON array, an array embedded in prose or a code fence, or a single
// trailing JSON object. Anything else yields no results.
func ParseResults(text string) []search.Result {
	text = strings.TrimSpace(text)
	if m := fencePattern.FindStringSubmatch(text); m != nil {
		text = strings.TrimSpace(m[1])
	}

	if text == "" {
		return nil
	}

	if strings.HasPrefix(text, "[") {
		if results, ok := decodeArray(text); ok {
			return results
		}
	}

	if m := arrayPattern.FindString(text); m != "" {
		if results, ok := decodeArray(m); ok {
			return results
		}
	}

	if m := objectPattern.FindString(text); m != "" {
		var obj map[string]any
		if err := json.Unmarshal([]byte(m), &obj); err == nil {
			if r, ok := toResult(obj); ok {
				return []search.Result{r}
			}
		}
	}

	return nil
}

func decodeArray(text string) ([]search.Result, bool) {
	var raw []map[string]any
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, false
	}

	results := make([]search.Result, 0, len(raw))
	for _, obj := range raw {
		if r, ok := toResult(obj); ok {
			results = append(results, r)
		}
	}

	return results, true
}

func toResult(obj map[string]any) (search.Result, bool) {
	r := search.Result{
		Title:       field(obj, "title"),
		Description: field(obj, "description"),
		URL:         field(obj, "url"),
		PublishedAt: field(obj, "published_at"),
		Source:      field(obj, "source"),
		Icon:        field(obj, "icon"),
	}

	if r.Title == "" && r.URL == "" {
		return search.Result{}, false
	}

	r.Title = orDefault(r.Title, search.DefaultTitle)
	r.Description = orDefault(r.Description, search.DefaultDescription)
	r.URL = orDefault(r.URL, search.DefaultURL)
	r.PublishedAt = orDefault(r.PublishedAt, search.DefaultDate)
	r.Source = orDefault(r.Source, "Web")

	return r, true
}

func field(obj map[string]any, name string) string {
	for _, key := range resultKeys[name] {
		v, ok := obj[key]
		if !ok || v == nil {
			continue
		}

		switch val := v.(type) {
		case string:
			if s := strings.TrimSpace(val); s != "" {
				return s
			}
		case map[string]any:
			// NewsAPI style {"source": {"name": "..."}}
			if n, ok := val["name"].(string); ok && n != "" {
				return n
			}
		default:
			return fmt.Sprint(val)
		}
	}

	return ""
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// FallbackResult is the placeholder source used when no search produced
// anything.
func FallbackResult(query string) search.Result {
	return search.Result{
		Title:       "Fallback: Overview of " + query,
		Description: "General overview of " + query + ".",
		URL:         "https://example.com/fallback",
		PublishedAt: search.DefaultDate,
		Source:      "Fallback",
		Icon:        "📚",
	}
}
