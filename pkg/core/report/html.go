package report

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"valuation_research/pkg/core/utils"
)

// TableClass is put on every rendered table so the frontend styles them.
const TableClass = "metric-table"

const (
	expectedTables          = 3
	expectedAIInsightTables = 2
	minSectionChars         = 500
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.Table, extension.Strikethrough))

// RenderHTML converts each non-empty section to HTML keyed by section name.
func RenderHTML(s Sections) (map[string]string, error) {
	out := make(map[string]string, len(AllKeys))
	for _, key := range AllKeys {
		md := s.Get(key)
		if strings.TrimSpace(md) == "" {
			continue
		}
		html, err := RenderSection(md)
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", key, err)
		}
		out[key] = html
	}
	return out, nil
}

// RenderSection renders one markdown section and tags its tables.
func RenderSection(md string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(utils.CleanMarkdown(md)), &buf); err != nil {
		return "", err
	}

	doc, err := goquery.NewDocumentFromReader(&buf)
	if err != nil {
		return "", err
	}
	doc.Find("table").AddClass(TableClass)

	html, err := doc.Find("body").Html()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(html), nil
}

// CountTables counts metric tables in rendered HTML.
func CountTables(html string) int {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return 0
	}
	return doc.Find("table." + TableClass).Length()
}

// textLength counts the visible characters of rendered HTML.
func textLength(html string) int {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return 0
	}
	return utf8.RuneCountInString(strings.TrimSpace(doc.Text()))
}

// FormatCheck summarizes how well rendered sections follow the layout rules.
// It never blocks a report; Warnings are for logs.
type FormatCheck struct {
	TableCounts map[string]int `json:"tableCounts"`
	Missing     []string       `json:"missing,omitempty"`
	Warnings    []string       `json:"warnings,omitempty"`
}

// ValidateFormat checks rendered sections for presence and table counts.
func ValidateFormat(html map[string]string) FormatCheck {
	check := FormatCheck{TableCounts: make(map[string]int)}
	for _, key := range AllKeys {
		content, ok := html[key]
		if !ok || content == "" {
			if key != KeyAIInsights {
				check.Missing = append(check.Missing, key)
				check.Warnings = append(check.Warnings, "缺少章节: "+key)
			}
			continue
		}

		n := CountTables(content)
		check.TableCounts[key] = n

		want := expectedTables
		if key == KeyAIInsights {
			want = expectedAIInsightTables
		}
		if n < want {
			check.Warnings = append(check.Warnings, fmt.Sprintf("部分 %s 表格数量不足: %d/%d", key, n, want))
		}
		if chars := textLength(content); chars < minSectionChars {
			check.Warnings = append(check.Warnings, fmt.Sprintf("部分 %s 内容过短: %d/%d", key, chars, minSectionChars))
		}
	}
	return check
}
