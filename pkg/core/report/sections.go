// Package report holds the structured valuation report: its five sections,
// how they are parsed out of model output, assembled into one markdown
// document and rendered to HTML.
package report

import (
	"encoding/json"
	"fmt"
	"strings"

	"valuation_research/pkg/core/utils"
)

const (
	KeyFundamental = "fundamentalAnalysis"
	KeySegments    = "businessSegments"
	KeyCatalysts   = "growthCatalysts"
	KeyValuation   = "valuationAnalysis"
	KeyAIInsights  = "aiInsights"
)

// RequiredKeys must all be present for a report to count as structured.
var RequiredKeys = []string{KeyFundamental, KeySegments, KeyCatalysts, KeyValuation}

// AllKeys is RequiredKeys plus the optional AI insights section, in report order.
var AllKeys = append(append([]string{}, RequiredKeys...), KeyAIInsights)

// Sections is the structured body of a valuation report. Each value is markdown.
type Sections struct {
	FundamentalAnalysis string `json:"fundamentalAnalysis"`
	BusinessSegments    string `json:"businessSegments"`
	GrowthCatalysts     string `json:"growthCatalysts"`
	ValuationAnalysis   string `json:"valuationAnalysis"`
	AIInsights          string `json:"aiInsights,omitempty"`
}

// Get returns the section stored under a JSON key.
func (s Sections) Get(key string) string {
	switch key {
	case KeyFundamental:
		return s.FundamentalAnalysis
	case KeySegments:
		return s.BusinessSegments
	case KeyCatalysts:
		return s.GrowthCatalysts
	case KeyValuation:
		return s.ValuationAnalysis
	case KeyAIInsights:
		return s.AIInsights
	}
	return ""
}

func (s *Sections) set(key, value string) {
	switch key {
	case KeyFundamental:
		s.FundamentalAnalysis = value
	case KeySegments:
		s.BusinessSegments = value
	case KeyCatalysts:
		s.GrowthCatalysts = value
	case KeyValuation:
		s.ValuationAnalysis = value
	case KeyAIInsights:
		s.AIInsights = value
	}
}

// HasRequired reports whether all four mandatory sections carry content.
func (s Sections) HasRequired() bool {
	for _, k := range RequiredKeys {
		if strings.TrimSpace(s.Get(k)) == "" {
			return false
		}
	}
	return true
}

// ParseSections extracts Sections from raw model output. A required key that
// is absent is an error; an empty value is kept. Non-string values are kept
// as their JSON text.
func ParseSections(raw string) (Sections, error) {
	decoded := utils.DecodeLLMJSON[map[string]any](raw)
	fields, ok := decoded.Parsed()
	if !ok {
		return Sections{}, fmt.Errorf("parse report JSON: %s", decoded.Reason)
	}

	var missing []string
	for _, k := range RequiredKeys {
		if _, present := fields[k]; !present {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return Sections{}, fmt.Errorf("report JSON missing keys: %s", strings.Join(missing, ", "))
	}

	var s Sections
	for _, k := range AllKeys {
		v, present := fields[k]
		if !present || v == nil {
			continue
		}
		s.set(k, stringify(v))
	}
	return s, nil
}

func stringify(v any) string {
	if str, ok := v.(string); ok {
		return str
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

// Assemble joins the sections under fixed numbered headings. Section 5 is
// emitted only when AI insights are present.
func Assemble(company string, s Sections) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s 估值分析报告\n\n", company)
	fmt.Fprintf(&b, "## 1. 基本面分析 (Fundamental Analysis)\n\n%s\n\n", s.FundamentalAnalysis)
	fmt.Fprintf(&b, "## 2. 业务板块分析 (Business Segments)\n\n%s\n\n", s.BusinessSegments)
	fmt.Fprintf(&b, "## 3. 增长催化剂 (Growth Catalysts)\n\n%s\n\n", s.GrowthCatalysts)
	fmt.Fprintf(&b, "## 4. 估值分析 (Valuation Analysis)\n\n%s\n\n", s.ValuationAnalysis)
	if s.AIInsights != "" {
		fmt.Fprintf(&b, "## 5. 🤖 AI深度洞察与预测 (AI-Powered Deep Insights & Predictions)\n\n%s\n\n", s.AIInsights)
	}
	return b.String()
}
