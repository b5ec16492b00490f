package utils

import (
	"strings"
)

// CleanMarkdown strips an outer ```markdown (or bare ```) wrapper so the
// text is ready for rendering. Inner fences are left alone.
func CleanMarkdown(input string) string {
	cleaned := strings.TrimSpace(input)
	if !strings.HasPrefix(cleaned, "```") || !strings.HasSuffix(cleaned, "```") || len(cleaned) < 6 {
		return cleaned
	}

	cleaned = strings.TrimSuffix(cleaned, "```")
	for _, open := range []string{"```markdown", "```md", "```"} {
		if strings.HasPrefix(cleaned, open) {
			cleaned = strings.TrimPrefix(cleaned, open)
			break
		}
	}
	return strings.TrimSpace(cleaned)
}
