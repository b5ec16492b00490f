package prompt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
)

// LoadFromDirectory registers every .json prompt under dir, replacing
// built-ins with the same ID. Expected structure:
//
//	dir/
//	  planner/
//	    search_plan.json
//	  analyst/
//	    report.json
//
// A missing directory is not an error; built-ins stay in effect.
// It returns how many files were loaded.
func LoadFromDirectory(r *Registry, dir string) (int, error) {
	if dir == "" {
		return 0, nil
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return 0, nil
	}

	loaded := 0
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		var pt PromptTemplate
		if err := json.Unmarshal(data, &pt); err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}

		// Auto-generate ID from path if not specified
		if pt.ID == "" {
			pt.ID = generateIDFromPath(path, dir)
		}
		if pt.Category == "" {
			pt.Category = detectCategory(path, dir)
		}

		if err := r.Register(&pt); err != nil {
			return fmt.Errorf("failed to register %s: %w", pt.ID, err)
		}
		loaded++
		return nil
	})
	if err != nil {
		return loaded, fmt.Errorf("failed to load prompts: %w", err)
	}
	return loaded, nil
}

// generateIDFromPath creates a prompt ID from the file path
// e.g., "planner/search_plan.json" -> "planner.search_plan"
func generateIDFromPath(path string, baseDir string) string {
	relPath, _ := filepath.Rel(baseDir, path)
	relPath = strings.TrimSuffix(relPath, ".json")
	return strings.ReplaceAll(relPath, string(filepath.Separator), ".")
}

// detectCategory extracts the category from the folder structure
func detectCategory(path string, baseDir string) string {
	relPath, _ := filepath.Rel(baseDir, path)
	parts := strings.Split(relPath, string(filepath.Separator))
	if len(parts) > 1 {
		return parts[0]
	}
	return "default"
}

// RenderUserPrompt executes the user prompt template with the given context
func RenderUserPrompt(pt *PromptTemplate, ctx *PromptExecutionContext) (string, error) {
	return render(pt, pt.ID+".user", pt.UserPromptTmpl, ctx)
}

// RenderSystemPrompt executes the system prompt template with the given context
func RenderSystemPrompt(pt *PromptTemplate, ctx *PromptExecutionContext) (string, error) {
	return render(pt, pt.ID+".system", pt.SystemPrompt, ctx)
}

func render(pt *PromptTemplate, name, text string, ctx *PromptExecutionContext) (string, error) {
	if text == "" {
		return "", nil
	}

	tmpl, err := template.New(name).Parse(text)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	vars, err := withDefaults(pt, ctx)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, vars); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return buf.String(), nil
}

// withDefaults fills declared defaults and rejects missing required variables.
func withDefaults(pt *PromptTemplate, ctx *PromptExecutionContext) (map[string]interface{}, error) {
	vars := make(map[string]interface{}, len(pt.Variables))
	if ctx != nil {
		for k, v := range ctx.Variables {
			vars[k] = v
		}
	}
	for _, v := range pt.Variables {
		if _, ok := vars[v.Name]; ok {
			continue
		}
		if v.Required {
			return nil, fmt.Errorf("prompt %s: missing required variable %s", pt.ID, v.Name)
		}
		vars[v.Name] = v.Default
	}
	return vars, nil
}
