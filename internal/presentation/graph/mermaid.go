package graph

import (
	"fmt"
	"slices"
	"strings"

	"github.com/aretw0/rowflow/pkg/domain"
)

// GraphOverlay contains the outcome of a validation to visualize on the flow.
type GraphOverlay struct {
	States  map[string]domain.State
	Current string
}

// OverlayFromResult builds an overlay from a validation result.
func OverlayFromResult(res *domain.Result) *GraphOverlay {
	if res == nil {
		return nil
	}
	o := &GraphOverlay{States: make(map[string]domain.State, len(res.Order)), Current: res.Current}
	for _, name := range res.Order {
		if s, ok := res.StateOf(name); ok {
			o.States[name] = s
		}
	}
	return o
}

// GenerateMermaid produces a Mermaid flowchart of the schema.
// It applies semantic styling:
// - Options: {Decision}
// - Filter: {{Hexagon}}
// - Computed: [[Subroutine]]
// - Default (text/numeric): [/Parallelogram/]
// Solid arrows follow declaration order; labeled arrows are skips.
// It also applies overlay styles (states/current) if provided.
func GenerateMermaid(schema *domain.Schema, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	names := schema.Names()
	endID := ""
	if schema.EndMarker != "" {
		endID = sanitizeMermaidID(schema.EndMarker)
		sb.WriteString(fmt.Sprintf("    %s((\"%s\"))\n", endID, schema.EndMarker))
	}

	for i, name := range names {
		v, _ := schema.Get(name)
		safeID := sanitizeMermaidID(name)

		opener, closer := "[/", "/]"
		switch {
		case v.Computed:
			opener, closer = "[[", "]]"
		case v.Type == domain.TypeOptions:
			opener, closer = "{", "}"
		case v.Type == domain.TypeFilter:
			opener, closer = "{{", "}}"
		}

		label := name
		if v.Optional {
			label += " <br/> (optional)"
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", safeID, opener, label, closer))

		// Declaration order
		switch {
		case i+1 < len(names):
			sb.WriteString(fmt.Sprintf("    %s --> %s\n", safeID, sanitizeMermaidID(names[i+1])))
		case endID != "":
			sb.WriteString(fmt.Sprintf("    %s --> %s\n", safeID, endID))
		}

		// Option skips, in a stable order
		keys := make([]string, 0, len(v.Options))
		for k, opt := range v.Options {
			if opt.Skip != "" {
				keys = append(keys, k)
			}
		}
		slices.Sort(keys)
		for _, k := range keys {
			sb.WriteString(fmt.Sprintf("    %s -- \"%s\" --> %s\n", safeID, escapeLabel(k), sanitizeMermaidID(v.Options[k].Skip)))
		}

		if v.UnconditionalSkip != "" {
			sb.WriteString(fmt.Sprintf("    %s == \"always\" ==> %s\n", safeID, sanitizeMermaidID(v.UnconditionalSkip)))
		}
		if v.NoAnswerSkip != "" {
			sb.WriteString(fmt.Sprintf("    %s -. \"no answer\" .-> %s\n", safeID, sanitizeMermaidID(v.NoAnswerSkip)))
		}
		if v.IsSubordinate() {
			cond := fmt.Sprintf("= %v", v.DependentValue)
			sb.WriteString(fmt.Sprintf("    %s -. \"%s\" .-> %s\n", sanitizeMermaidID(v.DependentOn), escapeLabel(cond), safeID))
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef valid fill:#e8f5e9,stroke:#2e7d32,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef problem fill:#ffebee,stroke:#c62828,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef skipped fill:#eeeeee,stroke:#9e9e9e,stroke-dasharray:4,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		for _, name := range names {
			state, ok := overlay.States[name]
			if !ok || name == overlay.Current {
				continue
			}
			if class := overlayClass(state); class != "" {
				sb.WriteString(fmt.Sprintf("    class %s %s;\n", sanitizeMermaidID(name), class))
			}
		}

		if overlay.Current != "" {
			sb.WriteString(fmt.Sprintf("    class %s current;\n", sanitizeMermaidID(overlay.Current)))
		}
	}

	return sb.String()
}

func overlayClass(state domain.State) string {
	switch {
	case state.IsProblem():
		return "problem"
	case state == domain.StateValid:
		return "valid"
	case state == domain.StateSkipped:
		return "skipped"
	}
	return ""
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
