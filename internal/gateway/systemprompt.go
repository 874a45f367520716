package gateway

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/AltairaLabs/voice-gateway/internal/eventcodec"
	"github.com/AltairaLabs/voice-gateway/internal/toolregistry"
)

// personaPreamble is the fixed opening of every session's system prompt
// (§4.7 "System-prompt composition").
const personaPreamble = "You are a helpful voice assistant. You speak naturally and " +
	"concisely, and you use the tools available to you whenever a request " +
	"requires looking up or changing the user's tasks and notes."

type schemaDoc struct {
	Properties map[string]schemaProperty `json:"properties"`
	Required   []string                  `json:"required"`
}

type schemaProperty struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

// BuildSystemPrompt composes the system prompt from the fixed persona
// preamble, a greeting woven around the caller's display name (if any),
// and a deterministic enumeration of every registered tool's name,
// description, and parameters tagged required/optional with type and
// description (§4.7). The same descriptors also populate promptStart's
// toolConfiguration, so the model sees the identical tool set both ways.
func BuildSystemPrompt(displayName string, tools []toolregistry.Descriptor) string {
	var b strings.Builder
	b.WriteString(personaPreamble)

	if displayName != "" {
		fmt.Fprintf(&b, "\nThe person you are speaking with is %s.", displayName)
	}

	sorted := make([]toolregistry.Descriptor, len(tools))
	copy(sorted, tools)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	if len(sorted) > 0 {
		b.WriteString("\n\nYou have access to the following tools:\n")
		for _, t := range sorted {
			fmt.Fprintf(&b, "- %s: %s\n", t.Name, t.Description)
			for _, line := range parameterLines(t.InputSchema) {
				fmt.Fprintf(&b, "  %s\n", line)
			}
		}
	}

	return b.String()
}

// parameterLines describes each property of a tool's JSON schema as
// "name (required|optional, type): description", sorted by name for a
// deterministic prompt across runs.
func parameterLines(rawSchema json.RawMessage) []string {
	var doc schemaDoc
	if err := json.Unmarshal(rawSchema, &doc); err != nil || len(doc.Properties) == 0 {
		return nil
	}

	required := make(map[string]bool, len(doc.Required))
	for _, r := range doc.Required {
		required[r] = true
	}

	names := make([]string, 0, len(doc.Properties))
	for name := range doc.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	lines := make([]string, 0, len(names))
	for _, name := range names {
		prop := doc.Properties[name]
		qualifier := "optional"
		if required[name] {
			qualifier = "required"
		}
		lines = append(lines, fmt.Sprintf("%s (%s, %s): %s", name, qualifier, prop.Type, prop.Description))
	}
	return lines
}

// BuildToolConfiguration converts the registry's descriptors into the
// model-facing toolConfiguration shape (§6) — the same tool set named in
// the system prompt, so the model receives it both ways (§4.7).
func BuildToolConfiguration(tools []toolregistry.Descriptor) []eventcodec.ToolSpecEntry {
	sorted := make([]toolregistry.Descriptor, len(tools))
	copy(sorted, tools)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	out := make([]eventcodec.ToolSpecEntry, 0, len(sorted))
	for _, t := range sorted {
		out = append(out, eventcodec.ToolSpecEntry{ToolSpec: eventcodec.ToolSpec{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: eventcodec.ToolInputWrap{JSON: string(t.InputSchema)},
		}})
	}
	return out
}
