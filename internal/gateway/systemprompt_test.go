package gateway_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AltairaLabs/voice-gateway/internal/gateway"
	"github.com/AltairaLabs/voice-gateway/internal/toolregistry"
)

func descriptor(name, desc string, schema string) toolregistry.Descriptor {
	return toolregistry.Descriptor{Name: name, Description: desc, InputSchema: json.RawMessage(schema)}
}

func TestBuildSystemPrompt_IncludesGreetingAndToolEnumeration(t *testing.T) {
	tools := []toolregistry.Descriptor{
		descriptor("create_task", "Create a task", `{"properties":{"title":{"type":"string","description":"task title"}},"required":["title"]}`),
		descriptor("get_current_datetime", "Get the current date and time", `{"properties":{}}`),
	}

	prompt := gateway.BuildSystemPrompt("Ada Lovelace", tools)

	assert.Contains(t, prompt, "Ada Lovelace")
	assert.Contains(t, prompt, "create_task: Create a task")
	assert.Contains(t, prompt, "title (required, string): task title")
	assert.Contains(t, prompt, "get_current_datetime: Get the current date and time")
}

func TestBuildSystemPrompt_ToolsEnumeratedInNameOrder(t *testing.T) {
	tools := []toolregistry.Descriptor{
		descriptor("zzz_tool", "last alphabetically", `{}`),
		descriptor("aaa_tool", "first alphabetically", `{}`),
	}

	prompt := gateway.BuildSystemPrompt("", tools)

	aIdx := indexOf(t, prompt, "aaa_tool")
	zIdx := indexOf(t, prompt, "zzz_tool")
	assert.Less(t, aIdx, zIdx)
}

func TestBuildSystemPrompt_NoDisplayNameOmitsGreeting(t *testing.T) {
	prompt := gateway.BuildSystemPrompt("", nil)
	assert.NotContains(t, prompt, "speaking with")
}

func TestBuildToolConfiguration_MirrorsRegisteredTools(t *testing.T) {
	tools := []toolregistry.Descriptor{
		descriptor("create_task", "Create a task", `{"properties":{"title":{"type":"string"}},"required":["title"]}`),
	}

	entries := gateway.BuildToolConfiguration(tools)

	require.Len(t, entries, 1)
	assert.Equal(t, "create_task", entries[0].ToolSpec.Name)
	assert.Equal(t, "Create a task", entries[0].ToolSpec.Description)
	assert.JSONEq(t, `{"properties":{"title":{"type":"string"}},"required":["title"]}`, entries[0].ToolSpec.InputSchema.JSON)
}

func indexOf(t *testing.T, haystack, needle string) int {
	t.Helper()
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return i
		}
	}
	t.Fatalf("%q not found in prompt", needle)
	return -1
}
