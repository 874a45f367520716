package session

import (
	"github.com/AltairaLabs/voice-gateway/internal/eventcodec"
)

// ToolResultContentPrefix names the synthetic content block a tool result
// is framed under (§4.6: `contentId = "tool-result-" + toolUseId`).
const ToolResultContentPrefix = "tool-result-"

// EnqueueToolResult atomically enqueues the three-frame tool-result
// sequence (§4.6 point 5, §5 "tool result framing"): content-start
// (type=TOOL, role=TOOL), the toolResult frame itself, and content-end.
// Unlike the named phase transitions, this has no phase guard — a tool
// result can legitimately arrive in any live phase once a turn is
// underway, since the model may invoke a tool at any point during
// generation.
func (s *Session) EnqueueToolResult(toolUseID string, payload eventcodec.ToolResultPayload) error {
	contentID := ToolResultContentPrefix + toolUseID
	evs := []eventcodec.OutboundEvent{
		eventcodec.NewContentStart(contentID, eventcodec.ContentTypeTool, eventcodec.RoleTool),
		eventcodec.NewToolResult(contentID, toolUseID, payload),
		eventcodec.NewContentEnd(contentID),
	}
	return s.enqueueAll(evs)
}
