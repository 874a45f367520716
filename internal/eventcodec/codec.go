package eventcodec

import "encoding/json"

// wireEnvelope is the superset of fields the model stream uses across all
// inbound frame shapes (§6). Decoding never panics the caller: an
// unrecognized "event" value classifies as InUnknown with the raw bytes
// preserved for logging, and a frame that is not valid JSON is returned
// as an error by Decode.
type wireEnvelope struct {
	Event string `json:"event"`

	ContentID           string          `json:"contentId"`
	Type                ContentType     `json:"type"`
	Role                Role            `json:"role"`
	AdditionalModelFields *additionalModelFields `json:"additionalModelFields"`

	Text string `json:"text"`

	AudioContent string `json:"audioContent"`

	ToolUseID string          `json:"toolUseId"`
	ToolName  string          `json:"toolName"`
	Content   json.RawMessage `json:"content"`

	StopReason StopReason `json:"stopReason"`

	Message string `json:"message"`
}

type additionalModelFields struct {
	GenerationStage GenerationStage `json:"generationStage"`
}

// Encode serializes an outbound (gateway→model) event as a single JSON
// frame.
func Encode(ev OutboundEvent) ([]byte, error) {
	return json.Marshal(ev)
}

// Decode classifies and parses a single model→gateway frame. It never
// returns an error for structurally-valid-but-unrecognized JSON: instead
// it returns an InboundEvent with Kind == InUnknown so the caller can log
// and discard without tearing down the stream (§4.1, §7). It returns an
// error only when raw isn't valid JSON at all.
func Decode(raw []byte) (InboundEvent, error) {
	var env wireEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return InboundEvent{}, err
	}

	ev := InboundEvent{Raw: raw}

	switch InboundKind(env.Event) {
	case InContentStart:
		ev.Kind = InContentStart
		ev.ContentID = env.ContentID
		ev.ContentType = env.Type
		ev.Role = env.Role
		if env.AdditionalModelFields != nil {
			ev.GenerationStage = env.AdditionalModelFields.GenerationStage
			ev.HasGenerationStage = true
		}
	case InTextOutput:
		ev.Kind = InTextOutput
		ev.ContentID = env.ContentID
		ev.Text = env.Text
	case InAudioOutput:
		ev.Kind = InAudioOutput
		ev.ContentID = env.ContentID
		ev.AudioBase64 = env.AudioContent
	case InToolUse:
		ev.Kind = InToolUse
		ev.ContentID = env.ContentID
		ev.ToolUseID = env.ToolUseID
		ev.ToolName = env.ToolName
		ev.ParamsJSON = env.Content
	case InContentEnd:
		ev.Kind = InContentEnd
		ev.ContentID = env.ContentID
		ev.StopReason = env.StopReason
	case InStreamComplete:
		ev.Kind = InStreamComplete
	case InModelStreamError:
		ev.Kind = InModelStreamError
		ev.ErrorMessage = env.Message
	case InInternalServerErr:
		ev.Kind = InInternalServerErr
		ev.ErrorMessage = env.Message
	default:
		ev.Kind = InUnknown
	}

	return ev, nil
}

// NewSessionStart builds the sessionStart frame (§4.4 Initialized).
func NewSessionStart(cfg InferenceConfig) OutboundEvent {
	return OutboundEvent{Kind: OutSessionStart, InferenceConfig: &cfg}
}

// NewPromptStart builds the promptStart frame (§4.4 PromptStarted).
func NewPromptStart(promptID string, tools []ToolSpecEntry) OutboundEvent {
	return OutboundEvent{Kind: OutPromptStart, PromptID: promptID, ToolsConfig: tools}
}

// NewContentStart builds a contentStart frame for the given content type
// and role (§4.4, §6).
func NewContentStart(contentID string, ct ContentType, role Role) OutboundEvent {
	return OutboundEvent{Kind: OutContentStart, ContentID: contentID, ContentType: ct, Role: role}
}

// NewTextInput builds a textInput frame carrying the system prompt or a
// user text turn.
func NewTextInput(contentID, text string) OutboundEvent {
	return OutboundEvent{Kind: OutTextInput, ContentID: contentID, Text: text}
}

// NewAudioInput builds an audioInput frame carrying one base64-encoded PCM
// chunk.
func NewAudioInput(contentID, audioBase64 string) OutboundEvent {
	return OutboundEvent{Kind: OutAudioInput, ContentID: contentID, AudioBase64: audioBase64}
}

// NewToolResult builds the three-frame atomic tool result group's middle
// frame (§4.6): contentId is "tool-result-"+toolUseId by convention,
// established by the caller.
func NewToolResult(contentID, toolUseID string, payload ToolResultPayload) OutboundEvent {
	return OutboundEvent{
		Kind:      OutToolResult,
		ContentID: contentID,
		ToolUseID: toolUseID,
		ToolResult: &payload,
	}
}

// NewContentEnd builds a contentEnd frame closing the content block
// identified by contentID.
func NewContentEnd(contentID string) OutboundEvent {
	return OutboundEvent{Kind: OutContentEnd, ContentID: contentID}
}

// NewPromptEnd builds the promptEnd frame, enqueued only at session
// teardown (Session.Close, §4.4 Terminated).
func NewPromptEnd(promptID string) OutboundEvent {
	return OutboundEvent{Kind: OutPromptEnd, PromptID: promptID}
}

// NewSessionEnd builds the sessionEnd frame (§4.4 Terminated).
func NewSessionEnd() OutboundEvent {
	return OutboundEvent{Kind: OutSessionEnd}
}
