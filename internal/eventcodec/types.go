// Package eventcodec defines the framed events exchanged on the gateway's
// two wire boundaries — gateway↔model and gateway↔client — and the total
// codec that (de)serializes them. Modeled on the teacher repository's
// runtime/events.Event discriminated-union shape (runtime/events/types.go),
// adapted from a typed EventData marker interface to the kind-tagged JSON
// envelope the model and browser actually speak.
package eventcodec

import "encoding/json"

// OutboundKind identifies a gateway→model frame kind (§4.1).
type OutboundKind string

// Outbound event kinds, gateway → model.
const (
	OutSessionStart OutboundKind = "sessionStart"
	OutPromptStart  OutboundKind = "promptStart"
	OutContentStart OutboundKind = "contentStart"
	OutTextInput    OutboundKind = "textInput"
	OutAudioInput   OutboundKind = "audioInput"
	OutToolResult   OutboundKind = "toolResult"
	OutContentEnd   OutboundKind = "contentEnd"
	OutPromptEnd    OutboundKind = "promptEnd"
	OutSessionEnd   OutboundKind = "sessionEnd"
)

// InboundKind identifies a model→gateway frame kind (§4.1).
type InboundKind string

// Inbound event kinds, model → gateway.
const (
	InContentStart       InboundKind = "contentStart"
	InTextOutput         InboundKind = "textOutput"
	InAudioOutput        InboundKind = "audioOutput"
	InToolUse            InboundKind = "toolUse"
	InContentEnd         InboundKind = "contentEnd"
	InStreamComplete     InboundKind = "streamComplete"
	InModelStreamError   InboundKind = "modelStreamError"
	InInternalServerErr  InboundKind = "internalServerError"
	InUnknown            InboundKind = "unknown"
)

// ContentType distinguishes text/audio/tool content within a content-start
// / content-end pair.
type ContentType string

// Recognized content types.
const (
	ContentTypeText  ContentType = "TEXT"
	ContentTypeAudio ContentType = "AUDIO"
	ContentTypeTool  ContentType = "TOOL"
)

// Role identifies the speaker attributed to a content block.
type Role string

// Recognized roles.
const (
	RoleSystem    Role = "SYSTEM"
	RoleUser      Role = "USER"
	RoleAssistant Role = "ASSISTANT"
	RoleTool      Role = "TOOL"
)

// GenerationStage distinguishes speculative (revisable) from final
// (committed) model-generated content, carried on contentStart's
// additionalModelFields (§6).
type GenerationStage string

// Recognized generation stages.
const (
	GenerationSpeculative GenerationStage = "SPECULATIVE"
	GenerationFinal       GenerationStage = "FINAL"
)

// StopReason is carried on an inbound contentEnd frame.
type StopReason string

// Recognized stop reasons.
const (
	StopInterrupted StopReason = "INTERRUPTED"
)

// OutboundEvent is a single gateway→model frame. Only the fields relevant
// to Kind are populated; the rest are left zero.
type OutboundEvent struct {
	Kind OutboundKind `json:"event"`

	// sessionStart
	InferenceConfig *InferenceConfig `json:"inferenceConfiguration,omitempty"`

	// promptStart
	PromptID      string          `json:"promptId,omitempty"`
	ToolsConfig   []ToolSpecEntry `json:"toolConfiguration,omitempty"`

	// contentStart / contentEnd / textInput / audioInput / toolResult
	ContentID   string      `json:"contentId,omitempty"`
	ContentType ContentType `json:"type,omitempty"`
	Role        Role        `json:"role,omitempty"`
	ToolUseID   string      `json:"toolUseId,omitempty"`

	// textInput
	Text string `json:"text,omitempty"`

	// audioInput — base64-encoded 16kHz mono 16-bit PCM
	AudioBase64 string `json:"audioContent,omitempty"`

	// toolResult
	ToolResult *ToolResultPayload `json:"toolResult,omitempty"`
}

// InferenceConfig carries the session's immutable inference parameters.
type InferenceConfig struct {
	MaxTokens   int     `json:"maxTokens"`
	TopP        float64 `json:"topP"`
	Temperature float64 `json:"temperature"`
}

// ToolSpecEntry is one entry of promptStart's toolConfiguration array
// (§6): `{toolSpec:{name, description, inputSchema:{json: "<stringified>"}}}`.
type ToolSpecEntry struct {
	ToolSpec ToolSpec `json:"toolSpec"`
}

// ToolSpec is the model-facing shape of a registered tool.
type ToolSpec struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	InputSchema ToolInputWrap `json:"inputSchema"`
}

// ToolInputWrap wraps the tool's JSON schema as a stringified blob, per
// the model wire format.
type ToolInputWrap struct {
	JSON string `json:"json"`
}

// ToolResultPayload is the exact shape the model expects back (§4.6, §6):
// {toolResult: {content: [{result|error}], status}}.
type ToolResultPayload struct {
	Content []ToolResultContent `json:"content"`
	Status  string              `json:"status"`
}

// ToolResultContent carries either a successful result or an error message.
type ToolResultContent struct {
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// InboundEvent is a single model→gateway frame as classified by the codec.
type InboundEvent struct {
	Kind InboundKind

	ContentID           string
	ContentType         ContentType
	Role                Role
	GenerationStage     GenerationStage
	HasGenerationStage  bool

	// textOutput
	Text string

	// audioOutput — base64-encoded 24kHz mono 16-bit PCM
	AudioBase64 string

	// toolUse
	ToolUseID  string
	ToolName   string
	ParamsJSON json.RawMessage

	// contentEnd
	StopReason StopReason

	// modelStreamError / internalServerError
	ErrorMessage string

	// Raw holds the original frame for unknown-kind logging.
	Raw json.RawMessage
}

// IsInterrupted reports whether this stop reason signals barge-in (§6, §8 E4).
func (s StopReason) IsInterrupted() bool {
	return s == StopInterrupted
}
