package eventcodec

import "encoding/json"

// ClientInKind identifies a client→gateway frame kind (§6).
type ClientInKind string

// Client→gateway frame kinds.
const (
	ClientInStartSession ClientInKind = "startSession"
	ClientInAudioStart   ClientInKind = "audioStart"
	ClientInAudioData    ClientInKind = "audioData"
	ClientInAudioStop    ClientInKind = "audioStop"
	ClientInUnknown      ClientInKind = "unknown"
)

// ClientOutKind identifies a gateway→client frame kind (§6).
type ClientOutKind string

// Gateway→client frame kinds.
const (
	ClientOutWelcome        ClientOutKind = "welcome"
	ClientOutSessionStarted ClientOutKind = "sessionStarted"
	ClientOutSessionReady   ClientOutKind = "sessionReady"
	ClientOutContentStart   ClientOutKind = "contentStart"
	ClientOutTextOutput     ClientOutKind = "textOutput"
	ClientOutAudioOutput    ClientOutKind = "audioOutput"
	ClientOutContentEnd     ClientOutKind = "contentEnd"
	ClientOutStreamComplete ClientOutKind = "streamComplete"
	ClientOutError          ClientOutKind = "error"
	ClientOutSessionTimeout ClientOutKind = "sessionTimeout"
)

// ClientInFrame is a parsed client→gateway frame.
type ClientInFrame struct {
	Kind ClientInKind

	// startSession: optional transcript text and caller-supplied session id
	// (§6 "startSession with optional content (transcript string) and
	// optional sessionId").
	Content   string
	SessionID string

	// audioData
	AudioBase64 string

	Raw json.RawMessage
}

type clientWireIn struct {
	Type      string `json:"type"`
	Content   string `json:"content"`
	SessionID string `json:"sessionId"`
	Audio     string `json:"audio"`
}

// DecodeClientFrame classifies a browser-originated frame. Like Decode, it
// is total over well-formed JSON: anything it doesn't recognize becomes
// ClientInUnknown rather than an error, so one malformed client frame never
// tears down the connection (§4.7, §7).
func DecodeClientFrame(raw []byte) (ClientInFrame, error) {
	var w clientWireIn
	if err := json.Unmarshal(raw, &w); err != nil {
		return ClientInFrame{}, err
	}

	f := ClientInFrame{Raw: raw}
	switch ClientInKind(w.Type) {
	case ClientInStartSession:
		f.Kind = ClientInStartSession
		f.Content = w.Content
		f.SessionID = w.SessionID
	case ClientInAudioStart:
		f.Kind = ClientInAudioStart
	case ClientInAudioData:
		f.Kind = ClientInAudioData
		f.AudioBase64 = w.Audio
	case ClientInAudioStop:
		f.Kind = ClientInAudioStop
	default:
		f.Kind = ClientInUnknown
	}
	return f, nil
}

// clientWireOut is the envelope shape sent to the browser. Fields not
// relevant to Type are omitted.
type clientWireOut struct {
	Type                  string                       `json:"type"`
	SessionID             string                       `json:"sessionId,omitempty"`
	ContentID             string                       `json:"contentId,omitempty"`
	ContentType           string                       `json:"contentType,omitempty"`
	Role                  string                       `json:"role,omitempty"`
	Text                  string                       `json:"text,omitempty"`
	Audio                 string                       `json:"audio,omitempty"`
	Message               string                       `json:"message,omitempty"`
	UserID                string                       `json:"userId,omitempty"`
	DisplayName           string                       `json:"displayName,omitempty"`
	StopReason            string                       `json:"stopReason,omitempty"`
	AdditionalModelFields *clientAdditionalModelFields `json:"additionalModelFields,omitempty"`
}

// clientAdditionalModelFields carries the generationStage flag §6 says is
// meaningful to the client on contentStart: FINAL signals downstream
// state (e.g. the task list) should be re-read.
type clientAdditionalModelFields struct {
	GenerationStage string `json:"generationStage,omitempty"`
}

// EncodeWelcome builds the initial welcome frame sent on connect, carrying
// the authenticated caller's identifier and display name (§4.7 point 3).
func EncodeWelcome(userID, displayName string) ([]byte, error) {
	return json.Marshal(clientWireOut{Type: string(ClientOutWelcome), UserID: userID, DisplayName: displayName})
}

// EncodeSessionStarted builds the ack frame confirming a startSession was
// accepted.
func EncodeSessionStarted(sessionID string) ([]byte, error) {
	return json.Marshal(clientWireOut{Type: string(ClientOutSessionStarted), SessionID: sessionID})
}

// EncodeSessionReady builds the frame signaling the client may begin
// sending audio.
func EncodeSessionReady(sessionID string) ([]byte, error) {
	return json.Marshal(clientWireOut{Type: string(ClientOutSessionReady), SessionID: sessionID})
}

// EncodeContentStart forwards a content-start boundary to the client.
// hasStage reports whether the model supplied a generationStage; when it
// did, clientAdditionalModelFields.generationStage is set so the client can
// tell SPECULATIVE output from FINAL (§6).
func EncodeContentStart(contentID, contentType, role string, stage string, hasStage bool) ([]byte, error) {
	w := clientWireOut{Type: string(ClientOutContentStart), ContentID: contentID, ContentType: contentType, Role: role}
	if hasStage {
		w.AdditionalModelFields = &clientAdditionalModelFields{GenerationStage: stage}
	}
	return json.Marshal(w)
}

// EncodeTextOutput forwards an assistant text chunk to the client.
func EncodeTextOutput(contentID, text string) ([]byte, error) {
	return json.Marshal(clientWireOut{Type: string(ClientOutTextOutput), ContentID: contentID, Text: text})
}

// EncodeAudioOutput forwards an assistant audio chunk to the client.
func EncodeAudioOutput(contentID, audioBase64 string) ([]byte, error) {
	return json.Marshal(clientWireOut{Type: string(ClientOutAudioOutput), ContentID: contentID, Audio: audioBase64})
}

// EncodeContentEnd forwards a content-end boundary to the client.
// stopReason, when non-empty, signals barge-in ("INTERRUPTED") so the
// client knows to discard buffered audio output (§6, §8 property 5).
func EncodeContentEnd(contentID string, stopReason StopReason) ([]byte, error) {
	return json.Marshal(clientWireOut{Type: string(ClientOutContentEnd), ContentID: contentID, StopReason: string(stopReason)})
}

// EncodeStreamComplete signals the assistant turn has finished.
func EncodeStreamComplete(sessionID string) ([]byte, error) {
	return json.Marshal(clientWireOut{Type: string(ClientOutStreamComplete), SessionID: sessionID})
}

// EncodeError builds a client-facing error frame. Per §7, the message is
// always a stable, non-internal description; callers must not pass raw
// cause strings that could leak internals.
func EncodeError(message string) ([]byte, error) {
	return json.Marshal(clientWireOut{Type: string(ClientOutError), Message: message})
}

// EncodeSessionTimeout signals the idle-timeout closure of §4.4/§4.8.
func EncodeSessionTimeout() ([]byte, error) {
	return json.Marshal(clientWireOut{Type: string(ClientOutSessionTimeout)})
}
