package modelstream

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AltairaLabs/voice-gateway/internal/eventcodec"
	"github.com/AltairaLabs/voice-gateway/internal/session"
)

type recordingObserver struct {
	contentStarts []string
	textOutputs   []string
	toolResults   []string
	errors        []string
	timeouts      []string
	completed     int
}

func (o *recordingObserver) OnContentStart(contentID string, _ eventcodec.ContentType, _ eventcodec.Role, _ eventcodec.GenerationStage, _ bool) {
	o.contentStarts = append(o.contentStarts, contentID)
}
func (o *recordingObserver) OnTextOutput(contentID, text string) {
	o.textOutputs = append(o.textOutputs, text)
}
func (o *recordingObserver) OnAudioOutput(string, string)        {}
func (o *recordingObserver) OnContentEnd(string, eventcodec.StopReason) {}
func (o *recordingObserver) OnStreamComplete()                  { o.completed++ }
func (o *recordingObserver) OnToolResult(toolUseID string, result []byte) {
	o.toolResults = append(o.toolResults, toolUseID)
}
func (o *recordingObserver) OnError(message string)         { o.errors = append(o.errors, message) }
func (o *recordingObserver) OnSessionTimeout(message string) { o.timeouts = append(o.timeouts, message) }

type recordingDispatcher struct {
	calls []string
}

func (d *recordingDispatcher) HandleToolUse(_ *session.Session, ev eventcodec.InboundEvent) {
	d.calls = append(d.calls, ev.ToolName)
}

func newTestSession() *session.Session {
	s := session.New("", session.Identity{UserID: "u1"}, session.InferenceConfig{MaxTokens: 100}, 10)
	s.SetPhasePause(0)
	return s
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	require.True(t, cond(), "condition never became true")
}

func TestWorker_DrainWritesQueuedOutboundInOrder(t *testing.T) {
	s := newTestSession()
	require.NoError(t, s.OpenModelStream())
	require.NoError(t, s.SetupPromptStart(nil))

	ft := newFakeTransport()
	w := New(s, ft, nil, nil)

	done := make(chan struct{})
	go func() {
		w.Run()
		close(done)
	}()

	require.NoError(t, s.Close())
	<-done

	frames := ft.writtenFrames()
	require.Len(t, frames, 4) // sessionStart, promptStart, promptEnd, sessionEnd

	var first eventcodec.OutboundEvent
	require.NoError(t, json.Unmarshal(frames[0], &first))
	assert.Equal(t, eventcodec.OutSessionStart, first.Kind)

	var last eventcodec.OutboundEvent
	require.NoError(t, json.Unmarshal(frames[3], &last))
	assert.Equal(t, eventcodec.OutSessionEnd, last.Kind)
}

func TestWorker_RoutesToolUseToDispatcherNotObserver(t *testing.T) {
	s := newTestSession()
	obs := &recordingObserver{}
	s.SetObserver(obs)
	disp := &recordingDispatcher{}

	ft := newFakeTransport()
	w := New(s, ft, disp, nil)

	done := make(chan struct{})
	go func() {
		w.Run()
		close(done)
	}()

	ft.pushInbound([]byte(`{"event":"toolUse","toolUseId":"tu-1","toolName":"getCurrentDateTime","input":"{}"}`))

	waitFor(t, func() bool { return len(disp.calls) == 1 })
	assert.Equal(t, "getCurrentDateTime", disp.calls[0])
	assert.Empty(t, obs.contentStarts)

	require.NoError(t, s.Close())
	<-done
}

func TestWorker_FiltersToolTaggedContentFromObserver(t *testing.T) {
	s := newTestSession()
	obs := &recordingObserver{}
	s.SetObserver(obs)

	ft := newFakeTransport()
	w := New(s, ft, nil, nil)

	done := make(chan struct{})
	go func() {
		w.Run()
		close(done)
	}()

	ft.pushInbound([]byte(`{"event":"contentStart","contentId":"c-tool","type":"TOOL","role":"TOOL"}`))
	ft.pushInbound([]byte(`{"event":"contentStart","contentId":"c-real","type":"TEXT","role":"ASSISTANT"}`))

	waitFor(t, func() bool { return len(obs.contentStarts) == 1 })
	assert.Equal(t, []string{"c-real"}, obs.contentStarts)

	require.NoError(t, s.Close())
	<-done
}

func TestWorker_TextAndStreamCompleteReachObserver(t *testing.T) {
	s := newTestSession()
	obs := &recordingObserver{}
	s.SetObserver(obs)

	ft := newFakeTransport()
	w := New(s, ft, nil, nil)

	done := make(chan struct{})
	go func() {
		w.Run()
		close(done)
	}()

	ft.pushInbound([]byte(`{"event":"textOutput","contentId":"c1","text":"hello"}`))
	ft.pushInbound([]byte(`{"event":"streamComplete"}`))

	waitFor(t, func() bool { return obs.completed == 1 })
	assert.Equal(t, []string{"hello"}, obs.textOutputs)

	require.NoError(t, s.Close())
	<-done
}

func TestWorker_ModelStreamErrorFrameTearsDownSession(t *testing.T) {
	s := newTestSession()
	obs := &recordingObserver{}
	s.SetObserver(obs)

	ft := newFakeTransport()
	w := New(s, ft, nil, nil)

	done := make(chan struct{})
	go func() {
		w.Run()
		close(done)
	}()

	ft.pushInbound([]byte(`{"event":"modelStreamError","message":"boom"}`))

	<-done
	assert.Equal(t, session.PhaseErrored, s.Phase())
	assert.Equal(t, []string{"boom"}, obs.errors)
}

func TestWorker_ResetReadErrorEmitsSessionTimeout(t *testing.T) {
	s := newTestSession()
	obs := &recordingObserver{}
	s.SetObserver(obs)

	ft := newFakeTransport()
	ft.failReadsWith(errors.New("connection reset by peer"))
	w := New(s, ft, nil, nil)

	done := make(chan struct{})
	go func() {
		w.Run()
		close(done)
	}()
	require.NoError(t, ft.Close())

	<-done
	assert.Equal(t, session.PhaseErrored, s.Phase())
	require.Len(t, obs.timeouts, 1)
	assert.Empty(t, obs.errors)
}

func TestWorker_NonResetReadErrorEmitsGenericError(t *testing.T) {
	s := newTestSession()
	obs := &recordingObserver{}
	s.SetObserver(obs)

	ft := newFakeTransport()
	ft.failReadsWith(errors.New("unexpected protocol violation"))
	w := New(s, ft, nil, nil)

	done := make(chan struct{})
	go func() {
		w.Run()
		close(done)
	}()
	require.NoError(t, ft.Close())

	<-done
	assert.Equal(t, session.PhaseErrored, s.Phase())
	require.Len(t, obs.errors, 1)
	assert.Empty(t, obs.timeouts)
}

func TestWorker_MalformedFrameIsSkippedNotFatal(t *testing.T) {
	s := newTestSession()
	obs := &recordingObserver{}
	s.SetObserver(obs)

	ft := newFakeTransport()
	w := New(s, ft, nil, nil)

	done := make(chan struct{})
	go func() {
		w.Run()
		close(done)
	}()

	ft.pushInbound([]byte(`not json at all`))
	ft.pushInbound([]byte(`{"event":"streamComplete"}`))

	waitFor(t, func() bool { return obs.completed == 1 })
	assert.Equal(t, session.PhaseCreated, s.Phase())

	require.NoError(t, s.Close())
	<-done
}

func TestWorker_DrainWriteFailureTearsDownAndUnblocksPump(t *testing.T) {
	s := newTestSession()
	require.NoError(t, s.OpenModelStream())

	ft := newFakeTransport()
	ft.mu.Lock()
	ft.writeErr = errors.New("write: broken pipe")
	ft.mu.Unlock()

	w := New(s, ft, nil, nil)

	done := make(chan struct{})
	go func() {
		w.Run()
		close(done)
	}()

	<-done
	assert.Equal(t, session.PhaseErrored, s.Phase())
}
