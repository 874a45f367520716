package session_test

import (
	"testing"

	"github.com/AltairaLabs/voice-gateway/internal/eventcodec"
	"github.com/AltairaLabs/voice-gateway/internal/session"
	"github.com/stretchr/testify/assert"
)

func TestParseHistory_MatchesAndNormalizesRole(t *testing.T) {
	transcript := "User: hi there\nassistant: hello!\nignored line\n\nUser: how are you?"
	msgs := session.ParseHistory(transcript)

	require := assert.New(t)
	require.Len(msgs, 3)
	require.Equal(eventcodec.RoleUser, msgs[0].Role)
	require.Equal("hi there", msgs[0].Text)
	require.Equal(eventcodec.RoleAssistant, msgs[1].Role)
	require.Equal("hello!", msgs[1].Text)
	require.Equal(eventcodec.RoleUser, msgs[2].Role)
	require.Equal("how are you?", msgs[2].Text)
}

func TestParseHistory_EmptyInputProducesNoMessages(t *testing.T) {
	assert.Empty(t, session.ParseHistory(""))
	assert.Empty(t, session.ParseHistory("\n\n\n"))
	assert.Empty(t, session.ParseHistory("just a narrative line"))
}

func TestParseHistory_PreservesOrder(t *testing.T) {
	msgs := session.ParseHistory("User: one\nAssistant: two\nUser: three")
	var texts []string
	for _, m := range msgs {
		texts = append(texts, m.Text)
	}
	assert.Equal(t, []string{"one", "two", "three"}, texts)
}
