package gwerrors_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/AltairaLabs/voice-gateway/internal/gwerrors"
	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := gwerrors.New(gwerrors.KindModel, "modelstream", "Connect", cause)

	assert.Equal(t, gwerrors.KindModel, err.Kind)
	assert.Equal(t, "modelstream", err.Component)
	assert.Equal(t, "Connect", err.Operation)
	assert.Equal(t, 0, err.StatusCode)
	assert.Nil(t, err.Details)
	assert.Same(t, cause, err.Cause)
}

func TestError_Message(t *testing.T) {
	err := gwerrors.New(gwerrors.KindTool, "toolregistry", "Invoke", fmt.Errorf("boom")).
		WithStatusCode(500)
	assert.Equal(t, "[tool:toolregistry] Invoke (status 500): boom", err.Error())
}

func TestError_NoCause(t *testing.T) {
	err := gwerrors.New(gwerrors.KindAuth, "identity", "Verify", nil)
	assert.Equal(t, "[authentication:identity] Verify", err.Error())
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("underlying")
	err := gwerrors.New(gwerrors.KindRepository, "taskrepo", "Get", cause)
	assert.True(t, errors.Is(err, cause))
}

func TestWithDetails(t *testing.T) {
	err := gwerrors.New(gwerrors.KindResource, "gateway", "Accept", nil)
	result := err.WithDetails(map[string]any{"maxStreams": 100})
	assert.Same(t, err, result)
	assert.Equal(t, 100, err.Details["maxStreams"])
}
