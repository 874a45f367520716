// Package toolregistry implements the Tool Registry (C1, §4.2): a
// schema-validated registry of model-callable tools plus the concrete
// task/note/date-time handlers the gateway ships. Modeled on the teacher
// repository's runtime/tools package (registry + JSON-schema validator),
// narrowed from the teacher's pluggable-descriptor/executor model to the
// fixed tool set §4.2 names.
package toolregistry

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// Status is the exactly-one-of-two result status §4.2 requires.
type Status string

// Recognized statuses.
const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Identity identifies the authenticated caller a tool is invoked on
// behalf of. No userId ever appears in a tool's JSON schema (§4.2); it is
// threaded in out-of-band by the coordinator.
type Identity struct {
	UserID string
}

// Handler executes one tool call for an authenticated user. It must never
// panic; a Handler that panics is recovered by Registry.Invoke and
// reported as a structured error result rather than crashing the caller's
// goroutine.
type Handler func(identity Identity, params json.RawMessage) (result json.RawMessage, err error)

// Descriptor is a registered tool's schema-facing shape.
type Descriptor struct {
	Name        string
	Description string
	InputSchema json.RawMessage
}

type registeredTool struct {
	descriptor Descriptor
	schema     *gojsonschema.Schema
	handler    Handler
}

// Registry holds the process's tool set. Safe for concurrent use: Invoke
// is called from whichever Model Stream Worker goroutine handled the
// toolUse frame (§5 "every call is independent").
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*registeredTool
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{tools: make(map[string]*registeredTool)}
}

// Register adds a tool under name. Idempotent registration under the same
// name is an error — re-registering, even with an identical schema, must
// be an explicit decision by the caller, not a silent overwrite (§4.2).
func (r *Registry) Register(name, description string, schema json.RawMessage, handler Handler) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("toolregistry: tool %q already registered", name)
	}

	compiled, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schema))
	if err != nil {
		return fmt.Errorf("toolregistry: invalid schema for %q: %w", name, err)
	}

	r.tools[name] = &registeredTool{
		descriptor: Descriptor{Name: name, Description: description, InputSchema: schema},
		schema:     compiled,
		handler:    handler,
	}
	return nil
}

// List returns every registered tool's schema-facing descriptor, in a
// form suitable for embedding in the outbound promptStart event (§4.2).
func (r *Registry) List() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Descriptor, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t.descriptor)
	}
	return out
}

// Invoke validates paramsJSON against the named tool's input schema and,
// if valid, runs its handler. It never panics: a handler panic is
// recovered and turned into a status=error result, matching §4.2's "never
// panics" requirement and the teacher's defensive-dispatch style in
// runtime/tools/registry.go's Execute.
func (r *Registry) Invoke(name string, paramsJSON json.RawMessage, identity Identity) (result json.RawMessage, status Status) {
	r.mu.RLock()
	tool, ok := r.tools[name]
	r.mu.RUnlock()

	if !ok {
		return structuredError(fmt.Sprintf("unknown tool %q", name)), StatusError
	}

	if err := validate(tool, paramsJSON); err != nil {
		return structuredError(err.Error()), StatusError
	}

	return r.invokeHandler(tool, identity, paramsJSON)
}

func (r *Registry) invokeHandler(tool *registeredTool, identity Identity, paramsJSON json.RawMessage) (result json.RawMessage, status Status) {
	defer func() {
		if rec := recover(); rec != nil {
			result = structuredError(fmt.Sprintf("tool %q panicked: %v", tool.descriptor.Name, rec))
			status = StatusError
		}
	}()

	out, err := tool.handler(identity, paramsJSON)
	if err != nil {
		return structuredError(err.Error()), StatusError
	}
	if out == nil {
		out = json.RawMessage(`{}`)
	}
	return out, StatusSuccess
}

func validate(tool *registeredTool, paramsJSON json.RawMessage) error {
	if len(paramsJSON) == 0 {
		paramsJSON = json.RawMessage(`{}`)
	}
	result, err := tool.schema.Validate(gojsonschema.NewBytesLoader(paramsJSON))
	if err != nil {
		return fmt.Errorf("toolregistry: %q: malformed parameters: %w", tool.descriptor.Name, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("toolregistry: %q: invalid parameters: %v", tool.descriptor.Name, msgs)
	}
	return nil
}

type structuredErrorBody struct {
	Error string `json:"error"`
}

func structuredError(msg string) json.RawMessage {
	b, _ := json.Marshal(structuredErrorBody{Error: msg})
	return b
}
