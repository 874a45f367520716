package toolregistry

import (
	"encoding/json"
	"time"
)

const dateTimeSchema = `{
  "type": "object",
  "additionalProperties": false,
  "properties": {}
}`

type dateTimeResult struct {
	ISO8601 string `json:"iso8601"`
	Unix    int64  `json:"unix"`
}

// RegisterDateTime adds the pure, stateless date/time lookup tool (§4.2).
// now is injected so callers (and tests) control the clock; production
// wiring passes time.Now.
func RegisterDateTime(r *Registry, now func() time.Time) error {
	return r.Register("getCurrentDateTime", "Returns the current date and time in UTC.", json.RawMessage(dateTimeSchema),
		func(_ Identity, _ json.RawMessage) (json.RawMessage, error) {
			t := now().UTC()
			return json.Marshal(dateTimeResult{ISO8601: t.Format(time.RFC3339), Unix: t.Unix()})
		})
}
