package admin

import (
	"encoding/json"
)

// Trace records how one attribute of one field was resolved, in the order
// the layers were applied (weakest first).
type Trace struct {
	Path   string       `json:"path"`
	Layers []Provenance `json:"layers"`
}

// Provenance details one step of an attribute resolution.
type Provenance struct {
	Scope      Scope       `json:"scope"`
	Section    SectionKind `json:"section,omitempty"`
	Source     string      `json:"source"`
	Rule       string      `json:"rule"`
	Expression string      `json:"expression,omitempty"`
	SnapshotID string      `json:"snapshot_id,omitempty"`
	Value      any         `json:"value"`
}

// Final returns the value produced by the last layer.
func (t Trace) Final() any {
	if len(t.Layers) == 0 {
		return nil
	}
	return t.Layers[len(t.Layers)-1].Value
}

// ToJSON serialises the trace into JSON for logging or transport helpers.
func (t Trace) ToJSON() ([]byte, error) {
	type alias Trace
	return json.Marshal(alias(t))
}

// TraceFromJSON deserialises a JSON payload that was previously generated via
// ToJSON.
func TraceFromJSON(payload []byte) (Trace, error) {
	type alias Trace
	var trace alias
	if err := json.Unmarshal(payload, &trace); err != nil {
		return Trace{}, err
	}
	return Trace(trace), nil
}

// traceRecorder captures steps for a single attribute. A nil recorder
// records nothing.
type traceRecorder struct {
	attribute  string
	snapshotID string
	trace      Trace
}

func (t *traceRecorder) record(attribute string, origin layerOrigin, rule, expression string, value any) {
	if t == nil || t.attribute != attribute {
		return
	}
	t.trace.Layers = append(t.trace.Layers, Provenance{
		Scope:      origin.scope,
		Section:    origin.section,
		Source:     origin.source,
		Rule:       rule,
		Expression: expression,
		SnapshotID: t.snapshotID,
		Value:      value,
	})
}
