package protocol

// Version of the observer feed protocol.
const Version = "1"

// Operation event types streamed to observers.
const (
	EventRegionSaved  = "region_saved"
	EventRegionLoaded = "region_loaded"
	EventSaveFailed   = "save_failed"
	EventLoadFailed   = "load_failed"
	EventDecay        = "decay_event"
)

// OpEvent is one archive operation event. The same value is written to the
// operation log and broadcast on the websocket feed.
type OpEvent struct {
	Type     string `json:"type"`
	RegionID string `json:"region_id"`
	Tick     uint64 `json:"tick"`

	ElapsedTicks uint64 `json:"elapsed_ticks,omitempty"`
	Entities     int    `json:"entities,omitempty"`
	Groups       int    `json:"groups,omitempty"`
	Detail       string `json:"detail,omitempty"`

	CreatedAt string `json:"created_at"`
}

// OpEventSchema is the JSON schema the feed promises to clients; the
// protocol tests validate sample events against it.
const OpEventSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["type", "region_id", "tick", "created_at"],
  "properties": {
    "type": {
      "enum": ["region_saved", "region_loaded", "save_failed", "load_failed", "decay_event"]
    },
    "region_id": {"type": "string", "minLength": 1},
    "tick": {"type": "integer", "minimum": 0},
    "elapsed_ticks": {"type": "integer", "minimum": 0},
    "entities": {"type": "integer", "minimum": 0},
    "groups": {"type": "integer", "minimum": 0},
    "detail": {"type": "string"},
    "created_at": {"type": "string"}
  },
  "additionalProperties": false
}`
