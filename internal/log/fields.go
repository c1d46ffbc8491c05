package log

// Canonical field name constants for structured logging.
const (
	FieldComponent = "component"
	FieldEntryID   = "entry_id"
	FieldVideoID   = "video_id"
	FieldKey       = "key"
	FieldCount     = "count"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"
	FieldCode     = "code"

	FieldPath = "path"
	FieldAddr = "addr"
)
