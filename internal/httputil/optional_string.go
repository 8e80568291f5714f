package httputil

import (
	"bytes"
	"encoding/json"
)

// OptionalString distinguishes an absent JSON field from an explicit
// null, which a plain *string cannot. Document PATCH bodies rely on
// it: omitting user_input keeps the stored value, sending null clears
// it, sending a string replaces it.
type OptionalString struct {
	Present bool
	Value   *string
}

// UnmarshalJSON runs only when the field appears in the payload, so
// reaching it at all means Present.
func (o *OptionalString) UnmarshalJSON(data []byte) error {
	o.Present = true

	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Value = nil
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	o.Value = &s
	return nil
}
