package render

import (
	"encoding/json"

	"wwasd-relay/src/models"
)

// -----------------------------------------------------------------------------
// JSON Renderer
// -----------------------------------------------------------------------------

// ToJSON serializes a query result as the desk JSON envelope: top-level
// ts/count plus one object per row carrying the raw payload and the computed
// is_fresh flag.
func ToJSON(res models.MQueryResult) ([]byte, error) {
	return json.Marshal(res)
}
