package vault

import (
	"time"

	id "virasat/pkg/domain"
)

// Record is one row of any entity family. Domain fields live in the Fields
// map; the engine never interprets their values beyond schema validation.
type Record struct {
	ID        id.RecordID       `json:"id"`
	Owner     id.UserID         `json:"owner"`
	Family    string            `json:"family"`
	Fields    map[string]string `json:"fields"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// CloneFields returns a defensive copy so store-held records can't be
// mutated through the map a caller retains.
func CloneFields(fields map[string]string) map[string]string {
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}
