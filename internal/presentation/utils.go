// internal/presentation/utils.go
package presentation

import (
	"encoding/json"

	"github.com/sirupsen/logrus"
)

// EventBytes marshals an Event into JSON bytes.
// Logs a warning and returns empty JSON "{}" on marshalling error.
func EventBytes(ev Event) []byte {
	data, err := json.Marshal(ev)
	if err != nil {
		logrus.WithError(err).WithField("event", ev.Type).Warn("failed to marshal presentation event")
		return []byte("{}")
	}
	return data
}
