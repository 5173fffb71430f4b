// Package publish delivers reconciled FlowRecords to message brokers.
//
// Every sink implements engine.Sink and sends the record as JSON:
//   - MQTTSink publishes a retained message so late subscribers see the
//     latest record immediately
//   - KafkaSink appends to a topic keyed by period
package publish

import (
	"encoding/json"
	"fmt"

	"github.com/tejusbharadwaj/energyflow/internal/models"
)

// Encode renders rec as the JSON payload every sink publishes.
func Encode(rec models.FlowRecord) ([]byte, error) {
	payload, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to encode flow record: %w", err)
	}
	return payload, nil
}
