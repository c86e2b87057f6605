package secretstores

import (
	"encoding/json"
	"time"
)

// envelope is the JSON wrapper persisted by adapters whose backend has no
// native per-entry expiration or content-type metadata (AWS Secrets
// Manager, SSM Parameter Store, the OS keyring). It never leaves the
// adapter: GetSecretValue unwraps it and returns the raw value.
type envelope struct {
	Value       string     `json:"value"`
	ContentType string     `json:"content_type,omitempty"`
	CreatedOn   time.Time  `json:"created_on"`
	UpdatedOn   time.Time  `json:"updated_on"`
	ExpiresOn   *time.Time `json:"expires_on,omitempty"`
}

func (e *envelope) encode() (string, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// decodeEnvelope parses a stored envelope. Raw values written by other
// tooling are wrapped as an envelope with no metadata so reads degrade
// gracefully instead of failing.
func decodeEnvelope(raw string) *envelope {
	var e envelope
	if err := json.Unmarshal([]byte(raw), &e); err != nil || e.UpdatedOn.IsZero() {
		return &envelope{Value: raw}
	}
	return &e
}
