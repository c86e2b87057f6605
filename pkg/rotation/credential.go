package rotation

import "encoding/json"

// DatabaseCredential is the JSON payload persisted for database secrets,
// both administrator and per-application users.
type DatabaseCredential struct {
	Hostname string `json:"hostname"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// StorageKeyCredential is the JSON payload persisted for storage account
// keys. Name is exactly "key1" or "key2".
type StorageKeyCredential struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// encodeJSON marshals a credential payload. The payload types contain no
// values that can fail to marshal, so errors are treated as programmer
// mistakes by callers.
func encodeJSON(v interface{}) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// parseDatabaseCredential decodes a stored administrator or user credential.
func parseDatabaseCredential(value string) (*DatabaseCredential, error) {
	var cred DatabaseCredential
	if err := json.Unmarshal([]byte(value), &cred); err != nil {
		return nil, err
	}
	return &cred, nil
}

// parseStorageKeyCredential decodes a stored storage account key.
func parseStorageKeyCredential(value string) (*StorageKeyCredential, error) {
	var cred StorageKeyCredential
	if err := json.Unmarshal([]byte(value), &cred); err != nil {
		return nil, err
	}
	return &cred, nil
}
