// Package serviceaccount loads the credential file used to reach the object
// storage service.
package serviceaccount

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrIncomplete is returned when the file lacks the key pair.
var ErrIncomplete = errors.New("service account is missing access_key_id or secret_access_key")

// Account holds HMAC credentials for an S3-compatible endpoint (AWS, MinIO,
// or GCS interoperability keys).
type Account struct {
	AccessKeyID     string `json:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key"`
	SessionToken    string `json:"session_token,omitempty"`
	Region          string `json:"region,omitempty"`
	ProjectID       string `json:"project_id,omitempty"`
}

// Load reads and validates a JSON service account file:
//
//	{
//	  "access_key_id": "GOOG1EXAMPLE",
//	  "secret_access_key": "bGoa+V7g/yqDXvKRqq+JTFn4uQZbPiQJo4pf9RzJ",
//	  "region": "auto"
//	}
func Load(path string) (Account, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Path is from trusted config file
	if err != nil {
		return Account{}, fmt.Errorf("read service account file: %w", err)
	}

	var acct Account
	if err := json.Unmarshal(data, &acct); err != nil {
		return Account{}, fmt.Errorf("parse service account file: %w", err)
	}

	acct.AccessKeyID = strings.TrimSpace(acct.AccessKeyID)
	acct.SecretAccessKey = strings.TrimSpace(acct.SecretAccessKey)

	if acct.AccessKeyID == "" || acct.SecretAccessKey == "" {
		return Account{}, fmt.Errorf("load service account %s: %w", path, ErrIncomplete)
	}

	return acct, nil
}
