package itemgate

import (
	"encoding/json"
	"maps"
	"time"
)

// Identity is a user record held by the identity store.
type Identity struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
}

// Credential is the password record stored under an identity's uid.
type Credential struct {
	UID          string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Claims is the identity carried by a bearer token.
type Claims struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
}

// Fields is an item payload as supplied by the client.
type Fields map[string]any

// Item is a stored document. It encodes to JSON as {"id": ..., ...fields}.
type Item struct {
	ID     string
	Fields Fields
}

// MarshalJSON flattens the item fields next to its id. The store-assigned id
// wins over an "id" field in the payload.
func (i Item) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(i.Fields)+1)
	maps.Copy(out, i.Fields)
	out["id"] = i.ID
	return json.Marshal(out)
}

// UnmarshalJSON splits the "id" member from the remaining fields.
func (i *Item) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	id, _ := raw["id"].(string)
	delete(raw, "id")
	i.ID = id
	i.Fields = raw
	return nil
}

// ImageUpload describes a binary payload received for upload.
type ImageUpload struct {
	Filename    string
	ContentType string
	Size        int64
}

// UploadedImage is the result of a completed upload.
type UploadedImage struct {
	Name string `json:"-"`
	URL  string `json:"imageUrl"`
}

// SaveResult reports what a BlobStore write stored.
type SaveResult struct {
	BytesWritten int64
	Etag         string
}
