package clientcli

// UploadOptions configures an upload operation.
type UploadOptions struct {
	LocalPath   string
	ContentType string // optional, auto-detect if empty
	Recursive   bool
}

// UploadResult represents the result of uploading a single file.
type UploadResult struct {
	LocalPath   string `json:"local_path"`
	ImageURL    string `json:"image_url"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size_bytes"`
	Err         error  `json:"-"` // nil on success
}

// DeleteResult represents the result of deleting a single item.
type DeleteResult struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
	Err     error  `json:"-"` // nil on success
}

// LoginResult describes a successful login saved to a profile.
type LoginResult struct {
	Profile  string `json:"profile"`
	Endpoint string `json:"endpoint"`
	Email    string `json:"email"`
	Token    string `json:"token"`
}
