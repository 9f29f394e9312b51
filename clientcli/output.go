package clientcli

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/sagarc03/itemgate"
)

// Formatter formats results for output.
type Formatter interface {
	FormatIdentity(w io.Writer, identity itemgate.Identity) error
	FormatLogin(w io.Writer, result LoginResult) error
	FormatItem(w io.Writer, item itemgate.Item) error
	FormatItems(w io.Writer, items []itemgate.Item) error
	FormatDelete(w io.Writer, results []DeleteResult) error
	FormatUpload(w io.Writer, results []UploadResult) error
	FormatError(w io.Writer, err error) error
	FormatProfileList(w io.Writer, profiles []Profile, defaultName string, showSecrets bool) error
	FormatProfileShow(w io.Writer, profile Profile, isDefault, showSecrets bool) error
}

// NewFormatter returns the appropriate formatter based on flags.
func NewFormatter(jsonOutput, quiet bool) Formatter {
	if jsonOutput {
		return &JSONFormatter{}
	}
	return &HumanFormatter{Quiet: quiet}
}

// HumanFormatter outputs human-readable text.
type HumanFormatter struct {
	Quiet bool
}

// FormatIdentity formats a newly registered account.
func (f *HumanFormatter) FormatIdentity(w io.Writer, identity itemgate.Identity) error {
	if f.Quiet {
		_, _ = fmt.Fprintln(w, identity.UID)
		return nil
	}
	_, _ = fmt.Fprintf(w, "Signed up: %s\n", identity.Email)
	_, _ = fmt.Fprintf(w, "  UID: %s\n", identity.UID)
	return nil
}

// FormatLogin formats a successful login.
func (f *HumanFormatter) FormatLogin(w io.Writer, result LoginResult) error {
	if !f.Quiet {
		_, _ = fmt.Fprintf(w, "Logged in as %s\n", result.Email)
		_, _ = fmt.Fprintf(w, "  Token saved to profile '%s'\n", result.Profile)
	}
	return nil
}

// FormatItem prints the id followed by the fields in key order.
func (f *HumanFormatter) FormatItem(w io.Writer, item itemgate.Item) error {
	if f.Quiet {
		_, _ = fmt.Fprintln(w, item.ID)
		return nil
	}

	_, _ = fmt.Fprintf(w, "ID: %s\n", item.ID)
	for _, key := range slices.Sorted(maps.Keys(item.Fields)) {
		if key == "id" {
			continue
		}
		_, _ = fmt.Fprintf(w, "  %s: %s\n", key, compactValue(item.Fields[key]))
	}
	return nil
}

// FormatItems formats a list of items as a table.
func (f *HumanFormatter) FormatItems(w io.Writer, items []itemgate.Item) error {
	if f.Quiet {
		for i := range items {
			_, _ = fmt.Fprintln(w, items[i].ID)
		}
		return nil
	}

	if len(items) == 0 {
		_, _ = fmt.Fprintln(w, "No items found")
		return nil
	}

	// Calculate column widths
	maxIDLen := 2 // "ID"
	for i := range items {
		if len(items[i].ID) > maxIDLen {
			maxIDLen = len(items[i].ID)
		}
	}
	if maxIDLen > 40 {
		maxIDLen = 40
	}
	const maxFieldsLen = 60

	_, _ = fmt.Fprintf(w, "%-*s  %s\n", maxIDLen, "ID", "FIELDS")
	_, _ = fmt.Fprintf(w, "%s  %s\n", strings.Repeat("-", maxIDLen), strings.Repeat("-", 6))

	for i := range items {
		item := &items[i]
		_, _ = fmt.Fprintf(w, "%-*s  %s\n",
			maxIDLen,
			truncate(item.ID, maxIDLen),
			truncate(compactValue(item.Fields), maxFieldsLen),
		)
	}

	_, _ = fmt.Fprintf(w, "\n%d item(s)\n", len(items))
	return nil
}

// FormatDelete formats delete results as human-readable text.
func (f *HumanFormatter) FormatDelete(w io.Writer, results []DeleteResult) error {
	for i := range results {
		r := &results[i]
		if r.Err != nil {
			_, _ = fmt.Fprintf(w, "Error: %s - %v\n", r.ID, r.Err)
			continue
		}
		if !f.Quiet {
			_, _ = fmt.Fprintf(w, "Deleted: %s\n", r.ID)
		}
	}
	return nil
}

// FormatUpload formats upload results as human-readable text.
func (f *HumanFormatter) FormatUpload(w io.Writer, results []UploadResult) error {
	for i := range results {
		r := &results[i]
		if r.Err != nil {
			_, _ = fmt.Fprintf(w, "Error: %s - %v\n", r.LocalPath, r.Err)
			continue
		}
		if f.Quiet {
			_, _ = fmt.Fprintln(w, r.ImageURL)
			continue
		}
		_, _ = fmt.Fprintf(w, "Uploaded: %s (%s)\n", r.LocalPath, formatSize(r.Size))
		_, _ = fmt.Fprintf(w, "  URL: %s\n", r.ImageURL)
	}
	return nil
}

// FormatError formats an error as human-readable text.
func (f *HumanFormatter) FormatError(w io.Writer, err error) error {
	_, _ = fmt.Fprintf(w, "Error: %v\n", err)
	return nil
}

// FormatProfileList formats a list of profiles as human-readable text.
func (f *HumanFormatter) FormatProfileList(w io.Writer, profiles []Profile, defaultName string, showSecrets bool) error {
	// Calculate column widths
	maxNameLen := 4     // "NAME"
	maxEndpointLen := 8 // "ENDPOINT"
	maxEmailLen := 5    // "EMAIL"
	for i := range profiles {
		maxNameLen = max(maxNameLen, len(profiles[i].Name))
		maxEndpointLen = max(maxEndpointLen, len(profiles[i].Endpoint))
		maxEmailLen = max(maxEmailLen, len(profiles[i].Email))
	}
	maxNameLen = min(maxNameLen, 20)
	maxEndpointLen = min(maxEndpointLen, 50)
	maxEmailLen = min(maxEmailLen, 40)

	_, _ = fmt.Fprintf(w, "  %-*s  %-*s  %-*s  %s\n", maxNameLen, "NAME", maxEndpointLen, "ENDPOINT", maxEmailLen, "EMAIL", "TOKEN")
	_, _ = fmt.Fprintf(w, "  %s  %s  %s  %s\n",
		strings.Repeat("-", maxNameLen),
		strings.Repeat("-", maxEndpointLen),
		strings.Repeat("-", maxEmailLen),
		strings.Repeat("-", 20),
	)

	for i := range profiles {
		p := &profiles[i]
		marker := " "
		if p.Name == defaultName {
			marker = "*"
		}

		_, _ = fmt.Fprintf(w, "%s %-*s  %-*s  %-*s  %s\n",
			marker,
			maxNameLen, truncate(p.Name, maxNameLen),
			maxEndpointLen, truncate(p.Endpoint, maxEndpointLen),
			maxEmailLen, truncate(p.Email, maxEmailLen),
			maskSecret(p.Token, showSecrets),
		)
	}

	return nil
}

// FormatProfileShow formats a single profile as human-readable text.
func (f *HumanFormatter) FormatProfileShow(w io.Writer, profile Profile, isDefault, showSecrets bool) error {
	_, _ = fmt.Fprintf(w, "Name:     %s", profile.Name)
	if isDefault {
		_, _ = fmt.Fprintf(w, " (default)")
	}
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintf(w, "Endpoint: %s\n", profile.Endpoint)
	email := profile.Email
	if email == "" {
		email = "(not set)"
	}
	_, _ = fmt.Fprintf(w, "Email:    %s\n", email)
	_, _ = fmt.Fprintf(w, "Token:    %s\n", maskSecret(profile.Token, showSecrets))
	return nil
}

// JSONFormatter outputs JSON.
type JSONFormatter struct{}

// FormatIdentity formats a newly registered account as JSON.
func (f *JSONFormatter) FormatIdentity(w io.Writer, identity itemgate.Identity) error {
	return writeJSON(w, identity)
}

// FormatLogin formats a successful login as JSON. The token is included so
// scripts can capture it.
func (f *JSONFormatter) FormatLogin(w io.Writer, result LoginResult) error {
	return writeJSON(w, result)
}

// FormatItem formats an item as JSON, in the server's wire shape.
func (f *JSONFormatter) FormatItem(w io.Writer, item itemgate.Item) error {
	return writeJSON(w, item)
}

// FormatItems formats a list of items as a JSON array.
func (f *JSONFormatter) FormatItems(w io.Writer, items []itemgate.Item) error {
	if items == nil {
		items = []itemgate.Item{}
	}
	return writeJSON(w, items)
}

// FormatDelete formats delete results as JSON.
func (f *JSONFormatter) FormatDelete(w io.Writer, results []DeleteResult) error {
	// Convert errors to strings for JSON output
	type jsonResult struct {
		ID      string `json:"id"`
		Deleted bool   `json:"deleted"`
		Error   string `json:"error,omitempty"`
	}

	output := struct {
		Results []jsonResult `json:"results"`
	}{
		Results: make([]jsonResult, len(results)),
	}

	for i, r := range results {
		jr := jsonResult{
			ID:      r.ID,
			Deleted: r.Deleted,
		}
		if r.Err != nil {
			jr.Error = r.Err.Error()
		}
		output.Results[i] = jr
	}

	return writeJSON(w, output)
}

// FormatUpload formats upload results as JSON.
func (f *JSONFormatter) FormatUpload(w io.Writer, results []UploadResult) error {
	type jsonResult struct {
		LocalPath   string `json:"local_path"`
		ImageURL    string `json:"image_url,omitempty"`
		ContentType string `json:"content_type,omitempty"`
		Size        int64  `json:"size_bytes,omitempty"`
		Error       string `json:"error,omitempty"`
	}

	output := make([]jsonResult, len(results))
	for i := range results {
		r := &results[i]
		jr := jsonResult{LocalPath: r.LocalPath}
		if r.Err != nil {
			jr.Error = r.Err.Error()
		} else {
			jr.ImageURL = r.ImageURL
			jr.ContentType = r.ContentType
			jr.Size = r.Size
		}
		output[i] = jr
	}

	return writeJSON(w, output)
}

// FormatError formats an error as JSON.
func (f *JSONFormatter) FormatError(w io.Writer, err error) error {
	output := struct {
		Error string `json:"error"`
	}{
		Error: err.Error(),
	}
	return writeJSON(w, output)
}

// FormatProfileList formats a list of profiles as JSON.
func (f *JSONFormatter) FormatProfileList(w io.Writer, profiles []Profile, defaultName string, showSecrets bool) error {
	type jsonProfile struct {
		Name     string `json:"name"`
		Endpoint string `json:"endpoint"`
		Email    string `json:"email,omitempty"`
		Token    string `json:"token,omitempty"`
		Default  bool   `json:"default,omitempty"`
	}

	output := struct {
		Profiles []jsonProfile `json:"profiles"`
	}{
		Profiles: make([]jsonProfile, len(profiles)),
	}

	for i := range profiles {
		p := &profiles[i]
		output.Profiles[i] = jsonProfile{
			Name:     p.Name,
			Endpoint: p.Endpoint,
			Email:    p.Email,
			Token:    maskSecret(p.Token, showSecrets),
			Default:  p.Name == defaultName,
		}
	}

	return writeJSON(w, output)
}

// FormatProfileShow formats a single profile as JSON.
func (f *JSONFormatter) FormatProfileShow(w io.Writer, profile Profile, isDefault, showSecrets bool) error {
	output := struct {
		Name     string `json:"name"`
		Endpoint string `json:"endpoint"`
		Email    string `json:"email"`
		Token    string `json:"token"`
		Default  bool   `json:"default"`
	}{
		Name:     profile.Name,
		Endpoint: profile.Endpoint,
		Email:    profile.Email,
		Token:    maskSecret(profile.Token, showSecrets),
		Default:  isDefault,
	}

	return writeJSON(w, output)
}

// writeJSON writes a value as indented JSON.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// compactValue renders a field value as single-line JSON.
func compactValue(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

// formatSize formats bytes as human-readable size.
func formatSize(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
		TB = GB * 1024
	)

	switch {
	case bytes >= TB:
		return fmt.Sprintf("%.1f TB", float64(bytes)/TB)
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/GB)
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// maskSecret masks a secret string, showing only first 4 and last 4 characters.
// If showSecrets is true, returns the original value.
// If the secret is too short, returns all asterisks.
func maskSecret(secret string, showSecrets bool) string {
	if showSecrets {
		return secret
	}
	if secret == "" {
		return "(not set)"
	}
	if len(secret) <= 8 {
		return "********"
	}
	return secret[:4] + "..." + secret[len(secret)-4:]
}
