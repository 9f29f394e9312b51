package itemgate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"
)

// IdentityStore manages user identity records, independent of application data.
type IdentityStore interface {
	// CreateUser registers a new identity for email and assigns its uid.
	//
	// Returns ErrEmailTaken if the email is already registered.
	CreateUser(ctx context.Context, email string) (Identity, error)

	// GetUserByEmail looks up an identity by its email.
	//
	// Returns ErrNotFound if no identity has that email.
	GetUserByEmail(ctx context.Context, email string) (Identity, error)
}

// CredentialRepo stores password credentials keyed by uid.
type CredentialRepo interface {
	PutCredential(ctx context.Context, cred Credential) error
	// GetCredential returns ErrNotFound if no credential is stored for uid.
	GetCredential(ctx context.Context, uid string) (Credential, error)
}

// DocumentStore is a schema-less collection of items addressed by opaque ids.
//
// All methods accept a context for cancellation and timeout control.
type DocumentStore interface {
	// Add stores fields as a new document and returns its generated id.
	Add(ctx context.Context, fields Fields) (string, error)

	// Get returns the document stored under id.
	//
	// Returns ErrNotFound if the document does not exist.
	Get(ctx context.Context, id string) (Item, error)

	// Merge overlays the top-level fields onto the document stored under id,
	// creating the document if it does not exist.
	Merge(ctx context.Context, id string, fields Fields) error

	// Delete removes the document. Deleting a missing document is not an error.
	Delete(ctx context.Context, id string) error

	// List returns every document ordered by creation time.
	List(ctx context.Context) ([]Item, error)
}

// BlobStore stores binary objects and exposes them publicly.
// Implementations can use local filesystem, S3, GCS, or any other storage backend.
type BlobStore interface {
	// Write stores content under name, overwriting any existing object.
	//
	// Implementations should write atomically when possible and clean up
	// partial writes when ctx is cancelled.
	Write(ctx context.Context, name, contentType string, content io.Reader) (SaveResult, error)

	// MakePublic makes a written object publicly readable and returns its
	// public URL. The URL is derived deterministically from the object name.
	MakePublic(ctx context.Context, name string) (string, error)

	// Delete removes an object. It returns ErrNotFound if the object does not exist.
	Delete(ctx context.Context, name string) error
}

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

// TokenIssuer issues and verifies bearer tokens.
type TokenIssuer interface {
	Issue(claims Claims) (string, error)
	Verify(token string) (Claims, error)
}

// GatewayService implements signup, login, item CRUD and image upload on top
// of the configured stores.
type GatewayService struct {
	identities     IdentityStore
	credentials    CredentialRepo
	items          DocumentStore
	blobs          BlobStore
	hasher         PasswordHasher
	tokens         TokenIssuer
	cleanupTimeout time.Duration
	dummyHash      string
}

// ServiceConfig holds the collaborators and options for GatewayService.
type ServiceConfig struct {
	Identities     IdentityStore
	Credentials    CredentialRepo
	Items          DocumentStore
	Blobs          BlobStore
	Hasher         PasswordHasher
	Tokens         TokenIssuer
	CleanupTimeout time.Duration // Timeout for cleanup operations (default: 30s)
}

// NewGatewayService validates cfg and builds a GatewayService.
func NewGatewayService(cfg ServiceConfig) (*GatewayService, error) {
	switch {
	case cfg.Identities == nil:
		return nil, errors.New("new gateway service: identity store is required")
	case cfg.Credentials == nil:
		return nil, errors.New("new gateway service: credential repo is required")
	case cfg.Items == nil:
		return nil, errors.New("new gateway service: document store is required")
	case cfg.Blobs == nil:
		return nil, errors.New("new gateway service: blob store is required")
	case cfg.Hasher == nil:
		return nil, errors.New("new gateway service: password hasher is required")
	case cfg.Tokens == nil:
		return nil, errors.New("new gateway service: token issuer is required")
	}

	cleanupTimeout := cfg.CleanupTimeout
	if cleanupTimeout <= 0 {
		cleanupTimeout = 30 * time.Second
	}

	// Compared against on unknown emails so that login does the same work
	// whether or not the account exists.
	dummyHash, err := cfg.Hasher.Hash("itemgate-login-placeholder")
	if err != nil {
		return nil, fmt.Errorf("new gateway service: %w", err)
	}

	return &GatewayService{
		identities:     cfg.Identities,
		credentials:    cfg.Credentials,
		items:          cfg.Items,
		blobs:          cfg.Blobs,
		hasher:         cfg.Hasher,
		tokens:         cfg.Tokens,
		cleanupTimeout: cleanupTimeout,
		dummyHash:      dummyHash,
	}, nil
}

// Signup registers a new identity and stores its password credential.
// Emails are compared case-insensitively and stored lowercased.
//
// The password is hashed before the identity is created, so a hashing failure
// never leaves an identity without a credential.
//
// Error types returned:
//   - ErrInvalidInput: empty email or password, or a password bcrypt cannot hash
//   - ErrEmailTaken: the email is already registered
//   - Wrapped store errors
func (s *GatewayService) Signup(ctx context.Context, email, password string) (Identity, error) {
	if err := ctx.Err(); err != nil {
		return Identity{}, fmt.Errorf("signup: %w", err)
	}

	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return Identity{}, fmt.Errorf("signup: %w: email and password are required", ErrInvalidInput)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return Identity{}, fmt.Errorf("signup: %w", err)
	}

	identity, err := s.identities.CreateUser(ctx, email)
	if err != nil {
		return Identity{}, fmt.Errorf("signup: %w", err)
	}

	cred := Credential{
		UID:          identity.UID,
		Email:        identity.Email,
		PasswordHash: hash,
	}
	if err := s.credentials.PutCredential(ctx, cred); err != nil {
		return Identity{}, fmt.Errorf("signup %s: store credential: %w", identity.UID, err)
	}

	return identity, nil
}

// Login checks the password for email and issues a bearer token.
//
// Every authentication failure (unknown email, missing credential, wrong
// password) wraps ErrAuthenticationFailed so callers cannot tell them apart.
// The wrapped message names the reason for logging.
func (s *GatewayService) Login(ctx context.Context, email, password string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("login: %w", err)
	}

	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return "", fmt.Errorf("login: %w: email and password are required", ErrInvalidInput)
	}

	identity, err := s.identities.GetUserByEmail(ctx, email)
	if err != nil {
		s.hasher.Verify(password, s.dummyHash)
		return "", fmt.Errorf("login: %w: lookup identity: %v", ErrAuthenticationFailed, err)
	}

	cred, err := s.credentials.GetCredential(ctx, identity.UID)
	if err != nil {
		s.hasher.Verify(password, s.dummyHash)
		return "", fmt.Errorf("login: %w: load credential: %v", ErrAuthenticationFailed, err)
	}

	if !s.hasher.Verify(password, cred.PasswordHash) {
		return "", fmt.Errorf("login: %w: password mismatch", ErrAuthenticationFailed)
	}

	token, err := s.tokens.Issue(Claims{UID: identity.UID, Email: identity.Email})
	if err != nil {
		return "", fmt.Errorf("login: %w", err)
	}

	return token, nil
}

// Authenticate verifies a bearer token and returns its claims.
func (s *GatewayService) Authenticate(token string) (Claims, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return Claims{}, fmt.Errorf("authenticate: %w", err)
	}
	return claims, nil
}

// CreateItem stores fields as a new item and returns it with its new id.
func (s *GatewayService) CreateItem(ctx context.Context, fields Fields) (Item, error) {
	if err := ctx.Err(); err != nil {
		return Item{}, fmt.Errorf("create item: %w", err)
	}

	if fields == nil {
		fields = Fields{}
	}

	id, err := s.items.Add(ctx, fields)
	if err != nil {
		return Item{}, fmt.Errorf("create item: %w", err)
	}

	return Item{ID: id, Fields: fields}, nil
}

// ListItems returns every item, oldest first. It never returns a nil slice.
func (s *GatewayService) ListItems(ctx context.Context) ([]Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}

	items, err := s.items.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}

	if items == nil {
		items = []Item{}
	}
	return items, nil
}

// GetItem returns the full stored item. Returns ErrNotFound if it does not exist.
func (s *GatewayService) GetItem(ctx context.Context, id string) (Item, error) {
	if err := ctx.Err(); err != nil {
		return Item{}, fmt.Errorf("get item: %w", err)
	}

	if !IsValidItemID(id) {
		return Item{}, fmt.Errorf("get item %q: %w", id, ErrInvalidInput)
	}

	item, err := s.items.Get(ctx, id)
	if err != nil {
		return Item{}, fmt.Errorf("get item %s: %w", id, err)
	}

	return item, nil
}

// UpdateItem merge-writes fields onto the item, creating it if absent. The
// returned item reflects the input fields, not the full stored document.
func (s *GatewayService) UpdateItem(ctx context.Context, id string, fields Fields) (Item, error) {
	if err := ctx.Err(); err != nil {
		return Item{}, fmt.Errorf("update item: %w", err)
	}

	if !IsValidItemID(id) {
		return Item{}, fmt.Errorf("update item %q: %w", id, ErrInvalidInput)
	}

	if fields == nil {
		fields = Fields{}
	}

	if err := s.items.Merge(ctx, id, fields); err != nil {
		return Item{}, fmt.Errorf("update item %s: %w", id, err)
	}

	return Item{ID: id, Fields: fields}, nil
}

// DeleteItem removes an item. Deleting a missing item succeeds.
func (s *GatewayService) DeleteItem(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("delete item: %w", err)
	}

	if !IsValidItemID(id) {
		return fmt.Errorf("delete item %q: %w", id, ErrInvalidInput)
	}

	if err := s.items.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete item %s: %w", id, err)
	}

	return nil
}

// UploadImage writes content to the blob store under a fresh time-ordered
// name and makes it public.
//
// The write and publish steps run in their own goroutine and deliver exactly
// one result. If ctx ends first, UploadImage returns the context error. When
// publishing fails the written object is deleted using a background context
// bounded by the cleanup timeout.
func (s *GatewayService) UploadImage(ctx context.Context, upload ImageUpload, content io.Reader) (UploadedImage, error) {
	if err := ctx.Err(); err != nil {
		return UploadedImage{}, fmt.Errorf("upload image: %w", err)
	}

	if content == nil {
		return UploadedImage{}, fmt.Errorf("upload image: %w: no content", ErrInvalidInput)
	}

	contentType := upload.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	name, err := ImageObjectName(upload.Filename)
	if err != nil {
		return UploadedImage{}, fmt.Errorf("upload image: %w", err)
	}

	result := newCompletion[UploadedImage]()
	go func() {
		result.resolve(s.storeImage(ctx, name, contentType, content))
	}()

	uploaded, err := result.wait(ctx)
	if err != nil {
		return UploadedImage{}, fmt.Errorf("upload image %s: %w", name, err)
	}
	return uploaded, nil
}

func (s *GatewayService) storeImage(ctx context.Context, name, contentType string, content io.Reader) (UploadedImage, error) {
	if _, err := s.blobs.Write(ctx, name, contentType, content); err != nil {
		return UploadedImage{}, fmt.Errorf("write failed: %w", err)
	}

	url, publishErr := s.blobs.MakePublic(ctx, name)
	if publishErr != nil {
		// Use background context for cleanup since original context may be cancelled
		cleanupCtx, cancel := context.WithTimeout(context.Background(), s.cleanupTimeout)
		defer cancel()

		if delErr := s.blobs.Delete(cleanupCtx, name); delErr != nil && !errors.Is(delErr, ErrNotFound) {
			slog.Warn("failed to remove unpublished upload", "name", name, "err", delErr)
			return UploadedImage{}, fmt.Errorf("make public failed (%w) and cleanup failed: %w", publishErr, delErr)
		}
		return UploadedImage{}, fmt.Errorf("make public failed: %w", publishErr)
	}

	return UploadedImage{Name: name, URL: url}, nil
}
