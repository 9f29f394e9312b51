package itemgate_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/sagarc03/itemgate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type SpyIdentityStore struct {
	mock.Mock
}

func (s *SpyIdentityStore) CreateUser(ctx context.Context, email string) (itemgate.Identity, error) {
	args := s.Called(ctx, email)
	return args.Get(0).(itemgate.Identity), args.Error(1)
}

func (s *SpyIdentityStore) GetUserByEmail(ctx context.Context, email string) (itemgate.Identity, error) {
	args := s.Called(ctx, email)
	return args.Get(0).(itemgate.Identity), args.Error(1)
}

type SpyCredentialRepo struct {
	mock.Mock
}

func (s *SpyCredentialRepo) PutCredential(ctx context.Context, cred itemgate.Credential) error {
	args := s.Called(ctx, cred)
	return args.Error(0)
}

func (s *SpyCredentialRepo) GetCredential(ctx context.Context, uid string) (itemgate.Credential, error) {
	args := s.Called(ctx, uid)
	return args.Get(0).(itemgate.Credential), args.Error(1)
}

type SpyDocumentStore struct {
	mock.Mock
}

func (s *SpyDocumentStore) Add(ctx context.Context, fields itemgate.Fields) (string, error) {
	args := s.Called(ctx, fields)
	return args.String(0), args.Error(1)
}

func (s *SpyDocumentStore) Get(ctx context.Context, id string) (itemgate.Item, error) {
	args := s.Called(ctx, id)
	return args.Get(0).(itemgate.Item), args.Error(1)
}

func (s *SpyDocumentStore) Merge(ctx context.Context, id string, fields itemgate.Fields) error {
	args := s.Called(ctx, id, fields)
	return args.Error(0)
}

func (s *SpyDocumentStore) Delete(ctx context.Context, id string) error {
	args := s.Called(ctx, id)
	return args.Error(0)
}

func (s *SpyDocumentStore) List(ctx context.Context) ([]itemgate.Item, error) {
	args := s.Called(ctx)
	return args.Get(0).([]itemgate.Item), args.Error(1)
}

type SpyBlobStore struct {
	mock.Mock
}

func (s *SpyBlobStore) Write(ctx context.Context, name, contentType string, content io.Reader) (itemgate.SaveResult, error) {
	args := s.Called(ctx, name, contentType, content)
	return args.Get(0).(itemgate.SaveResult), args.Error(1)
}

func (s *SpyBlobStore) MakePublic(ctx context.Context, name string) (string, error) {
	args := s.Called(ctx, name)
	return args.String(0), args.Error(1)
}

func (s *SpyBlobStore) Delete(ctx context.Context, name string) error {
	args := s.Called(ctx, name)
	return args.Error(0)
}

type spies struct {
	identities  *SpyIdentityStore
	credentials *SpyCredentialRepo
	items       *SpyDocumentStore
	blobs       *SpyBlobStore
	tokens      *itemgate.TokenService
	hasher      *itemgate.BcryptHasher
}

func NewGatewayService(t *testing.T) (*itemgate.GatewayService, spies) {
	t.Helper()

	hasher, err := itemgate.NewBcryptHasher(bcrypt.MinCost)
	require.NoError(t, err)
	tokens, err := itemgate.NewTokenService([]byte("test-secret"), 0)
	require.NoError(t, err)

	sp := spies{
		identities:  new(SpyIdentityStore),
		credentials: new(SpyCredentialRepo),
		items:       new(SpyDocumentStore),
		blobs:       new(SpyBlobStore),
		tokens:      tokens,
		hasher:      hasher,
	}

	s, err := itemgate.NewGatewayService(itemgate.ServiceConfig{
		Identities:     sp.identities,
		Credentials:    sp.credentials,
		Items:          sp.items,
		Blobs:          sp.blobs,
		Hasher:         hasher,
		Tokens:         tokens,
		CleanupTimeout: time.Second,
	})
	require.NoError(t, err, "new gateway service")
	return s, sp
}

func TestNewGatewayService(t *testing.T) {
	t.Run("missing collaborator", func(t *testing.T) {
		_, err := itemgate.NewGatewayService(itemgate.ServiceConfig{})
		assert.Error(t, err)
	})
}

func TestGatewayService_Signup(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		service, sp := NewGatewayService(t)
		ctx := context.Background()

		identity := itemgate.Identity{UID: "uid-1", Email: "ada@example.com"}
		sp.identities.On("CreateUser", ctx, "ada@example.com").Return(identity, nil)
		sp.credentials.On("PutCredential", ctx, mock.MatchedBy(func(c itemgate.Credential) bool {
			return c.UID == "uid-1" && c.Email == "ada@example.com" && sp.hasher.Verify("hunter22", c.PasswordHash)
		})).Return(nil)

		got, err := service.Signup(ctx, "ada@example.com", "hunter22")
		require.NoError(t, err)
		assert.Equal(t, identity, got)

		sp.identities.AssertExpectations(t)
		sp.credentials.AssertExpectations(t)
	})

	t.Run("email is lowercased", func(t *testing.T) {
		service, sp := NewGatewayService(t)
		ctx := context.Background()

		sp.identities.On("CreateUser", ctx, "ada@example.com").Return(itemgate.Identity{UID: "u", Email: "ada@example.com"}, nil)
		sp.credentials.On("PutCredential", ctx, mock.Anything).Return(nil)

		got, err := service.Signup(ctx, "  Ada@Example.COM ", "hunter22")
		require.NoError(t, err)
		assert.Equal(t, "ada@example.com", got.Email)
		sp.identities.AssertExpectations(t)
	})

	t.Run("stored hash is not the password", func(t *testing.T) {
		service, sp := NewGatewayService(t)
		ctx := context.Background()

		sp.identities.On("CreateUser", ctx, "ada@example.com").Return(itemgate.Identity{UID: "u", Email: "ada@example.com"}, nil)
		sp.credentials.On("PutCredential", ctx, mock.MatchedBy(func(c itemgate.Credential) bool {
			return c.PasswordHash != "" && c.PasswordHash != "hunter22"
		})).Return(nil)

		_, err := service.Signup(ctx, "ada@example.com", "hunter22")
		require.NoError(t, err)
		sp.credentials.AssertExpectations(t)
	})

	t.Run("missing fields", func(t *testing.T) {
		service, sp := NewGatewayService(t)
		ctx := context.Background()

		for _, tc := range []struct{ email, password string }{
			{"", "hunter22"},
			{"ada@example.com", ""},
			{"   ", "hunter22"},
		} {
			_, err := service.Signup(ctx, tc.email, tc.password)
			assert.ErrorIs(t, err, itemgate.ErrInvalidInput)
		}

		sp.identities.AssertNotCalled(t, "CreateUser")
	})

	t.Run("password too long creates no identity", func(t *testing.T) {
		service, sp := NewGatewayService(t)

		_, err := service.Signup(context.Background(), "ada@example.com", strings.Repeat("x", 73))
		assert.ErrorIs(t, err, itemgate.ErrInvalidInput)
		sp.identities.AssertNotCalled(t, "CreateUser")
	})

	t.Run("email taken", func(t *testing.T) {
		service, sp := NewGatewayService(t)
		ctx := context.Background()

		sp.identities.On("CreateUser", ctx, "ada@example.com").
			Return(itemgate.Identity{}, itemgate.ErrEmailTaken)

		_, err := service.Signup(ctx, "ada@example.com", "hunter22")
		assert.ErrorIs(t, err, itemgate.ErrEmailTaken)
		sp.credentials.AssertNotCalled(t, "PutCredential")
	})

	t.Run("credential store error", func(t *testing.T) {
		service, sp := NewGatewayService(t)
		ctx := context.Background()
		storeErr := errors.New("disk full")

		sp.identities.On("CreateUser", ctx, "ada@example.com").Return(itemgate.Identity{UID: "u", Email: "ada@example.com"}, nil)
		sp.credentials.On("PutCredential", ctx, mock.Anything).Return(storeErr)

		_, err := service.Signup(ctx, "ada@example.com", "hunter22")
		assert.ErrorIs(t, err, storeErr)
	})

	t.Run("cancelled context", func(t *testing.T) {
		service, _ := NewGatewayService(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := service.Signup(ctx, "ada@example.com", "hunter22")
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestGatewayService_Login(t *testing.T) {
	setup := func(t *testing.T) (*itemgate.GatewayService, spies) {
		service, sp := NewGatewayService(t)
		hash, err := sp.hasher.Hash("hunter22")
		require.NoError(t, err)

		identity := itemgate.Identity{UID: "uid-1", Email: "ada@example.com"}
		sp.identities.On("GetUserByEmail", mock.Anything, "ada@example.com").Return(identity, nil)
		sp.identities.On("GetUserByEmail", mock.Anything, mock.Anything).Return(itemgate.Identity{}, itemgate.ErrNotFound)
		sp.credentials.On("GetCredential", mock.Anything, "uid-1").
			Return(itemgate.Credential{UID: "uid-1", Email: "ada@example.com", PasswordHash: hash}, nil)
		return service, sp
	}

	t.Run("success issues token for identity", func(t *testing.T) {
		service, sp := setup(t)

		token, err := service.Login(context.Background(), "ada@example.com", "hunter22")
		require.NoError(t, err)

		claims, err := sp.tokens.Verify(token)
		require.NoError(t, err)
		assert.Equal(t, itemgate.Claims{UID: "uid-1", Email: "ada@example.com"}, claims)
	})

	t.Run("email case is ignored", func(t *testing.T) {
		service, sp := setup(t)

		token, err := service.Login(context.Background(), "ADA@Example.com", "hunter22")
		require.NoError(t, err)

		claims, err := sp.tokens.Verify(token)
		require.NoError(t, err)
		assert.Equal(t, "uid-1", claims.UID)
	})

	t.Run("wrong password", func(t *testing.T) {
		service, _ := setup(t)

		_, err := service.Login(context.Background(), "ada@example.com", "wrong")
		assert.ErrorIs(t, err, itemgate.ErrAuthenticationFailed)
	})

	t.Run("unknown email", func(t *testing.T) {
		service, sp := setup(t)

		_, err := service.Login(context.Background(), "nobody@example.com", "hunter22")
		assert.ErrorIs(t, err, itemgate.ErrAuthenticationFailed)
		assert.NotErrorIs(t, err, itemgate.ErrNotFound)
		sp.credentials.AssertNotCalled(t, "GetCredential", mock.Anything, mock.Anything)
	})

	t.Run("missing credential", func(t *testing.T) {
		service, sp := NewGatewayService(t)
		sp.identities.On("GetUserByEmail", mock.Anything, "ada@example.com").
			Return(itemgate.Identity{UID: "uid-1", Email: "ada@example.com"}, nil)
		sp.credentials.On("GetCredential", mock.Anything, "uid-1").
			Return(itemgate.Credential{}, itemgate.ErrNotFound)

		_, err := service.Login(context.Background(), "ada@example.com", "hunter22")
		assert.ErrorIs(t, err, itemgate.ErrAuthenticationFailed)
	})

	t.Run("missing fields", func(t *testing.T) {
		service, sp := NewGatewayService(t)

		_, err := service.Login(context.Background(), "", "")
		assert.ErrorIs(t, err, itemgate.ErrInvalidInput)
		sp.identities.AssertNotCalled(t, "GetUserByEmail")
	})
}

func TestGatewayService_Authenticate(t *testing.T) {
	service, sp := NewGatewayService(t)

	token, err := sp.tokens.Issue(itemgate.Claims{UID: "u", Email: "e@example.com"})
	require.NoError(t, err)

	claims, err := service.Authenticate(token)
	require.NoError(t, err)
	assert.Equal(t, "u", claims.UID)

	_, err = service.Authenticate("garbage")
	assert.ErrorIs(t, err, itemgate.ErrInvalidToken)
}

func TestGatewayService_CreateItem(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		service, sp := NewGatewayService(t)
		ctx := context.Background()
		fields := itemgate.Fields{"name": "x"}

		sp.items.On("Add", ctx, fields).Return("item-1", nil)

		item, err := service.CreateItem(ctx, fields)
		require.NoError(t, err)
		assert.Equal(t, itemgate.Item{ID: "item-1", Fields: fields}, item)
	})

	t.Run("nil fields stored as empty", func(t *testing.T) {
		service, sp := NewGatewayService(t)
		ctx := context.Background()

		sp.items.On("Add", ctx, itemgate.Fields{}).Return("item-1", nil)

		_, err := service.CreateItem(ctx, nil)
		require.NoError(t, err)
		sp.items.AssertExpectations(t)
	})

	t.Run("store error", func(t *testing.T) {
		service, sp := NewGatewayService(t)
		ctx := context.Background()
		storeErr := errors.New("connection refused")

		sp.items.On("Add", ctx, mock.Anything).Return("", storeErr)

		_, err := service.CreateItem(ctx, itemgate.Fields{"a": 1})
		assert.ErrorIs(t, err, storeErr)
	})
}

func TestGatewayService_ListItems(t *testing.T) {
	t.Run("empty store returns empty slice", func(t *testing.T) {
		service, sp := NewGatewayService(t)
		ctx := context.Background()

		sp.items.On("List", ctx).Return([]itemgate.Item(nil), nil)

		items, err := service.ListItems(ctx)
		require.NoError(t, err)
		assert.NotNil(t, items)
		assert.Empty(t, items)
	})

	t.Run("returns store items", func(t *testing.T) {
		service, sp := NewGatewayService(t)
		ctx := context.Background()
		want := []itemgate.Item{{ID: "a", Fields: itemgate.Fields{"n": 1}}, {ID: "b", Fields: itemgate.Fields{}}}

		sp.items.On("List", ctx).Return(want, nil)

		items, err := service.ListItems(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, items)
	})
}

func TestGatewayService_GetItem(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		service, sp := NewGatewayService(t)
		ctx := context.Background()
		want := itemgate.Item{ID: "item-1", Fields: itemgate.Fields{"name": "x"}}

		sp.items.On("Get", ctx, "item-1").Return(want, nil)

		got, err := service.GetItem(ctx, "item-1")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("not found", func(t *testing.T) {
		service, sp := NewGatewayService(t)
		ctx := context.Background()

		sp.items.On("Get", ctx, "missing").Return(itemgate.Item{}, itemgate.ErrNotFound)

		_, err := service.GetItem(ctx, "missing")
		assert.ErrorIs(t, err, itemgate.ErrNotFound)
	})

	t.Run("invalid id", func(t *testing.T) {
		service, sp := NewGatewayService(t)

		_, err := service.GetItem(context.Background(), "a/b")
		assert.ErrorIs(t, err, itemgate.ErrInvalidInput)
		sp.items.AssertNotCalled(t, "Get")
	})
}

func TestGatewayService_UpdateItem(t *testing.T) {
	t.Run("returns input fields", func(t *testing.T) {
		service, sp := NewGatewayService(t)
		ctx := context.Background()
		fields := itemgate.Fields{"b": 3}

		sp.items.On("Merge", ctx, "item-1", fields).Return(nil)

		got, err := service.UpdateItem(ctx, "item-1", fields)
		require.NoError(t, err)
		assert.Equal(t, itemgate.Item{ID: "item-1", Fields: fields}, got)
	})

	t.Run("invalid id", func(t *testing.T) {
		service, sp := NewGatewayService(t)

		_, err := service.UpdateItem(context.Background(), "", itemgate.Fields{})
		assert.ErrorIs(t, err, itemgate.ErrInvalidInput)
		sp.items.AssertNotCalled(t, "Merge")
	})
}

func TestGatewayService_DeleteItem(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		service, sp := NewGatewayService(t)
		ctx := context.Background()

		sp.items.On("Delete", ctx, "item-1").Return(nil)

		assert.NoError(t, service.DeleteItem(ctx, "item-1"))
		sp.items.AssertExpectations(t)
	})

	t.Run("store error", func(t *testing.T) {
		service, sp := NewGatewayService(t)
		ctx := context.Background()
		storeErr := errors.New("timeout")

		sp.items.On("Delete", ctx, "item-1").Return(storeErr)

		assert.ErrorIs(t, service.DeleteItem(ctx, "item-1"), storeErr)
	})
}

func TestGatewayService_UploadImage(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		service, sp := NewGatewayService(t)
		ctx := context.Background()
		content := bytes.NewReader([]byte("png-bytes"))

		sp.blobs.On("Write", ctx, mock.MatchedBy(func(name string) bool {
			return strings.HasPrefix(name, itemgate.UploadPrefix) && strings.HasSuffix(name, ".png")
		}), "image/png", content).Return(itemgate.SaveResult{BytesWritten: 9}, nil)
		sp.blobs.On("MakePublic", ctx, mock.Anything).Return("https://cdn.example.com/uploads/x.png", nil)

		got, err := service.UploadImage(ctx, itemgate.ImageUpload{Filename: "photo.png", ContentType: "image/png"}, content)
		require.NoError(t, err)
		assert.Equal(t, "https://cdn.example.com/uploads/x.png", got.URL)
		assert.True(t, strings.HasSuffix(got.Name, ".png"))

		sp.blobs.AssertExpectations(t)
	})

	t.Run("names are unique", func(t *testing.T) {
		service, sp := NewGatewayService(t)
		ctx := context.Background()

		sp.blobs.On("Write", ctx, mock.Anything, mock.Anything, mock.Anything).Return(itemgate.SaveResult{}, nil)
		sp.blobs.On("MakePublic", ctx, mock.Anything).Return("url", nil)

		seen := make(map[string]bool)
		for range 20 {
			got, err := service.UploadImage(ctx, itemgate.ImageUpload{Filename: "photo.png"}, strings.NewReader("same"))
			require.NoError(t, err)
			assert.False(t, seen[got.Name], "duplicate name %s", got.Name)
			seen[got.Name] = true
		}
	})

	t.Run("default content type", func(t *testing.T) {
		service, sp := NewGatewayService(t)
		ctx := context.Background()

		sp.blobs.On("Write", ctx, mock.Anything, "application/octet-stream", mock.Anything).Return(itemgate.SaveResult{}, nil)
		sp.blobs.On("MakePublic", ctx, mock.Anything).Return("url", nil)

		_, err := service.UploadImage(ctx, itemgate.ImageUpload{Filename: "blob"}, strings.NewReader("x"))
		require.NoError(t, err)
		sp.blobs.AssertExpectations(t)
	})

	t.Run("write error", func(t *testing.T) {
		service, sp := NewGatewayService(t)
		ctx := context.Background()
		writeErr := errors.New("stream reset")

		sp.blobs.On("Write", ctx, mock.Anything, mock.Anything, mock.Anything).Return(itemgate.SaveResult{}, writeErr)

		_, err := service.UploadImage(ctx, itemgate.ImageUpload{Filename: "a.png"}, strings.NewReader("x"))
		assert.ErrorIs(t, err, writeErr)
		sp.blobs.AssertNotCalled(t, "MakePublic")
	})

	t.Run("make public error deletes object", func(t *testing.T) {
		service, sp := NewGatewayService(t)
		ctx := context.Background()
		publishErr := errors.New("acl denied")

		var written string
		sp.blobs.On("Write", ctx, mock.Anything, mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) { written = args.String(1) }).
			Return(itemgate.SaveResult{}, nil)
		sp.blobs.On("MakePublic", ctx, mock.Anything).Return("", publishErr)
		sp.blobs.On("Delete", mock.Anything, mock.Anything).Return(nil)

		_, err := service.UploadImage(ctx, itemgate.ImageUpload{Filename: "a.png"}, strings.NewReader("x"))
		assert.ErrorIs(t, err, publishErr)
		sp.blobs.AssertCalled(t, "Delete", mock.Anything, written)
	})

	t.Run("make public and cleanup errors", func(t *testing.T) {
		service, sp := NewGatewayService(t)
		ctx := context.Background()
		publishErr := errors.New("acl denied")
		cleanupErr := errors.New("delete denied")

		sp.blobs.On("Write", ctx, mock.Anything, mock.Anything, mock.Anything).Return(itemgate.SaveResult{}, nil)
		sp.blobs.On("MakePublic", ctx, mock.Anything).Return("", publishErr)
		sp.blobs.On("Delete", mock.Anything, mock.Anything).Return(cleanupErr)

		_, err := service.UploadImage(ctx, itemgate.ImageUpload{Filename: "a.png"}, strings.NewReader("x"))
		assert.ErrorIs(t, err, publishErr)
		assert.ErrorIs(t, err, cleanupErr)
	})

	t.Run("failed cleanup is logged", func(t *testing.T) {
		var logs bytes.Buffer
		prev := slog.Default()
		slog.SetDefault(slog.New(slog.NewTextHandler(&logs, nil)))
		t.Cleanup(func() { slog.SetDefault(prev) })

		service, sp := NewGatewayService(t)
		ctx := context.Background()

		sp.blobs.On("Write", ctx, mock.Anything, mock.Anything, mock.Anything).Return(itemgate.SaveResult{}, nil)
		sp.blobs.On("MakePublic", ctx, mock.Anything).Return("", errors.New("acl denied"))
		sp.blobs.On("Delete", mock.Anything, mock.Anything).Return(errors.New("delete denied"))

		_, err := service.UploadImage(ctx, itemgate.ImageUpload{Filename: "a.png"}, strings.NewReader("x"))
		require.Error(t, err)
		assert.Contains(t, logs.String(), "level=WARN")
		assert.Contains(t, logs.String(), "delete denied")
	})

	t.Run("context ends before write completes", func(t *testing.T) {
		service, sp := NewGatewayService(t)
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		release := make(chan struct{})
		defer close(release)

		sp.blobs.On("Write", ctx, mock.Anything, mock.Anything, mock.Anything).
			Run(func(mock.Arguments) { <-release }).
			Return(itemgate.SaveResult{}, errors.New("aborted"))

		_, err := service.UploadImage(ctx, itemgate.ImageUpload{Filename: "a.png"}, strings.NewReader("x"))
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("nil content", func(t *testing.T) {
		service, _ := NewGatewayService(t)

		_, err := service.UploadImage(context.Background(), itemgate.ImageUpload{Filename: "a.png"}, nil)
		assert.ErrorIs(t, err, itemgate.ErrInvalidInput)
	})
}
