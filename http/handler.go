package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sagarc03/itemgate"
)

// DefaultBanner is the plain-text body served on GET /.
const DefaultBanner = "itemgate CRUD API with JWT Auth + Image Upload"

const (
	maxJSONBody      = 1 << 20
	maxUploadMemory  = 32 << 20
	uploadFieldName  = "image"
	publicFilesRoute = "/" + itemgate.UploadPrefix + "*"
)

type Service interface {
	TokenVerifier

	Signup(ctx context.Context, email, password string) (itemgate.Identity, error)
	Login(ctx context.Context, email, password string) (string, error)

	CreateItem(ctx context.Context, fields itemgate.Fields) (itemgate.Item, error)
	ListItems(ctx context.Context) ([]itemgate.Item, error)
	GetItem(ctx context.Context, id string) (itemgate.Item, error)
	UpdateItem(ctx context.Context, id string, fields itemgate.Fields) (itemgate.Item, error)
	DeleteItem(ctx context.Context, id string) error

	UploadImage(ctx context.Context, upload itemgate.ImageUpload, content io.Reader) (itemgate.UploadedImage, error)
}

// PublicFiles serves uploaded objects back over HTTP. Only the local
// filesystem blob store provides it.
type PublicFiles interface {
	Open(ctx context.Context, name string) (io.ReadSeekCloser, error)
	ContentType(name string) string
}

type CORSConfig struct {
	Enabled          bool     `mapstructure:"enabled"`
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age" validate:"min=0"`
}

type HandlerConfig struct {
	CORS           CORSConfig
	MaxUploadSize  int64         // 0 means no limit
	RequestTimeout time.Duration // 0 disables the per-request timeout
	Banner         string
	Files          PublicFiles
	HealthCheck    func(ctx context.Context) error
}

// Handler provides the HTTP API of the gateway.
type Handler struct {
	config  HandlerConfig
	service Service
}

// NewHandler creates a new Handler with the given configuration and service.
func NewHandler(config *HandlerConfig, service Service) *Handler {
	cfg := *config
	if cfg.Banner == "" {
		cfg.Banner = DefaultBanner
	}
	return &Handler{
		config:  cfg,
		service: service,
	}
}

// Router returns an http.Handler with every route mounted.
// Routes under /api require a bearer token.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)
	if h.config.RequestTimeout > 0 {
		r.Use(RequestTimeout(h.config.RequestTimeout))
	}

	if h.config.CORS.Enabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   h.config.CORS.AllowedOrigins,
			AllowedMethods:   h.config.CORS.AllowedMethods,
			AllowedHeaders:   h.config.CORS.AllowedHeaders,
			ExposedHeaders:   h.config.CORS.ExposedHeaders,
			AllowCredentials: h.config.CORS.AllowCredentials,
			MaxAge:           h.config.CORS.MaxAge,
		}))
	}

	r.NotFound(writeRouteNotFound)
	r.MethodNotAllowed(writeMethodNotAllowed)

	r.Get("/", h.handleBanner)
	r.Get("/healthz", h.handleHealth)
	r.Post("/signup", h.handleSignup)
	r.Post("/login", h.handleLogin)

	if h.config.Files != nil {
		r.Get(publicFilesRoute, h.handlePublicFile)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(AuthMiddleware(h.service))

		r.Post("/items", h.handleCreateItem)
		r.Get("/items", h.handleListItems)
		r.Get("/items/{id}", h.handleGetItem)
		r.Put("/items/{id}", h.handleUpdateItem)
		r.Delete("/items/{id}", h.handleDeleteItem)

		r.Post("/upload-image", h.handleUploadImage)
	})

	return r
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

type healthResponse struct {
	Status string `json:"status"`
}

func (h *Handler) handleBanner(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, h.config.Banner)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if h.config.HealthCheck != nil {
		if err := h.config.HealthCheck(r.Context()); err != nil {
			slog.Error("health check failed", "error", err)
			_ = WriteJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable"})
			return
		}
	}

	_ = WriteJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

func (h *Handler) handleSignup(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeCredentials(w, r)
	if !ok {
		return
	}

	identity, err := h.service.Signup(r.Context(), req.Email, req.Password)
	if err != nil {
		HandleError(w, r, "signup", err)
		return
	}

	_ = WriteJSON(w, http.StatusCreated, identity)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeCredentials(w, r)
	if !ok {
		return
	}

	token, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		// Every login failure answers with the same body.
		if errors.Is(err, itemgate.ErrAuthenticationFailed) {
			slog.Info("login failed",
				"request_id", middleware.GetReqID(r.Context()),
				"reason", err,
			)
			WriteError(w, KindAuthentication, "Authentication failed")
			return
		}
		HandleError(w, r, "login", err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, tokenResponse{Token: token})
}

func (h *Handler) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	fields, ok := decodeFields(w, r)
	if !ok {
		return
	}

	item, err := h.service.CreateItem(r.Context(), fields)
	if err != nil {
		HandleError(w, r, "create item", err)
		return
	}

	_ = WriteJSON(w, http.StatusCreated, item)
}

func (h *Handler) handleListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListItems(r.Context())
	if err != nil {
		HandleError(w, r, "list items", err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, items)
}

func (h *Handler) handleGetItem(w http.ResponseWriter, r *http.Request) {
	id, ok := itemID(w, r)
	if !ok {
		return
	}

	item, err := h.service.GetItem(r.Context(), id)
	if err != nil {
		HandleError(w, r, "get item", err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, item)
}

func (h *Handler) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := itemID(w, r)
	if !ok {
		return
	}

	fields, ok := decodeFields(w, r)
	if !ok {
		return
	}

	item, err := h.service.UpdateItem(r.Context(), id, fields)
	if err != nil {
		HandleError(w, r, "update item", err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, item)
}

func (h *Handler) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	id, ok := itemID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteItem(r.Context(), id); err != nil {
		HandleError(w, r, "delete item", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleUploadImage(w http.ResponseWriter, r *http.Request) {
	if h.config.MaxUploadSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.config.MaxUploadSize)
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			WriteError(w, KindTooLarge, "File too large")
			return
		}
		WriteError(w, KindValidation, "No file uploaded")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile(uploadFieldName)
	if err != nil {
		WriteError(w, KindValidation, "No file uploaded")
		return
	}
	defer func() { _ = file.Close() }()

	upload := itemgate.ImageUpload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
	}

	uploaded, err := h.service.UploadImage(r.Context(), upload, file)
	if err != nil {
		HandleError(w, r, "upload image", err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, uploaded)
}

func (h *Handler) handlePublicFile(w http.ResponseWriter, r *http.Request) {
	rest, err := pathParam(r, "*")
	if err != nil || rest == "" {
		writeRouteNotFound(w, r)
		return
	}
	name := itemgate.UploadPrefix + rest

	content, err := h.config.Files.Open(r.Context(), name)
	if err != nil {
		if errors.Is(err, itemgate.ErrNotFound) {
			WriteError(w, KindNotFound, "File not found")
			return
		}
		HandleError(w, r, "serve file", err)
		return
	}
	defer func() { _ = content.Close() }()

	w.Header().Set("Content-Type", h.config.Files.ContentType(name))
	http.ServeContent(w, r, name, time.Time{}, content)
}

func decodeCredentials(w http.ResponseWriter, r *http.Request) (credentialsRequest, bool) {
	var req credentialsRequest

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		WriteError(w, KindValidation, "Invalid JSON body")
		return req, false
	}

	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		WriteError(w, KindValidation, "Email and password are required")
		return req, false
	}

	return req, true
}

// decodeFields reads an item body. An empty body is an empty object; anything
// other than a JSON object is rejected.
func decodeFields(w http.ResponseWriter, r *http.Request) (itemgate.Fields, bool) {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return itemgate.Fields{}, true
		}
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			WriteError(w, KindTooLarge, "Request body too large")
			return nil, false
		}
		WriteError(w, KindValidation, "Invalid JSON body")
		return nil, false
	}

	obj, ok := raw.(map[string]any)
	if !ok {
		WriteError(w, KindValidation, "Request body must be a JSON object")
		return nil, false
	}

	return itemgate.Fields(obj), true
}

// pathParam returns a decoded route parameter. chi matches on RawPath when
// the request has one, and only then is the parameter still escaped.
func pathParam(r *http.Request, key string) (string, error) {
	value := chi.URLParam(r, key)
	if r.URL.RawPath == "" {
		return value, nil
	}
	return url.PathUnescape(value)
}

func itemID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, err := pathParam(r, "id")
	if err != nil || !itemgate.IsValidItemID(id) {
		WriteError(w, KindValidation, "Invalid item id")
		return "", false
	}
	return id, true
}
