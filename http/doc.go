// Package http provides the HTTP surface of the itemgate gateway.
//
// # Routes
//
//	GET    /                     plain-text banner
//	GET    /healthz              database health
//	POST   /signup               {email, password} -> 201 {uid, email}
//	POST   /login                {email, password} -> 200 {token}
//	POST   /api/items            any JSON object -> 201 {id, ...fields}
//	GET    /api/items            200 [{id, ...fields}, ...]
//	GET    /api/items/{id}       200 {id, ...fields} or 404
//	PUT    /api/items/{id}       merge-write -> 200 {id, ...fields}
//	DELETE /api/items/{id}       204, also when the item is absent
//	POST   /api/upload-image     multipart field "image" -> 200 {imageUrl}
//	GET    /uploads/*            uploaded files (filesystem storage only)
//
// # Authentication
//
// Everything under /api passes through AuthMiddleware, which reads the token
// from the Authorization header and verifies it with a TokenVerifier:
//
//	Authorization: Bearer <token>
//
// A missing header or token answers 401; a token that fails verification
// answers 403. Verified claims are available to handlers through
// ClaimsFromContext.
//
// # Errors
//
// Every error body has the shape
//
//	{"error": "Item not found", "code": "not_found"}
//
// Service errors are mapped to an ErrorKind by Classify. Failures of the
// database or blob store are logged and answered with a generic
// "Internal server error" so no dependency detail reaches the client.
//
// # Usage
//
//	handlerCfg := http.HandlerConfig{
//	    MaxUploadSize:  10 << 20,
//	    RequestTimeout: 30 * time.Second,
//	    HealthCheck:    db.Ping,
//	}
//	handler := http.NewHandler(&handlerCfg, service)
//	http.ListenAndServe(":3000", handler.Router())
package http
