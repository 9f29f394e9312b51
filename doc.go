// Package itemgate provides a small HTTP gateway core: user signup and login,
// bearer token issuance and verification, generic item documents and image
// uploads.
//
// Persistence, identity records and blob storage live behind interfaces so that
// the gateway only parses requests, hashes credentials, signs tokens and
// translates calls into calls against those backends.
//
// # Key Components
//
//   - GatewayService: orchestrates signup, login, item CRUD and image upload
//   - BcryptHasher: one-way password hashing with a fixed cost
//   - TokenService: HS256 bearer tokens carrying uid and email claims
//   - IdentityStore, CredentialRepo, DocumentStore: persistence interfaces
//     (PostgreSQL, SQLite)
//   - BlobStore: object storage interface (filesystem, S3-compatible buckets)
//
// # Example Usage
//
//	hasher, _ := itemgate.NewBcryptHasher(itemgate.DefaultBcryptCost)
//	tokens, _ := itemgate.NewTokenService([]byte(secret), 0)
//
//	service, err := itemgate.NewGatewayService(itemgate.ServiceConfig{
//	    Identities:  db.Identities(),
//	    Credentials: db.Credentials(),
//	    Items:       db.Items(),
//	    Blobs:       store,
//	    Hasher:      hasher,
//	    Tokens:      tokens,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	identity, err := service.Signup(ctx, "ada@example.com", "hunter22")
//	token, err := service.Login(ctx, "ada@example.com", "hunter22")
//
// See the http package for the REST API and the database package for the
// storage backends.
package itemgate
