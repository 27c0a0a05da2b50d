// Package devserver is a local credential backend for exercising the session
// gate end to end. It serves the three auth routes the client calls:
//
//	POST /api/v1/auth/token     OAuth2 password form, returns a bearer token
//	POST /api/v1/auth/register  JSON body, returns the created user
//	GET  /api/v1/auth/users/me  bearer-protected current user
//
// Users live in Redis hashes and passwords are Argon2id hashes. An admin/admin
// account is seeded when the store is empty. Failures carry a JSON body of the
// form {"detail": "..."}.
//
// # What this package must NOT do
//
//   - Serve production traffic. The signing secret and seeded account are for
//     local development only.
//   - Import the client-side packages. The backend and the client meet only
//     over HTTP.
package devserver
