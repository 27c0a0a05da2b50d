// Package authapi is the HTTP transport for the credential endpoints: the
// OAuth2 password-form token endpoint, JSON registration, and the current-user
// lookup.
//
// Non-2xx responses become [*ServerError] carrying the status and, when the
// body has a string "detail" field, the server's message. The client never
// retries.
package authapi
