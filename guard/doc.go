// Package guard decides, for every change of session state or path, whether
// the current route may render or must redirect.
//
// # Decision table
//
// [Evaluate] applies these rules in order:
//
//  1. not initialized                      → Checking (no redirect)
//  2. unauthenticated, path != login       → Redirecting to login
//  3. authenticated, path == login         → Redirecting to home
//  4. unauthenticated, path == login       → RenderLogin
//  5. authenticated, path != login         → RenderProtected
//
// [Guard] wraps the table with the redirect side effect. A redirect is issued
// once per (path, target) pair; re-evaluating unchanged inputs never issues
// another one.
//
// # What this package must NOT do
//
//   - Render protected content without an authenticated session.
//   - Render the login route while a session is active.
//   - Wait for a redirect to complete.
package guard
