// Package password hashes and verifies development-backend passwords with
// Argon2id.
//
// Hashes use the PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// # What this package must NOT do
//
//   - Enforce password policy. The backend accepts whatever the register
//     endpoint receives, including the seeded "admin" password.
//   - Log plaintext passwords.
package password
