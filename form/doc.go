// Package form implements the credential form: sign-in and register modes,
// field state, a loading flag that admits one request at a time, and inline
// error or success messages.
//
// Submission errors never escape [Form.Submit]; they are converted into the
// form's Error message and an [Outcome].
package form
