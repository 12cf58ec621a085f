// Package auth implements the X-API-Key request gate. The caller-supplied
// header value is compared against the configured shared secret in constant
// time so the comparison leaks no timing information about the secret.
package auth
