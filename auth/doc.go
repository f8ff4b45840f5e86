// Package auth implements the account identity and session layer of the
// blog API: deferred account activation, multi-channel identity
// verification, signed access/refresh token issuance, and refresh token
// rotation. Accounts are created through one of three origins (password
// registration, Google sign-in, SMS one-time code); the origin is fixed
// at creation time and constrains which recovery flows apply.
package auth
