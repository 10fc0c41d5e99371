// Package auth manages the per-user OAuth credential used for every remote call.
//
// # Token lifecycle
//
// A user's [models.TokenRecord] moves through four states:
//
//   - NoToken: nothing stored yet. [Manager.SaveFromCode] moves it to Valid.
//   - Valid: the access token outlives now plus the leeway and is returned as-is.
//   - Expired: a refresh token exists. [Manager.GetValidAccessToken] refreshes, stores the new
//     access token with ExpiresAt = now + expires_in and returns it.
//   - RefreshUnavailable: expired without a refresh token. The user has to authorize again.
//
// Refresh failures surface as [ErrTokenRefreshFailed] and leave the stored record as it was.
//
// # OAuth state
//
// [StateSigner] turns a username into an HS256-signed, short-lived JWT used as the state
// parameter of the authorization redirect, so the callback knows whom the code belongs to.
package auth
