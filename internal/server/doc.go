// Package server provides HTTP routing, middleware, and the OAuth callback handler used by
// `plsync auth login`.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support. [BasicRouter] uses
// [http.ServeMux] method patterns internally. [Middleware] wraps handlers in reverse order
// (last added executes first). [RequestLogger] and [Recoverer] are the stock middleware.
//
// # OAuth Callback Handler
//
// [OAuthHandler] validates the state parameter (CSRF protection), exchanges the
// authorization code through a [services.TokenIssuer], stores the credential in a
// [sessions.Store] under the login's session id, and sends the result through a channel.
// It only processes one callback to prevent replay attacks.
//
// A temporary HTTP server runs on the configured host and port for the duration of a
// login and shuts down after the first callback.
package server
