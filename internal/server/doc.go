// Package server provides HTTP routing, middleware, and the loopback callback server used to
// finish a browser login.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # Callback Handler
//
// [CallbackHandler] is the redirect target registered with the OAuth provider. It rebuilds the
// full redirect URL the browser landed on and hands it to a [Completer] (the auth controller).
//
// It only processes one callback to prevent replay attacks. A request without an authorization
// response does not consume the handler.
//
// For the implicit grant the token arrives in the URL fragment, which browsers never send to a
// server. The handler answers the bare redirect with a small page that forwards the fragment to
// the "/fragment" sub-route as a query string.
//
// Every page it serves replaces the visible address with the bare redirect URI so the code or
// token does not linger in the address bar or history.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
