// Package server provides HTTP routing, middleware, the sign-in routes and the credits API.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses a chi mux internally, so route patterns can carry parameters.
//
// # Sign-in Routes
//
// [SignInHandler] serves /auth/signin inside the sign-in window. It stores a PKCE verifier under the attempt token
// and redirects to the auth provider.
//
// [CallbackHandler] serves /auth/callback. It takes the verifier (so an attempt completes once), exchanges the code,
// stores the session and publishes AUTH_SUCCESS or AUTH_ERROR for the attempt on the handshake bus.
//
// # Credits API
//
// [CreditsHandler] serves GET /api/v1/user/{userID}/credits behind [UserAuth], and the admin-only
// POST .../credits/update and .../credits/add behind [AdminOnly]. Every response is an [Envelope].
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
