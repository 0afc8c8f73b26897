// Package web renders the browser front: the landing page with the chat box, plans drawer and sign-in dialog,
// the terms page and the page shown in the sign-in window after the provider redirects back.
//
// Templates and the page script are embedded. [Pages] implements server.Handler for the page routes and
// server.CallbackRenderer for the callback page.
package web
