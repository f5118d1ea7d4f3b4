// Package requestid correlates admin API calls with daemon logs.
//
// Middleware attaches an X-Request-ID to every incoming request, reusing the
// caller's value when it is well formed, and stores it in the context.
// LoggerExtractor turns that value into a request_id log attribute. Transport
// sets the header on outgoing requests so a CLI invocation and the server log
// lines it caused share one id.
package requestid
