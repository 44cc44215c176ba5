// Package streaming protects long HTTP responses, such as zip downloads of
// recovered photos, from clients that stop reading.
//
// The HTTP server is configured without a global WriteTimeout because a
// download can legitimately take minutes. [Writer] instead moves the
// connection's write deadline forward before every write through
// http.ResponseController, so only a stalled client times out. Writers that
// do not support deadlines (test recorders, some middleware) fall back to
// plain writes.
package streaming
