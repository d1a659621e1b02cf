// package transport implements the HTTP/1.1 *message syntax* (RFC9112) on
// top of the semantics defined in RFC9110: request lines, header sections,
// and the three ways a body can be delimited (Content-Length, chunked, or
// the connection closing).
//
// Header fields keep the order and casing they were written or received
// with. Bodies are always read in full, so a connection is ready for the
// next exchange the moment ReadResponse returns.

package transport
