// package http contains the request and response type, which are meant
// to be exported. the package name is meant to be same with the top
// level package name so that IDEs and code editors could pick them up
//
// unlike [net/http.Header], [Header] here is an ordered list of fields,
// since the engine must put header lines on the wire in the order and
// casing they were given.
package http
