// Package auth guards the gRPC health service and the REST API.
//
// APIKeyInterceptor and APIKeyStreamInterceptor check the API key carried in
// gRPC metadata. HTTPPolicy does the same for REST requests, then restricts
// each route to a declared role list read from a header set by the upstream
// proxy. The caller's user name, when present, is stored in the request
// context for handlers that write on the user's behalf.
//
// With mode != "apikey" or an empty key, every check passes through.
package auth
