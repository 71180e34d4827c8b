// Package backend is the HTTP client for the reading application's API: the
// book library, content indexing, podcast jobs, chats, and the streaming
// completion endpoint.
//
// Every request carries the configured user identity as a user_id query
// parameter. Responses are accepted either wrapped as
// {"success": bool, "data": ..., "error": "..."} or as a bare JSON body; a
// 204 response or an empty body is treated as "no data" rather than a parse
// error.
package backend
