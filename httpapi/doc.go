// Package httpapi exposes an engine over HTTP with gin.
//
// Routes live under /api/v1:
//
//	POST   /ask                    answer a question, optionally inside a session
//	POST   /refresh                rebuild the index from the data source
//	GET    /status                 describe the published generation
//	POST   /sessions               start a conversation
//	GET    /sessions/:id/history   list a conversation's turns
//	DELETE /sessions/:id           end a conversation
//
// Errors are reported as {"error": "..."} with a matching status code.
package httpapi
