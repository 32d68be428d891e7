// Package http exposes the question-answering API over gin.
//
// Every route lives under /api/v1. Chat answers stream as server-sent
// events; every other route speaks JSON and reports failures with the
// {"error": {code, message}, requestId, ts} envelope.
package http
