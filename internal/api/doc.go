// Package api provides the JSON REST API server for Sabiá.
//
// # Architecture
//
// The API server uses Go 1.22+ routing with a layered middleware stack:
//
//	Recovery → RequestID → Logging → CORS → Routes
//
// Health probes (/health, /ready) bypass the middleware stack via a
// top-level mux, ensuring they remain fast and unauthenticated.
//
// # Endpoints
//
// Health probes (no middleware):
//   - GET /health — returns {"status":"ok"}
//   - GET /ready  — returns {"status":"ready"} with session stats
//
// Ask:
//   - POST /api/v1/ask      — stream an answer over SSE
//   - POST /api/v1/ask/sync — full answer in one JSON response (Genkit flow)
//
// Session CRUD:
//   - POST   /api/v1/sessions              — create new session
//   - GET    /api/v1/sessions              — list live sessions
//   - GET    /api/v1/sessions/{id}/history — get conversation history
//   - DELETE /api/v1/sessions/{id}         — delete session
//
// # Streaming
//
// POST /api/v1/ask responds with Server-Sent Events. Each event is a bare
// "data: <json>\n\n" line: answer fragments carry mime_type, data and
// session_id; the stream ends with a single {"turn_complete":true,...}
// marker. A stream that closes without the marker was interrupted and its
// exchange was discarded.
package api
