// Package websocket provides real-time event streaming via WebSocket.
//
// Clients can connect to /ws/ingest to follow the ingest pipeline, and
// filter for a single document with the name query parameter.
package websocket
