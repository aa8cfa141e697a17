// Package websocket provides real-time event streaming via WebSocket.
//
// Clients can connect to /api/v1/workflows/:id/ws to receive the lifecycle
// events of one workflow as JSON text messages.
package websocket
