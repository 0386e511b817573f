// Package timeouts defines shared timeout constants used across services.
package timeouts

import "time"

// ReadHeader limits how long an HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long an HTTP server waits for in-flight requests
// during graceful shutdown.
const Shutdown = 5 * time.Second

// SocketWrite caps a single websocket frame write to one participant.
const SocketWrite = 3 * time.Second

// HandlerDrain limits how long shutdown waits for archetype handlers that are
// still posting flavor messages.
const HandlerDrain = 2 * time.Second
