// Package timeouts defines shared timeout constants used across Mathly commands.
package timeouts

import "time"

// GRPCRequest caps the time allowed for a single practice RPC, including the
// storage transaction it performs.
const GRPCRequest = 5 * time.Second

// StoreOpen caps how long a command waits for the SQLite store to open and
// apply migrations.
const StoreOpen = 10 * time.Second

// Shutdown limits how long a server waits for in-flight requests during
// graceful shutdown.
const Shutdown = 5 * time.Second
