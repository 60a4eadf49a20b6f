// Package domain maps MCP tool calls onto practice play operations.
//
// Every handler runs for the player bound to the MCP process, converts tool
// input into a typed play request and returns a structured result that never
// exposes the expected answer of a pending problem.
package domain
