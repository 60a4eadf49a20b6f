// Package service runs the practice MCP server over stdio and binds it to an
// in-process play engine.
package service
