// Package toolservice implements the subprocess tool services the
// pipeline discovers over stdio: a weather lookup backed by
// OpenWeatherMap, basic arithmetic, and a SQLite query surface. Each
// service is a self-contained MCP server meant to be spawned as a child
// process; faults that the caller can act on are reported as tool errors
// rather than protocol failures.
package toolservice
