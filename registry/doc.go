// Package registry discovers and describes the callable tool capabilities
// exposed by external tool services.
//
// A Service is a source of tools; the shipped implementation, MCPService,
// reaches a subprocess-hosted MCP server over stdio. At startup the
// Registry starts every configured service, lists its capabilities, and
// builds an immutable Descriptor per tool: name, description, argument
// schema, and a callable handle bound to the live service session.
//
// A service that cannot be reached at discovery time is omitted from the
// registry and logged; it never appears in a later candidate set. After
// Discover returns the registry is read-only and safe for concurrent reads.
package registry
