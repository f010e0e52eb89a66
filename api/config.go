package api

// Config is the API server configuration.
type Config struct {
	// Address to listen on (e.g., ":8080")
	ListenAddr string

	// Version is reported by /health and the MCP server.
	Version string
}
