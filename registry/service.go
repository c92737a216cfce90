package registry

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Common errors for service operations.
var (
	ErrServiceUnavailable = errors.New("tool service unavailable")
	ErrToolFailed         = errors.New("tool call failed")
)

// Service defines a source of tools reached over some transport.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use after Start.
//   - Context: methods must honor cancellation/deadlines.
//   - Errors: Start failures should wrap ErrServiceUnavailable; tool-level
//     failures from Call should wrap ErrToolFailed.
type Service interface {
	// Name returns the unique instance name for this service.
	Name() string

	// Start initializes the service (spawn subprocess, open session).
	Start(ctx context.Context) error

	// ListTools returns all tools the service exposes.
	ListTools(ctx context.Context) ([]*mcp.Tool, error)

	// Call invokes a named tool with the given arguments.
	Call(ctx context.Context, tool string, args map[string]any) (any, error)

	// Stop gracefully shuts the service down.
	Stop() error
}

// MCPService reaches a subprocess-hosted MCP server over stdio.
type MCPService struct {
	name    string
	command string
	args    []string
	env     []string

	client  *mcp.Client
	session *mcp.ClientSession
}

// NewMCPService creates a service that will spawn command with args and
// speak MCP over the child's stdin/stdout.
func NewMCPService(name, command string, args ...string) *MCPService {
	return &MCPService{name: name, command: command, args: args}
}

// SetEnv adds KEY=VALUE entries to the child's environment on top of the
// parent's. Must be called before Start.
func (s *MCPService) SetEnv(env []string) { s.env = env }

// Name returns the service instance name.
func (s *MCPService) Name() string { return s.name }

// Start spawns the subprocess and performs the MCP handshake.
func (s *MCPService) Start(ctx context.Context) error {
	if s.session != nil {
		return nil
	}
	s.client = mcp.NewClient(&mcp.Implementation{Name: "routeact", Version: "0.1.0"}, nil)
	cmd := exec.Command(s.command, s.args...)
	if len(s.env) > 0 {
		cmd.Env = append(os.Environ(), s.env...)
	}
	session, err := s.client.Connect(ctx, &mcp.CommandTransport{Command: cmd}, nil)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrServiceUnavailable, s.name, err)
	}
	s.session = session
	return nil
}

// ListTools lists the server's declared tools.
func (s *MCPService) ListTools(ctx context.Context) ([]*mcp.Tool, error) {
	if s.session == nil {
		return nil, fmt.Errorf("%w: %s: not started", ErrServiceUnavailable, s.name)
	}
	res, err := s.session.ListTools(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrServiceUnavailable, s.name, err)
	}
	return res.Tools, nil
}

// Call invokes a tool on the server. Structured content is preferred when
// the server provides it; otherwise the text content blocks are joined.
func (s *MCPService) Call(ctx context.Context, tool string, args map[string]any) (any, error) {
	if s.session == nil {
		return nil, fmt.Errorf("%w: %s: not started", ErrServiceUnavailable, s.name)
	}
	if args == nil {
		args = map[string]any{}
	}
	res, err := s.session.CallTool(ctx, &mcp.CallToolParams{Name: tool, Arguments: args})
	if err != nil {
		return nil, fmt.Errorf("%w: %s/%s: %v", ErrToolFailed, s.name, tool, err)
	}
	text := joinTextContent(res.Content)
	if res.IsError {
		return nil, fmt.Errorf("%w: %s/%s: %s", ErrToolFailed, s.name, tool, text)
	}
	if res.StructuredContent != nil {
		return res.StructuredContent, nil
	}
	return text, nil
}

// Stop closes the session, terminating the subprocess.
func (s *MCPService) Stop() error {
	if s.session == nil {
		return nil
	}
	err := s.session.Close()
	s.session = nil
	return err
}

func joinTextContent(blocks []mcp.Content) string {
	var parts []string
	for _, block := range blocks {
		if tc, ok := block.(*mcp.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}
