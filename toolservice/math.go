package toolservice

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// serverVersion is reported by every tool service over MCP.
const serverVersion = "0.1.0"

// MathServer serves the add and multiply tools over stdio.
type MathServer struct{}

// BinaryInput are the arguments shared by the arithmetic tools.
type BinaryInput struct {
	A float64 `json:"a" jsonschema:"first operand"`
	B float64 `json:"b" jsonschema:"second operand"`
}

// BinaryOutput is the arithmetic result.
type BinaryOutput struct {
	Result float64 `json:"result"`
}

// Run serves the math service on stdio until ctx is canceled.
func (s *MathServer) Run(ctx context.Context) error {
	server := mcp.NewServer(&mcp.Implementation{Name: "math", Version: serverVersion}, nil)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "add",
		Description: "Adds two numbers",
	}, s.add)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "multiply",
		Description: "Multiplies two numbers",
	}, s.multiply)
	return server.Run(ctx, &mcp.StdioTransport{})
}

func (s *MathServer) add(ctx context.Context, req *mcp.CallToolRequest, in BinaryInput) (*mcp.CallToolResult, BinaryOutput, error) {
	return nil, BinaryOutput{Result: in.A + in.B}, nil
}

func (s *MathServer) multiply(ctx context.Context, req *mcp.CallToolRequest, in BinaryInput) (*mcp.CallToolResult, BinaryOutput, error) {
	return nil, BinaryOutput{Result: in.A * in.B}, nil
}

// toolError reports a caller-correctable failure as a tool result.
func toolError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
	}
}
