package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// InvokeFunc is the callable handle bound to a tool's service session.
type InvokeFunc func(ctx context.Context, args map[string]any) (any, error)

// Descriptor describes one callable tool capability. Descriptors are
// created during discovery, owned by the Registry, and never mutated;
// executors hold references only.
type Descriptor struct {
	// Name is the tool's unique name across all discovered services.
	Name string

	// Description is the tool's human-readable description.
	Description string

	// Service is the name of the service that exposes the tool.
	Service string

	// InputSchema is the declared argument schema, as received from the
	// service. It may be nil for tools that take no arguments.
	InputSchema *jsonschema.Schema

	resolved *jsonschema.Resolved
	invoke   InvokeFunc
}

// NewDescriptor builds a descriptor from a declared schema and a bound
// invocation handle. The schema may be a *jsonschema.Schema, a raw map as
// carried on the wire, or nil.
func NewDescriptor(name, description, service string, schema any, invoke InvokeFunc) (*Descriptor, error) {
	if name == "" {
		return nil, fmt.Errorf("registry: descriptor name is required")
	}
	if invoke == nil {
		return nil, fmt.Errorf("registry: descriptor %s has no invoke handle", name)
	}
	d := &Descriptor{
		Name:        name,
		Description: description,
		Service:     service,
		invoke:      invoke,
	}
	if schema != nil {
		s, err := coerceSchema(schema)
		if err != nil {
			return nil, fmt.Errorf("registry: schema for %s: %w", name, err)
		}
		d.InputSchema = s
		if s != nil {
			resolved, err := s.Resolve(nil)
			if err != nil {
				return nil, fmt.Errorf("registry: resolving schema for %s: %w", name, err)
			}
			d.resolved = resolved
		}
	}
	return d, nil
}

// Call invokes the tool through its bound service handle.
func (d *Descriptor) Call(ctx context.Context, args map[string]any) (any, error) {
	return d.invoke(ctx, args)
}

// ValidateArgs checks the argument map against the declared schema.
// A nil schema accepts anything.
func (d *Descriptor) ValidateArgs(args map[string]any) error {
	if d.resolved == nil {
		return nil
	}
	if args == nil {
		args = map[string]any{}
	}
	return d.resolved.Validate(args)
}

// ArgumentKeys returns the declared top-level argument names, sorted.
// Used when composing generation prompts.
func (d *Descriptor) ArgumentKeys() []string {
	if d.InputSchema == nil || len(d.InputSchema.Properties) == 0 {
		return nil
	}
	keys := make([]string, 0, len(d.InputSchema.Properties))
	for k := range d.InputSchema.Properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SchemaJSON returns the declared schema as JSON, or "{}" when absent.
func (d *Descriptor) SchemaJSON() string {
	if d.InputSchema == nil {
		return "{}"
	}
	data, err := json.Marshal(d.InputSchema)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// coerceSchema normalizes the wire-level schema value into *jsonschema.Schema.
func coerceSchema(schema any) (*jsonschema.Schema, error) {
	switch s := schema.(type) {
	case *jsonschema.Schema:
		return s, nil
	case nil:
		return nil, nil
	default:
		data, err := json.Marshal(s)
		if err != nil {
			return nil, err
		}
		var out jsonschema.Schema
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, err
		}
		return &out, nil
	}
}

// descriptorFromTool builds a descriptor for a tool listed by a service.
func descriptorFromTool(svc Service, tool *mcp.Tool) (*Descriptor, error) {
	name := tool.Name
	return NewDescriptor(name, tool.Description, svc.Name(), tool.InputSchema,
		func(ctx context.Context, args map[string]any) (any, error) {
			return svc.Call(ctx, name, args)
		})
}
