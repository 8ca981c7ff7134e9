package registry

import (
	"fmt"
	"regexp"

	"github.com/BaSui01/pathflow/types"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidIdentifier reports whether id can be used as an agent or scope
// identifier. Dots and path metacharacters are reserved for lookup paths.
func ValidIdentifier(id string) bool {
	return identifierPattern.MatchString(id)
}

// Definition is an immutable agent definition: identifier, kind, declared
// capabilities and an opaque configuration payload.
type Definition struct {
	id           string
	kind         types.AgentKind
	capabilities []types.Capability
	capSet       map[types.Capability]struct{}
	config       map[string]any
	description  string
}

// NewDefinition validates and copies the inputs into a new Definition.
func NewDefinition(id string, kind types.AgentKind, capabilities []types.Capability, config map[string]any) (*Definition, error) {
	if !ValidIdentifier(id) {
		return nil, types.NewError(types.ErrInvalidConfig, fmt.Sprintf("invalid agent identifier %q", id)).WithAgent(id)
	}
	if kind == "" {
		return nil, types.NewError(types.ErrInvalidConfig, "agent kind is required").WithAgent(id)
	}

	d := &Definition{
		id:     id,
		kind:   kind,
		capSet: make(map[types.Capability]struct{}, len(capabilities)),
		config: copyConfig(config),
	}
	for _, c := range capabilities {
		if c == "" {
			continue
		}
		if _, dup := d.capSet[c]; dup {
			continue
		}
		d.capSet[c] = struct{}{}
		d.capabilities = append(d.capabilities, c)
	}
	if desc, ok := config["description"].(string); ok {
		d.description = desc
	}
	return d, nil
}

// MustDefinition is NewDefinition that panics on error. Intended for fixtures.
func MustDefinition(id string, kind types.AgentKind, capabilities []types.Capability, config map[string]any) *Definition {
	d, err := NewDefinition(id, kind, capabilities, config)
	if err != nil {
		panic(err)
	}
	return d
}

// ID returns the agent identifier.
func (d *Definition) ID() string { return d.id }

// Kind returns the agent kind.
func (d *Definition) Kind() types.AgentKind { return d.kind }

// Description returns the optional human description from config.
func (d *Definition) Description() string { return d.description }

// Capabilities returns a copy of the declared capabilities in declaration order.
func (d *Definition) Capabilities() []types.Capability {
	out := make([]types.Capability, len(d.capabilities))
	copy(out, d.capabilities)
	return out
}

// HasCapability reports whether the definition declares c.
func (d *Definition) HasCapability(c types.Capability) bool {
	_, ok := d.capSet[c]
	return ok
}

// Config returns a deep copy of the configuration payload.
func (d *Definition) Config() map[string]any {
	return copyConfig(d.config)
}

// ConfigValue returns a single configuration entry.
func (d *Definition) ConfigValue(key string) (any, bool) {
	v, ok := d.config[key]
	return copyValue(v), ok
}

// ConfigString returns a string configuration entry or fallback.
func (d *Definition) ConfigString(key, fallback string) string {
	if v, ok := d.config[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

func copyConfig(in map[string]any) map[string]any {
	if in == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return copyConfig(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = copyValue(item)
		}
		return out
	case []string:
		out := make([]string, len(val))
		copy(out, val)
		return out
	default:
		return v
	}
}
