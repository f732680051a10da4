// Package tool implements the dispatchable capabilities of the agent and the
// registry that resolves routed tool ids to them.
package tool

import (
	"fmt"

	contractx "github.com/tanpawarit/jtcg-crm-agent/agent/contract"
)

type Registry struct {
	tools map[contractx.ToolID]contractx.Tool
	order []contractx.ToolID
}

var _ contractx.ToolRegistry = (*Registry)(nil)

func NewRegistry(tools ...contractx.Tool) (*Registry, error) {
	r := &Registry{tools: make(map[contractx.ToolID]contractx.Tool, len(tools))}
	for _, t := range tools {
		if t == nil {
			return nil, fmt.Errorf("%w: nil tool", contractx.ErrValidation)
		}
		id := t.Name()
		if _, dup := r.tools[id]; dup {
			return nil, fmt.Errorf("%w: duplicate tool %s", contractx.ErrValidation, id)
		}
		r.tools[id] = t
		r.order = append(r.order, id)
	}
	return r, nil
}

func (r *Registry) Resolve(id contractx.ToolID) (contractx.Tool, bool) {
	t, ok := r.tools[id]
	return t, ok
}

// Names returns tool ids in registration order.
func (r *Registry) Names() []contractx.ToolID {
	out := make([]contractx.ToolID, len(r.order))
	copy(out, r.order)
	return out
}
