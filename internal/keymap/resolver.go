package keymap

import "github.com/samber/lo"

// Resolver looks up the action for a key press.
type Resolver struct {
	actions map[string]Action
	keys    map[Action][]string
}

// NewResolver indexes bindings. When a key appears in several bindings the
// last one wins.
func NewResolver(bindings []Binding) *Resolver {
	r := &Resolver{actions: make(map[string]Action)}
	for _, b := range bindings {
		for _, key := range b.Keys {
			r.actions[key] = b.Action
		}
	}
	grouped := lo.GroupBy(bindings, func(b Binding) Action { return b.Action })
	r.keys = lo.MapValues(grouped, func(bs []Binding, _ Action) []string {
		return lo.Uniq(lo.FlatMap(bs, func(b Binding, _ int) []string { return b.Keys }))
	})
	return r
}

// Resolve returns the bound action, or "" for unbound keys.
func (r *Resolver) Resolve(key string) Action {
	return r.actions[key]
}

// KeysFor lists the keys bound to action, for the help screen.
func (r *Resolver) KeysFor(action Action) []string {
	return r.keys[action]
}
