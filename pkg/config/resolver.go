// Package config resolves configuration values through the layered
// namespace / package type / global lookup. The first layer that defines a
// key wins; validation overrides merge per parameter instead, so a higher
// layer can tighten one bound without dropping its siblings.
package config

import (
	"github.com/dlps/feed/pkg/api"
	"github.com/dlps/feed/pkg/load"
	"github.com/dlps/feed/pkg/results"
)

// Resolver performs layered configuration lookups against the global
// configuration and a (namespace, package type) pair.
type Resolver struct {
	global *load.Config
}

func NewResolver(global *load.Config) *Resolver {
	return &Resolver{global: global}
}

// Global exposes the backing global configuration.
func (r *Resolver) Global() *load.Config {
	return r.global
}

// Resolve looks a key up through the four layers, highest priority first:
// the namespace's package-type overrides, the namespace config, the package
// type config (following its parent chain), and finally the global
// configuration under the same dotted key path.
func (r *Resolver) Resolve(ns *api.Namespace, pt *api.PackageType, key string) (interface{}, error) {
	if ns != nil && pt != nil {
		if overrides, ok := ns.PackagetypeOverrides[pt.Identifier]; ok {
			if value, ok := overrides[key]; ok {
				return value, nil
			}
		}
	}
	if ns != nil {
		if value, ok := ns.Config[key]; ok {
			return value, nil
		}
	}
	for p := pt; p != nil; p = p.Parent {
		if value, ok := p.Config[key]; ok {
			return value, nil
		}
	}
	if value, ok := r.global.Get(key); ok {
		return value, nil
	}
	return nil, results.ForReason(results.ReasonUnknownKey).Errorf("no configuration layer defines %s", key)
}

// ResolveString is Resolve for string-valued keys; non-string values
// resolve as undefined.
func (r *Resolver) ResolveString(ns *api.Namespace, pt *api.PackageType, key string) (string, error) {
	value, err := r.Resolve(ns, pt, key)
	if err != nil {
		return "", err
	}
	s, ok := value.(string)
	if !ok {
		return "", results.ForReason(results.ReasonUnknownKey).Errorf("configuration key %s is not a string", key)
	}
	return s, nil
}

// ValidationOverrides computes the effective parameter set for one
// validator by merging, lowest to highest priority, the package type's
// validation map, the namespace's validation map, and any validation
// sub-map inside the namespace's package-type overrides.
func (r *Resolver) ValidationOverrides(ns *api.Namespace, pt *api.PackageType, validator string) map[string]interface{} {
	merged := map[string]interface{}{}
	for p := pt; p != nil; p = p.Parent {
		if params, ok := p.Validation[validator]; ok {
			overlay(merged, params)
			break
		}
	}
	if ns != nil {
		if params, ok := ns.Validation[validator]; ok {
			overlay(merged, params)
		}
		if pt != nil {
			if overrides, ok := ns.PackagetypeOverrides[pt.Identifier]; ok {
				overlay(merged, validationSubmap(overrides, validator))
			}
		}
	}
	return merged
}

// validationSubmap digs the per-validator parameter map out of a free-form
// override tree, tolerating both typed and untyped nesting.
func validationSubmap(overrides map[string]interface{}, validator string) map[string]interface{} {
	raw, ok := overrides["validation"]
	if !ok {
		return nil
	}
	switch tree := raw.(type) {
	case map[string]map[string]interface{}:
		return tree[validator]
	case map[string]interface{}:
		if sub, ok := tree[validator].(map[string]interface{}); ok {
			return sub
		}
	}
	return nil
}

// overlay writes src entries over dst, preserving dst keys src omits.
func overlay(dst, src map[string]interface{}) {
	for k, v := range src {
		dst[k] = v
	}
}
