// Package registry indexes the namespace, package type and stage plugins
// loaded into the process. Each plugin's defining file registers its
// descriptor from an init hook; there is no runtime directory scanning.
// Duplicate identifiers are programmer errors and panic at startup.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/dlps/feed/pkg/api"
	"github.com/dlps/feed/pkg/results"
	"github.com/dlps/feed/pkg/volume"
)

// StageBuilder constructs a stage instance over a volume.
type StageBuilder func(v *volume.Volume) api.Stage

// StageRecord is one registered stage plugin.
type StageRecord struct {
	Identifier  string
	Description string
	Build       StageBuilder
}

// Registry holds the loaded plugins. The zero value is not usable; use New.
type Registry struct {
	lock         sync.RWMutex
	namespaces   map[string]*api.Namespace
	packageTypes map[string]*api.PackageType
	stages       map[string]*StageRecord
}

func New() *Registry {
	return &Registry{
		namespaces:   map[string]*api.Namespace{},
		packageTypes: map[string]*api.PackageType{},
		stages:       map[string]*StageRecord{},
	}
}

// RegisterNamespace adds a namespace descriptor.
func (r *Registry) RegisterNamespace(ns *api.Namespace) {
	r.lock.Lock()
	defer r.lock.Unlock()
	if _, ok := r.namespaces[ns.Identifier]; ok {
		panic(fmt.Sprintf("duplicate namespace registered: %s", ns.Identifier))
	}
	r.namespaces[ns.Identifier] = ns
}

// RegisterPackageType adds a package type descriptor.
func (r *Registry) RegisterPackageType(pt *api.PackageType) {
	r.lock.Lock()
	defer r.lock.Unlock()
	if _, ok := r.packageTypes[pt.Identifier]; ok {
		panic(fmt.Sprintf("duplicate package type registered: %s", pt.Identifier))
	}
	r.packageTypes[pt.Identifier] = pt
}

// RegisterStage adds a stage plugin.
func (r *Registry) RegisterStage(record *StageRecord) {
	r.lock.Lock()
	defer r.lock.Unlock()
	if _, ok := r.stages[record.Identifier]; ok {
		panic(fmt.Sprintf("duplicate stage registered: %s", record.Identifier))
	}
	r.stages[record.Identifier] = record
}

// Namespace looks up a namespace descriptor by identifier.
func (r *Registry) Namespace(id string) (*api.Namespace, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	ns, ok := r.namespaces[id]
	if !ok {
		return nil, results.ForReason(results.ReasonUnknownSubclass).Errorf("no namespace registered for %s", id)
	}
	return ns, nil
}

// PackageType looks up a package type descriptor by identifier.
func (r *Registry) PackageType(id string) (*api.PackageType, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	pt, ok := r.packageTypes[id]
	if !ok {
		return nil, results.ForReason(results.ReasonUnknownSubclass).Errorf("no package type registered for %s", id)
	}
	return pt, nil
}

// Stage looks up a stage plugin by identifier.
func (r *Registry) Stage(id string) (*StageRecord, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	record, ok := r.stages[id]
	if !ok {
		return nil, results.ForReason(results.ReasonUnknownSubclass).Errorf("no stage registered for %s", id)
	}
	return record, nil
}

// Namespaces enumerates the registered namespaces in identifier order.
func (r *Registry) Namespaces() []*api.Namespace {
	r.lock.RLock()
	defer r.lock.RUnlock()
	out := make([]*api.Namespace, 0, len(r.namespaces))
	for _, ns := range r.namespaces {
		out = append(out, ns)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Identifier < out[j].Identifier })
	return out
}

// PackageTypes enumerates the registered package types in identifier order.
func (r *Registry) PackageTypes() []*api.PackageType {
	r.lock.RLock()
	defer r.lock.RUnlock()
	out := make([]*api.PackageType, 0, len(r.packageTypes))
	for _, pt := range r.packageTypes {
		out = append(out, pt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Identifier < out[j].Identifier })
	return out
}

// Stages enumerates the registered stage plugins in identifier order.
func (r *Registry) Stages() []*StageRecord {
	r.lock.RLock()
	defer r.lock.RUnlock()
	out := make([]*StageRecord, 0, len(r.stages))
	for _, record := range r.stages {
		out = append(out, record)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Identifier < out[j].Identifier })
	return out
}

// Validate verifies the internal consistency of the loaded plugins: every
// stage identifier referenced by a package type's stage map must resolve,
// and every event code a package type references must exist in the catalog
// passed in.
func (r *Registry) Validate(catalog func(code string) bool) error {
	r.lock.RLock()
	defer r.lock.RUnlock()
	var errs []error
	for _, pt := range r.packageTypes {
		for status, stageID := range pt.StageMap {
			if _, ok := r.stages[stageID]; !ok {
				errs = append(errs, fmt.Errorf("package type %s maps status %s to unregistered stage %s", pt.Identifier, status, stageID))
			}
		}
		for _, code := range append(append([]string{}, pt.PremisEventCodes()...), pt.SourcePremisEventCodes()...) {
			if !catalog(code) {
				errs = append(errs, fmt.Errorf("package type %s references unknown event code %s", pt.Identifier, code))
			}
		}
	}
	if len(errs) > 0 {
		msg := ""
		for _, err := range errs {
			msg += err.Error() + "\n"
		}
		return fmt.Errorf("plugin validation failed:\n%s", msg)
	}
	return nil
}

var defaultRegistry = New()

// Default returns the process-wide registry that plugin init hooks
// populate.
func Default() *Registry {
	return defaultRegistry
}

// RegisterNamespace adds a namespace descriptor to the default registry.
func RegisterNamespace(ns *api.Namespace) {
	defaultRegistry.RegisterNamespace(ns)
}

// RegisterPackageType adds a package type descriptor to the default
// registry.
func RegisterPackageType(pt *api.PackageType) {
	defaultRegistry.RegisterPackageType(pt)
}

// RegisterStage adds a stage plugin to the default registry.
func RegisterStage(record *StageRecord) {
	defaultRegistry.RegisterStage(record)
}
