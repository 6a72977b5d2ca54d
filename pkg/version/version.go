// Package version exposes the build version and plugin introspection for
// the CLI's diagnostic flags.
package version

import (
	"fmt"
	"strings"

	"github.com/dlps/feed/pkg/registry"
)

// Version is the build version, injected at link time.
var Version = "dev"

// Banner is the one-line --version output.
func Banner() string {
	return fmt.Sprintf("feed version %s", Version)
}

// Introspect renders the banner plus every loaded namespace, package type
// and stage with identifier and description.
func Introspect(r *registry.Registry) string {
	var b strings.Builder
	b.WriteString(Banner())
	b.WriteString("\n\nNamespaces:\n")
	for _, ns := range r.Namespaces() {
		fmt.Fprintf(&b, "  %-12s %s\n", ns.Identifier, ns.Description)
	}
	b.WriteString("\nPackage types:\n")
	for _, pt := range r.PackageTypes() {
		fmt.Fprintf(&b, "  %-12s %s\n", pt.Identifier, pt.Description)
	}
	b.WriteString("\nStages:\n")
	for _, stage := range r.Stages() {
		fmt.Fprintf(&b, "  %-16s %s\n", stage.Identifier, stage.Description)
	}
	return b.String()
}
