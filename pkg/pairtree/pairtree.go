// Package pairtree implements the pairtree identifier mapping used to lay
// objects out in the repository: identifiers are cleaned with the standard
// character escaping and then sharded into two-character path segments.
package pairtree

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Escape maps an object identifier to its pairtree-clean form. Visible
// ASCII outside the reserved set passes through; reserved and non-visible
// characters are hex-encoded as ^hh; the three structural characters are
// single-character substitutions.
func Escape(id string) string {
	var b strings.Builder
	for _, c := range []byte(id) {
		switch {
		case c == '/':
			b.WriteByte('=')
		case c == ':':
			b.WriteByte('+')
		case c == '.':
			b.WriteByte(',')
		case c < 0x21 || c > 0x7e || strings.IndexByte(`"*+,<=>?\^|`, c) >= 0:
			fmt.Fprintf(&b, "^%02x", c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// PPath shards a (raw, unescaped) identifier into the pairtree directory
// path: the escaped form split into two-character segments.
func PPath(id string) string {
	clean := Escape(id)
	var segments []string
	for len(clean) > 0 {
		n := 2
		if len(clean) < n {
			n = len(clean)
		}
		segments = append(segments, clean[:n])
		clean = clean[n:]
	}
	return filepath.Join(segments...)
}

// ObjectDir returns the canonical object directory for an identifier under
// a repository root: root/namespace/pairtree_root/ppath(objid)/escape(objid).
func ObjectDir(root, namespace, objid string) string {
	return filepath.Join(root, namespace, "pairtree_root", PPath(objid), Escape(objid))
}
