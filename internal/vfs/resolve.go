package vfs

import (
	"net/url"
	"strings"
)

// Resolve looks up a reference written inside a document, such as an image
// destination. The first hit wins, in this order:
//
//  1. a registry record whose id equals ref
//  2. a record at assets/<basename of ref>
//  3. a tree file whose name equals the basename
//  4. a tree file whose name equals the basename ignoring case
//
// Steps 3 and 4 scan files in tree order.
func Resolve(t *Tree, r *Registry, ref string) (Record, bool) {
	ref = normalizeRef(ref)
	if ref == "" {
		return Record{}, false
	}

	if rec, ok := r.Get(ref); ok {
		return rec, true
	}

	base := BaseName(ref)
	if rec, ok := r.Get(JoinID(AssetsID, base)); ok {
		return rec, true
	}

	files := t.Files()
	for _, f := range files {
		if BaseName(f.ID) == base {
			if rec, ok := r.Get(f.ID); ok {
				return rec, true
			}
		}
	}
	for _, f := range files {
		if strings.EqualFold(BaseName(f.ID), base) {
			if rec, ok := r.Get(f.ID); ok {
				return rec, true
			}
		}
	}
	return Record{}, false
}

func normalizeRef(ref string) string {
	ref = strings.TrimSpace(ref)
	if unescaped, err := url.PathUnescape(ref); err == nil {
		ref = unescaped
	}
	ref = strings.TrimPrefix(ref, "./")
	return strings.TrimPrefix(ref, "/")
}
