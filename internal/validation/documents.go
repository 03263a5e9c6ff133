package validation

import (
	"fmt"

	"github.com/readium/r2-lcp-go/internal/lcpdoc"
)

// Context is a two-variant tagged union: either a usable DRM context
// handle, or a StatusError explaining why the license is well-formed
// but not currently usable (spec §3, §9). StatusErr is always safe to
// call; DRM is safe only when IsUsable reports true.
type Context struct {
	drm   lcpdoc.DRMContext
	serr  StatusError
}

// DrmContext builds a usable Context.
func DrmContext(ctx lcpdoc.DRMContext) Context { return Context{drm: ctx} }

// RightContext builds a non-usable Context carrying a StatusError. Named
// "Right" to match the Left/Right sum-type vocabulary spec.md uses.
func RightContext(err StatusError) Context { return Context{serr: err} }

// IsUsable reports whether this Context carries a DRM handle.
func (c Context) IsUsable() bool { return c.serr == nil }

// DRM returns the DRM context handle. It panics if the license is not
// usable — callers that only need metadata must check IsUsable (or call
// StatusErr) first, never DRM blindly (spec §9).
func (c Context) DRM() lcpdoc.DRMContext {
	if c.serr != nil {
		panic(fmt.Sprintf("lcp: DRM() called on a non-usable context: %v", c.serr))
	}
	return c.drm
}

// StatusErr returns the reason the license cannot be used, or nil if it
// is usable.
func (c Context) StatusErr() StatusError { return c.serr }

// ValidatedDocuments is the terminal payload of a successful validation:
// the License Document, the Status Document if one was ever obtained,
// and the Context describing whether the license is actually usable.
type ValidatedDocuments struct {
	License *lcpdoc.License
	Status  *lcpdoc.StatusDocument // nil if no SD was ever fetched
	Context Context
}
