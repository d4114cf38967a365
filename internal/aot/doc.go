// Package aot is the ahead-of-time analysis program: it discovers
// decorated components, loads their templates and stylesheets, generates
// per-component type-check shims and reports template diagnostics. It also
// keeps the emit bookkeeping the incremental build relies on.
package aot
