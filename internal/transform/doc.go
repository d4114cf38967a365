// Package transform holds the source transforms applied before emit. Each
// transform is a program.Transformer producing byte-range edits on the
// original text; esbuild then turns the edited TypeScript into JavaScript.
package transform
