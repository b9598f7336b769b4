// Package web holds the embedded browser assets for the repeat-avatar demo.
package web

import _ "embed"

//go:embed index.html
var Index []byte
