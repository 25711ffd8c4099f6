// Package builtin links the compiled-in plugins into a binary. Import it
// for side effects, then call Registry.AddBuiltins.
package builtin

import (
	_ "github.com/go-tangra/go-tangra-assets/internal/plugins/diagnostics"
	_ "github.com/go-tangra/go-tangra-assets/internal/plugins/exporters"
	_ "github.com/go-tangra/go-tangra-assets/internal/plugins/scanners"
	_ "github.com/go-tangra/go-tangra-assets/internal/plugins/snipeit"
)
