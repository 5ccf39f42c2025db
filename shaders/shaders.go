package shaders

import (
	_ "embed"
)

//go:embed handles.wgsl
var HandlesWGSL string
