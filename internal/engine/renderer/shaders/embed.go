// Package shaders provides embedded GLSL shader sources for the shadow passes.
package shaders

import _ "embed"

// DepthVertexShader transforms casters into a shadow camera's clip space.
//
//go:embed depth.vert
var DepthVertexShader string

// DepthFragmentShader writes depth only.
//
//go:embed depth.frag
var DepthFragmentShader string

// MomentsFragmentShader writes the variance shadow moments.
//
//go:embed moments.frag
var MomentsFragmentShader string

// BlurVertexShader emits a fullscreen triangle.
//
//go:embed blur.vert
var BlurVertexShader string

// BlurFragmentShader runs one direction of the separable Gaussian blur.
//
//go:embed blur.frag
var BlurFragmentShader string

// MaxBlurTaps is the size of the weight array in BlurFragmentShader.
const MaxBlurTaps = 33
