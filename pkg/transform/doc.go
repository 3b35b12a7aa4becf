// Package transform turns the source files of ordered feeds into a bundle.
//
// Each source file is transformed on its own with esbuild: references to
// process.env.NODE_ENV are replaced by the build mode, and in production mode
// branches made unreachable by that substitution are removed. Identical modules
// are kept once, in order of first occurrence. JavaScript modules are wrapped in
// a small CommonJS runtime which executes entry modules in feed order; CSS files
// are concatenated in order. Production bundles are minified.
package transform
