//go:build !dev

package buildinfo

// DevBuild reports whether the binary was compiled with the dev build tag.
const DevBuild = false
