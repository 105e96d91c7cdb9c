//go:build dev

package buildinfo

// DevBuild reports whether the binary was compiled with the dev build tag.
// Insecure development switches (such as disabling authentication) are only
// honored when this is true; a release build cannot enable them.
const DevBuild = true
