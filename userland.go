// Package userland runs shell commands inside a constrained userland made
// of a bundled busybox toolset and an optional proot sandbox.
package userland

// Version is the userland release version.
const Version = "0.3.0"
