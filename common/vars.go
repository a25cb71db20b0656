// Package common holds shared service metadata and logging setup.
package common

// PackageName tags metrics and logs emitted by this service.
const PackageName = "certificate-registry-backend"

// Version is set at build time via -ldflags.
var Version = "dev"
