// Package core implements the credential lifecycle for delegated access to
// downstream calendar and media-storage providers: acquiring tokens through
// the OAuth code exchange, caching them per user, transparently refreshing
// them on expiry, and signing folder-scoped direct-upload grants.
//
// Downstream providers are reached only through the capability interfaces in
// contracts.go; the HTTP surface and durable persistence plug in from the
// transport and store packages.
package core
