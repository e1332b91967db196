// Package discovery locates Hue bridges on the local network.
//
// A Transport is one way of finding bridges: the Philips cloud registry, an
// SSDP search, or an mDNS browse. Locate runs several transports side by side
// and merges what they report into one Result keyed by bridge ID.
package discovery
