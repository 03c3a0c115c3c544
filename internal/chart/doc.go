// Package chart holds the game-agnostic chart model: packages of beatmaps,
// their timing lists, and hit objects.
//
// The model carries no format knowledge. Media is referenced through handles
// owned by the package's resource pool, so beatmaps decoded from different
// bundles share identical audio and images.
package chart
