// Package osu converts between the chart model in package chart and osu!mania
// bundles (.osz zip archives holding .osu chart files and their media).
//
// Decode and Encode translate a single chart file. ParseBundle extracts an
// archive and decodes every chart in it into a shared chart.Package, and
// CompileBundle writes a whole package back out as one archive. The resource
// pool of the package is the only place media bytes live; charts reference
// pool entries and are given real file names only at compile time.
package osu
