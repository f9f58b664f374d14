// Package router maps one recognized (or unrecognized) card to a physical
// bin. Route is a pure function of its input so the full decision table is
// testable without hardware, networks, or clocks.
package router
