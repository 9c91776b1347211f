// Package storyboard compiles a manifest-derived payload into an ordered,
// linked sequence of narration scenes.
//
// A storyboard always opens with one intro scene and closes with one end
// card; between them sits exactly one setup_step scene per payload step, in
// payload order. Scene indexes and prev/next links come purely from emission
// order, and compiling the same payload twice yields identical output.
package storyboard
