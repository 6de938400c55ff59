// Package collage composes album covers into a single shareable image.
//
// A [Renderer] loads every cover concurrently through a [Loader], fills a black canvas, draws
// each cover into its grid cell with cover semantics (scaled to fill the cell and center
// cropped), darkens a band at the top and bottom, and writes the headline and punchline.
//
// Loading is all-or-nothing: if any cover fails, no image is produced and the error wraps
// [shared.ErrAssetLoadFailed].
//
// Layouts are written as "<columns>x<rows>", so "4x3" is four columns by three rows.
package collage
