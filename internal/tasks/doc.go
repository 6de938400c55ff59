// Package tasks runs the collage pipeline: fetch top tracks, load their covers, compose, and
// write the PNG.
//
// [CollageEngine] emits [ProgressUpdate] values on an optional channel for the CLI or the
// spinner UI. Sends never block, so a slow or absent reader cannot stall the pipeline.
package tasks
