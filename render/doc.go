// Package render produces the merged, highlighted output of a search.
//
// A Renderer groups ranked matches into a Plan, one entry per source document,
// and renders each entry through a DocumentStore: open, highlight, optionally
// watermark, save to a scratch file, close. Rendered parts are merged by an
// Assembler in plan order and handed to an OutputSink.
//
// Documents that are missing or fail to render are skipped and reported in
// Report.Skipped. Render fails with ErrNoDocumentsRendered only when every
// document was skipped.
//
// The pdfcpu subpackage provides the PDF implementations.
package render
