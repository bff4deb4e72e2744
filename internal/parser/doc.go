// Package parser is the boundary to the DotsOCR layout model.
//
// The model itself is opaque: an Engine takes an input document and an output
// directory and returns one PageResult per parsed page, each pointing at the
// layout JSON, rendered image, and markdown the model wrote. CommandEngine runs
// the DotsOCR parser CLI; MockEngine writes a fixed layout without touching the
// model. NewTaskBody adapts an engine to a jobs.Body, and ParseUpload handles
// the synchronous parse endpoints with a throwaway session directory.
package parser
