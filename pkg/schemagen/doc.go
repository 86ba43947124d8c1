// Package schemagen reflects Go types into OpenAPI 3 schemas.
//
// Named struct types are registered once in the Generator's component
// registry and referenced with $ref; primitives, slices, maps, time.Time and
// anonymous types are embedded in place. Types customise the output by
// implementing Namer, Describer, Inliner or DescriptionProvider on a value
// receiver. Struct properties follow the multipart decoding rules of
// pkg/multipart so documentation and extraction agree.
package schemagen
