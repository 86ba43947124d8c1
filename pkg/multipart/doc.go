// Package multipart decodes multipart/form-data requests into typed Go
// structs.
//
// Struct fields map onto form fields through tags:
//
//	type Upload struct {
//		Title      string                      `form:"title"`
//		Tags       []string                    `form:"tag"`
//		Note       *string                     `form:"note"`
//		Visibility string                      `form:"visibility" enum:"public,private"`
//		Avatar     multipart.FieldData[[]byte] `form:"avatar" limit:"512Ki"`
//	}
//
// Pointer and slice fields are optional; everything else is required unless
// tagged `form:",omitempty"`. The body is streamed part by part, so per-field
// limits are enforced while reading rather than after buffering the request.
//
// All failures are reported as *Error, whose Kind classifies the rejection and
// whose StatusCode suggests the response status. Hosts own the translation
// into a response.
package multipart
