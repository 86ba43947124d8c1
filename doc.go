// Package typedform lets typed multipart extractors take part in OpenAPI
// documentation.
//
// TypedMultipart and FieldData wrap their pkg/multipart counterparts and
// forward extraction to them unchanged. On top of that, TypedMultipart
// implements openapi.OperationInput so a handler's input documents itself as
// a required multipart/form-data request body, and FieldData implements the
// schemagen contracts so the generator sees exactly the schema of the wrapped
// field type.
//
//	type Upload struct {
//		Title  string                      `form:"title"`
//		Avatar typedform.FieldData[[]byte] `form:"avatar" limit:"1Mi"`
//	}
//
//	api := openapi.NewAPI("Uploads", "1.0.0")
//	echoform.Route(e, api, http.MethodPost, "/uploads", createUpload)
package typedform
