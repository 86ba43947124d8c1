// Package openapi documents HTTP operations whose inputs describe themselves.
//
// Request extractors implement OperationInput to attach their request body
// to an *openapi3.Operation, resolving schemas through the GenContext's
// schemagen.Generator. API collects operations into a validated OpenAPI 3
// document that can be rendered as JSON or YAML. kin-openapi provides the
// document model, loader and validation.
package openapi
