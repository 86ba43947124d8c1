// Package echoform binds typed multipart extractors to echo handlers and
// documents the routes on an openapi.API.
package echoform
