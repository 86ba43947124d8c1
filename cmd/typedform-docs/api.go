package main

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	typedform "github.com/goliatone/go-typedform"
	"github.com/goliatone/go-typedform/pkg/echoform"
	"github.com/goliatone/go-typedform/pkg/multipart"
	"github.com/goliatone/go-typedform/pkg/openapi"
)

// ProfileUpload is the demo multipart payload.
type ProfileUpload struct {
	DisplayName string                      `form:"display_name" description:"Public name shown on the profile"`
	Bio         multipart.SanitizedHTML     `form:"bio,omitempty" limit:"16Ki"`
	Visibility  string                      `form:"visibility" enum:"public,private"`
	Tags        []string                    `form:"tag"`
	Avatar      typedform.FieldData[[]byte] `form:"avatar" limit:"2Mi" description:"PNG or JPEG image"`
}

func (ProfileUpload) SchemaDescription() string {
	return "Profile details with an avatar image"
}

type profileResponse struct {
	DisplayName string   `json:"display_name"`
	Visibility  string   `json:"visibility"`
	Tags        []string `json:"tags"`
	AvatarName  string   `json:"avatar_name"`
	AvatarBytes int      `json:"avatar_bytes"`
}

func newServer(logger logrus.FieldLogger, opts ...multipart.Option) (*echo.Echo, *openapi.API) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echoform.Middleware(opts...), echoform.UseLogger(logger))

	api := openapi.NewAPI("Profile uploads", "1.0.0",
		openapi.WithLogger(logger),
		openapi.WithDescription("Demo API documenting typed multipart inputs."),
	)

	echoform.Route(e, api, http.MethodPost, "/profiles/:id/upload", uploadProfile,
		openapi.WithOperationID("uploadProfile"),
		openapi.WithSummary("Upload a profile with its avatar"),
		openapi.WithTags("profiles"),
		openapi.WithResponse(http.StatusCreated, "Profile stored"),
		openapi.WithResponse(http.StatusBadRequest, "Malformed multipart payload"),
		openapi.WithResponse(http.StatusRequestEntityTooLarge, "Field or request too large"),
	)

	e.GET("/openapi.json", echo.WrapHandler(api.Handler()))
	return e, api
}

func uploadProfile(c echo.Context, in typedform.TypedMultipart[ProfileUpload]) error {
	upload := in.Data
	return c.JSON(http.StatusCreated, profileResponse{
		DisplayName: upload.DisplayName,
		Visibility:  upload.Visibility,
		Tags:        upload.Tags,
		AvatarName:  upload.Avatar.Metadata.FileName,
		AvatarBytes: len(upload.Avatar.Contents),
	})
}
