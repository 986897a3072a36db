package handler

import (
	"net/http"

	"user-api/internal/adapter/docs"
	"user-api/internal/adapter/gin/middleware"
	pkgerrors "user-api/pkg/errors"
	"user-api/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// DefaultHandler serves the responses the application gives without any
// registered routes: the not found answer and the API documentation.
type DefaultHandler struct {
	openAPI []byte
	log     *zap.Logger
}

// NewDefaultHandler renders doc once and returns a handler serving it
func NewDefaultHandler(doc docs.Document, log *zap.Logger) (*DefaultHandler, error) {
	data, err := doc.JSON()
	if err != nil {
		return nil, err
	}
	return &DefaultHandler{openAPI: data, log: log}, nil
}

// NotFound handles every request that matches no route
func (h *DefaultHandler) NotFound(c *gin.Context) {
	logger.WithContext(c.Request.Context(), h.log).Debug("no route",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
	)
	h.handleError(c, pkgerrors.ErrNotFound)
}

// MethodNotAllowed handles a known path requested with another method
func (h *DefaultHandler) MethodNotAllowed(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusMethodNotAllowed, middleware.ErrorResponse{
		Error:   "method_not_allowed",
		Message: "Method Not Allowed",
	})
}

// OpenAPI handles GET /openapi.json
func (h *DefaultHandler) OpenAPI(c *gin.Context) {
	c.Data(http.StatusOK, "application/json", h.openAPI)
}

// Redoc handles GET /redoc with a ReDoc page rendering /openapi.json
func (h *DefaultHandler) Redoc(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", redocPage)
}

var redocPage = []byte(`<!DOCTYPE html>
<html>
<head>
<title>ReDoc</title>
<meta charset="utf-8"/>
<meta name="viewport" content="width=device-width, initial-scale=1">
</head>
<body>
<redoc spec-url="/openapi.json"></redoc>
<script src="https://cdn.jsdelivr.net/npm/redoc@2/bundles/redoc.standalone.js"></script>
</body>
</html>
`)

// handleError converts application errors to HTTP responses
func (h *DefaultHandler) handleError(c *gin.Context, err error) {
	code := pkgerrors.HTTPStatus(err)

	resp := middleware.ErrorResponse{Message: err.Error()}
	switch code {
	case http.StatusNotFound:
		resp.Error = "not_found"
	case http.StatusUnprocessableEntity:
		resp.Error = "validation_error"
	default:
		resp.Error = "internal_error"
		resp.Message = "An internal error occurred"
	}

	c.AbortWithStatusJSON(code, resp)
}
