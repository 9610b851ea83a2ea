package handlers

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "finbook/internal/errors"
	"finbook/internal/logger"
	"finbook/internal/middleware"
	"finbook/internal/services"
)

// ErrorDetail represents the inner error object in an error response.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// getPrincipal extracts the authenticated principal from the Gin context.
// Returns ErrUnauthorized if not present.
func getPrincipal(c *gin.Context) (string, error) {
	principal := middleware.Principal(c)
	if principal == "" {
		return "", apperrors.ErrUnauthorized
	}
	return principal, nil
}

// dateLayouts are tried in order by parseDate.
var dateLayouts = []string{"2006-01-02", "02.01.2006", time.RFC3339}

// parseDate accepts ISO dates, German dotted dates and RFC 3339 timestamps.
func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD or DD.MM.YYYY", s)
}

// parseOptionalDate parses s unless it is nil or empty.
func parseOptionalDate(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := parseDate(*s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// readStatementFiles returns the raw bytes of every uploaded statement. It
// accepts multipart form data with one or more "files" fields, or a JSON
// array of RFC 2397 data URIs.
func readStatementFiles(c *gin.Context) ([][]byte, error) {
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		form, err := c.MultipartForm()
		if err != nil {
			return nil, uploadError(err)
		}
		headers := form.File["files"]
		if len(headers) == 0 {
			return nil, apperrors.WithMessage(apperrors.ErrMissingParameter, "files is required")
		}
		files := make([][]byte, 0, len(headers))
		for _, fh := range headers {
			data, err := readMultipartFile(fh)
			if err != nil {
				return nil, uploadError(err)
			}
			files = append(files, data)
		}
		return files, nil
	}

	var uris []string
	if err := c.ShouldBindJSON(&uris); err != nil {
		return nil, uploadError(err)
	}
	if len(uris) == 0 {
		return nil, apperrors.WithMessage(apperrors.ErrMissingParameter, "at least one statement file is required")
	}
	files := make([][]byte, len(uris))
	for i, uri := range uris {
		data, err := decodeDataURI(uri)
		if err != nil {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, fmt.Sprintf("file %d: %v", i+1, err))
		}
		files[i] = data
	}
	return files, nil
}

func readMultipartFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// uploadError maps body read failures to PAYLOAD_TOO_LARGE when the size
// limit was hit and to INVALID_INPUT otherwise.
func uploadError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) || errors.Is(err, multipart.ErrMessageTooLarge) {
		return apperrors.ErrPayloadTooLarge
	}
	return apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error())
}

// decodeDataURI decodes "data:[<mediatype>][;base64],<data>".
func decodeDataURI(uri string) ([]byte, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return nil, errors.New("not a data URI")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, errors.New("data URI has no payload")
	}
	if strings.HasSuffix(meta, ";base64") {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("invalid base64 payload: %w", err)
		}
		return data, nil
	}
	data, err := url.PathUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("invalid percent-encoded payload: %w", err)
	}
	return []byte(data), nil
}

// respondWithError writes a consistent JSON error response. If the error is an
// *AppError it uses the error's status code, code, and message. Otherwise it
// logs the unexpected error and returns a generic internal server error.
func respondWithError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		if appErr.Internal != nil {
			logger.Get().Errorw("app error",
				"code", appErr.Code,
				"internal", appErr.Internal.Error(),
				"path", c.Request.URL.Path,
			)
		}
		c.JSON(appErr.StatusCode, gin.H{
			"error": gin.H{
				"code":    appErr.Code,
				"message": appErr.Message,
			},
		})
		return
	}

	logger.Get().Errorw("unexpected error",
		"error", err.Error(),
		"path", c.Request.URL.Path,
		"method", c.Request.Method,
	)
	c.JSON(apperrors.ErrInternalServer.StatusCode, gin.H{
		"error": gin.H{
			"code":    apperrors.ErrInternalServer.Code,
			"message": apperrors.ErrInternalServer.Message,
		},
	})
}

// respondWithListing writes a paged listing as its page envelope and an
// unpaged one as a plain array.
func respondWithListing[T any](c *gin.Context, list *services.Listing[T]) {
	if list.Paged != nil {
		c.JSON(http.StatusOK, list.Paged)
		return
	}
	c.JSON(http.StatusOK, list.Items)
}
