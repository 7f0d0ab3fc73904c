package devstack

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

var objectKey = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// StorageHandler serves the /storage/v1 surface from a local directory.
// Uploaded objects keep their content type in a sidecar file.
type StorageHandler struct {
	dir string
	log *zap.Logger
}

// NewStorageHandler creates a handler rooted at dir.
func NewStorageHandler(dir string, log *zap.Logger) *StorageHandler {
	return &StorageHandler{dir: dir, log: log}
}

// RegisterUploadRoutes registers the authenticated write surface.
func (h *StorageHandler) RegisterUploadRoutes(g *echo.Group) {
	g.POST("/object/:bucket/:key", h.Upload)
}

// RegisterPublicRoutes registers the anonymous read surface.
func (h *StorageHandler) RegisterPublicRoutes(e *echo.Echo) {
	e.GET("/storage/v1/object/public/:bucket/:key", h.Fetch)
}

// Upload stores the request body as the object's content.
func (h *StorageHandler) Upload(c echo.Context) error {
	path, err := h.objectPath(c)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Storage unavailable")
	}

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Unreadable body")
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		h.log.Error("object write failed", zap.String("path", path), zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "Storage unavailable")
	}
	if ctype := c.Request().Header.Get("Content-Type"); ctype != "" {
		_ = os.WriteFile(path+".ctype", []byte(ctype), 0o644)
	}
	return c.JSON(http.StatusOK, map[string]string{
		"Key": c.Param("bucket") + "/" + c.Param("key"),
	})
}

// Fetch serves an object's content back.
func (h *StorageHandler) Fetch(c echo.Context) error {
	path, err := h.objectPath(c)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "No such object")
	}
	ctype := "application/octet-stream"
	if meta, err := os.ReadFile(path + ".ctype"); err == nil {
		ctype = string(meta)
	}
	return c.Blob(http.StatusOK, ctype, data)
}

func (h *StorageHandler) objectPath(c echo.Context) (string, error) {
	bucket, key := c.Param("bucket"), c.Param("key")
	if !objectKey.MatchString(bucket) || !objectKey.MatchString(key) {
		return "", echo.NewHTTPError(http.StatusBadRequest, "Invalid object path")
	}
	return filepath.Join(h.dir, bucket, key), nil
}
