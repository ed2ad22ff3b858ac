package handlers

import (
	"errors"
	"io/fs"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const defaultContentType = "application/octet-stream"

// StaticHandler serves files from a directory for paths no route claims.
type StaticHandler struct {
	root string
	log  *zap.Logger
}

// NewStaticHandler serves files under root.
func NewStaticHandler(root string, log *zap.Logger) *StaticHandler {
	return &StaticHandler{root: root, log: log}
}

// Serve streams the file named by the request path. "/" maps to
// /index.html. A missing file is a plain 404, any other failure a plain 500.
func (h *StaticHandler) Serve(c *gin.Context) {
	name := h.resolve(c.Request.URL.Path)

	f, err := os.Open(name)
	if err != nil {
		h.fail(c, name, err)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		h.fail(c, name, err)
		return
	}
	if info.IsDir() {
		h.fail(c, name, errors.New("is a directory"))
		return
	}

	c.DataFromReader(http.StatusOK, info.Size(), ContentType(name), f, nil)
}

// resolve maps a URL path to a file under the root. Cleaning against "/"
// keeps ".." segments from leaving the root.
func (h *StaticHandler) resolve(urlPath string) string {
	if urlPath == "/" {
		urlPath = "/index.html"
	}
	return filepath.Join(h.root, filepath.FromSlash(path.Clean("/"+urlPath)))
}

func (h *StaticHandler) fail(c *gin.Context, name string, err error) {
	if errors.Is(err, fs.ErrNotExist) {
		c.String(http.StatusNotFound, http.StatusText(http.StatusNotFound))
		return
	}
	h.log.Error("Static file read failed", zap.String("file", name), zap.Error(err))
	c.String(http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
}

// ContentType guesses a file's media type from its extension.
func ContentType(name string) string {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return defaultContentType
}
