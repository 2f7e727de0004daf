package server

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/capnweb-go/capnweb/internal/rpclog"
)

// MountStatic serves files from fsRoot under urlPath, adapted from the
// teacher's SetupFileEndpoint: same path-traversal guard (resolve to an
// absolute path and require it stay under fsRoot) and the same
// extension-to-content-type fallback table, used to serve the demo
// frontends in examples/ alongside their RPC endpoint.
func MountStatic(e *echo.Echo, urlPath string, fsRoot string) {
	log := rpclog.ForSession("server").Component("static")

	if !strings.HasSuffix(urlPath, "/") {
		urlPath += "/"
	}
	basePath := strings.TrimSuffix(urlPath, "/")

	handler := func(c echo.Context) error {
		filePath := c.Request().URL.Path
		if strings.HasPrefix(filePath, basePath) {
			filePath = filePath[len(basePath):]
		}
		filePath = strings.TrimPrefix(filePath, "/")
		if filePath == "" || strings.HasSuffix(filePath, "/") {
			filePath = path.Join(filePath, "index.html")
		}

		fullPath := filepath.Join(fsRoot, filePath)

		absRoot, err := filepath.Abs(fsRoot)
		if err != nil {
			log.Errorf("resolving root path: %v", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
		}
		absPath, err := filepath.Abs(fullPath)
		if err != nil {
			log.Errorf("resolving file path: %v", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
		}
		if !strings.HasPrefix(absPath, absRoot) {
			log.Warnf("rejected path outside root: %s", absPath)
			return echo.NewHTTPError(http.StatusForbidden, "access denied")
		}

		fileInfo, err := os.Stat(absPath)
		if err != nil {
			if os.IsNotExist(err) {
				return echo.NewHTTPError(http.StatusNotFound, "file not found")
			}
			log.Errorf("stat failed: %v", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
		}
		if !fileInfo.Mode().IsRegular() {
			return echo.NewHTTPError(http.StatusNotFound, "not a file")
		}

		file, err := os.Open(absPath)
		if err != nil {
			log.Errorf("open failed: %v", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to read file")
		}
		defer file.Close()

		c.Response().Header().Set("Content-Type", contentType(filepath.Ext(absPath)))
		c.Response().Header().Set("Content-Length", fmt.Sprintf("%d", fileInfo.Size()))

		_, err = io.Copy(c.Response(), file)
		return err
	}

	e.GET(urlPath+"*", handler)
}

// contentType returns the MIME type for a file extension, falling back to
// a small table of web-asset types the standard mime package sometimes
// lacks depending on the host's installed mime.types.
func contentType(ext string) string {
	if mimeType := mime.TypeByExtension(ext); mimeType != "" {
		return mimeType
	}
	switch strings.ToLower(ext) {
	case ".html", ".htm":
		return "text/html; charset=utf-8"
	case ".css":
		return "text/css; charset=utf-8"
	case ".js", ".mjs":
		return "text/javascript; charset=utf-8"
	case ".json":
		return "application/json; charset=utf-8"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".svg":
		return "image/svg+xml"
	case ".txt":
		return "text/plain; charset=utf-8"
	case ".ico":
		return "image/x-icon"
	case ".woff":
		return "font/woff"
	case ".woff2":
		return "font/woff2"
	case ".ttf":
		return "font/ttf"
	case ".eot":
		return "application/vnd.ms-fontobject"
	default:
		return "application/octet-stream"
	}
}
