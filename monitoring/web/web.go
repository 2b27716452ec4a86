// Package web holds the page of the frameticker monitor. The page polls the
// monitor API for the ticker status and progress bars, and posts pause,
// continue and on-demand switches back.
package web

import (
	"embed"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

//go:embed dist/*
var staticAssets embed.FS

// DevModeEnv selects where the page is served from. "true" or "1" serves
// web/dist from the source tree, any other non-empty value that names a
// directory serves that directory, and anything else serves the embedded
// copy.
const DevModeEnv = "FRAMETICKER_MONITOR_DEV"

// GetAssets returns the files of the monitor page.
func GetAssets() http.FileSystem {
	if dir, ok := devDir(); ok {
		return http.Dir(dir)
	}

	subFS, err := fs.Sub(staticAssets, "dist")
	if err != nil {
		panic(err)
	}

	return http.FS(subFS)
}

// Handler serves the monitor page. The page is never cached, so a browser
// left open picks up a rebuilt frameticker.
func Handler() http.Handler {
	files := http.FileServer(GetAssets())

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache")
		files.ServeHTTP(w, r)
	})
}

func devDir() (string, bool) {
	value := strings.TrimSpace(os.Getenv(DevModeEnv))

	switch strings.ToLower(value) {
	case "", "0", "false":
		return "", false
	case "1", "true":
		_, file, _, ok := runtime.Caller(0)
		if !ok {
			return "", false
		}

		return filepath.Join(filepath.Dir(file), "dist"), true
	}

	if info, err := os.Stat(value); err == nil && info.IsDir() {
		return value, true
	}

	return "", false
}
