package httpapi

import (
	"fmt"
	"html"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/gorilla/mux"
)

// handleServe serves a single file or directory listing under a store
// path, rejecting any resolved path that escapes the real store root via a
// symlink.
func (s *Server) handleServe(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	hash := vars["hash"]
	dir := strings.TrimPrefix(vars["path"], "/")

	storePath, err := s.Store.Daemon.QueryPathFromHashPart(r.Context(), hash)
	if err != nil {
		s.serverError(w, r, err)

		return
	}

	if storePath == "" {
		notFound(w, "missed hash")

		return
	}

	realStorePath := s.Store.RealPath(storePath)

	fullPath := realStorePath
	if dir != "" {
		fullPath = filepath.Join(realStorePath, dir)
	}

	resolved, err := filepath.EvalSymlinks(fullPath)
	if err != nil {
		setCacheControlNoStore(w)
		w.WriteHeader(http.StatusNotFound)

		return
	}

	realRoot, err := filepath.EvalSymlinks(s.Store.RealStore())
	if err != nil {
		s.serverError(w, r, err)

		return
	}

	if resolved != realRoot && !strings.HasPrefix(resolved, realRoot+string(filepath.Separator)) {
		w.WriteHeader(http.StatusNotFound)

		return
	}

	info, err := os.Stat(resolved)
	if err != nil {
		w.WriteHeader(http.StatusNotFound)

		return
	}

	if info.IsDir() {
		indexFile := filepath.Join(resolved, "index.html")
		if st, err := os.Stat(indexFile); err == nil && st.Mode().IsRegular() {
			http.ServeFile(w, r, indexFile)

			return
		}

		s.renderDirectoryListing(w, resolved, "/serve/"+hash+"/"+dir)

		return
	}

	http.ServeFile(w, r, resolved)
}

func (s *Server) renderDirectoryListing(w http.ResponseWriter, dir, urlPrefix string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		s.Logger.WithError(err).WithField("dir", dir).Error("read directory for listing")
		setCacheControlNoStore(w)
		w.WriteHeader(http.StatusInternalServerError)

		return
	}

	var rows strings.Builder

	for _, e := range entries {
		name := e.Name()
		href := strings.TrimSuffix(urlPrefix, "/") + "/" + url.PathEscape(name)

		if e.IsDir() {
			fmt.Fprintf(&rows, "<tr><td><a href=\"%s/\">%s/</a></td><td>-</td></tr>\n", href, html.EscapeString(name))

			continue
		}

		size := "?"
		if info, err := e.Info(); err == nil {
			size = humanSize(uint64(info.Size()))
		}

		fmt.Fprintf(&rows, "<tr><td><a href=\"%s\">%s</a></td><td>%s</td></tr>\n", href, html.EscapeString(name), size)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, `<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>Index of %s</title></head>
<body>
<h1>Index of %s</h1>
<table>
<thead><tr><th>Name</th><th>Size</th></tr></thead>
<tbody>
%s
</tbody>
</table>
</body>
</html>
`, html.EscapeString(urlPrefix), html.EscapeString(urlPrefix), rows.String())
}

func humanSize(n uint64) string {
	const unit = 1024

	if n < unit {
		return fmt.Sprintf("%d B", n)
	}

	div, exp := uint64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}

	return fmt.Sprintf("%.2f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
