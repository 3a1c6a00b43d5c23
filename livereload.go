package devserve

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/matthewmueller/httpbuf"
)

// DefaultPath is the polling endpoint the injected script asks for changes
const DefaultPath = "/__livereload"

// DefaultMaxInjectSize bounds how large an HTML body can be before we stop
// injecting the livereload script into it. It limits the rewrite, not memory:
// every downstream response is still buffered in full before the check.
const DefaultMaxInjectSize = 10 << 20

// New livereloader that reports changes to the files in fsys
func New(log *slog.Logger, fsys fs.FS) *Reloader {
	return &Reloader{
		Path:          DefaultPath,
		Watch:         DefaultWatchSet(),
		MaxInjectSize: DefaultMaxInjectSize,
		log:           log,
		fsys:          fsys,
	}
}

type Reloader struct {
	Path          string
	Watch         WatchSet
	MaxInjectSize int
	log           *slog.Logger
	fsys          fs.FS
}

var _ http.Handler = (*Reloader)(nil)

// Poll is the response body of the polling endpoint
type Poll struct {
	MTime float64 `json:"mtime"`
}

// ServeHTTP serves the polling endpoint. Every request walks the watched
// files again, nothing is cached between polls.
func (r *Reloader) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	mtime := Seconds(LatestModTime(r.fsys, r.Watch))
	body, err := json.Marshal(&Poll{MTime: mtime})
	if err != nil {
		r.log.Error("livereload: unable to encode poll", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	r.log.Debug("livereload: polled", "mtime", mtime)
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// Middleware serves the polling endpoint and rewrites HTML responses from next
// to include the livereload script. Everything else passes through as-is.
func (r *Reloader) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path == r.Path && req.Method == http.MethodGet {
			r.ServeHTTP(w, req)
			return
		}
		// Wrap the response writer to capture the response body
		rw := httpbuf.Wrap(w)
		defer rw.Flush()
		next.ServeHTTP(rw, req)
		// net/http would sniff this on write, but we need it before then
		if rw.Header().Get("Content-Type") == "" && len(rw.Body) > 0 {
			rw.Header().Set("Content-Type", http.DetectContentType(rw.Body))
		}
		if !r.shouldRewrite(req, rw.Header()) {
			return
		}
		if len(rw.Body) > r.MaxInjectSize {
			r.log.Warn("livereload: html too large to inject", "path", req.URL.Path, "size", len(rw.Body), "max", r.MaxInjectSize)
			return
		}
		// Inject the live reload script
		body := rewrite(rw.Body, r.Path)
		rw.Body = body
		rw.Header().Set("Content-Length", strconv.Itoa(len(body)))
		// Don't cache re-written responses
		rw.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		rw.Header().Set("Last-Modified", "0")
	})
}

func (r *Reloader) shouldRewrite(req *http.Request, header http.Header) bool {
	if req.Method == http.MethodHead {
		return false
	}
	// Splicing into a partial body would corrupt it
	if header.Get("Content-Range") != "" {
		return false
	}
	return strings.Contains(header.Get("Content-Type"), "text/html")
}

// Client-side livereload script that we inject before </body>
const liveScript = `
<script type="text/javascript">
(function() {
	let last = 0
	const poll = setInterval(function() {
		fetch(%[1]q, { cache: "no-store" })
			.then(function(res) { return res.json() })
			.then(function(data) {
				const mtime = Number(data.mtime) || 0
				if (last && mtime > last) {
					console.debug("livereload: change detected, reloading")
					clearInterval(poll)
					location.reload()
					return
				}
				last = mtime
			})
			.catch(function() {})
	}, 500)
})()
</script>
`

// rewrite inserts the script before the first </body> or appends it when
// there isn't one
func rewrite(data []byte, url string) []byte {
	script := []byte(fmt.Sprintf(liveScript, url))
	index := bytes.Index(data, []byte("</body>"))
	if index < 0 {
		index = len(data)
	}
	out := make([]byte, 0, len(data)+len(script))
	out = append(out, data[:index]...)
	out = append(out, script...)
	out = append(out, data[index:]...)
	return out
}
