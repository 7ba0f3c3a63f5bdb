package restyutil

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-resty/resty/v2"
)

// DirDump writes each exchange to its own file in a directory. The
// directory is cleared on creation so a dump only ever holds the latest
// run.
type DirDump struct {
	directory string
}

func NewDirDump(dir string) (DirDump, error) {
	os.RemoveAll(dir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return DirDump{}, err
	}
	return DirDump{directory: dir}, nil
}

func (d DirDump) Write(id string, contents string) {
	err := os.WriteFile(filepath.Join(d.directory, id+".txt"), []byte(contents), 0o600)
	if err != nil {
		slog.Warn("failed to write exchange dump", "id", id, "err", err)
	}
}

func formatHeaders(headers http.Header) string {
	var out strings.Builder
	for k, vals := range headers {
		for _, v := range vals {
			fmt.Fprintf(&out, "%s: %s\n", k, v)
		}
	}
	return strings.TrimRight(out.String(), "\n")
}

func formatExchange(res *resty.Response) string {
	responseURL := res.Request.URL
	if redirected, err := res.RawResponse.Location(); err == nil {
		responseURL = redirected.String()
	}

	var out strings.Builder
	fmt.Fprintf(&out, "---- REQUEST ----\n\n%s %s\n\n", res.Request.Method, res.Request.URL)
	if res.Request.RawRequest != nil {
		fmt.Fprintf(&out, "%s\n\n", formatHeaders(res.Request.RawRequest.Header))
	}
	fmt.Fprintf(&out, "---- RESPONSE ----\n\n%d %s\n\n%s\n\n%s",
		res.StatusCode(), responseURL, formatHeaders(res.Header()), res.String())
	return out.String()
}
