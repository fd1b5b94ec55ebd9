package registry

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/matzehuels/gpack/pkg/errors"
)

// TarballURL returns the download URL for name at a concrete version. A
// scope is kept in the path segment and stripped from the file name:
//
//	TarballURL(base, "@types/node", "20.1.0") == base + "/@types/node/-/node-20.1.0.tgz"
func TarballURL(base, name, version string) string {
	file := name
	if strings.HasPrefix(name, "@") {
		if i := strings.Index(name, "/"); i >= 0 {
			file = name[i+1:]
		}
	}
	return strings.TrimSuffix(base, "/") + "/" + name + "/-/" + file + "-" + version + ".tgz"
}

// FetchTarball opens the tarball for name at version. The caller must
// close the returned body. size is the Content-Length, or -1 if unknown.
func (c *Client) FetchTarball(ctx context.Context, name, version string) (body io.ReadCloser, size int64, err error) {
	url := TarballURL(c.baseURL, name, version)
	c.logger.Debug("fetching tarball", "url", url)

	resp, err := c.doRequest(ctx, url)
	if err != nil {
		return nil, 0, unwrapRetryable(err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, 0, errors.New(errors.ErrCodeNetwork,
			"failed to download package: %s@%s - HTTP status code: %d", name, version, resp.StatusCode)
	}
	return resp.Body, resp.ContentLength, nil
}
