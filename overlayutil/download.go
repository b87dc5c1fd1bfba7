/*
Copyright © 2024 the InMAP authors.
This file is part of overlay.

overlay is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

overlay is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with overlay.  If not, see <http://www.gnu.org/licenses/>.
*/

package overlayutil

import (
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/cenkalti/backoff/v4"
	"gocloud.dev/blob"
	"gocloud.dev/blob/fileblob"
	"gocloud.dev/blob/gcsblob"
	"gocloud.dev/blob/s3blob"
	"gocloud.dev/gcp"
)

// httpRetries is the number of times a failed download is retried.
const httpRetries = 3

// IsRemote returns whether the given filename refers to a file that must be
// downloaded before it is read: an http or https URL, or a blob
// (one that starts with `gs://`, `s3://`, or `file://`).
func IsRemote(filename string) bool {
	return isHTTP(filename) || IsBlob(filename)
}

func isHTTP(filename string) bool {
	return strings.HasPrefix(filename, "http://") || strings.HasPrefix(filename, "https://")
}

// IsBlob returns whether the given filename represents a blob.
func IsBlob(filename string) bool {
	return strings.HasPrefix(filename, "gs://") || strings.HasPrefix(filename, "s3://") || strings.HasPrefix(filename, "file://")
}

// fetch downloads a remote input file and its shapefile sidecars into a
// temporary directory and returns the local path of the file. Local paths
// are returned unchanged. The returned function removes any downloaded
// files.
func fetch(ctx context.Context, filename string) (string, func(), error) {
	if !IsRemote(filename) {
		return filename, func() {}, nil
	}
	dir, err := ioutil.TempDir("", "overlay")
	if err != nil {
		return "", nil, fmt.Errorf("overlayutil: failed creating temporary download directory: %v", err)
	}
	cleanup := func() { os.RemoveAll(dir) }

	var open func(ctx context.Context, name string) (io.ReadCloser, error)
	var names []string
	if isHTTP(filename) {
		open = openHTTP
		names = expandShp(filename)
	} else {
		bucket, key, err := openBlob(ctx, filename)
		if err != nil {
			cleanup()
			return "", nil, err
		}
		defer bucket.Close()
		open = func(ctx context.Context, name string) (io.ReadCloser, error) {
			return bucket.NewReader(ctx, name, nil)
		}
		names = expandShp(key)
	}

	for i, name := range names {
		r, err := open(ctx, name)
		if err != nil {
			if i > 0 && strings.HasSuffix(name, ".prj") {
				// The projection file is optional.
				continue
			}
			cleanup()
			return "", nil, fmt.Errorf("overlayutil: downloading %s: %v", name, err)
		}
		err = copyTo(filepath.Join(dir, path.Base(name)), r)
		r.Close()
		if err != nil {
			cleanup()
			return "", nil, fmt.Errorf("overlayutil: downloading %s: %v", name, err)
		}
	}
	return filepath.Join(dir, path.Base(names[0])), cleanup, nil
}

func copyTo(filename string, r io.Reader) error {
	w, err := os.Create(filename)
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

// openHTTP requests u, retrying network failures and server errors with
// exponential backoff.
func openHTTP(ctx context.Context, u string) (io.ReadCloser, error) {
	req, err := http.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	var body io.ReadCloser
	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), httpRetries), ctx)
	err = backoff.Retry(func() error {
		resp, err := http.DefaultClient.Do(req.WithContext(ctx))
		if err != nil {
			return err
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			err := fmt.Errorf("server returned %s", resp.Status)
			if resp.StatusCode < 500 {
				return backoff.Permanent(err)
			}
			return err
		}
		body = resp.Body
		return nil
	}, b)
	if err != nil {
		return nil, err
	}
	return body, nil
}

// expandShp returns filename along with the names of the files that
// accompany it if it is a shapefile.
func expandShp(filename string) []string {
	o := []string{filename}
	if !strings.EqualFold(path.Ext(filename), ".shp") {
		return o
	}
	for _, newExt := range []string{".dbf", ".shx", ".prj"} {
		o = append(o, filename[0:len(filename)-4]+newExt)
	}
	return o
}

// openBlob opens the bucket holding the blob named by filename and returns
// it along with the key of the blob within the bucket. For the "file"
// provider the bucket is the directory containing the file; for "gs" and
// "s3" it is the URL host.
func openBlob(ctx context.Context, filename string) (*blob.Bucket, string, error) {
	u, err := url.Parse(filename)
	if err != nil {
		return nil, "", fmt.Errorf("overlayutil: %v", err)
	}
	var b *blob.Bucket
	key := strings.TrimPrefix(u.Path, "/")
	switch u.Scheme {
	case "file":
		p := filepath.Join(u.Host, filepath.FromSlash(u.Path))
		b, err = fileblob.OpenBucket(filepath.Dir(p), nil)
		key = filepath.Base(p)
	case "gs":
		b, err = gsBucket(ctx, u.Host)
	case "s3":
		b, err = s3Bucket(ctx, u.Host)
	default:
		return nil, "", fmt.Errorf("overlayutil: invalid blob provider %s", u.Scheme)
	}
	if err != nil {
		return nil, "", fmt.Errorf("overlayutil: opening bucket for %s: %v", filename, err)
	}
	return b, key, nil
}

func gsBucket(ctx context.Context, name string) (*blob.Bucket, error) {
	// See here for information on credentials:
	// https://cloud.google.com/docs/authentication/getting-started
	creds, err := gcp.DefaultCredentials(ctx)
	if err != nil {
		return nil, err
	}
	c, err := gcp.NewHTTPClient(gcp.DefaultTransport(), gcp.CredentialsTokenSource(creds))
	if err != nil {
		return nil, err
	}
	return gcsblob.OpenBucket(ctx, c, name, nil)
}

// s3Bucket opens an s3 storage bucket. It assumes the following
// environment variables are set: AWS_REGION, AWS_ACCESS_KEY_ID, and
// AWS_SECRET_ACCESS_KEY.
func s3Bucket(ctx context.Context, name string) (*blob.Bucket, error) {
	region := os.Getenv("AWS_REGION")
	if region == "" {
		region = "us-east-2"
	}
	c := &aws.Config{
		Region:      aws.String(region),
		Credentials: credentials.NewEnvCredentials(),
	}
	s, err := session.NewSession(c)
	if err != nil {
		return nil, err
	}
	return s3blob.OpenBucket(ctx, s, name, nil)
}
