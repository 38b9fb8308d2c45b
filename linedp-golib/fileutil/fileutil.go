package fileutil

import (
	"io"
	"io/ioutil"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/linedp/linedp/linedp-golib/awsutil"
	"github.com/pkg/errors"
)

func newReader(path string, s3ReaderMaker func(uri string) (io.ReadCloser, error)) (io.ReadCloser, error) {
	if strings.HasPrefix(path, "s3://") {
		return s3ReaderMaker(path)
	}

	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		resp, err := http.Get(path)
		if err != nil {
			return nil, errors.Wrapf(err, "error getting %s", path)
		}
		if resp.StatusCode != http.StatusOK {
			defer resp.Body.Close()
			io.Copy(ioutil.Discard, resp.Body)
			return nil, errors.Errorf("error getting %s: status code %d", path, resp.StatusCode)
		}
		return resp.Body, nil
	}

	return os.Open(path)
}

// NewReader opens a local or remote path for reading. If the path looks like
// "s3://bucket/path/to/object" then this will read an object from S3. Otherwise, this
// will read a path from the local filesystem.
func NewReader(path string) (io.ReadCloser, error) {
	return newReader(path, awsutil.NewS3Reader)
}

// NewCachedReader opens a local or remote path for reading. If the path looks like
// "s3://bucket/path/to/object" then this will read an object from S3. Otherwise, this
// will read a path from the local filesystem. Caching only applies to S3 paths.
func NewCachedReader(path string) (io.ReadCloser, error) {
	return newReader(path, awsutil.NewCachedS3Reader)
}

// DownloadedFile returns the path of a file downloaded to disk. If the input path is
// local, this will return that file path (after checking the path exists). Otherwise,
// if the path looks like an S3 path it will attempt to download that object and return
// the local path on disk. Repeated calls will return the same local path.
func DownloadedFile(path string) (string, error) {
	reader, readErr := NewCachedReader(path)
	if readErr != nil {
		return "", readErr
	}

	_, copyErr := io.Copy(ioutil.Discard, reader)
	if copyErr != nil {
		return "", copyErr
	}

	closeErr := reader.Close()
	if closeErr != nil {
		return "", closeErr
	}

	s3url, parseErr := awsutil.ValidateURI(path)
	if parseErr != nil {
		return path, nil
	}
	return awsutil.CachePath(s3url), nil
}

// NamedWriteCloser is a file-like object extending io.WriteCloser with a string Name() similar to os.File.Name()
type NamedWriteCloser interface {
	io.WriteCloser
	Name() string
}

// NewBufferedWriter opens a local or remote path for writing. If the path starts with
// "s3://", then this will write to a local buffer, copying to s3 on close. Otherwise,
// this will write to the local FS.
func NewBufferedWriter(path string) (NamedWriteCloser, error) {
	if awsutil.IsS3URI(path) {
		return awsutil.NewBufferedS3Writer(path)
	}
	err := os.MkdirAll(filepath.Dir(path), 0755)
	if err != nil {
		return nil, err
	}
	return os.Create(path)
}

