package awsutil

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"io/ioutil"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go/service/s3"
)

const checksumExtension = ".s3cache-checksum"

// Wraps an io.ReadCloser and copies all data received to a temporary file. If
// the entire stream is consumed without error then the output file is
// moved to a specified destination path. If any errors are encountered or the
// file is closed before reading EOF then the temporary file is instead
// destroyed.
type lateCopyReader struct {
	path     string
	temp     *os.File
	tee      io.Reader
	hash     hash.Hash
	orig     io.Closer
	checksum []byte
}

func newLateCopyReader(r io.ReadCloser, copyto, tmpDir string, checksum []byte) (*lateCopyReader, error) {
	f, err := ioutil.TempFile(tmpDir, "")
	if err != nil {
		return nil, fmt.Errorf("unable to create temporary file: %v", err)
	}
	h := md5.New()
	cpr := &lateCopyReader{
		temp:     f,
		path:     copyto,
		tee:      io.TeeReader(io.TeeReader(r, h), f),
		hash:     h,
		orig:     r,
		checksum: checksum,
	}
	return cpr, nil
}

func (r *lateCopyReader) Read(p []byte) (int, error) {
	// Note that despite the documentation, it _is_ possible to get n > 0 and err == EOF
	n, err := r.tee.Read(p)
	if err != nil {
		if err == io.EOF {
			cacheErr := r.commitToCache()
			if cacheErr != nil {
				log.Println(cacheErr)
			}
		} else {
			r.cancel()
		}
	}
	return n, err
}

func (r *lateCopyReader) Close() error {
	r.cancel()
	return r.orig.Close()
}

func (r *lateCopyReader) commitToCache() error {
	// Only move the file to its final destination if (1) there have been no
	// errors and (2) EOF has been received.
	if r.temp != nil {
		path := r.temp.Name()

		err := r.temp.Close()
		if err != nil {
			return fmt.Errorf("error closing temporary file: %v", err)
		}

		dir := filepath.Dir(r.path)
		err = os.MkdirAll(dir, 0777)
		if err != nil {
			return fmt.Errorf("error creating dir within cache: %v", err)
		}
		err = os.Rename(path, r.path)
		if err != nil {
			return fmt.Errorf("error moving temp file into cache: %v", err)
		}

		if r.checksum != nil {
			err = storeChecksumFor(r.path, hexEncode(r.hash.Sum(nil)), r.checksum)
			if err != nil {
				return err
			}
		}

		// Make sure not to do this twice
		r.temp = nil
	}

	return nil
}

func (r *lateCopyReader) cancel() {
	if r.temp != nil {
		path := r.temp.Name()

		err := r.temp.Close()
		if err != nil {
			log.Println("error closing temporary file:", err)
		}

		err = os.Remove(path)
		if err != nil {
			log.Printf("error deleting %s: %v\n", path, err)
		}

		// Make sure not to do this twice
		r.temp = nil
	}
}

// Given the expected checksum for an S3 object and the local cache path for
// that object, determine whether the local cache exists and is up to date,
// and, if so, open the file.
func tryCache(checksum []byte, cachepath string) (io.ReadCloser, error) {
	// if checksum is nil then do not check the hash
	if checksum != nil {
		local, err := checksumLocal(cachepath)
		if err != nil {
			return nil, fmt.Errorf("failed to compute local checksum: %v", err)
		}

		if !bytes.Equal(local, checksum) {
			return nil, errors.New("file exists in cache but is out of date")
		}
	}

	return os.Open(cachepath)
}

func hexEncode(buf []byte) []byte {
	dst := make([]byte, hex.EncodedLen(len(buf)))
	hex.Encode(dst, buf)
	return dst
}

// Compute a checksum of the contents of a local file. If a checksum file is
// present beside it, verify the file hash against it and return the recorded
// etag instead, so the result is comparable to the remote object's etag.
func checksumLocal(path string) ([]byte, error) {
	h := md5.New()
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	_, err = io.Copy(h, f)
	if err != nil {
		return nil, fmt.Errorf("error copying contents of %s into hash: %v", path, err)
	}
	checksum := hexEncode(h.Sum(nil))

	checksumPath := path + checksumExtension
	buf, err := ioutil.ReadFile(checksumPath)
	if os.IsNotExist(err) {
		return checksum, nil
	} else if err != nil {
		return nil, err
	}
	lines := bytes.Split(buf, []byte("\n"))
	if len(lines) != 2 {
		return nil, fmt.Errorf("expected %s to contain two lines but found %d lines", checksumPath, len(lines))
	}
	local, etag := lines[0], lines[1]
	if !bytes.Equal(local, checksum) {
		return nil, fmt.Errorf("first line of %s was %s but file checksum was %s", checksumPath, string(checksum), string(local))
	}
	return etag, nil
}

// Store a checksum with a corresponding etag
func storeChecksumFor(path string, local []byte, etag []byte) error {
	checksumPath := path + checksumExtension
	contents := bytes.Join([][]byte{local, etag}, []byte("\n"))
	err := ioutil.WriteFile(checksumPath, contents, 0777)
	if err != nil {
		return fmt.Errorf("error writing checksum to %s: %v", checksumPath, err)
	}
	return nil
}

func checksumS3URL(s3url *url.URL) ([]byte, error) {
	region, err := objectRegion(s3url)
	if err != nil {
		return nil, fmt.Errorf("unable to determine region: %s", err)
	}

	client, err := NewS3(region)
	if err != nil {
		return nil, err
	}

	key := strings.TrimPrefix(s3url.Path, "/")
	head, err := client.HeadObject(&s3.HeadObjectInput{
		Bucket: &s3url.Host,
		Key:    &key,
	})
	if err != nil {
		return nil, err
	}

	return bytes.Trim([]byte(*head.ETag), "\""), nil
}
