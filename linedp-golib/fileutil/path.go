package fileutil

import (
	"log"
	"net/url"
	"path"
)

// Join is a url.URL scheme-safe join method. This allows for joining of local
// files as well as URI's.
func Join(parts ...string) string {
	if len(parts) == 0 {
		return ""
	}

	u, err := url.Parse(parts[0])
	if err != nil {
		log.Fatal(err)
	}

	joined := append([]string{u.Path}, parts[1:]...)
	u.Path = path.Join(joined...)
	return u.String()
}
