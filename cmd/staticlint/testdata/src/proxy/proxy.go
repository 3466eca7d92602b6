package proxy

import (
	"net/http"
	"time"
)

func fetch(url string) (*http.Response, error) {
	return http.Get(url) // want `avoid http.Get: use a configured \*http.Client`
}

func client() *http.Client {
	return http.DefaultClient // want `avoid http.DefaultClient: use a configured \*http.Client`
}

func configured(url string) (*http.Response, error) {
	c := &http.Client{Timeout: time.Second}
	return c.Get(url)
}
