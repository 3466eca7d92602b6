package apptrove

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
)

// recordedCall - запрос, который увидел mockDoer
type recordedCall struct {
	Method  string
	URL     string
	Headers http.Header
	Body    string
}

// mockDoer записывает все запросы и отвечает через respond
type mockDoer struct {
	mu      sync.Mutex
	calls   []recordedCall
	respond func(req *http.Request) (*http.Response, error)
}

func (m *mockDoer) Do(req *http.Request) (*http.Response, error) {
	var body string
	if req.Body != nil {
		data, _ := io.ReadAll(req.Body)
		body = string(data)
	}

	m.mu.Lock()
	m.calls = append(m.calls, recordedCall{
		Method:  req.Method,
		URL:     req.URL.String(),
		Headers: req.Header.Clone(),
		Body:    body,
	})
	m.mu.Unlock()

	if m.respond == nil {
		return nil, errors.New("no responder configured")
	}
	return m.respond(req)
}

func (m *mockDoer) callsTo(url string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c.URL == url {
			n++
		}
	}
	return n
}

func response(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     make(http.Header),
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}
