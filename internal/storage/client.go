package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/pkg/util"
)

// ObjectInfo describes one stored object as returned by the list endpoint.
type ObjectInfo struct {
	Key          string    `json:"key"`
	SizeBytes    int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// ObjectStore abstracts the object-storage HTTP API so the gateway can be
// exercised against a fake in tests.
type ObjectStore interface {
	Put(key string, data []byte, mimeType string) error
	Get(key string) ([]byte, error)
	Delete(key string) error
	List(prefix string) ([]ObjectInfo, error)
}

// httpObjectStore talks to the store over plain HTTP: one call per
// operation, bearer-token auth, no retry.
type httpObjectStore struct {
	client   *fasthttp.Client
	endpoint string
	bucket   string
	token    string
	timeout  time.Duration
}

// NewObjectStore builds the fasthttp-backed store client.
func NewObjectStore(cfg config.StorageConfig) ObjectStore {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &httpObjectStore{
		client:   &fasthttp.Client{},
		endpoint: cfg.Endpoint,
		bucket:   cfg.Bucket,
		token:    cfg.Token,
		timeout:  timeout,
	}
}

func (s *httpObjectStore) objectURL(key string) string {
	return fmt.Sprintf("%s/%s/%s", s.endpoint, s.bucket, key)
}

func (s *httpObjectStore) do(req *fasthttp.Request, resp *fasthttp.Response) error {
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	return s.client.DoTimeout(req, resp, s.timeout)
}

func (s *httpObjectStore) Put(key string, data []byte, mimeType string) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(s.objectURL(key))
	req.Header.SetMethod(fasthttp.MethodPut)
	req.Header.SetContentType(mimeType)
	req.SetBody(data)

	if err := s.do(req, resp); err != nil {
		return util.NewExternalServiceError("storage", err)
	}
	if resp.StatusCode() >= 300 {
		return util.NewExternalServiceError("storage",
			fmt.Errorf("upload %s: status %d", key, resp.StatusCode()))
	}
	return nil
}

func (s *httpObjectStore) Get(key string) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(s.objectURL(key))
	req.Header.SetMethod(fasthttp.MethodGet)

	if err := s.do(req, resp); err != nil {
		return nil, util.NewExternalServiceError("storage", err)
	}
	if resp.StatusCode() == fasthttp.StatusNotFound {
		return nil, util.NewNotFound("object", map[string]any{"key": key})
	}
	if resp.StatusCode() >= 300 {
		return nil, util.NewExternalServiceError("storage",
			fmt.Errorf("download %s: status %d", key, resp.StatusCode()))
	}
	body := make([]byte, len(resp.Body()))
	copy(body, resp.Body())
	return body, nil
}

func (s *httpObjectStore) Delete(key string) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(s.objectURL(key))
	req.Header.SetMethod(fasthttp.MethodDelete)

	if err := s.do(req, resp); err != nil {
		return util.NewExternalServiceError("storage", err)
	}
	if resp.StatusCode() >= 300 && resp.StatusCode() != fasthttp.StatusNotFound {
		return util.NewExternalServiceError("storage",
			fmt.Errorf("delete %s: status %d", key, resp.StatusCode()))
	}
	return nil
}

func (s *httpObjectStore) List(prefix string) ([]ObjectInfo, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(fmt.Sprintf("%s/%s?prefix=%s", s.endpoint, s.bucket, prefix))
	req.Header.SetMethod(fasthttp.MethodGet)

	if err := s.do(req, resp); err != nil {
		return nil, util.NewExternalServiceError("storage", err)
	}
	if resp.StatusCode() >= 300 {
		return nil, util.NewExternalServiceError("storage",
			fmt.Errorf("list %s: status %d", prefix, resp.StatusCode()))
	}

	var listing struct {
		Objects []ObjectInfo `json:"objects"`
	}
	if err := json.Unmarshal(resp.Body(), &listing); err != nil {
		return nil, util.NewExternalServiceError("storage", err)
	}
	return listing.Objects, nil
}
