package names

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"ringchat/internal/domain"
)

// HTTPService is a NameService backed by a lookup gateway exposing
// GET {base}/reverse/{address} -> {"name"} and GET {base}/resolve/{name} -> {"address"}.
type HTTPService struct {
	Base string
	HTTP *http.Client
}

// NewHTTPService returns a gateway client for base.
func NewHTTPService(base string) *HTTPService {
	return &HTTPService{Base: strings.TrimRight(base, "/"), HTTP: http.DefaultClient}
}

// LookupAddress returns the primary name recorded for address.
func (s *HTTPService) LookupAddress(ctx context.Context, address domain.Address) (string, error) {
	var out struct {
		Name string `json:"name"`
	}
	if err := s.getJSON(ctx, "/reverse/"+url.PathEscape(address.String()), &out); err != nil {
		return "", err
	}
	return out.Name, nil
}

// ResolveName returns the address name points to.
func (s *HTTPService) ResolveName(ctx context.Context, name string) (domain.Address, error) {
	var out struct {
		Address string `json:"address"`
	}
	if err := s.getJSON(ctx, "/resolve/"+url.PathEscape(name), &out); err != nil {
		return "", err
	}
	return domain.NormalizeAddress(out.Address), nil
}

func (s *HTTPService) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.Base+path, nil)
	if err != nil {
		return err
	}
	resp, err := s.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("names get %s: %s", path, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

var _ domain.NameService = (*HTTPService)(nil)
