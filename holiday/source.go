package holiday

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	json "github.com/goccy/go-json"
)

var (
	// ErrSource wraps every transport or decode failure of a holiday source.
	ErrSource = errors.New("holiday source failed")

	// ErrNoSource is returned when an index has nothing to load from.
	ErrNoSource = errors.New("no holiday source configured")
)

// InvalidRecordError reports a holiday record without a usable date.
type InvalidRecordError struct {
	Name string
}

func (e *InvalidRecordError) Error() string {
	return fmt.Sprintf("holiday %q has no valid date", e.Name)
}

func (e *InvalidRecordError) Unwrap() error { return ErrSource }

// Decode parses a holiday document: a JSON array of {"date", "name"}
// records. Any malformed record fails the whole document.
func Decode(r io.Reader) ([]Holiday, error) {
	var list []Holiday
	if err := json.NewDecoder(r).Decode(&list); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrSource, err)
	}
	return list, nil
}

// =============================================================================
// FILE SOURCE
// =============================================================================

// FileSource reads a holiday document from disk.
type FileSource struct {
	Path string
}

func (s FileSource) Fetch(_ context.Context) ([]Holiday, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSource, err)
	}
	defer f.Close()
	return Decode(f)
}

// =============================================================================
// HTTP SOURCE
// =============================================================================

// HTTPSource fetches a holiday document with a GET request.
type HTTPSource struct {
	URL    string
	Client *http.Client
}

func (s HTTPSource) Fetch(ctx context.Context) ([]Holiday, error) {
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSource, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSource, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: unexpected status %d", ErrSource, resp.StatusCode)
	}
	return Decode(resp.Body)
}

// SourceFor picks a source from a location string: http(s) URLs become an
// HTTPSource, anything else a FileSource.
func SourceFor(location string, client *http.Client) Source {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return HTTPSource{URL: location, Client: client}
	}
	return FileSource{Path: location}
}
