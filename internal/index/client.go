package index

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"ctph/internal/fuzzy"
)

// Client implements the Index interface by forwarding requests to a remote
// index server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Assert that Client implements the Index interface
var _ Index = (*Client)(nil)

// NewClient creates a new HTTP index client.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// statusError converts a failed response into the matching sentinel error.
func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	msg := strings.TrimSpace(string(body))
	switch resp.StatusCode {
	case http.StatusBadRequest:
		return fmt.Errorf("%w: %s", fuzzy.ErrMalformedSignature, msg)
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusRequestEntityTooLarge:
		return fmt.Errorf("%w: %s", fuzzy.ErrInvalidInput, msg)
	}
	return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
}

func (c *Client) do(method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequest(method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode/100 != 2 {
		defer resp.Body.Close()
		return nil, statusError(resp)
	}
	return resp, nil
}

func readText(resp *http.Response) (string, error) {
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// ID returns the identity of the remote index.
func (c *Client) ID() (string, error) {
	resp, err := c.do(http.MethodGet, "/id", nil)
	if err != nil {
		return "", err
	}
	return readText(resp)
}

// Hash uploads r to be hashed by the server.
func (c *Client) Hash(r io.Reader, label string) (fuzzy.Signature, error) {
	resp, err := c.do(http.MethodPost, "/hash?label="+url.QueryEscape(label), r)
	if err != nil {
		return fuzzy.Signature{}, err
	}
	text, err := readText(resp)
	if err != nil {
		return fuzzy.Signature{}, err
	}
	return fuzzy.Parse(text)
}

// Compare asks the server to score two signatures.
func (c *Client) Compare(a, b string) (int, error) {
	body, err := json.Marshal(CompareRequest{A: a, B: b})
	if err != nil {
		return 0, err
	}
	resp, err := c.do(http.MethodPost, "/compare", bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	var res CompareResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return 0, err
	}
	return res.Score, nil
}

func (c *Client) Add(sig fuzzy.Signature) (string, error) {
	resp, err := c.do(http.MethodPost, "/signatures", strings.NewReader(sig.String()))
	if err != nil {
		return "", err
	}
	return readText(resp)
}

func (c *Client) Get(id string) (fuzzy.Signature, bool) {
	resp, err := c.do(http.MethodGet, "/signatures/"+id, nil)
	if err != nil {
		return fuzzy.Signature{}, false
	}
	text, err := readText(resp)
	if err != nil {
		return fuzzy.Signature{}, false
	}
	sig, err := fuzzy.Parse(text)
	return sig, err == nil
}

func (c *Client) Remove(id string) error {
	resp, err := c.do(http.MethodDelete, "/signatures/"+id, nil)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func (c *Client) Match(sig fuzzy.Signature, threshold int) ([]Match, error) {
	path := "/match?threshold=" + strconv.Itoa(threshold)
	resp, err := c.do(http.MethodPost, path, strings.NewReader(sig.String()))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var matches []Match
	if err := json.NewDecoder(resp.Body).Decode(&matches); err != nil {
		return nil, err
	}
	return matches, nil
}

// Len reports the number of signatures on the server, or 0 when it cannot
// be reached.
func (c *Client) Len() int {
	resp, err := c.do(http.MethodGet, "/stats", nil)
	if err != nil {
		return 0
	}
	defer resp.Body.Close()

	var stats Stats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return 0
	}
	return stats.Signatures
}

// Export fetches every signature on the server in ssdeep's known hashes
// format.
func (c *Client) Export() ([]fuzzy.Signature, error) {
	resp, err := c.do(http.MethodGet, "/signatures", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return fuzzy.ReadKnown(resp.Body)
}
