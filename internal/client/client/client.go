// Package client is a thin SDK over the secdrive JSON API. Every method maps
// onto one route; errors from the server come back as *APIError.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/secdrive/internal/common"
)

type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

// New returns a Client for baseURL. token may be empty when the server does
// not bind identity.
func New(baseURL, token string, c *http.Client) *Client {
	if c == nil {
		c = http.DefaultClient
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: c, token: token}
}

// HTTPClient exposes the transport so presigned transfers share it.
func (c *Client) HTTPClient() *http.Client {
	return c.http
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set(common.AuthorizationHeaderName, "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	var body struct {
		Error  string `json:"error"`
		Status string `json:"status"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&body); err == nil {
		apiErr.Message, apiErr.Status = body.Error, body.Status
	} else {
		apiErr.Message = resp.Status
	}
	return apiErr
}

// Ping checks the liveness endpoint.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health/live", nil, nil, nil)
}

type DataKey struct {
	PlaintextKey []byte `json:"plaintext_key"`
	EncryptedKey []byte `json:"encrypted_key"`
	KeyID        string `json:"key_id"`
}

func (c *Client) GenerateDataKey(ctx context.Context, userID string) (*DataKey, error) {
	var out DataKey
	err := c.do(ctx, http.MethodPost, "/generateDataKey", nil, map[string]string{"user_id": userID}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DecryptDataKey(ctx context.Context, userID string, encryptedKey []byte) (*DataKey, error) {
	in := struct {
		UserID       string `json:"user_id"`
		EncryptedKey []byte `json:"encrypted_key"`
	}{userID, encryptedKey}

	var out DataKey
	if err := c.do(ctx, http.MethodPost, "/decryptDataKey", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type UploadSlot struct {
	PresignedURL string    `json:"presigned_url"`
	FileID       string    `json:"file_id"`
	ObjectKey    string    `json:"s3_key"`
	BucketName   string    `json:"bucket_name"`
	ExpiresAt    time.Time `json:"expires_at"`
}

func (c *Client) RequestUpload(ctx context.Context, userID, fileName string, size int64, contentType string) (*UploadSlot, error) {
	in := struct {
		UserID      string `json:"user_id"`
		FileName    string `json:"file_name"`
		FileSize    int64  `json:"file_size"`
		ContentType string `json:"content_type,omitempty"`
	}{userID, fileName, size, contentType}

	var out UploadSlot
	if err := c.do(ctx, http.MethodPost, "/generatePresignedUrl", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type ConfirmUpload struct {
	FileID       string `json:"file_id"`
	UserID       string `json:"user_id"`
	FileName     string `json:"file_name"`
	FileSize     int64  `json:"file_size"`
	ObjectKey    string `json:"s3_key"`
	ContentType  string `json:"content_type,omitempty"`
	EncryptedKey []byte `json:"encrypted_key"`
}

func (c *Client) ConfirmUpload(ctx context.Context, in ConfirmUpload) error {
	return c.do(ctx, http.MethodPost, "/confirmUpload", nil, in, nil)
}

func (c *Client) DeleteFile(ctx context.Context, userID, fileID string) error {
	in := map[string]string{"user_id": userID, "file_id": fileID}
	return c.do(ctx, http.MethodPost, "/deleteFile", nil, in, nil)
}

type File struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Type         string `json:"type"`
	Size         string `json:"size"`
	SizeBytes    int64  `json:"size_bytes"`
	Modified     string `json:"modified"`
	UploadDate   string `json:"upload_date"`
	URL          string `json:"url"`
	EncryptedKey []byte `json:"encrypted_key"`
}

func (c *Client) ListFiles(ctx context.Context, userID string) ([]File, error) {
	var out struct {
		Files []File `json:"files"`
	}
	err := c.do(ctx, http.MethodGet, "/files", url.Values{"user_id": {userID}}, nil, &out)
	if err != nil {
		return nil, err
	}
	return out.Files, nil
}

type Profile struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func (c *Client) Register(ctx context.Context, p Profile) error {
	return c.do(ctx, http.MethodPost, "/users", url.Values{"operation": {"register"}}, p, nil)
}

// ProfileUpdate leaves nil fields unchanged on the server.
type ProfileUpdate struct {
	UserID    string  `json:"user_id"`
	Email     *string `json:"email,omitempty"`
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
}

func (c *Client) UpdateProfile(ctx context.Context, upd ProfileUpdate) error {
	return c.do(ctx, http.MethodPost, "/users", url.Values{"operation": {"update"}}, upd, nil)
}

func (c *Client) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	var out Profile
	err := c.do(ctx, http.MethodGet, "/users/profile", url.Values{"user_id": {userID}}, nil, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}
