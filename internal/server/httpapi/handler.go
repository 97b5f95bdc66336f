// Package httpapi is the JSON-over-HTTP boundary of the service: routing,
// request decoding, error classification, CORS, request logging, metrics
// and the optional bearer-token identity binding.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dmitrijs2005/secdrive/internal/common"
	"github.com/dmitrijs2005/secdrive/internal/logging"
	"github.com/dmitrijs2005/secdrive/internal/server/models"
	"github.com/dmitrijs2005/secdrive/internal/server/services"
)

const maxBodyBytes = 1 << 20

// KeyBroker is implemented by *keybroker.Broker.
type KeyBroker interface {
	GenerateDataKey(ctx context.Context, userID string) (*models.DataKey, error)
	DecryptDataKey(ctx context.Context, userID string, encryptedKey []byte) (*models.DataKey, error)
}

// FileService is implemented by *services.FileService.
type FileService interface {
	RequestUpload(ctx context.Context, userID, fileName, contentType string) (*models.UploadSlot, error)
	Confirm(ctx context.Context, req services.ConfirmRequest) (string, error)
	Delete(ctx context.Context, fileID, userID string) (*services.DeleteResult, error)
	List(ctx context.Context, userID string) ([]services.FileListing, error)
}

// UserService is implemented by *services.UserService.
type UserService interface {
	Register(ctx context.Context, req services.RegisterRequest) error
	UpdateProfile(ctx context.Context, userID string, upd models.ProfileUpdate) error
	GetProfile(ctx context.Context, userID string) (*models.UserProfile, error)
}

type Handler struct {
	keys  KeyBroker
	files FileService
	users UserService
	log   logging.Logger
}

func NewHandler(keys KeyBroker, files FileService, users UserService, l logging.Logger) *Handler {
	return &Handler{keys: keys, files: files, users: users, log: l.With("module", "httpapi")}
}

var errInvalidJSON = fmt.Errorf("%w: Invalid JSON in request body", common.ErrValidation)

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, strict bool) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if strict {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(dst); err != nil {
		if strict && !errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: %w", common.ErrValidation, err)
		}
		return errInvalidJSON
	}
	return nil
}

// authorize enforces that a token-bound request only names its own user.
func authorize(r *http.Request, userID string) error {
	bound, ok := tokenUserID(r.Context())
	if !ok || userID == "" {
		return nil
	}
	if bound != userID {
		return fmt.Errorf("%w: user_id does not match token", common.ErrForbidden)
	}
	return nil
}

// fail writes err as a classified error body. overrides replaces the message
// for specific error kinds.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, overrides ...override) {
	code, status := classify(err)
	msg := publicMessage(err, code)
	for _, o := range overrides {
		if errors.Is(err, o.kind) {
			msg = o.message
			break
		}
	}
	if code >= http.StatusInternalServerError {
		h.log.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	}
	writeError(w, code, status, msg)
}

type override struct {
	kind    error
	message string
}

// --- key broker ---

type generateKeyRequest struct {
	UserID string `json:"user_id"`
}

type dataKeyResponse struct {
	PlaintextKey []byte `json:"plaintext_key"`
	EncryptedKey []byte `json:"encrypted_key,omitempty"`
	KeyID        string `json:"key_id"`
}

func (h *Handler) GenerateDataKey(w http.ResponseWriter, r *http.Request) {
	var req generateKeyRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		h.fail(w, r, err)
		return
	}
	if req.UserID == "" {
		h.fail(w, r, fmt.Errorf("%w: user_id is required", common.ErrValidation))
		return
	}
	if err := authorize(r, req.UserID); err != nil {
		h.fail(w, r, err)
		return
	}

	dk, err := h.keys.GenerateDataKey(r.Context(), req.UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	defer common.WipeByteArray(dk.Plaintext)

	writeJSON(w, http.StatusOK, dataKeyResponse{
		PlaintextKey: dk.Plaintext,
		EncryptedKey: dk.Ciphertext,
		KeyID:        dk.KeyID,
	})
}

type decryptKeyRequest struct {
	UserID       string `json:"user_id"`
	EncryptedKey []byte `json:"encrypted_key"`
}

func (h *Handler) DecryptDataKey(w http.ResponseWriter, r *http.Request) {
	var req decryptKeyRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		h.fail(w, r, err)
		return
	}
	if req.UserID == "" || len(req.EncryptedKey) == 0 {
		h.fail(w, r, fmt.Errorf("%w: user_id and encrypted_key are required", common.ErrValidation))
		return
	}
	if err := authorize(r, req.UserID); err != nil {
		h.fail(w, r, err)
		return
	}

	dk, err := h.keys.DecryptDataKey(r.Context(), req.UserID, req.EncryptedKey)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	defer common.WipeByteArray(dk.Plaintext)

	writeJSON(w, http.StatusOK, dataKeyResponse{PlaintextKey: dk.Plaintext, KeyID: dk.KeyID})
}

// --- files ---

type uploadSlotRequest struct {
	UserID      string `json:"user_id"`
	FileName    string `json:"file_name"`
	FileSize    *int64 `json:"file_size"`
	ContentType string `json:"content_type"`
}

type uploadSlotResponse struct {
	PresignedURL string    `json:"presigned_url"`
	FileID       string    `json:"file_id"`
	ObjectKey    string    `json:"s3_key"`
	BucketName   string    `json:"bucket_name"`
	ExpiresAt    time.Time `json:"expires_at"`
}

func (h *Handler) GeneratePresignedURL(w http.ResponseWriter, r *http.Request) {
	var req uploadSlotRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		h.fail(w, r, err)
		return
	}
	if req.UserID == "" || req.FileName == "" {
		h.fail(w, r, fmt.Errorf("%w: user_id and file_name are required", common.ErrValidation))
		return
	}
	if req.FileSize != nil && *req.FileSize < 0 {
		h.fail(w, r, fmt.Errorf("%w: file_size must not be negative", common.ErrValidation))
		return
	}
	if err := authorize(r, req.UserID); err != nil {
		h.fail(w, r, err)
		return
	}

	slot, err := h.files.RequestUpload(r.Context(), req.UserID, req.FileName, req.ContentType)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, uploadSlotResponse{
		PresignedURL: slot.URL,
		FileID:       slot.FileID,
		ObjectKey:    slot.ObjectKey,
		BucketName:   slot.Bucket,
		ExpiresAt:    slot.ExpiresAt,
	})
}

type confirmUploadRequest struct {
	FileID       string `json:"file_id"`
	UserID       string `json:"user_id"`
	FileName     string `json:"file_name"`
	FileSize     *int64 `json:"file_size"`
	ObjectKey    string `json:"s3_key"`
	ContentType  string `json:"content_type"`
	EncryptedKey []byte `json:"encrypted_key"`
}

type confirmUploadResponse struct {
	Message string `json:"message"`
	FileID  string `json:"file_id"`
}

func (h *Handler) ConfirmUpload(w http.ResponseWriter, r *http.Request) {
	var req confirmUploadRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := authorize(r, req.UserID); err != nil {
		h.fail(w, r, err)
		return
	}

	id, err := h.files.Confirm(r.Context(), services.ConfirmRequest{
		FileID:       req.FileID,
		UserID:       req.UserID,
		FileName:     req.FileName,
		FileSize:     req.FileSize,
		ObjectKey:    req.ObjectKey,
		ContentType:  req.ContentType,
		EncryptedKey: req.EncryptedKey,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, confirmUploadResponse{Message: "File metadata stored successfully", FileID: id})
}

type deleteFileRequest struct {
	FileID string `json:"file_id"`
	UserID string `json:"user_id"`
}

type deleteFileResponse struct {
	Message   string `json:"message"`
	FileID    string `json:"file_id"`
	ObjectKey string `json:"s3_key"`
}

func (h *Handler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	var req deleteFileRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		h.fail(w, r, err)
		return
	}
	if req.FileID == "" || req.UserID == "" {
		h.fail(w, r, fmt.Errorf("%w: file_id and user_id are required", common.ErrValidation))
		return
	}
	if err := authorize(r, req.UserID); err != nil {
		h.fail(w, r, err)
		return
	}

	res, err := h.files.Delete(r.Context(), req.FileID, req.UserID)
	if err != nil {
		h.fail(w, r, err,
			override{common.ErrorNotFound, "File not found"},
			override{common.ErrForbidden, "Unauthorized: File does not belong to user"},
		)
		return
	}

	writeJSON(w, http.StatusOK, deleteFileResponse{
		Message:   fmt.Sprintf("File %q deleted successfully", res.FileName),
		FileID:    res.FileID,
		ObjectKey: res.ObjectKey,
	})
}

type listFilesResponse struct {
	Files      []services.FileListing `json:"files"`
	TotalFiles int                    `json:"total_files"`
}

func (h *Handler) ListFiles(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		h.fail(w, r, fmt.Errorf("%w: user_id is required", common.ErrValidation))
		return
	}
	if err := authorize(r, userID); err != nil {
		h.fail(w, r, err)
		return
	}

	list, err := h.files.List(r.Context(), userID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, listFilesResponse{Files: list, TotalFiles: len(list)})
}

// --- users ---

type registerRequest struct {
	UserID         string `json:"user_id"`
	Email          string `json:"email"`
	FirstName      string `json:"first_name"`
	FirstNameCamel string `json:"firstName"`
	LastName       string `json:"last_name"`
	LastNameCamel  string `json:"lastName"`
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

// updateProfileRequest accepts both spellings of the name fields; anything
// outside this set is rejected.
type updateProfileRequest struct {
	UserID         string  `json:"user_id"`
	Email          *string `json:"email"`
	FirstName      *string `json:"first_name"`
	FirstNameCamel *string `json:"firstName"`
	LastName       *string `json:"last_name"`
	LastNameCamel  *string `json:"lastName"`
}

func (u updateProfileRequest) toUpdate() models.ProfileUpdate {
	upd := models.ProfileUpdate{Email: u.Email, FirstName: u.FirstName, LastName: u.LastName}
	if upd.FirstName == nil {
		upd.FirstName = u.FirstNameCamel
	}
	if upd.LastName == nil {
		upd.LastName = u.LastNameCamel
	}
	return upd
}

// StoreUser dispatches on ?operation=register|update.
func (h *Handler) StoreUser(w http.ResponseWriter, r *http.Request) {
	switch op := r.URL.Query().Get("operation"); op {
	case "register":
		h.registerUser(w, r)
	case "update":
		h.updateUser(w, r)
	default:
		h.fail(w, r, fmt.Errorf("%w: operation must be register or update", common.ErrValidation))
	}
}

func (h *Handler) registerUser(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := authorize(r, req.UserID); err != nil {
		h.fail(w, r, err)
		return
	}

	err := h.users.Register(r.Context(), services.RegisterRequest{
		UserID:    req.UserID,
		Email:     req.Email,
		FirstName: firstNonEmpty(req.FirstName, req.FirstNameCamel),
		LastName:  firstNonEmpty(req.LastName, req.LastNameCamel),
	})
	if err != nil {
		h.fail(w, r, err, override{common.ErrAlreadyExists, "User already exists"})
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "User details stored successfully"})
}

func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		h.fail(w, r, err)
		return
	}
	if req.UserID == "" {
		h.fail(w, r, fmt.Errorf("%w: user_id is required", common.ErrValidation))
		return
	}
	if err := authorize(r, req.UserID); err != nil {
		h.fail(w, r, err)
		return
	}

	if err := h.users.UpdateProfile(r.Context(), req.UserID, req.toUpdate()); err != nil {
		h.fail(w, r, err, override{common.ErrorNotFound, "User not found"})
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "User details stored successfully"})
}

type profileResponse struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type userDataResponse struct {
	profileResponse
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (h *Handler) loadProfile(w http.ResponseWriter, r *http.Request) (*models.UserProfile, bool) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		h.fail(w, r, fmt.Errorf("%w: user_id is required", common.ErrValidation))
		return nil, false
	}
	if err := authorize(r, userID); err != nil {
		h.fail(w, r, err)
		return nil, false
	}

	p, err := h.users.GetProfile(r.Context(), userID)
	if err != nil {
		h.fail(w, r, err, override{common.ErrorNotFound, "User not found"})
		return nil, false
	}
	return p, true
}

func toProfileResponse(p *models.UserProfile) profileResponse {
	return profileResponse{UserID: p.UserID, Email: p.Email, FirstName: p.FirstName, LastName: p.LastName}
}

// GetUserProfile returns the public profile fields.
func (h *Handler) GetUserProfile(w http.ResponseWriter, r *http.Request) {
	p, ok := h.loadProfile(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toProfileResponse(p))
}

// GetUserData returns the whole stored profile record.
func (h *Handler) GetUserData(w http.ResponseWriter, r *http.Request) {
	p, ok := h.loadProfile(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, userDataResponse{
		profileResponse: toProfileResponse(p),
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	})
}
