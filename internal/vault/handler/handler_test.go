package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"virasat/internal/platform/logger"
	"virasat/internal/platform/middleware"
	"virasat/internal/vault"
	id "virasat/pkg/domain"
	derrors "virasat/pkg/domainerrors"
)

// stubValidator accepts exactly one token and maps it to a fixed identity.
type stubValidator struct {
	token  string
	claims middleware.Claims
}

func (v *stubValidator) ValidateToken(_ context.Context, token string) (middleware.Claims, error) {
	if token != v.token {
		return middleware.Claims{}, errors.New("invalid token")
	}
	return v.claims, nil
}

// stubService records calls and plays back canned responses.
type stubService struct {
	calls   int
	records []vault.Record
	err     error
}

func (s *stubService) List(context.Context, string) ([]vault.Record, error) {
	s.calls++
	return s.records, s.err
}

func (s *stubService) Create(_ context.Context, family string, fields map[string]string) (vault.Record, error) {
	s.calls++
	if s.err != nil {
		return vault.Record{}, s.err
	}
	return vault.Record{ID: id.NewRecordID(), Family: family, Fields: fields}, nil
}

func (s *stubService) Update(_ context.Context, family string, recordID id.RecordID, fields map[string]string) (vault.Record, error) {
	s.calls++
	if s.err != nil {
		return vault.Record{}, s.err
	}
	return vault.Record{ID: recordID, Family: family, Fields: fields}, nil
}

func (s *stubService) Delete(context.Context, string, id.RecordID) error {
	s.calls++
	return s.err
}

func (s *stubService) Families() []string {
	return []string{"bank_accounts", "nominees"}
}

type VaultHandlerSuite struct {
	suite.Suite
	service   *stubService
	validator *stubValidator
	router    chi.Router
}

func (s *VaultHandlerSuite) SetupTest() {
	s.service = &stubService{}
	s.validator = &stubValidator{
		token: "good-token",
		claims: middleware.Claims{
			UserID:    id.NewUserID(),
			SessionID: id.NewSessionID(),
		},
	}
	s.router = chi.NewRouter()
	New(s.service, s.validator, logger.New("test")).Register(s.router)
}

func TestVaultHandlerSuite(t *testing.T) {
	suite.Run(t, new(VaultHandlerSuite))
}

func (s *VaultHandlerSuite) do(method, target, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

// TestAuthRejectedBeforeService verifies unauthenticated requests never reach
// the service layer.
func (s *VaultHandlerSuite) TestAuthRejectedBeforeService() {
	s.Run("missing token", func() {
		rec := s.do(http.MethodGet, "/vault/bank_accounts", "", nil)
		s.Equal(http.StatusUnauthorized, rec.Code)
	})

	s.Run("bad token", func() {
		rec := s.do(http.MethodGet, "/vault/bank_accounts", "forged", nil)
		s.Equal(http.StatusUnauthorized, rec.Code)
	})

	s.Run("service untouched", func() {
		s.Equal(0, s.service.calls)
	})
}

// TestList verifies empty families render as an empty list, not null.
func (s *VaultHandlerSuite) TestList() {
	rec := s.do(http.MethodGet, "/vault/bank_accounts", "good-token", nil)
	s.Require().Equal(http.StatusOK, rec.Code)

	var resp struct {
		Family  string            `json:"family"`
		Records []json.RawMessage `json:"records"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal("bank_accounts", resp.Family)
	s.NotNil(resp.Records)
	s.Empty(resp.Records)
}

// TestCreate verifies the created record is returned with 201 and that the
// wire id is the canonical UUID string a client can feed back into the path.
func (s *VaultHandlerSuite) TestCreate() {
	rec := s.do(http.MethodPost, "/vault/bank_accounts", "good-token", map[string]any{
		"fields": map[string]string{"type": "Savings", "bank": "SBI", "account_number": "1"},
	})
	s.Require().Equal(http.StatusCreated, rec.Code)

	var record vault.Record
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &record))
	s.Equal("SBI", record.Fields["bank"])

	var raw struct {
		ID string `json:"id"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &raw))
	parsed, err := id.ParseRecordID(raw.ID)
	s.Require().NoError(err, "wire id must be the canonical UUID string")
	s.Equal(record.ID, parsed)

	rec = s.do(http.MethodDelete, "/vault/bank_accounts/"+raw.ID, "good-token", nil)
	s.Equal(http.StatusNoContent, rec.Code)
}

// TestValidationFailure verifies the 422 envelope for schema violations.
func (s *VaultHandlerSuite) TestValidationFailure() {
	s.service.err = derrors.New(derrors.CodeValidation, `field "bank" is required`)

	rec := s.do(http.MethodPost, "/vault/bank_accounts", "good-token", map[string]any{
		"fields": map[string]string{},
	})
	s.Require().Equal(http.StatusUnprocessableEntity, rec.Code)

	var resp struct {
		Error string `json:"error"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal(string(derrors.CodeValidation), resp.Error)
}

// TestDelete covers success, bad ids, and not-found translation.
func (s *VaultHandlerSuite) TestDelete() {
	s.Run("success returns 204", func() {
		rec := s.do(http.MethodDelete, "/vault/bank_accounts/"+id.NewRecordID().String(), "good-token", nil)
		s.Equal(http.StatusNoContent, rec.Code)
	})

	s.Run("malformed id returns 400 without a service call", func() {
		before := s.service.calls
		rec := s.do(http.MethodDelete, "/vault/bank_accounts/not-a-uuid", "good-token", nil)
		s.Equal(http.StatusBadRequest, rec.Code)
		s.Equal(before, s.service.calls)
	})

	s.Run("not found returns 404", func() {
		s.service.err = derrors.New(derrors.CodeNotFound, "record not found")
		rec := s.do(http.MethodDelete, "/vault/bank_accounts/"+id.NewRecordID().String(), "good-token", nil)
		s.Equal(http.StatusNotFound, rec.Code)
	})
}

// TestFamilies verifies the discovery endpoint.
func (s *VaultHandlerSuite) TestFamilies() {
	rec := s.do(http.MethodGet, "/vault/families", "good-token", nil)
	s.Require().Equal(http.StatusOK, rec.Code)

	var resp struct {
		Families []string `json:"families"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal([]string{"bank_accounts", "nominees"}, resp.Families)
}
