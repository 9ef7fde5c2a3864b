package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"dataapi/internal/auth"
	"dataapi/internal/http/middleware"
	"dataapi/internal/model"
	"dataapi/internal/service"
	"dataapi/internal/service/mocks"
)

const (
	testAPIKey    = "test-api-key"
	testJWTSecret = "test-jwt-secret"
	testRecordID  = "7c9e6679-7425-40de-944b-e07fc1f90ae7"
)

type handlerFixture struct {
	app  *fiber.App
	qsvc *mocks.MockQueryService
	asvc *mocks.MockAttachmentService
}

func newHandlerFixture() *handlerFixture {
	qsvc := new(mocks.MockQueryService)
	asvc := new(mocks.MockAttachmentService)
	authn := auth.New(testAPIKey, testJWTSecret)

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler()})
	app.Use(middleware.Credentials())

	app.Post("/models/:model/list", ListRecords(authn, qsvc))
	app.Post("/models/:model", CreateRecord(authn, qsvc))
	app.Get("/models/:model/:id", GetRecord(authn, qsvc))
	app.Patch("/models/:model/:id", UpdateRecord(authn, qsvc))
	app.Delete("/models/:model/:id", DeleteRecord(authn, qsvc))
	app.Post("/models/:model/:id/attachment", UploadAttachment(authn, asvc))
	app.Get("/models/:model/:id/attachment", DownloadAttachment(authn, asvc))
	app.Delete("/models/:model/:id/attachment", DeleteAttachment(authn, asvc))
	app.Post("/auth/token", IssueToken(authn, testJWTSecret, time.Hour))

	return &handlerFixture{app: app, qsvc: qsvc, asvc: asvc}
}

func decodeErrorEnvelope(t *testing.T, body io.Reader) (code, message string) {
	t.Helper()
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(body).Decode(&envelope))
	return envelope.Error.Code, envelope.Error.Message
}

func TestListRecords(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		fx := newHandlerFixture()

		tok := "next-page"
		fx.qsvc.On("List", mock.Anything, mock.MatchedBy(func(in service.ListInput) bool {
			return in.Model == "Todo" &&
				in.Limit == 5 &&
				string(in.Filter) == `{"priority":{"gt":3}}` &&
				in.Actor.Mode == auth.ModeAPIKey
		})).Return(&service.ListResult{
			Data:      []model.Record{{"id": testRecordID, "content": "first"}},
			NextToken: &tok,
		}, nil)

		body := `{"filter":{"priority":{"gt":3}},"limit":5}`
		req := httptest.NewRequest("POST", "/models/Todo/list", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Api-Key", testAPIKey)

		resp, err := fx.app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		var out service.ListResult
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		assert.Len(t, out.Data, 1)
		require.NotNil(t, out.NextToken)
		assert.Equal(t, "next-page", *out.NextToken)
		fx.qsvc.AssertExpectations(t)
	})

	t.Run("empty body uses defaults", func(t *testing.T) {
		fx := newHandlerFixture()

		fx.qsvc.On("List", mock.Anything, mock.MatchedBy(func(in service.ListInput) bool {
			return in.Model == "Todo" && in.Limit == 0 && in.Filter == nil
		})).Return(&service.ListResult{Data: []model.Record{}}, nil)

		req := httptest.NewRequest("POST", "/models/Todo/list", nil)
		req.Header.Set("X-Api-Key", testAPIKey)

		resp, err := fx.app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	})

	t.Run("authMode in the body wins over credential inference", func(t *testing.T) {
		fx := newHandlerFixture()

		token, err := auth.SignToken(testJWTSecret, "alice", time.Hour)
		require.NoError(t, err)

		fx.qsvc.On("List", mock.Anything, mock.MatchedBy(func(in service.ListInput) bool {
			return in.Actor.Mode == auth.ModeUserPool && in.Actor.Subject == "alice"
		})).Return(&service.ListResult{}, nil)

		// Both credentials supplied; without the override inference would pick
		// userPool anyway, so force it explicitly to exercise the body field.
		req := httptest.NewRequest("POST", "/models/Todo/list", strings.NewReader(`{"authMode":"userPool"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Api-Key", testAPIKey)
		req.Header.Set("Authorization", "Bearer "+token)

		resp, err := fx.app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		fx.qsvc.AssertExpectations(t)
	})

	t.Run("malformed body", func(t *testing.T) {
		fx := newHandlerFixture()

		req := httptest.NewRequest("POST", "/models/Todo/list", strings.NewReader(`not-json`))
		req.Header.Set("X-Api-Key", testAPIKey)

		resp, err := fx.app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

		code, _ := decodeErrorEnvelope(t, resp.Body)
		assert.Equal(t, "INVALID_BODY", code)
	})

	t.Run("limit above max fails validation", func(t *testing.T) {
		fx := newHandlerFixture()

		req := httptest.NewRequest("POST", "/models/Todo/list", strings.NewReader(`{"limit":100000}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Api-Key", testAPIKey)

		resp, err := fx.app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

		code, _ := decodeErrorEnvelope(t, resp.Body)
		assert.Equal(t, "VALIDATION_FAILED", code)
	})

	t.Run("bad credentials", func(t *testing.T) {
		fx := newHandlerFixture()

		req := httptest.NewRequest("POST", "/models/Todo/list", nil)
		req.Header.Set("X-Api-Key", "wrong")

		resp, err := fx.app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
		fx.qsvc.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
	})

	t.Run("unknown model maps to 404", func(t *testing.T) {
		fx := newHandlerFixture()

		fx.qsvc.On("List", mock.Anything, mock.Anything).Return(nil, service.ErrUnknownModel)

		req := httptest.NewRequest("POST", "/models/Comment/list", nil)
		req.Header.Set("X-Api-Key", testAPIKey)

		resp, err := fx.app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

		code, _ := decodeErrorEnvelope(t, resp.Body)
		assert.Equal(t, "UNKNOWN_MODEL", code)
	})
}

func TestGetRecord(t *testing.T) {
	t.Run("success with selection set", func(t *testing.T) {
		fx := newHandlerFixture()

		fx.qsvc.On("Get", mock.Anything, mock.MatchedBy(func(in service.GetInput) bool {
			return in.Model == "Blog" &&
				in.ID == testRecordID &&
				assert.ObjectsAreEqual([]string{"name", "posts.title"}, in.SelectionSet)
		})).Return(model.Record{"name": "engineering"}, nil)

		req := httptest.NewRequest("GET", "/models/Blog/"+testRecordID+"?select=name,posts.title", nil)
		req.Header.Set("X-Api-Key", testAPIKey)

		resp, err := fx.app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		var out map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		assert.Equal(t, "engineering", out["name"])
		fx.qsvc.AssertExpectations(t)
	})

	t.Run("invalid id", func(t *testing.T) {
		fx := newHandlerFixture()

		req := httptest.NewRequest("GET", "/models/Todo/not-a-uuid", nil)
		req.Header.Set("X-Api-Key", testAPIKey)

		resp, err := fx.app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

		code, _ := decodeErrorEnvelope(t, resp.Body)
		assert.Equal(t, "INVALID_ID", code)
		fx.qsvc.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
	})

	t.Run("not found", func(t *testing.T) {
		fx := newHandlerFixture()

		fx.qsvc.On("Get", mock.Anything, mock.Anything).Return(nil, service.ErrNotFound)

		req := httptest.NewRequest("GET", "/models/Todo/"+testRecordID, nil)
		req.Header.Set("X-Api-Key", testAPIKey)

		resp, err := fx.app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	})
}

func TestCreateRecord(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		fx := newHandlerFixture()

		token, err := auth.SignToken(testJWTSecret, "alice", time.Hour)
		require.NoError(t, err)

		fx.qsvc.On("Create", mock.Anything, mock.MatchedBy(func(in service.MutateInput) bool {
			return in.Model == "Todo" &&
				string(in.Values["content"]) == `"write tests"` &&
				in.Actor.Subject == "alice"
		})).Return(model.Record{"id": testRecordID, "content": "write tests"}, nil)

		req := httptest.NewRequest("POST", "/models/Todo", strings.NewReader(`{"content":"write tests"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)

		resp, err := fx.app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
		fx.qsvc.AssertExpectations(t)
	})

	t.Run("invalid input maps to 400", func(t *testing.T) {
		fx := newHandlerFixture()

		fx.qsvc.On("Create", mock.Anything, mock.Anything).Return(nil, service.ErrInvalidInput)

		req := httptest.NewRequest("POST", "/models/Todo", strings.NewReader(`{"colour":"red"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Api-Key", testAPIKey)

		resp, err := fx.app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

		code, _ := decodeErrorEnvelope(t, resp.Body)
		assert.Equal(t, "INVALID_INPUT", code)
	})
}

func TestUpdateRecord(t *testing.T) {
	fx := newHandlerFixture()

	fx.qsvc.On("Update", mock.Anything, mock.MatchedBy(func(in service.MutateInput) bool {
		return in.ID == testRecordID && string(in.Values["is_done"]) == "true"
	})).Return(model.Record{"id": testRecordID, "is_done": true}, nil)

	req := httptest.NewRequest("PATCH", "/models/Todo/"+testRecordID, strings.NewReader(`{"is_done":true}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", testAPIKey)

	resp, err := fx.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	fx.qsvc.AssertExpectations(t)
}

func TestDeleteRecord(t *testing.T) {
	fx := newHandlerFixture()

	fx.qsvc.On("Delete", mock.Anything, mock.MatchedBy(func(in service.DeleteInput) bool {
		return in.Model == "Todo" && in.ID == testRecordID
	})).Return(nil)

	req := httptest.NewRequest("DELETE", "/models/Todo/"+testRecordID, nil)
	req.Header.Set("X-Api-Key", testAPIKey)

	resp, err := fx.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	fx.qsvc.AssertExpectations(t)
}

func TestIssueToken(t *testing.T) {
	t.Run("issues a verifiable token", func(t *testing.T) {
		fx := newHandlerFixture()

		req := httptest.NewRequest("POST", "/auth/token", strings.NewReader(`{"subject":"alice"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Api-Key", testAPIKey)

		resp, err := fx.app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		var out struct {
			Token     string `json:"token"`
			ExpiresIn int    `json:"expires_in"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		assert.Equal(t, 3600, out.ExpiresIn)

		authn := auth.New(testAPIKey, testJWTSecret)
		actor, err := authn.Resolve(auth.ModeUserPool, auth.Credentials{Bearer: out.Token})
		require.NoError(t, err)
		assert.Equal(t, "alice", actor.Subject)
	})

	t.Run("requires the api key", func(t *testing.T) {
		fx := newHandlerFixture()

		req := httptest.NewRequest("POST", "/auth/token", strings.NewReader(`{"subject":"alice"}`))
		req.Header.Set("Content-Type", "application/json")

		resp, err := fx.app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("requires a subject", func(t *testing.T) {
		fx := newHandlerFixture()

		req := httptest.NewRequest("POST", "/auth/token", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Api-Key", testAPIKey)

		resp, err := fx.app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

		code, _ := decodeErrorEnvelope(t, resp.Body)
		assert.Equal(t, "VALIDATION_FAILED", code)
	})
}

func TestUploadAttachment(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		fx := newHandlerFixture()

		fx.asvc.On("Upload", mock.Anything, "Todo", testRecordID, mock.Anything, "receipt.pdf", mock.Anything, mock.Anything, mock.Anything).
			Return(&model.Attachment{ID: "a1", Model: "Todo", RecordID: testRecordID}, nil)

		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		fw, err := w.CreateFormFile("file", "receipt.pdf")
		require.NoError(t, err)
		_, err = fw.Write([]byte("%PDF"))
		require.NoError(t, err)
		require.NoError(t, w.Close())

		req := httptest.NewRequest("POST", "/models/Todo/"+testRecordID+"/attachment", &buf)
		req.Header.Set("Content-Type", w.FormDataContentType())
		req.Header.Set("X-Api-Key", testAPIKey)

		resp, err := fx.app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
		fx.asvc.AssertExpectations(t)
	})

	t.Run("file is required", func(t *testing.T) {
		fx := newHandlerFixture()

		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		require.NoError(t, w.Close())

		req := httptest.NewRequest("POST", "/models/Todo/"+testRecordID+"/attachment", &buf)
		req.Header.Set("Content-Type", w.FormDataContentType())
		req.Header.Set("X-Api-Key", testAPIKey)

		resp, err := fx.app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

		code, _ := decodeErrorEnvelope(t, resp.Body)
		assert.Equal(t, "FILE_REQUIRED", code)
	})
}

func TestDownloadAttachment(t *testing.T) {
	t.Run("presigned url by default", func(t *testing.T) {
		fx := newHandlerFixture()

		fx.asvc.On("PresignDownload", mock.Anything, "Todo", testRecordID, mock.Anything).
			Return("https://minio.local/signed", nil)

		req := httptest.NewRequest("GET", "/models/Todo/"+testRecordID+"/attachment", nil)
		req.Header.Set("X-Api-Key", testAPIKey)

		resp, err := fx.app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		var out map[string]string
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		assert.Equal(t, "https://minio.local/signed", out["url"])
	})

	t.Run("direct streaming", func(t *testing.T) {
		fx := newHandlerFixture()

		fx.asvc.On("Open", mock.Anything, "Todo", testRecordID, mock.Anything).
			Return(io.NopCloser(strings.NewReader("content")), &model.Attachment{
				Filename:    "gen.pdf",
				ContentType: "application/pdf",
				Size:        7,
			}, nil)

		req := httptest.NewRequest("GET", "/models/Todo/"+testRecordID+"/attachment?direct=true", nil)
		req.Header.Set("X-Api-Key", testAPIKey)

		resp, err := fx.app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))

		data, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, "content", string(data))
	})

	t.Run("attachment missing", func(t *testing.T) {
		fx := newHandlerFixture()

		fx.asvc.On("PresignDownload", mock.Anything, "Todo", testRecordID, mock.Anything).
			Return("", service.ErrAttachmentNotFound)

		req := httptest.NewRequest("GET", "/models/Todo/"+testRecordID+"/attachment", nil)
		req.Header.Set("X-Api-Key", testAPIKey)

		resp, err := fx.app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	})
}

func TestDeleteAttachment(t *testing.T) {
	fx := newHandlerFixture()

	fx.asvc.On("Delete", mock.Anything, "Todo", testRecordID, mock.Anything).Return(nil)

	req := httptest.NewRequest("DELETE", "/models/Todo/"+testRecordID+"/attachment", nil)
	req.Header.Set("X-Api-Key", testAPIKey)

	resp, err := fx.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	fx.asvc.AssertExpectations(t)
}
