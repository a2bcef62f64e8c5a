package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foodville/marketplace-api/internal/access"
	"github.com/foodville/marketplace-api/internal/service"
)

func init() { gin.SetMode(gin.TestMode) }

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func respond(err error) *httptest.ResponseRecorder {
	r := gin.New()
	r.GET("/", func(c *gin.Context) { respondError(c, err) })
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	return w
}

func TestRespondError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", service.NewValidationError("name", "This field is required."), http.StatusBadRequest},
		{"anonymous", access.ErrUnauthenticated, http.StatusUnauthorized},
		{"bad credentials", service.ErrInvalidCredentials, http.StatusUnauthorized},
		{"denied", &access.DeniedError{Field: "store", Message: "Only store owners can do this."}, http.StatusForbidden},
		{"checkout in flight", service.ErrCheckoutInProgress, http.StatusConflict},
		{"store missing", service.ErrStoreNotFound, http.StatusNotFound},
		{"wrapped order missing", fmt.Errorf("load: %w", service.ErrOrderNotFound), http.StatusNotFound},
		{"cart item missing", service.ErrCartItemNotFound, http.StatusNotFound},
		{"unexpected", errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, respond(tt.err).Code)
		})
	}
}

func TestRespondError_Bodies(t *testing.T) {
	body := decode(t, respond(service.NewValidationError("quantity", "Ensure this value is less than or equal to 99.")))
	assert.Equal(t, map[string]any{"quantity": "Ensure this value is less than or equal to 99."}, body["errors"])

	body = decode(t, respond(&access.DeniedError{Field: "order", Message: "You can only update your store's orders."}))
	assert.Equal(t, map[string]any{"order": "You can only update your store's orders."}, body["error"])

	body = decode(t, respond(errors.New("pq: deadlock detected")))
	assert.Equal(t, "internal server error", body["error"])
}

func TestParamID(t *testing.T) {
	r := gin.New()
	r.GET("/things/:id", func(c *gin.Context) {
		id, ok := paramID(c, "thing")
		if !ok {
			return
		}
		c.String(http.StatusOK, id.String())
	})

	id := uuid.New()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/things/"+id.String(), nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, id.String(), w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/things/42", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid thing ID", decode(t, w)["error"])
}

func TestReadUpload(t *testing.T) {
	r := gin.New()
	r.PUT("/image", func(c *gin.Context) {
		upload, file, ok := readUpload(c)
		if !ok {
			return
		}
		defer file.Close()
		c.JSON(http.StatusOK, gin.H{"filename": upload.Filename, "size": upload.Size})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/image", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, map[string]any{"image": "No file was submitted."}, decode(t, w)["errors"])

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", "adobo.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("not really a png"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPut, "/image", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "adobo.png", body["filename"])
	assert.EqualValues(t, 16, body["size"])
}

func TestHealthHandler(t *testing.T) {
	up := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("dial tcp: refused") }

	h := NewHealthHandler(Check{Name: "postgres", Ping: up}, Check{Name: "redis", Ping: down})
	r := gin.New()
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	body := decode(t, w)
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, "connected", body["postgres"])
	assert.Equal(t, "unavailable", body["redis"])
}

type fakeFeed struct {
	userID uuid.UUID
}

func (f *fakeFeed) ServeWS(w http.ResponseWriter, _ *http.Request, userID uuid.UUID) error {
	f.userID = userID
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func TestFeedHandler(t *testing.T) {
	feed := &fakeFeed{}
	h := NewFeedHandler(feed)
	userID := uuid.New()

	r := gin.New()
	r.GET("/anon", h.Orders)
	r.GET("/user", func(c *gin.Context) {
		c.Set("principal", access.NewPrincipal(userID, "ana@example.com", false, nil))
	}, h.Orders)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/anon", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, uuid.Nil, feed.userID)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/user", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, userID, feed.userID)
}

func TestRegister_Guards(t *testing.T) {
	var calls []string
	guard := func(name string, abort bool) gin.HandlerFunc {
		return func(c *gin.Context) {
			calls = append(calls, name)
			if abort {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			}
		}
	}

	r := gin.New()
	Register(r, Handlers{
		Feed:   NewFeedHandler(&fakeFeed{}),
		Health: NewHealthHandler(),
	}, Guards{
		Auth:         guard("auth", true),
		OptionalAuth: guard("optional", false),
		RateLimit:    guard("limit", false),
	})

	tests := []struct {
		method, path string
		want         []string
	}{
		{http.MethodGet, "/api/v1/cart", []string{"auth"}},
		{http.MethodGet, "/api/v1/stores/me", []string{"auth"}},
		{http.MethodPost, "/api/v1/orders", []string{"auth"}},
		{http.MethodGet, "/ws/orders", []string{"auth"}},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			calls = nil
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, tt.want, calls)
		})
	}

	calls = nil
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, calls)
}

func bindBody(h gin.HandlerFunc, body string) *httptest.ResponseRecorder {
	r := gin.New()
	r.POST("/", h)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestBindError_FieldScoped(t *testing.T) {
	productID := uuid.New().String()
	cart := NewCartHandler(nil).AddItem
	stores := NewStoreHandler(nil).Create

	tests := []struct {
		name    string
		handler gin.HandlerFunc
		body    string
		field   string
		message string
	}{
		{"zero quantity", cart, `{"product_id": "` + productID + `", "quantity": 0}`,
			"quantity", "Ensure this value is greater than or equal to 1."},
		{"missing product", cart, `{"quantity": 2}`,
			"product_id", "This field is required."},
		{"quantity type", cart, `{"product_id": "` + productID + `", "quantity": "x"}`,
			"quantity", "A valid integer is required."},
		{"malformed body", cart, `{"quantity":`,
			"non_field_errors", "JSON parse error."},
		{"nested address", stores, `{"name": "Lutong Bahay", "email": "lb@example.com", "mobile_number": "09171234567",
			"opening_time": "08:00", "closing_time": "20:00", "address": {"province": "Cebu"}}`,
			"address.city", "This field is required."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := bindBody(tt.handler, tt.body)
			require.Equal(t, http.StatusBadRequest, w.Code)

			fields, ok := decode(t, w)["errors"].(map[string]any)
			require.True(t, ok, w.Body.String())
			assert.Equal(t, tt.message, fields[tt.field])
		})
	}
}
