package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPaginationDetails(t *testing.T) {
	tests := []struct {
		query string
		want  Pagination
	}{
		{"", Pagination{Limit: 10, Offset: 0, Page: 1}},
		{"?limit=20&page=3", Pagination{Limit: 20, Offset: 40, Page: 3}},
		{"?limit=500", Pagination{Limit: 100, Offset: 0, Page: 1}},
		{"?limit=-1&page=abc", Pagination{Limit: 10, Offset: 0, Page: 1}},
	}

	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/"+tt.query, nil)
		assert.Equal(t, tt.want, GetPaginationDetails(r), tt.query)
	}
}

func TestPaginationMeta(t *testing.T) {
	meta := Pagination{Limit: 10, Page: 2, Offset: 10}.Meta(21)
	assert.Equal(t, 3, meta["totalPages"])
	assert.Equal(t, int64(21), meta["totalItems"])
}

func TestDecodeJSONBody(t *testing.T) {
	var dst struct {
		Amount string `json:"amount"`
	}

	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"amount":"10"}`))
	r.Header.Set("Content-Type", "application/json; charset=utf-8")
	status, err := DecodeJSONBody(httptest.NewRecorder(), r, &dst)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "10", dst.Amount)

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"unknown":1}`))
	r.Header.Set("Content-Type", "application/json")
	status, err = DecodeJSONBody(httptest.NewRecorder(), r, &dst)
	assert.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, status)

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`amount=10`))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	status, _ = DecodeJSONBody(httptest.NewRecorder(), r, &dst)
	assert.Equal(t, http.StatusUnsupportedMediaType, status)
}

func TestBuildErrorResponse(t *testing.T) {
	rr := httptest.NewRecorder()
	BuildErrorResponse(rr, http.StatusConflict, "Duplicate reference", map[string]string{"tid": "ABC123"})

	assert.Equal(t, http.StatusConflict, rr.Code)
	var body Response
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "error", body.Status)
	assert.Equal(t, "Duplicate reference", body.Message)
}
