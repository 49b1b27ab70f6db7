package utils

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackageNameRules(t *testing.T) {
	assert.Equal(t, "numpy>=1.26", NormalizePackageName("  NumPy>=1.26\n"))

	for _, name := range []string{"numpy", "scikit-learn", "uvicorn[standard]", "pandas>=2,<3", "torch==2.2.0", "pkg!=1.0", "zope.interface", "a b"} {
		assert.True(t, IsValidPackageName(name), name)
	}
	for _, name := range []string{"", "rm -rf /", "pkg;drop", "Numpy", "pkg@1.0", "pkg$", "pkg\tx"} {
		assert.False(t, IsValidPackageName(name), name)
	}
}

type createBody struct {
	PackageName string `json:"package_name" validate:"required,package_name"`
}

type statusBody struct {
	Status string `json:"status" validate:"required,oneof=pending installed rejected uninstalled"`
}

func TestValidateStruct(t *testing.T) {
	require.NoError(t, ValidateStruct(createBody{PackageName: "requests"}))

	err := ValidateStruct(createBody{})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "package_name is required", apiErr.Message)

	err = ValidateStruct(createBody{PackageName: "bad;name"})
	require.True(t, errors.As(err, &apiErr))
	assert.Contains(t, apiErr.Message, "Invalid package name")

	err = ValidateStruct(statusBody{Status: "done"})
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Contains(t, apiErr.Message, "status")
}

func TestReadJSON(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"status": "installed"}`))
	var body statusBody
	require.NoError(t, ReadJSON(r, &body))
	assert.Equal(t, "installed", body.Status)

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"status":`))
	err := ReadJSON(r, &body)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
}

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, Conflict("Package already exists"))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.JSONEq(t, `{"detail": "Package already exists", "code": "CONFLICT"}`, w.Body.String())

	w = httptest.NewRecorder()
	WriteError(w, errors.New("dial tcp: connection refused"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"detail": "dial tcp: connection refused", "code": "INTERNAL_SERVER_ERROR"}`, w.Body.String())
}

func TestReadJSON_RejectsTrailingData(t *testing.T) {
	for _, body := range []string{
		`{"status": "installed"} trailing`,
		`{"status": "installed"}{"status": "pending"}`,
	} {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		var parsed statusBody
		err := ReadJSON(r, &parsed)
		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr), body)
		assert.Equal(t, http.StatusBadRequest, apiErr.Status, body)
	}

	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{\"status\": \"installed\"}\n"))
	var parsed statusBody
	require.NoError(t, ReadJSON(r, &parsed))
}
