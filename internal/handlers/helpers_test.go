package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hakuasns/backend/internal/apperr"
)

func TestHTTPErrorMapsSentinels(t *testing.T) {
	he := httpError(fmt.Errorf("post: %w", apperr.ErrNotFound))
	assert.Equal(t, http.StatusNotFound, he.Code)
	assert.Equal(t, "post: resource not found", he.Message)

	he = httpError(fmt.Errorf("not yours: %w", apperr.ErrForbidden))
	assert.Equal(t, http.StatusForbidden, he.Code)
}

func TestHTTPErrorHidesInternalDetail(t *testing.T) {
	he := httpError(errors.New("connection refused to 10.0.0.3:27017"))
	assert.Equal(t, http.StatusInternalServerError, he.Code)
	assert.Equal(t, "Internal server error", he.Message)
}
