package server

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jonathan/opportunity-miner/internal/report"
	"github.com/stretchr/testify/assert"
)

func TestErrNotFound(t *testing.T) {
	err := &ErrNotFound{Resource: "run", ID: "12"}
	assert.Equal(t, "run not found: 12", err.Error())
	assert.Equal(t, http.StatusNotFound, HTTPStatus(err))
}

func TestErrValidation(t *testing.T) {
	err := &ErrValidation{Field: "url", Message: "is required"}
	assert.Equal(t, "validation error: url - is required", err.Error())
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(err))
}

func TestHTTPStatus_Wrapped(t *testing.T) {
	err := fmt.Errorf("building report: %w", &report.FilterError{Field: "category", Message: "missing"})
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(err))
}

func TestHTTPStatus_Default(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("db down")))
}
