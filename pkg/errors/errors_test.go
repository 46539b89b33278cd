package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", ErrDocumentNotFound, http.StatusNotFound},
		{"wrapped not found", fmt.Errorf("looking up notes.txt: %w", ErrDocumentNotFound), http.StatusNotFound},
		{"not ready", ErrEngineNotReady, http.StatusServiceUnavailable},
		{"invalid", ErrInvalidInput, http.StatusBadRequest},
		{"app error wins", New(ErrInvalidInput, http.StatusTeapot, "short and stout"), http.StatusTeapot},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatusCode(tt.err); got != tt.want {
				t.Errorf("HTTPStatusCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestAppErrorUnwrap(t *testing.T) {
	err := Newf(ErrDocumentNotFound, http.StatusNotFound, "no document named %q", "a.txt")
	if !errors.Is(err, ErrDocumentNotFound) {
		t.Fatal("AppError should unwrap to its sentinel")
	}
	if err.Error() != `document not found: no document named "a.txt"` {
		t.Errorf("unexpected message %q", err.Error())
	}
}
