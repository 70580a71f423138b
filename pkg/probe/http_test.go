package probe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPChecker_ReadyEndpoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	checker := NewHTTPChecker(server.URL)
	result := checker.Check(context.Background())

	if !result.Ready {
		t.Errorf("Expected ready, got not ready: %s", result.Message)
	}
	if result.Duration <= 0 {
		t.Error("Expected positive duration")
	}
}

func TestHTTPChecker_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	checker := NewHTTPChecker(server.URL)
	result := checker.Check(context.Background())

	if result.Ready {
		t.Errorf("Expected not ready, got ready: %s", result.Message)
	}
}

func TestHTTPChecker_ConnectionRefused(t *testing.T) {
	// Port from a closed test server: connection refused
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	checker := NewHTTPChecker(url)
	result := checker.Check(context.Background())

	if result.Ready {
		t.Error("Expected not ready for refused connection")
	}
}

func TestHTTPChecker_CustomStatusRange(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	checker := NewHTTPChecker(server.URL).WithStatusRange(200, 299)
	result := checker.Check(context.Background())

	if !result.Ready {
		t.Errorf("Expected ready for 201 status, got not ready: %s", result.Message)
	}
}

func TestTCPChecker_Listening(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	addr := server.Listener.Addr().String()
	checker := NewTCPChecker(addr)
	result := checker.Check(context.Background())

	if !result.Ready {
		t.Errorf("Expected ready for listening port, got: %s", result.Message)
	}
	if checker.Type() != CheckTypeTCP {
		t.Errorf("Type() = %v, want %v", checker.Type(), CheckTypeTCP)
	}
}

func TestTCPChecker_ClosedPort(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := server.Listener.Addr().String()
	server.Close()

	checker := NewTCPChecker(addr)
	result := checker.Check(context.Background())

	if result.Ready {
		t.Error("Expected not ready for closed port")
	}
}
