package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

// helper to create a client pointing at a test server
func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := NewClient(
		srv.URL+"/",
		WithHTTPClient(srv.Client()),
	)

	return client, srv
}

func TestCurrentUser_OK(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != UserPath {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer access-token" {
			t.Errorf("unexpected authorization header: %q", got)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{
			"success": true,
			"data": {
				"id": "user-1",
				"email": "user@example.com",
				"name": "User"
			}
		}`))
	})

	client, _ := newTestClient(t, handler)

	user, err := client.CurrentUser(context.Background(), "access-token")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if user == nil {
		t.Fatal("expected user, got nil")
	}

	if user.ID != "user-1" {
		t.Errorf("unexpected id: %s", user.ID)
	}
	if user.Email != "user@example.com" {
		t.Errorf("unexpected email: %s", user.Email)
	}
	if user.Name != "User" {
		t.Errorf("unexpected name: %s", user.Name)
	}
}

func TestCurrentUser_Unauthorized(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	client, _ := newTestClient(t, handler)

	user, err := client.CurrentUser(context.Background(), "stale")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if user != nil {
		t.Fatalf("expected nil user, got %+v", user)
	}
}

func TestCurrentUser_UnexpectedStatus(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	client, _ := newTestClient(t, handler)

	user, err := client.CurrentUser(context.Background(), "token")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}

	if user != nil {
		t.Fatalf("expected nil user on error, got %+v", user)
	}
}

func TestCurrentUser_MalformedJSON(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{ not valid json`))
	})

	client, _ := newTestClient(t, handler)

	user, err := client.CurrentUser(context.Background(), "token")
	if err == nil {
		t.Fatal("expected JSON decode error, got nil")
	}

	if user != nil {
		t.Fatalf("expected nil user on error, got %+v", user)
	}
}

func TestLogin_TokenInData(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != LoginPath {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "" {
			t.Error("login must not carry credentials")
		}

		var body LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body.Email != "a@b.c" || body.Password != "pw" {
			t.Errorf("unexpected body: %+v", body)
		}

		w.Write([]byte(`{"success":true,"message":"welcome","data":{"token":"abc"}}`))
	})

	client, _ := newTestClient(t, handler)

	res, err := client.Login(context.Background(), LoginRequest{Email: "a@b.c", Password: "pw"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Token != "abc" {
		t.Fatalf("unexpected token: %q", res.Token)
	}
	if res.Message != "welcome" {
		t.Fatalf("unexpected message: %q", res.Message)
	}
}

func TestVerifyOTP_TopLevelToken(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"token":"xyz"}`))
	})

	client, _ := newTestClient(t, handler)

	res, err := client.VerifyOTP(context.Background(), OTPVerifyRequest{Phone: "+994", Code: "1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Token != "xyz" {
		t.Fatalf("unexpected token: %q", res.Token)
	}
}

func TestSendOTP_NoToken(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"message":"sent"}`))
	})

	client, _ := newTestClient(t, handler)

	res, err := client.SendOTP(context.Background(), OTPSendRequest{Phone: "+994"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Token != "" {
		t.Fatalf("expected no token, got %q", res.Token)
	}
}

func TestLogin_FailureEnvelope(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false,"message":"invalid credentials"}`))
	})

	client, _ := newTestClient(t, handler)

	_, err := client.Login(context.Background(), LoginRequest{Email: "a@b.c"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.Message != "invalid credentials" {
		t.Fatalf("unexpected message: %q", apiErr.Message)
	}
}

func TestLogin_ErrorStatus(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"error":{"code":"validation","message":"email required"}}`))
	})

	client, _ := newTestClient(t, handler)

	_, err := client.Login(context.Background(), LoginRequest{})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.Status != http.StatusUnprocessableEntity || apiErr.Code != "validation" {
		t.Fatalf("unexpected error: %+v", apiErr)
	}
	if errors.Is(err, ErrUnavailable) {
		t.Fatal("4xx must not be reported as unavailable")
	}
}

func TestLogout_SendsBearer(t *testing.T) {
	var auth string

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		w.Write([]byte(`{"success":true}`))
	})

	client, _ := newTestClient(t, handler)

	if err := client.Logout(context.Background(), "abc"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if auth != "Bearer abc" {
		t.Fatalf("unexpected authorization header: %q", auth)
	}
}

func TestFetchConfig(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != ConfigPath {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(`{"success":true,"data":{"app_name":"Pocket"}}`))
	})

	client, _ := newTestClient(t, handler)

	raw, err := client.FetchConfig(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(raw) != `{"success":true,"data":{"app_name":"Pocket"}}` {
		t.Fatalf("unexpected payload: %s", raw)
	}
}

func TestFetchConfig_ErrorStatus(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	client, _ := newTestClient(t, handler)

	if _, err := client.FetchConfig(context.Background()); err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestOAuthURL(t *testing.T) {
	client := NewClient("https://api.example.com/")

	got := client.OAuthURL("google", "/wallet?tab=1")
	want := "https://api.example.com/auth/google?return_url=%2Fwallet%3Ftab%3D1"
	if got != want {
		t.Fatalf("OAuthURL = %q, want %q", got, want)
	}

	if got := client.OAuthURL("github", ""); got != "https://api.example.com/auth/github" {
		t.Fatalf("OAuthURL without return = %q", got)
	}
}

func TestDoJSONRequest_OK(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/wallet/balance" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"value":"ok"}`))
	})

	client, _ := newTestClient(t, handler)

	type Response struct {
		Value string `json:"value"`
	}

	var out Response

	status, err := DoJSONRequest(
		context.Background(),
		client,
		http.MethodGet,
		"/wallet/balance",
		"access-token",
		nil,
		&out,
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if status != http.StatusOK {
		t.Fatalf("unexpected status: %d", status)
	}

	if out.Value != "ok" {
		t.Fatalf("unexpected value: %s", out.Value)
	}
}
