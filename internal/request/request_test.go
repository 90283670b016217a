package request_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/courtapp/releasetools/internal/request"
	"github.com/courtapp/releasetools/internal/testutil"
)

func TestMakeJSON(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/json":
			if r.Header.Get("Content-Type") != "application/json" {
				http.Error(w, "want JSON body", http.StatusBadRequest)
				return
			}
		case r.Method == http.MethodPost && r.URL.Path == "/form":
			if err := r.ParseForm(); err != nil || r.PostForm.Get("grant_type") != "assertion" {
				http.Error(w, "want form body", http.StatusBadRequest)
				return
			}
		case r.Method == http.MethodGet && r.URL.Path == "/builds":
			if r.Header.Get("Authorization") != "Bearer sekrit" {
				http.Error(w, "unauthorized: Bearer "+strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "), http.StatusUnauthorized)
				return
			}
		default:
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}
		testutil.ServeJSON(w, []byte(`{"message": "success"}`))
	}))
	defer ts.Close()

	cases := map[string]struct {
		params  request.Params
		want    string
		wantErr bool
	}{
		"JSON body": {
			params: request.Params{
				Method: http.MethodPost,
				URL:    ts.URL + "/json",
				Body:   map[string]string{"key": "value"},
			},
			want: `{"message": "success"}`,
		},
		"form body": {
			params: request.Params{
				Method: http.MethodPost,
				URL:    ts.URL + "/form",
				Body:   url.Values{"grant_type": {"assertion"}},
			},
			want: `{"message": "success"}`,
		},
		"headers and custom client": {
			params: request.Params{
				Method:     http.MethodGet,
				URL:        ts.URL + "/builds",
				Headers:    map[string]string{"Authorization": "Bearer sekrit"},
				HTTPClient: &http.Client{},
			},
			want: `{"message": "success"}`,
		},
		"invalid request path": {
			params: request.Params{
				Method: http.MethodPost,
				URL:    ts.URL + "/invalid",
			},
			wantErr: true,
		},
		"invalid value for JSON": {
			params: request.Params{
				Method: http.MethodPost,
				URL:    ts.URL + "/json",
				Body:   make(chan int),
			},
			wantErr: true,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			resp, err := request.MakeJSON[json.RawMessage](context.Background(), tc.params)
			if err != nil {
				if !tc.wantErr {
					t.Errorf("MakeJSON() error = %v, wantErr %v", err, tc.wantErr)
				}
				return
			}
			if tc.wantErr {
				t.Errorf("MakeJSON() expected error, got none")
			} else if string(resp) != tc.want {
				t.Errorf("MakeJSON() got = %v, want %v", resp, tc.want)
			}
		})
	}

	t.Run("scrubbed status error", func(t *testing.T) {
		_, err := request.MakeJSON[json.RawMessage](context.Background(), request.Params{
			Method:   http.MethodGet,
			URL:      ts.URL + "/builds",
			Headers:  map[string]string{"Authorization": "Bearer wrong-token"},
			Scrubber: strings.NewReplacer("wrong-token", "[EXPUNGED]"),
		})
		if err == nil {
			t.Fatal("want error")
		}
		if strings.Contains(err.Error(), "wrong-token") {
			t.Fatalf("token leaked into error: %v", err)
		}
		var se *request.StatusError
		if !errors.As(err, &se) {
			t.Fatalf("want *request.StatusError, got %T", err)
		}
		testutil.AssertEqual(t, se.StatusCode, http.StatusUnauthorized)
	})
}
