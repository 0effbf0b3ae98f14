package calculator

import (
	"net/http"
	"strings"
	"testing"

	"go-chi-calculator/internal/testutil"

	"github.com/go-chi/chi/v5"
)

func newTestAPI(t *testing.T, opts StoreOptions) http.Handler {
	t.Helper()
	r := chi.NewRouter()
	RegisterRoutes(r, NewHandler(NewStore(opts)))
	return r
}

func createSession(t *testing.T, api http.Handler) string {
	t.Helper()
	w := testutil.ExecuteRequest(testutil.NewJSONRequest(t, http.MethodPost, "/calculator/sessions", nil), api)
	testutil.CheckResponseCode(t, http.StatusCreated, w.Code)

	var resp SessionResponse
	testutil.DecodeJSONBody(t, w.Body, &resp)
	if resp.SessionID == "" {
		t.Fatal("expected session_id in response")
	}
	if resp.State != StateEmpty {
		t.Fatalf("expected state %q, got %q", StateEmpty, resp.State)
	}
	return resp.SessionID
}

func post(t *testing.T, api http.Handler, path string, body any) (int, SessionResponse, map[string]string) {
	t.Helper()
	w := testutil.ExecuteRequest(testutil.NewJSONRequest(t, http.MethodPost, path, body), api)

	var resp SessionResponse
	var errBody map[string]string
	if w.Code == http.StatusOK {
		testutil.DecodeJSONBody(t, w.Body, &resp)
	} else {
		testutil.DecodeJSONBody(t, w.Body, &errBody)
	}
	return w.Code, resp, errBody
}

func TestSessionComputeFlow(t *testing.T) {
	api := newTestAPI(t, StoreOptions{})
	base := "/calculator/sessions/" + createSession(t, api)

	code, resp, _ := post(t, api, base+"/digits", DigitRequest{Token: "1"})
	testutil.CheckResponseCode(t, http.StatusOK, code)
	code, resp, _ = post(t, api, base+"/digits", DigitRequest{Token: "2"})
	testutil.CheckResponseCode(t, http.StatusOK, code)
	if resp.CurrentOperand != "12" || resp.State != StateEnteringFirst {
		t.Fatalf("expected 12 while entering first operand, got %+v", resp)
	}

	code, resp, _ = post(t, api, base+"/operator", OperatorRequest{Symbol: "/"})
	testutil.CheckResponseCode(t, http.StatusOK, code)
	if resp.PreviousOperand != "12/" || resp.CurrentOperand != "" {
		t.Fatalf("expected previous 12/ and empty current, got %+v", resp)
	}

	_, _, _ = post(t, api, base+"/digits", DigitRequest{Token: "4"})

	code, resp, _ = post(t, api, base+"/compute", nil)
	testutil.CheckResponseCode(t, http.StatusOK, code)
	if resp.CurrentOperand != "3" || resp.PreviousOperand != "" || resp.State != StateResult {
		t.Fatalf("expected result 3, got %+v", resp)
	}
	if resp.Result == nil || *resp.Result != 3 {
		t.Fatalf("expected numeric result 3, got %v", resp.Result)
	}
}

func TestSessionDivisionByZeroKeepsScreen(t *testing.T) {
	api := newTestAPI(t, StoreOptions{})
	id := createSession(t, api)
	base := "/calculator/sessions/" + id

	_, _, _ = post(t, api, base+"/digits", DigitRequest{Token: "7"})
	_, _, _ = post(t, api, base+"/operator", OperatorRequest{Symbol: "/"})
	_, _, _ = post(t, api, base+"/digits", DigitRequest{Token: "0"})

	code, _, errBody := post(t, api, base+"/compute", nil)
	testutil.CheckResponseCode(t, http.StatusBadRequest, code)
	if !strings.Contains(errBody["error"], "division by zero") {
		t.Fatalf("expected division by zero error, got %q", errBody["error"])
	}

	w := testutil.ExecuteRequest(testutil.NewJSONRequest(t, http.MethodGet, base, nil), api)
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)

	var resp SessionResponse
	testutil.DecodeJSONBody(t, w.Body, &resp)
	if resp.CurrentOperand != "0" || resp.PreviousOperand != "7/" {
		t.Fatalf("expected screen 0 / 7/, got %+v", resp)
	}
}

func TestSessionOperatorOnEmptyScreenConflicts(t *testing.T) {
	api := newTestAPI(t, StoreOptions{})
	base := "/calculator/sessions/" + createSession(t, api)

	code, _, errBody := post(t, api, base+"/operator", OperatorRequest{Symbol: "+"})
	testutil.CheckResponseCode(t, http.StatusConflict, code)
	if !strings.Contains(errBody["error"], "invalid operation") {
		t.Fatalf("expected invalid operation error, got %q", errBody["error"])
	}
}

func TestSessionUnknownOperatorFailsAtCompute(t *testing.T) {
	api := newTestAPI(t, StoreOptions{})
	base := "/calculator/sessions/" + createSession(t, api)

	_, _, _ = post(t, api, base+"/digits", DigitRequest{Token: "9"})
	code, resp, _ := post(t, api, base+"/operator", OperatorRequest{Symbol: "%"})
	testutil.CheckResponseCode(t, http.StatusOK, code)
	if resp.PreviousOperand != "9%" {
		t.Fatalf("expected previous 9%%, got %q", resp.PreviousOperand)
	}

	_, _, _ = post(t, api, base+"/digits", DigitRequest{Token: "2"})
	code, _, errBody := post(t, api, base+"/compute", nil)
	testutil.CheckResponseCode(t, http.StatusBadRequest, code)
	if !strings.Contains(errBody["error"], "invalid operator") {
		t.Fatalf("expected invalid operator error, got %q", errBody["error"])
	}
}

func TestSessionClear(t *testing.T) {
	api := newTestAPI(t, StoreOptions{})
	base := "/calculator/sessions/" + createSession(t, api)

	_, _, _ = post(t, api, base+"/digits", DigitRequest{Token: "5"})
	_, _, _ = post(t, api, base+"/operator", OperatorRequest{Symbol: "-"})

	for i := 0; i < 2; i++ {
		code, resp, _ := post(t, api, base+"/clear", nil)
		testutil.CheckResponseCode(t, http.StatusOK, code)
		if resp.CurrentOperand != "" || resp.PreviousOperand != "" || resp.State != StateEmpty {
			t.Fatalf("clear #%d: expected empty screen, got %+v", i+1, resp)
		}
	}
}

func TestSessionInputValidation(t *testing.T) {
	api := newTestAPI(t, StoreOptions{})
	base := "/calculator/sessions/" + createSession(t, api)

	tests := []struct {
		name string
		path string
		body any
	}{
		{name: "empty token", path: base + "/digits", body: DigitRequest{}},
		{name: "empty symbol", path: base + "/operator", body: OperatorRequest{}},
		{name: "missing body", path: base + "/digits", body: nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			code, _, errBody := post(t, api, tc.path, tc.body)
			testutil.CheckResponseCode(t, http.StatusBadRequest, code)
			if errBody["error"] == "" {
				t.Fatal("expected error message")
			}
		})
	}
}

func TestSessionNotFound(t *testing.T) {
	api := newTestAPI(t, StoreOptions{})

	code, _, _ := post(t, api, "/calculator/sessions/does-not-exist/compute", nil)
	testutil.CheckResponseCode(t, http.StatusNotFound, code)

	w := testutil.ExecuteRequest(testutil.NewJSONRequest(t, http.MethodDelete, "/calculator/sessions/does-not-exist", nil), api)
	testutil.CheckResponseCode(t, http.StatusNotFound, w.Code)
}

func TestSessionLimit(t *testing.T) {
	api := newTestAPI(t, StoreOptions{MaxSessions: 1})
	_ = createSession(t, api)

	w := testutil.ExecuteRequest(testutil.NewJSONRequest(t, http.MethodPost, "/calculator/sessions", nil), api)
	testutil.CheckResponseCode(t, http.StatusServiceUnavailable, w.Code)
}

func TestBinaryOperations(t *testing.T) {
	api := newTestAPI(t, StoreOptions{})

	tests := []struct {
		path    string
		a, b    float64
		want    float64
		display string
	}{
		{path: "/calculator/add", a: 2, b: 3, want: 5, display: "5"},
		{path: "/calculator/subtract", a: 2, b: 3, want: -1, display: "-1"},
		{path: "/calculator/multiply", a: -1.5, b: 4, want: -6, display: "-6"},
		{path: "/calculator/divide", a: 1, b: 4, want: 0.25, display: "0.25"},
		{path: "/calculator/subtract", a: -2, b: -3, want: 1, display: "1"},
	}

	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			w := testutil.ExecuteRequest(testutil.NewJSONRequest(t, http.MethodPost, tc.path, CalcRequest{A: tc.a, B: tc.b}), api)
			testutil.CheckResponseCode(t, http.StatusOK, w.Code)

			var resp CalcResponse
			testutil.DecodeJSONBody(t, w.Body, &resp)
			if resp.Result == nil || *resp.Result != tc.want {
				t.Fatalf("expected result %g, got %v", tc.want, resp.Result)
			}
			if resp.Display != tc.display {
				t.Fatalf("expected display %q, got %q", tc.display, resp.Display)
			}
		})
	}
}

func TestBinaryOperationOverflowOmitsResult(t *testing.T) {
	api := newTestAPI(t, StoreOptions{})

	w := testutil.ExecuteRequest(testutil.NewJSONRequest(t, http.MethodPost, "/calculator/multiply", CalcRequest{A: 1e308, B: 10}), api)
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)

	var payload map[string]any
	testutil.DecodeJSONBody(t, w.Body, &payload)
	if _, ok := payload["result"]; ok {
		t.Fatalf("did not expect result for overflow, got %#v", payload["result"])
	}
	if payload["display"] != "Infinity" {
		t.Fatalf("expected display Infinity, got %#v", payload["display"])
	}
}

func TestDivideByZero(t *testing.T) {
	api := newTestAPI(t, StoreOptions{})

	w := testutil.ExecuteRequest(testutil.NewJSONRequest(t, http.MethodPost, "/calculator/divide", CalcRequest{A: 1, B: 0}), api)
	testutil.CheckResponseCode(t, http.StatusBadRequest, w.Code)
}

func TestBinaryOperationRejectsBadJSON(t *testing.T) {
	api := newTestAPI(t, StoreOptions{})

	req := testutil.NewJSONRequest(t, http.MethodPost, "/calculator/add", nil)
	req.Body = http.NoBody
	w := testutil.ExecuteRequest(req, api)
	testutil.CheckResponseCode(t, http.StatusBadRequest, w.Code)
}

func TestChain(t *testing.T) {
	api := newTestAPI(t, StoreOptions{})

	body := ChainRequest{
		Initial: 10,
		Steps: []ChainStep{
			{Op: "add", Value: 5},
			{Op: "multiply", Value: 2},
			{Op: "-", Value: 6},
			{Op: "divide", Value: 4},
		},
	}

	w := testutil.ExecuteRequest(testutil.NewJSONRequest(t, http.MethodPost, "/calculator/chain", body), api)
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)

	var resp ChainResponse
	testutil.DecodeJSONBody(t, w.Body, &resp)

	want := []float64{15, 30, 24, 6}
	if len(resp.Steps) != len(want) {
		t.Fatalf("expected %d steps, got %d", len(want), len(resp.Steps))
	}
	for i, step := range resp.Steps {
		if step.Result == nil || *step.Result != want[i] {
			t.Fatalf("step %d: expected %g, got %v", i, want[i], step.Result)
		}
	}
	if resp.Result == nil || *resp.Result != 6 || resp.Display != "6" {
		t.Fatalf("expected final result 6, got %v (%q)", resp.Result, resp.Display)
	}
}

func TestChainErrors(t *testing.T) {
	api := newTestAPI(t, StoreOptions{})

	tests := []struct {
		name    string
		body    ChainRequest
		wantErr string
	}{
		{
			name:    "no steps",
			body:    ChainRequest{Initial: 1},
			wantErr: "no steps provided",
		},
		{
			name:    "division by zero",
			body:    ChainRequest{Initial: 1, Steps: []ChainStep{{Op: "add", Value: 1}, {Op: "divide", Value: 0}}},
			wantErr: "step 1: division by zero",
		},
		{
			name:    "unknown operation",
			body:    ChainRequest{Initial: 1, Steps: []ChainStep{{Op: "power", Value: 2}}},
			wantErr: "step 0: invalid operator",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := testutil.ExecuteRequest(testutil.NewJSONRequest(t, http.MethodPost, "/calculator/chain", tc.body), api)
			testutil.CheckResponseCode(t, http.StatusBadRequest, w.Code)

			var errBody map[string]string
			testutil.DecodeJSONBody(t, w.Body, &errBody)
			if !strings.HasPrefix(errBody["error"], tc.wantErr) {
				t.Fatalf("expected error starting with %q, got %q", tc.wantErr, errBody["error"])
			}
		})
	}
}
