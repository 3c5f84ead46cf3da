package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"tradeengine/src/engine"
	"tradeengine/src/notify"
	"tradeengine/src/repository"
)

// newValidationEngine builds an engine that only ever reaches the request
// validation step, which is all these handler tests exercise.
func newValidationEngine() *engine.Engine {
	return engine.New(
		repository.NewPositionRepository(),
		nil,
		nil,
		nil,
		notify.NewEmitter(nil, nil, nil, "tester"),
		engine.Config{Asset: "USDT", UserID: "tester"},
	)
}

func TestSubmitTradeHandlerRejectsBadPayloads(t *testing.T) {
	h := SubmitTradeHandler(newValidationEngine())

	cases := []struct {
		name string
		body string
	}{
		{"malformed json", `{"instrument_type":`},
		{"unknown field", `{"instrument_type":"spot","venue":"nyse"}`},
		{"unknown instrument", `{"instrument_type":"margin","symbol":"BTCUSDT","amount":"10"}`},
		{"zero amount", `{"instrument_type":"spot","direction":"buy","symbol":"BTCUSDT","amount":"0"}`},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/trades", strings.NewReader(c.body))
			recorder := httptest.NewRecorder()
			h.ServeHTTP(recorder, req)

			if recorder.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", recorder.Code, recorder.Body.String())
			}
		})
	}
}

func TestOverrideHandlerRejectsBadOutcome(t *testing.T) {
	router := chi.NewRouter()
	router.Post("/admin/positions/{id}/override", OverrideHandler(newValidationEngine()))

	cases := []struct {
		name string
		body string
	}{
		{"malformed json", `{`},
		{"unknown outcome", `{"outcome":"draw"}`},
		{"empty outcome", `{}`},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/admin/positions/abc/override", strings.NewReader(c.body))
			recorder := httptest.NewRecorder()
			router.ServeHTTP(recorder, req)

			if recorder.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", recorder.Code, recorder.Body.String())
			}
		})
	}
}
