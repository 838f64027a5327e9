package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/healthrocket-labs/ignition/internal/app/cooldown"
	"github.com/healthrocket-labs/ignition/internal/app/eligibility"
	"github.com/healthrocket-labs/ignition/internal/domain"
	"github.com/healthrocket-labs/ignition/internal/infra/sqlite"
)

func testCatalog() []domain.Contest {
	return []domain.Contest{
		{ID: "paid1", Name: "Sleep Masters", EntryFeeUSD: 75, FuelPoints: 100},
		{ID: "paid2", Name: "100 Mile Club", EntryFeeUSD: 75, FuelPoints: 100},
		{ID: "free1", Name: "Community Walk", EntryFeeUSD: 0, FuelPoints: 100},
	}
}

func newTestServer(t *testing.T) (*Server, *sqlite.DB) {
	t.Helper()

	db, err := sqlite.Open(t.TempDir(), testCatalog())
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ledger := cooldown.New()
	gate := eligibility.New(db, db, ledger, testCatalog())
	return NewServer(db, db, db, gate, ledger, testCatalog()), db
}

func doJSON(t *testing.T, h http.Handler, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]interface{}
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode response %q: %v", rec.Body.String(), err)
		}
	}
	return rec, out
}

func createPlayer(t *testing.T, h http.Handler, id string, preview bool, credits int) {
	t.Helper()
	rec, _ := doJSON(t, h, http.MethodPost, "/api/players", map[string]interface{}{
		"player_id":          id,
		"is_preview_account": preview,
		"credits_remaining":  credits,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create player: %d %s", rec.Code, rec.Body.String())
	}
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)
	rec, out := doJSON(t, s.Handler(), http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK || out["status"] != "ok" {
		t.Errorf("health = %d %v", rec.Code, out)
	}
}

func TestProgress_NewPlayer(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()
	createPlayer(t, h, "p1", false, 0)

	rec, out := doJSON(t, h, http.MethodGet, "/api/players/p1/progress", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("progress: %d %s", rec.Code, rec.Body.String())
	}
	if out["level"].(float64) != 1 {
		t.Errorf("level = %v, want 1", out["level"])
	}
	if out["next_level_fp"].(float64) != 20 {
		t.Errorf("next_level_fp = %v, want 20", out["next_level_fp"])
	}
}

func TestProgress_UnknownPlayer(t *testing.T) {
	s, _ := newTestServer(t)
	rec, _ := doJSON(t, s.Handler(), http.MethodGet, "/api/players/ghost/progress", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestCompleteBoost_FullFlow(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()
	createPlayer(t, h, "p1", false, 0)

	rec, out := doJSON(t, h, http.MethodPost, "/api/players/p1/boosts/b1/complete",
		map[string]int64{"fuel_points": 9})
	if rec.Code != http.StatusOK {
		t.Fatalf("complete: %d %s", rec.Code, rec.Body.String())
	}
	if out["awarded_fp"].(float64) != 9 {
		t.Errorf("awarded_fp = %v, want 9", out["awarded_fp"])
	}
	if out["streak_days"].(float64) != 1 {
		t.Errorf("streak_days = %v, want 1", out["streak_days"])
	}

	// Same boost again: 7-day cooldown.
	rec, _ = doJSON(t, h, http.MethodPost, "/api/players/p1/boosts/b1/complete",
		map[string]int64{"fuel_points": 9})
	if rec.Code != http.StatusConflict {
		t.Fatalf("repeat status = %d, want 409", rec.Code)
	}

	// Two more distinct boosts fill today's slots.
	for _, id := range []string{"b2", "b3"} {
		rec, _ = doJSON(t, h, http.MethodPost, "/api/players/p1/boosts/"+id+"/complete",
			map[string]int64{"fuel_points": 5})
		if rec.Code != http.StatusOK {
			t.Fatalf("complete %s: %d %s", id, rec.Code, rec.Body.String())
		}
	}
	rec, out = doJSON(t, h, http.MethodPost, "/api/players/p1/boosts/b4/complete",
		map[string]int64{"fuel_points": 5})
	if rec.Code != http.StatusConflict {
		t.Fatalf("fourth boost status = %d, want 409", rec.Code)
	}
	if out["reason"] != string(domain.DenySlotLimitReached) {
		t.Errorf("reason = %v, want slot_limit_reached", out["reason"])
	}
}

func TestCompleteBoost_RejectsOutOfRangeFP(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()
	createPlayer(t, h, "p1", false, 0)

	for _, fp := range []int64{0, 10, -1} {
		rec, _ := doJSON(t, h, http.MethodPost, "/api/players/p1/boosts/b1/complete",
			map[string]int64{"fuel_points": fp})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("fp=%d status = %d, want 400", fp, rec.Code)
		}
	}
}

func TestCompleteChallengeAndQuest(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()
	createPlayer(t, h, "p1", false, 0)

	rec, out := doJSON(t, h, http.MethodPost, "/api/players/p1/challenges/ch1/complete", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("challenge: %d %s", rec.Code, rec.Body.String())
	}
	if out["awarded_fp"].(float64) != 50 {
		t.Errorf("challenge awarded_fp = %v, want 50", out["awarded_fp"])
	}

	rec, out = doJSON(t, h, http.MethodPost, "/api/players/p1/quests/q1/complete", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("quest: %d %s", rec.Code, rec.Body.String())
	}
	if out["awarded_fp"].(float64) != 150 {
		t.Errorf("quest awarded_fp = %v, want 150", out["awarded_fp"])
	}

	// 200 FP total: level 8 needs 163, level 9 needs 230.
	progress := out["progress"].(map[string]interface{})
	if progress["total_fuel_points"].(float64) != 200 {
		t.Errorf("total = %v, want 200", progress["total_fuel_points"])
	}
	if progress["level"].(float64) != 8 {
		t.Errorf("level = %v, want 8", progress["level"])
	}
}

func TestSubmitAssessment(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()
	createPlayer(t, h, "p1", false, 0)

	// Next level needs 20 FP, so the bonus is round(0.1 * 20) = 2.
	rec, out := doJSON(t, h, http.MethodPost, "/api/players/p1/assessment", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("assessment: %d %s", rec.Code, rec.Body.String())
	}
	if out["awarded_fp"].(float64) != 2 {
		t.Errorf("awarded_fp = %v, want 2", out["awarded_fp"])
	}

	// 30-day cadence blocks the second submission.
	rec, out = doJSON(t, h, http.MethodPost, "/api/players/p1/assessment", nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("repeat status = %d, want 409", rec.Code)
	}
	if out["reason"] != string(domain.DenyCooldownActive) {
		t.Errorf("reason = %v, want cooldown_active", out["reason"])
	}
}

func TestRegisterContest_Free(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()
	createPlayer(t, h, "p1", false, 0)

	rec, out := doJSON(t, h, http.MethodPost, "/api/players/p1/contests/free1/register", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("register: %d %s", rec.Code, rec.Body.String())
	}
	if out["registered"] != true || out["via"] != "free" {
		t.Errorf("got %v, want free registration", out)
	}

	rec, out = doJSON(t, h, http.MethodPost, "/api/players/p1/contests/free1/register", nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("repeat status = %d, want 409", rec.Code)
	}
	decision := out["decision"].(map[string]interface{})
	if decision["reason"] != string(domain.DenyAlreadyRegistered) {
		t.Errorf("reason = %v, want already_registered", decision["reason"])
	}
}

func TestRegisterContest_PreviewCredit(t *testing.T) {
	s, db := newTestServer(t)
	h := s.Handler()
	createPlayer(t, h, "p1", true, 1)

	rec, out := doJSON(t, h, http.MethodPost, "/api/players/p1/contests/paid1/register", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("register: %d %s", rec.Code, rec.Body.String())
	}
	if out["registered"] != true || out["via"] != "credit" {
		t.Errorf("got %v, want credit registration", out)
	}

	c, err := db.CheckCredits(context.Background(), "p1")
	if err != nil {
		t.Fatalf("check credits: %v", err)
	}
	if c.CreditsRemaining != 0 {
		t.Errorf("CreditsRemaining = %d, want 0", c.CreditsRemaining)
	}
}

type fakePayments struct{ sessions int }

func (f *fakePayments) CreateSession(_ context.Context, playerID, contestID string, entryFeeUSD int) (string, error) {
	f.sessions++
	return fmt.Sprintf("https://pay.test/%s/%s/%d", playerID, contestID, entryFeeUSD), nil
}

func TestRegisterContest_PaymentRequired(t *testing.T) {
	s, _ := newTestServer(t)
	createPlayer(t, s.Handler(), "p1", false, 0)

	// Without a provider, a paid registration is unavailable.
	rec, _ := doJSON(t, s.Handler(), http.MethodPost, "/api/players/p1/contests/paid1/register", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("no provider status = %d, want 503", rec.Code)
	}

	fp := &fakePayments{}
	s.SetPayments(fp)
	rec, out := doJSON(t, s.Handler(), http.MethodPost, "/api/players/p1/contests/paid1/register", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("register: %d %s", rec.Code, rec.Body.String())
	}
	if out["registered"] != false {
		t.Error("payment-pending registration must not be registered yet")
	}
	if out["payment_url"] != "https://pay.test/p1/paid1/75" {
		t.Errorf("payment_url = %v", out["payment_url"])
	}
	if fp.sessions != 1 {
		t.Errorf("sessions = %d, want 1", fp.sessions)
	}
}

func TestRegisterContest_Unknown(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()
	createPlayer(t, h, "p1", false, 0)

	rec, _ := doJSON(t, h, http.MethodPost, "/api/players/p1/contests/nope/register", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestListContests(t *testing.T) {
	s, _ := newTestServer(t)
	rec, out := doJSON(t, s.Handler(), http.MethodGet, "/api/contests", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("contests: %d", rec.Code)
	}
	contests := out["contests"].([]interface{})
	if len(contests) != 3 {
		t.Errorf("got %d contests, want 3", len(contests))
	}
	first := contests[0].(map[string]interface{})
	if first["id"] != "free1" {
		t.Errorf("first contest = %v, want free1 (sorted by ID)", first["id"])
	}
}

func TestResetStatus_NotRunning(t *testing.T) {
	s, _ := newTestServer(t)
	rec, _ := doJSON(t, s.Handler(), http.MethodGet, "/api/reset/status", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestEligibilityEndpoint_ReadOnly(t *testing.T) {
	s, db := newTestServer(t)
	h := s.Handler()
	createPlayer(t, h, "p1", true, 1)

	rec, out := doJSON(t, h, http.MethodPost, "/api/players/p1/eligibility",
		domain.Intent{Kind: domain.IntentRegisterContest, ActionID: "paid1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("eligibility: %d %s", rec.Code, rec.Body.String())
	}
	if out["admitted"] != true || out["consume_credit"] != true {
		t.Errorf("got %v, want credit admit", out)
	}

	// The check must not consume anything.
	c, err := db.CheckCredits(context.Background(), "p1")
	if err != nil {
		t.Fatalf("check credits: %v", err)
	}
	if c.CreditsRemaining != 1 {
		t.Errorf("CreditsRemaining = %d after read-only check, want 1", c.CreditsRemaining)
	}
}
