package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/healthrocket-labs/ignition/internal/app/progression"
	"github.com/healthrocket-labs/ignition/internal/domain"
	"github.com/healthrocket-labs/ignition/internal/infra/metrics"
)

// errStatus maps sentinel errors to HTTP status codes.
func errStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnknownPlayer), errors.Is(err, domain.ErrUnknownContest):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrAlreadyRegistered):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNoCredits):
		return http.StatusPaymentRequired
	case errors.Is(err, domain.ErrPaymentsDisabled):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrTransientExternal):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// --- /api/players (provision) ---

type createPlayerRequest struct {
	PlayerID         string `json:"player_id"`
	IsPreviewAccount bool   `json:"is_preview_account"`
	CreditsRemaining int    `json:"credits_remaining"`
}

func (s *Server) handleCreatePlayer(w http.ResponseWriter, r *http.Request) {
	var req createPlayerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.PlayerID == "" {
		writeError(w, http.StatusBadRequest, "player_id is required")
		return
	}

	if err := s.admin.EnsurePlayer(r.Context(), req.PlayerID, req.IsPreviewAccount, req.CreditsRemaining); err != nil {
		writeError(w, errStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"player_id": req.PlayerID})
}

// --- /api/players/{playerID}/devices ---

type setDeviceRequest struct {
	DeviceName string `json:"device_name"`
	Connected  bool   `json:"connected"`
}

func (s *Server) handleSetDevice(w http.ResponseWriter, r *http.Request) {
	playerID := chi.URLParam(r, "playerID")

	var req setDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.DeviceName == "" {
		writeError(w, http.StatusBadRequest, "device_name is required")
		return
	}

	if err := s.admin.SetDeviceConnected(r.Context(), playerID, req.DeviceName, req.Connected); err != nil {
		writeError(w, errStatus(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- /api/players/{playerID}/progress ---

type progressResponse struct {
	PlayerID          string  `json:"player_id"`
	TotalFuelPoints   int64   `json:"total_fuel_points"`
	Level             int     `json:"level"`
	CurrentLevelFP    int64   `json:"current_level_fp"`
	NextLevelFP       int64   `json:"next_level_fp"`
	ProgressPct       float64 `json:"progress_pct"`
	StreakDays        int     `json:"streak_days"`
	DaysUntilRotation int     `json:"days_until_rotation"`
}

func (s *Server) progressView(r *http.Request, playerID string) (progressResponse, error) {
	p, err := s.store.GetProgress(r.Context(), playerID)
	if err != nil {
		return progressResponse{}, err
	}

	li, err := progression.LevelFor(p.TotalFuelPoints)
	if err != nil {
		return progressResponse{}, err
	}

	// The streak is derived from history on every read; the stored counter
	// is only a cache for the nightly reset.
	history, err := s.store.Completions(r.Context(), playerID, domain.KindBoost, time.Time{})
	if err != nil {
		return progressResponse{}, fmt.Errorf("load boost history: %w", err)
	}
	now := s.now()
	st := progression.ComputeStreak(history, now)

	return progressResponse{
		PlayerID:          p.PlayerID,
		TotalFuelPoints:   p.TotalFuelPoints,
		Level:             li.Level,
		CurrentLevelFP:    li.CurrentLevelFP,
		NextLevelFP:       li.NextLevelFP,
		ProgressPct:       li.ProgressPct(p.TotalFuelPoints),
		StreakDays:        st.StreakDays,
		DaysUntilRotation: progression.DaysUntilRotation(now),
	}, nil
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	view, err := s.progressView(r, chi.URLParam(r, "playerID"))
	if err != nil {
		writeError(w, errStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// --- /api/players/{playerID}/eligibility ---

// handleEligibility is the read-only check: it reports the decision without
// recording anything.
func (s *Server) handleEligibility(w http.ResponseWriter, r *http.Request) {
	playerID := chi.URLParam(r, "playerID")

	var intent domain.Intent
	if err := json.NewDecoder(r.Body).Decode(&intent); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	d, err := s.gate.Check(r.Context(), playerID, intent)
	if err != nil {
		writeError(w, errStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// --- /api/players/{playerID}/boosts/{boostID}/complete ---

type completeBoostRequest struct {
	FuelPoints int64 `json:"fuel_points"`
}

type completionResponse struct {
	CompletionID  string           `json:"completion_id"`
	AwardedFP     int64            `json:"awarded_fp"`
	StreakDays    int              `json:"streak_days,omitempty"`
	StreakBonusFP int64            `json:"streak_bonus_fp,omitempty"`
	Progress      progressResponse `json:"progress"`
}

func (s *Server) handleCompleteBoost(w http.ResponseWriter, r *http.Request) {
	playerID := chi.URLParam(r, "playerID")
	boostID := chi.URLParam(r, "boostID")

	var req completeBoostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.FuelPoints < domain.FPBoostMin || req.FuelPoints > domain.FPBoostMax {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("boost fuel_points must be between %d and %d", domain.FPBoostMin, domain.FPBoostMax))
		return
	}

	d, err := s.gate.Check(r.Context(), playerID, domain.Intent{Kind: domain.IntentStartBoost, ActionID: boostID})
	if err != nil {
		writeError(w, errStatus(err), err.Error())
		return
	}
	if !d.Admitted {
		writeJSON(w, http.StatusConflict, d)
		return
	}

	now := s.now()

	// First boost of the reference-timezone day extends the streak; the
	// milestone bonus is decided against history before recording, then
	// credited as its own history entry so it is never re-awarded.
	local := now.In(s.loc)
	startOfDay := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc)
	today, err := s.store.Completions(r.Context(), playerID, domain.KindBoost, startOfDay)
	if err != nil {
		writeError(w, errStatus(err), err.Error())
		return
	}
	firstToday := len(today) == 0

	completion := domain.ActionCompletion{
		ID:          uuid.NewString(),
		PlayerID:    playerID,
		Kind:        domain.KindBoost,
		ActionID:    boostID,
		CompletedAt: now,
		AwardedFP:   req.FuelPoints,
	}
	if err := s.store.AppendCompletion(r.Context(), completion); err != nil {
		writeError(w, errStatus(err), err.Error())
		return
	}
	s.ledger.RecordCompletion(playerID, domain.KindBoost, boostID, now)
	metrics.CompletionsTotal.WithLabelValues(string(domain.KindBoost)).Inc()
	metrics.FuelPointsAwarded.Add(float64(req.FuelPoints))

	history, err := s.store.Completions(r.Context(), playerID, domain.KindBoost, time.Time{})
	if err != nil {
		writeError(w, errStatus(err), err.Error())
		return
	}
	st := progression.ComputeStreak(history, now)

	var bonusFP int64
	if firstToday && st.BonusFP > 0 {
		bonus := domain.ActionCompletion{
			ID:          uuid.NewString(),
			PlayerID:    playerID,
			Kind:        domain.KindStreakBonus,
			ActionID:    fmt.Sprintf("burn-streak-day-%d", st.StreakDays),
			CompletedAt: now,
			AwardedFP:   st.BonusFP,
		}
		if err := s.store.AppendCompletion(r.Context(), bonus); err != nil {
			writeError(w, errStatus(err), err.Error())
			return
		}
		bonusFP = st.BonusFP
		metrics.CompletionsTotal.WithLabelValues(string(domain.KindStreakBonus)).Inc()
		metrics.FuelPointsAwarded.Add(float64(bonusFP))
	}

	view, err := s.progressView(r, playerID)
	if err != nil {
		writeError(w, errStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, completionResponse{
		CompletionID:  completion.ID,
		AwardedFP:     req.FuelPoints,
		StreakDays:    st.StreakDays,
		StreakBonusFP: bonusFP,
		Progress:      view,
	})
}

// --- /api/players/{playerID}/challenges/{id}/complete, quests likewise ---

// Challenges and quests carry fixed awards and no cooldown, so completion
// is a plain history append.
func (s *Server) handleCompleteChallenge(w http.ResponseWriter, r *http.Request) {
	s.completeUngated(w, r, domain.KindChallenge, chi.URLParam(r, "challengeID"), domain.FPChallenge)
}

func (s *Server) handleCompleteQuest(w http.ResponseWriter, r *http.Request) {
	s.completeUngated(w, r, domain.KindQuest, chi.URLParam(r, "questID"), domain.FPQuest)
}

func (s *Server) completeUngated(w http.ResponseWriter, r *http.Request, kind domain.ActionKind, actionID string, fp int64) {
	playerID := chi.URLParam(r, "playerID")

	completion := domain.ActionCompletion{
		ID:          uuid.NewString(),
		PlayerID:    playerID,
		Kind:        kind,
		ActionID:    actionID,
		CompletedAt: s.now(),
		AwardedFP:   fp,
	}
	if err := s.store.AppendCompletion(r.Context(), completion); err != nil {
		writeError(w, errStatus(err), err.Error())
		return
	}
	metrics.CompletionsTotal.WithLabelValues(string(kind)).Inc()
	metrics.FuelPointsAwarded.Add(float64(fp))

	view, err := s.progressView(r, playerID)
	if err != nil {
		writeError(w, errStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, completionResponse{
		CompletionID: completion.ID,
		AwardedFP:    fp,
		Progress:     view,
	})
}

// --- /api/players/{playerID}/contests/{contestID}/register ---

type registerResponse struct {
	Registered bool             `json:"registered"`
	Via        string           `json:"via,omitempty"` // "credit" or "free"
	PaymentURL string           `json:"payment_url,omitempty"`
	Decision   *domain.Decision `json:"decision,omitempty"`
}

func (s *Server) handleRegisterContest(w http.ResponseWriter, r *http.Request) {
	playerID := chi.URLParam(r, "playerID")
	contestID := chi.URLParam(r, "contestID")

	d, err := s.gate.Check(r.Context(), playerID, domain.Intent{Kind: domain.IntentRegisterContest, ActionID: contestID})
	if err != nil {
		writeError(w, errStatus(err), err.Error())
		return
	}
	if !d.Admitted {
		writeJSON(w, http.StatusConflict, registerResponse{Decision: &d})
		return
	}

	switch {
	case d.ConsumeCredit:
		if err := s.oracle.ConsumeCredit(r.Context(), playerID, contestID); err != nil {
			writeError(w, errStatus(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, registerResponse{Registered: true, Via: "credit"})

	case d.PaymentRequired:
		if s.payments == nil {
			err := fmt.Errorf("%w: no payment provider configured", domain.ErrPaymentsDisabled)
			writeError(w, errStatus(err), err.Error())
			return
		}
		contest := s.contests[contestID]
		url, err := s.payments.CreateSession(r.Context(), playerID, contestID, contest.EntryFeeUSD)
		if err != nil {
			writeError(w, errStatus(err), err.Error())
			return
		}
		// Registration lands after the provider confirms payment.
		writeJSON(w, http.StatusOK, registerResponse{Registered: false, PaymentURL: url})

	default:
		if err := s.store.RegisterContest(r.Context(), playerID, contestID); err != nil {
			writeError(w, errStatus(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, registerResponse{Registered: true, Via: "free"})
	}
}

// --- /api/players/{playerID}/assessment ---

type assessmentResponse struct {
	CompletionID string           `json:"completion_id"`
	AwardedFP    int64            `json:"awarded_fp"`
	Progress     progressResponse `json:"progress"`
}

// handleSubmitAssessment records a health assessment. The award is 10% of
// the FP the next level requires, taken before the award itself lands.
func (s *Server) handleSubmitAssessment(w http.ResponseWriter, r *http.Request) {
	playerID := chi.URLParam(r, "playerID")

	d, err := s.gate.Check(r.Context(), playerID, domain.Intent{Kind: domain.IntentSubmitAssessment})
	if err != nil {
		writeError(w, errStatus(err), err.Error())
		return
	}
	if !d.Admitted {
		writeJSON(w, http.StatusConflict, d)
		return
	}

	p, err := s.store.GetProgress(r.Context(), playerID)
	if err != nil {
		writeError(w, errStatus(err), err.Error())
		return
	}
	li, err := progression.LevelFor(p.TotalFuelPoints)
	if err != nil {
		writeError(w, errStatus(err), err.Error())
		return
	}
	bonus := progression.AssessmentBonus(li.NextLevelFP)

	now := s.now()
	completion := domain.ActionCompletion{
		ID:          uuid.NewString(),
		PlayerID:    playerID,
		Kind:        domain.KindAssessment,
		ActionID:    domain.AssessmentActionID,
		CompletedAt: now,
		AwardedFP:   bonus,
	}
	if err := s.store.AppendCompletion(r.Context(), completion); err != nil {
		writeError(w, errStatus(err), err.Error())
		return
	}
	s.ledger.RecordCompletion(playerID, domain.KindAssessment, domain.AssessmentActionID, now)
	metrics.CompletionsTotal.WithLabelValues(string(domain.KindAssessment)).Inc()
	metrics.FuelPointsAwarded.Add(float64(bonus))

	view, err := s.progressView(r, playerID)
	if err != nil {
		writeError(w, errStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, assessmentResponse{
		CompletionID: completion.ID,
		AwardedFP:    bonus,
		Progress:     view,
	})
}

// --- /api/contests ---

func (s *Server) handleListContests(w http.ResponseWriter, r *http.Request) {
	out := make([]domain.Contest, 0, len(s.contests))
	for _, c := range s.contests {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"contests": out,
	})
}

// --- /api/reset/status ---

func (s *Server) handleResetStatus(w http.ResponseWriter, r *http.Request) {
	if s.scheduler == nil {
		writeError(w, http.StatusNotFound, "reset scheduler is not running")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"timezone":  domain.ReferenceTimezone,
		"next_fire": s.scheduler.Next(),
	})
}
