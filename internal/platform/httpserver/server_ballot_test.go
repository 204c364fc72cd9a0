package httpserver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	ballotengine "quorum/contexts/governance/ballot-engine"
	"quorum/contexts/governance/ballot-engine/domain/entities"
	ballothttp "quorum/contexts/governance/ballot-engine/transport/http"
)

const (
	testOperator = "0x0000000000000000000000000000000000000001"
	testAlice    = "0x0000000000000000000000000000000000000009"
	testBob      = "0x000000000000000000000000000000000000000a"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	operator, err := entities.ParseAddress(testOperator)
	if err != nil {
		t.Fatalf("parse operator failed: %v", err)
	}
	module := ballotengine.NewInMemoryModule([]entities.Address{operator}, nil)
	return New(module, nil, ":0")
}

func doJSON(t *testing.T, server *Server, method string, path string, caller string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			t.Fatalf("encode request failed: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if caller != "" {
		req.Header.Set("X-Caller-Address", caller)
	}
	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	return rr
}

// seedBallot registers one two-proposal resolution and two voters, then opens
// the window immediately by setting a start in the past.
func seedBallot(t *testing.T, server *Server) {
	t.Helper()
	rr := doJSON(t, server, http.MethodPost, "/api/ballot/v1/resolutions", testOperator, ballothttp.AddResolutionsRequest{
		Names:          []string{"budget"},
		URLs:           []string{"https://example.test/budget"},
		ProposalCounts: []int{2},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("add resolutions: expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, server, http.MethodPost, "/api/ballot/v1/voters", testOperator, ballothttp.RegisterVotersRequest{
		Voters:  []string{testAlice, testBob},
		Weights: []uint64{5, 3},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("register voters: expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}

	now := time.Now().UTC().Unix()
	rr = doJSON(t, server, http.MethodPost, "/api/ballot/v1/window", testOperator, ballothttp.SetWindowRequest{
		StartsAt: now - 60,
		EndsAt:   now + 3_600,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("set window: expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestBallotVoteFlow(t *testing.T) {
	server := newTestServer(t)
	seedBallot(t, server)

	rr := doJSON(t, server, http.MethodPost, "/api/ballot/v1/votes", testAlice, ballothttp.CastVoteRequest{
		ResolutionID: 0,
		ProposalID:   0,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("alice vote: expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	var vote ballothttp.VoteResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &vote); err != nil {
		t.Fatalf("decode vote response failed: %v", err)
	}
	if vote.Weight != 5 {
		t.Fatalf("expected weight 5 recorded, got %d", vote.Weight)
	}

	rr = doJSON(t, server, http.MethodPost, "/api/ballot/v1/votes", testBob, ballothttp.CastVoteRequest{
		ResolutionID: 0,
		ProposalID:   1,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("bob vote: expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, server, http.MethodGet, "/api/ballot/v1/resolutions/0/results", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("results: expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	var results ballothttp.ResolutionResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &results); err != nil {
		t.Fatalf("decode results failed: %v", err)
	}
	if len(results.Tallies) != 2 || results.Tallies[0] != 5 || results.Tallies[1] != 3 {
		t.Fatalf("expected tallies [5 3], got %v", results.Tallies)
	}

	rr = doJSON(t, server, http.MethodGet, fmt.Sprintf("/api/ballot/v1/voters/%s/resolutions/0/voted", testAlice), "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("has voted: expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	var voted ballothttp.HasVotedResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &voted); err != nil {
		t.Fatalf("decode has voted failed: %v", err)
	}
	if !voted.Voted {
		t.Fatalf("expected alice marked as voted")
	}
}

func TestBallotDoubleVoteConflict(t *testing.T) {
	server := newTestServer(t)
	seedBallot(t, server)

	rr := doJSON(t, server, http.MethodPost, "/api/ballot/v1/votes", testAlice, ballothttp.CastVoteRequest{
		ResolutionID: 0,
		ProposalID:   0,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("first vote: expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	rr = doJSON(t, server, http.MethodPost, "/api/ballot/v1/votes", testAlice, ballothttp.CastVoteRequest{
		ResolutionID: 0,
		ProposalID:   1,
	})
	if rr.Code != http.StatusConflict {
		t.Fatalf("double vote: expected 409, got %d body=%s", rr.Code, rr.Body.String())
	}
	var resp ballothttp.ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error response failed: %v", err)
	}
	if resp.Code != "already_voted" {
		t.Fatalf("expected already_voted, got %s", resp.Code)
	}
}

func TestBallotVoteBeforeWindowOpens(t *testing.T) {
	server := newTestServer(t)

	rr := doJSON(t, server, http.MethodPost, "/api/ballot/v1/voters", testOperator, ballothttp.RegisterVotersRequest{
		Voters:  []string{testAlice},
		Weights: []uint64{5},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("register voters: expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, server, http.MethodPost, "/api/ballot/v1/votes", testAlice, ballothttp.CastVoteRequest{
		ResolutionID: 0,
		ProposalID:   0,
	})
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409 before window, got %d body=%s", rr.Code, rr.Body.String())
	}
	var resp ballothttp.ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error response failed: %v", err)
	}
	if resp.Code != "session_not_open" {
		t.Fatalf("expected session_not_open, got %s", resp.Code)
	}
}

func TestBallotWindowLifecycle(t *testing.T) {
	server := newTestServer(t)

	rr := doJSON(t, server, http.MethodGet, "/api/ballot/v1/window", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("get window: expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	var window ballothttp.WindowResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &window); err != nil {
		t.Fatalf("decode window failed: %v", err)
	}
	if window.Phase != string(entities.PhaseUnconfigured) {
		t.Fatalf("expected unconfigured phase, got %s", window.Phase)
	}

	now := time.Now().UTC().Unix()
	rr = doJSON(t, server, http.MethodPost, "/api/ballot/v1/window", testOperator, ballothttp.SetWindowRequest{
		StartsAt: now + 3_600,
		EndsAt:   now + 3_000,
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("inverted window: expected 400, got %d body=%s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, server, http.MethodPost, "/api/ballot/v1/window", testOperator, ballothttp.SetWindowRequest{
		StartsAt: now - 60,
		EndsAt:   now + 3_600,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("set window: expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	// A past start opens the session immediately, and the set response must
	// report the derived phase, not assume before_open.
	var configured ballothttp.WindowResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &configured); err != nil {
		t.Fatalf("decode window failed: %v", err)
	}
	if configured.Phase != string(entities.PhaseOpen) {
		t.Fatalf("expected open phase in set response, got %s", configured.Phase)
	}

	// The window opened immediately, so a second configuration is rejected.
	rr = doJSON(t, server, http.MethodPost, "/api/ballot/v1/window", testOperator, ballothttp.SetWindowRequest{
		StartsAt: now + 7_200,
		EndsAt:   now + 9_000,
	})
	if rr.Code != http.StatusConflict {
		t.Fatalf("reconfigure open window: expected 409, got %d body=%s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, server, http.MethodGet, "/api/ballot/v1/window", "", nil)
	var opened ballothttp.WindowResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &opened); err != nil {
		t.Fatalf("decode window failed: %v", err)
	}
	if opened.Phase != string(entities.PhaseOpen) {
		t.Fatalf("expected open phase, got %s", opened.Phase)
	}
}

func TestBallotLengthMismatch(t *testing.T) {
	server := newTestServer(t)

	rr := doJSON(t, server, http.MethodPost, "/api/ballot/v1/resolutions", testOperator, ballothttp.AddResolutionsRequest{
		Names:          []string{"a", "b"},
		URLs:           []string{"u"},
		ProposalCounts: []int{1, 1},
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", rr.Code, rr.Body.String())
	}
	var resp ballothttp.ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error response failed: %v", err)
	}
	if resp.Code != "length_mismatch" {
		t.Fatalf("expected length_mismatch, got %s", resp.Code)
	}
}

func TestBallotDelegationFlow(t *testing.T) {
	server := newTestServer(t)

	rr := doJSON(t, server, http.MethodPost, "/api/ballot/v1/resolutions", testOperator, ballothttp.AddResolutionsRequest{
		Names:          []string{"budget"},
		URLs:           []string{""},
		ProposalCounts: []int{2},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("add resolutions: expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	rr = doJSON(t, server, http.MethodPost, "/api/ballot/v1/voters", testOperator, ballothttp.RegisterVotersRequest{
		Voters:  []string{testAlice, testBob},
		Weights: []uint64{5, 3},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("register voters: expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, server, http.MethodPost, "/api/ballot/v1/delegation", testAlice, ballothttp.DelegateRequest{
		Delegate: testBob,
	})
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delegate: expected 204, got %d body=%s", rr.Code, rr.Body.String())
	}

	now := time.Now().UTC().Unix()
	rr = doJSON(t, server, http.MethodPost, "/api/ballot/v1/window", testOperator, ballothttp.SetWindowRequest{
		StartsAt: now - 60,
		EndsAt:   now + 3_600,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("set window: expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, server, http.MethodPost, "/api/ballot/v1/votes", testBob, ballothttp.CastVoteRequest{
		Voter:        testAlice,
		ResolutionID: 0,
		ProposalID:   1,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("delegate vote: expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	var vote ballothttp.VoteResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &vote); err != nil {
		t.Fatalf("decode vote failed: %v", err)
	}
	if vote.Voter != testAlice || vote.Weight != 5 {
		t.Fatalf("expected alice's ballot with weight 5, got %+v", vote)
	}

	rr = doJSON(t, server, http.MethodGet, "/api/ballot/v1/voters/"+testAlice, "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("voter profile: expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	var profile ballothttp.VoterResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &profile); err != nil {
		t.Fatalf("decode profile failed: %v", err)
	}
	if profile.Delegate != testBob {
		t.Fatalf("expected delegate %s, got %s", testBob, profile.Delegate)
	}
	if len(profile.Voted) != 1 || profile.Voted[0] != 0 {
		t.Fatalf("expected voted [0], got %v", profile.Voted)
	}
}

func TestBallotAnalytics(t *testing.T) {
	server := newTestServer(t)
	seedBallot(t, server)

	rr := doJSON(t, server, http.MethodPost, "/api/ballot/v1/votes", testAlice, ballothttp.CastVoteRequest{
		ResolutionID: 0,
		ProposalID:   0,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("vote: expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, server, http.MethodGet, "/api/ballot/v1/analytics", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("analytics: expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	var report ballothttp.TurnoutResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode analytics failed: %v", err)
	}
	if report.RegisteredVoters != 2 || report.TotalWeight != 8 {
		t.Fatalf("unexpected registry summary %+v", report)
	}
	if len(report.Resolutions) != 1 || report.Resolutions[0].BallotsCast != 1 || report.Resolutions[0].WeightCast != 5 {
		t.Fatalf("unexpected resolution turnout %+v", report.Resolutions)
	}
}

func TestBallotUnknownResolution(t *testing.T) {
	server := newTestServer(t)
	rr := doJSON(t, server, http.MethodGet, "/api/ballot/v1/resolutions/7/results", "", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d body=%s", rr.Code, rr.Body.String())
	}
	rr = doJSON(t, server, http.MethodGet, "/api/ballot/v1/resolutions/abc/results", "", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed id, got %d body=%s", rr.Code, rr.Body.String())
	}
}
