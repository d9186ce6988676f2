package api

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// ticketTTL is how long an unredeemed WebSocket ticket stays valid.
	ticketTTL = 60 * time.Second

	// ticketBytes of randomness per ticket.
	ticketBytes = 32

	// defaultTokenTTLMinutes applies when security.jwt.access_token_ttl
	// is unset.
	defaultTokenTTLMinutes = 15

	// devUsername is the static development operator account.
	// Deployments put the API behind their own identity provider; these
	// credentials exist so the endpoints work out of the box.
	devUsername = "operator"
	devPassword = "operator"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// ticketStore issues and redeems single-use WebSocket tickets.
type ticketStore struct {
	mu      sync.Mutex
	pending map[string]time.Time // ticket -> expiry
}

var wsTickets = &ticketStore{pending: make(map[string]time.Time)}

// issue mints a random ticket valid for ttl.
func (ts *ticketStore) issue(ttl time.Duration) string {
	b := make([]byte, ticketBytes)
	//nolint:errcheck // crypto/rand.Read cannot fail on supported platforms
	rand.Read(b)
	ticket := hex.EncodeToString(b)

	ts.mu.Lock()
	ts.pending[ticket] = time.Now().Add(ttl)
	ts.mu.Unlock()
	return ticket
}

// redeem consumes a ticket, reporting whether it was valid. A ticket
// can be redeemed at most once.
func (ts *ticketStore) redeem(ticket string) bool {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	expiry, ok := ts.pending[ticket]
	if !ok {
		return false
	}
	delete(ts.pending, ticket)
	return time.Now().Before(expiry)
}

// sweep drops tickets that expired without being redeemed.
func (ts *ticketStore) sweep() {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	now := time.Now()
	for ticket, expiry := range ts.pending {
		if now.After(expiry) {
			delete(ts.pending, ticket)
		}
	}
}

// handleLogin authenticates an operator and returns a signed HS256
// access token.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Username != devUsername || req.Password != devPassword {
		writeUnauthorized(w, "invalid credentials")
		return
	}

	ttl := s.secCfg.JWT.AccessTokenTTL
	if ttl == 0 {
		ttl = defaultTokenTTLMinutes
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  req.Username,
		"iat":  now.Unix(),
		"exp":  now.Add(time.Duration(ttl) * time.Minute).Unix(),
		"role": "operator",
	})
	signed, err := token.SignedString([]byte(s.secCfg.JWT.Secret))
	if err != nil {
		writeInternalError(w, "failed to generate token")
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresIn:   ttl * 60,
	})
}

// handleWSTicket issues a single-use WebSocket ticket so the JWT never
// has to appear in a connection URL.
func (s *Server) handleWSTicket(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ticket":     wsTickets.issue(ticketTTL),
		"expires_in": int(ticketTTL.Seconds()),
	})
}

// cleanTicketsLoop sweeps expired tickets until ctx is cancelled.
func (s *Server) cleanTicketsLoop(ctx context.Context) {
	ticker := time.NewTicker(ticketTTL)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			wsTickets.sweep()
		}
	}
}
