// Package api is the client for the RootYou REST backend. All business
// logic lives server-side; this package only shapes requests, attaches the
// bearer credential, and maps failures to stable error codes.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// maxBodySize caps response bodies read into memory (1 MB).
const maxBodySize = 1 << 20

// TokenSource provides the stored raw bearer token. session.Store satisfies
// it. Load errors are treated as "no credential".
type TokenSource interface {
	Load() (string, error)
}

// MetricsRecorder is an optional interface for instrumenting backend calls.
type MetricsRecorder interface {
	IncAPIRequest(method, path string, statusCode int)
	ObserveAPIDuration(method, path string, seconds float64)
	IncNetworkError(errorType string)
}

// Client talks to the RootYou backend.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	metrics MetricsRecorder
}

// New creates a Client. tokens may be nil for unauthenticated use (login,
// registration).
func New(baseURL string, timeout time.Duration, tokens TokenSource) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		tokens:  tokens,
	}
}

// SetMetrics sets the optional metrics recorder.
func (c *Client) SetMetrics(m MetricsRecorder) {
	c.metrics = m
}

// backend envelope for failures: {"message": "..."}.
type errorBody struct {
	Message string `json:"message"`
}

type request struct {
	method string
	path   string
	query  url.Values
	body   interface{}
	authed bool
}

// do executes one backend call and decodes a JSON response into out (unless
// out is nil). Non-2xx statuses become *Error with a stable code; transport
// failures become *Error with CodeNetwork.
func (c *Client) do(ctx context.Context, req request, out interface{}) error {
	target := c.baseURL + req.path
	if len(req.query) > 0 {
		target += "?" + req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		data, err := json.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, body)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	// Each call carries its own ID so late responses can be told apart from
	// current ones in logs and by pollers.
	requestID := uuid.NewString()
	httpReq.Header.Set("X-Request-ID", requestID)

	if req.authed {
		token, err := c.tokens.Load()
		if err != nil || token == "" {
			return &Error{Status: http.StatusUnauthorized, Code: CodeUnauthorized, Message: "no stored credential"}
		}
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	elapsed := time.Since(start)

	if err != nil {
		kind := classifyNetworkError(err)
		if c.metrics != nil {
			c.metrics.IncNetworkError(kind)
		}
		slog.Warn("backend request failed",
			"method", req.method,
			"path", req.path,
			"request_id", requestID,
			"error_type", kind,
			"error", err,
		)
		return &Error{Code: CodeNetwork, Message: "impossible de contacter le serveur"}
	}
	defer resp.Body.Close()

	if c.metrics != nil {
		c.metrics.IncAPIRequest(req.method, req.path, resp.StatusCode)
		c.metrics.ObserveAPIDuration(req.method, req.path, elapsed.Seconds())
	}
	slog.Debug("backend request",
		"method", req.method,
		"path", req.path,
		"status", resp.StatusCode,
		"duration_ms", elapsed.Milliseconds(),
		"request_id", requestID,
	)

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return &Error{Status: resp.StatusCode, Code: CodeMalformedResponse, Message: "truncated response"}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.errorFromResponse(resp.StatusCode, data)
	}

	if out == nil || len(data) == 0 {
		return nil
	}

	// The login endpoint answers with the raw token, not JSON.
	if raw, ok := out.(*string); ok {
		*raw = strings.TrimSpace(strings.Trim(strings.TrimSpace(string(data)), `"`))
		return nil
	}

	if err := json.Unmarshal(data, out); err != nil {
		return &Error{Status: resp.StatusCode, Code: CodeMalformedResponse, Message: "unexpected response shape"}
	}
	return nil
}

// errorFromResponse builds an *Error from a non-2xx response, preferring the
// backend message when the envelope parses.
func (c *Client) errorFromResponse(status int, data []byte) error {
	msg := genericMessage(status)
	var envelope errorBody
	if err := json.Unmarshal(data, &envelope); err == nil && envelope.Message != "" {
		msg = envelope.Message
	}
	return &Error{Status: status, Code: codeForStatus(status), Message: msg}
}

func genericMessage(status int) string {
	switch {
	case status == http.StatusUnauthorized:
		return "session expirée"
	case status == http.StatusForbidden:
		return "accès refusé"
	case status == http.StatusNotFound:
		return "ressource introuvable"
	case status >= 500:
		return "erreur serveur"
	}
	return "requête refusée"
}

// --- Auth ---

// Login exchanges credentials for a raw bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	var token string
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/login",
		body:   map[string]string{"email": email, "password": password},
	}, &token)
	if err != nil {
		return "", err
	}
	if token == "" {
		return "", &Error{Code: CodeMalformedResponse, Message: "empty token in login response"}
	}
	return token, nil
}

// RegisterParticipant creates a participant account. The caller logs in
// separately afterwards.
func (c *Client) RegisterParticipant(ctx context.Context, email, pseudo, password string) error {
	return c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/register/participant",
		body:   map[string]string{"email": email, "pseudo": pseudo, "password": password},
	}, nil)
}

// --- CTFs ---

// ListCTFs returns the CTFs in the given lifecycle state.
func (c *Client) ListCTFs(ctx context.Context, status CTFStatus) ([]CTF, error) {
	var out []CTF
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   fmt.Sprintf("/ctfs/list/%s", status),
		authed: true,
	}, &out)
	return out, err
}

// GetCTF returns one CTF by ID.
func (c *Client) GetCTF(ctx context.Context, id int64) (*CTF, error) {
	var out CTF
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   fmt.Sprintf("/ctfs/%d", id),
		authed: true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// JoinCTF enrolls the current user.
func (c *Client) JoinCTF(ctx context.Context, id int64) error {
	return c.do(ctx, request{
		method: http.MethodPost,
		path:   fmt.Sprintf("/ctfs/%d/join", id),
		authed: true,
	}, nil)
}

// LeaveCTF withdraws the current user.
func (c *Client) LeaveCTF(ctx context.Context, id int64) error {
	return c.do(ctx, request{
		method: http.MethodPost,
		path:   fmt.Sprintf("/ctfs/%d/leave", id),
		authed: true,
	}, nil)
}

// RequestCTFCreation submits a new CTF for administrator validation.
func (c *Client) RequestCTFCreation(ctx context.Context, req CTFCreationRequest) error {
	return c.do(ctx, request{
		method: http.MethodPost,
		path:   "/ctfs/request_creation",
		body:   req,
		authed: true,
	}, nil)
}

// ModifyCTF updates a CTF's descriptive fields (its organizer, or an
// administrator).
func (c *Client) ModifyCTF(ctx context.Context, id int64, req CTFCreationRequest) error {
	return c.do(ctx, request{
		method: http.MethodPatch,
		path:   fmt.Sprintf("/ctfs/%d/modify", id),
		body:   req,
		authed: true,
	}, nil)
}

// ValidateCTF approves a pending CTF (administrator only).
func (c *Client) ValidateCTF(ctx context.Context, id int64) error {
	return c.do(ctx, request{
		method: http.MethodPost,
		path:   fmt.Sprintf("/ctfs/%d/validation", id),
		authed: true,
	}, nil)
}

// DisableCTF takes a CTF offline (administrator only).
func (c *Client) DisableCTF(ctx context.Context, id int64) error {
	return c.do(ctx, request{
		method: http.MethodPost,
		path:   fmt.Sprintf("/ctfs/%d/disable", id),
		authed: true,
	}, nil)
}

// MyParticipations returns the current user's historical participation
// records. The list may contain several records per CTF.
func (c *Client) MyParticipations(ctx context.Context, filter ParticipationFilter) ([]Participation, error) {
	var out []Participation
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/participants/me/participations",
		query:  url.Values{"filter": {string(filter)}},
		authed: true,
	}, &out)
	return out, err
}

// --- Teams ---

// AllTeams lists every team.
func (c *Client) AllTeams(ctx context.Context) ([]TeamSummary, error) {
	var out []TeamSummary
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/equipes/all",
		authed: true,
	}, &out)
	return out, err
}

// GetTeam returns a team with its member list.
func (c *Client) GetTeam(ctx context.Context, id int64) (*TeamDetails, error) {
	var out TeamDetails
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   fmt.Sprintf("/equipes/%d", id),
		authed: true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateTeam creates a team with the current user as chief.
func (c *Client) CreateTeam(ctx context.Context, name string) error {
	return c.do(ctx, request{
		method: http.MethodPost,
		path:   "/equipes/new",
		body:   map[string]string{"nomEquipe": name},
		authed: true,
	}, nil)
}

// RequestJoinTeam files a candidature for the given team.
func (c *Client) RequestJoinTeam(ctx context.Context, teamID int64) error {
	return c.do(ctx, request{
		method: http.MethodPost,
		path:   "/equipes/request",
		query:  url.Values{"equipeId": {fmt.Sprint(teamID)}},
		authed: true,
	}, nil)
}

// PendingCandidatures lists the team's unresolved join requests (chief only).
func (c *Client) PendingCandidatures(ctx context.Context, teamID int64) ([]Candidature, error) {
	var out []Candidature
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   fmt.Sprintf("/equipes/%d/members", teamID),
		query:  url.Values{"candidature_statut": {"EN_ATTENTE"}},
		authed: true,
	}, &out)
	return out, err
}

// RespondToRequest accepts or rejects a candidature. Responding twice to the
// same candidature is rejected by the backend.
func (c *Client) RespondToRequest(ctx context.Context, candidatureID int64, accept bool) error {
	return c.do(ctx, request{
		method: http.MethodPost,
		path:   "/equipes/respond_to_request",
		body: map[string]interface{}{
			"candidatureId": candidatureID,
			"accept":        accept,
		},
		authed: true,
	}, nil)
}

// LeaveTeam removes the current user from the team.
func (c *Client) LeaveTeam(ctx context.Context, teamID int64) error {
	return c.do(ctx, request{
		method: http.MethodPost,
		path:   "/equipes/leave",
		query:  url.Values{"equipeId": {fmt.Sprint(teamID)}},
		authed: true,
	}, nil)
}

// KickMember expels a member (chief only).
func (c *Client) KickMember(ctx context.Context, teamID int64, memberEmail string) error {
	return c.do(ctx, request{
		method: http.MethodPost,
		path:   "/equipes/kick",
		body: map[string]interface{}{
			"equipeId":    teamID,
			"membreEmail": memberEmail,
		},
		authed: true,
	}, nil)
}

// DesignateNewChief transfers team leadership to another member.
func (c *Client) DesignateNewChief(ctx context.Context, teamID int64, newChiefEmail string) error {
	return c.do(ctx, request{
		method: http.MethodPost,
		path:   "/equipes/designate_new_chef",
		body: map[string]interface{}{
			"equipeId":     teamID,
			"newChefEmail": newChiefEmail,
		},
		authed: true,
	}, nil)
}

// --- Messaging ---

type unreadCountResponse struct {
	UnreadCount int `json:"unreadCount"`
}

// UnreadCount returns the number of unread direct messages.
func (c *Client) UnreadCount(ctx context.Context) (int, error) {
	var out unreadCountResponse
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/messaging/unread-count",
		authed: true,
	}, &out)
	return out.UnreadCount, err
}

// Conversations lists the current user's conversations.
func (c *Client) Conversations(ctx context.Context) ([]Conversation, error) {
	var out []Conversation
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/messaging/conversations",
		authed: true,
	}, &out)
	return out, err
}

type startConversationResponse struct {
	ConversationID int64 `json:"conversationId"`
}

// StartConversation opens (or returns) the conversation with the recipient.
func (c *Client) StartConversation(ctx context.Context, recipientEmail string) (int64, error) {
	var out startConversationResponse
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/messaging/conversations/start",
		body:   map[string]string{"recipientEmail": recipientEmail},
		authed: true,
	}, &out)
	return out.ConversationID, err
}

// GetConversation returns a conversation with its message history.
func (c *Client) GetConversation(ctx context.Context, id int64) (*ConversationDetails, error) {
	var out ConversationDetails
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   fmt.Sprintf("/messaging/conversations/%d", id),
		authed: true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// SendMessage posts a message into the conversation.
func (c *Client) SendMessage(ctx context.Context, conversationID int64, contenu string) error {
	return c.do(ctx, request{
		method: http.MethodPost,
		path:   fmt.Sprintf("/messaging/conversations/%d/messages", conversationID),
		body:   map[string]string{"contenu": contenu},
		authed: true,
	}, nil)
}

// --- Comments ---

// CommentsForCTF lists a CTF's comments.
func (c *Client) CommentsForCTF(ctx context.Context, ctfID int64) ([]Comment, error) {
	var out []Comment
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   fmt.Sprintf("/comments/ctf/%d", ctfID),
		authed: true,
	}, &out)
	return out, err
}

// AddComment posts a comment on a CTF.
func (c *Client) AddComment(ctx context.Context, ctfID int64, contenu string) error {
	return c.do(ctx, request{
		method: http.MethodPost,
		path:   fmt.Sprintf("/comments/new/%d", ctfID),
		body:   map[string]string{"contenu": contenu},
		authed: true,
	}, nil)
}

// --- Users ---

// ListUsers returns every account of the given kind.
func (c *Client) ListUsers(ctx context.Context, kind UserKind) ([]User, error) {
	var out []User
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   fmt.Sprintf("/users/getall/%s", kind),
		authed: true,
	}, &out)
	return out, err
}

// BanUser bans an account (administrator only).
func (c *Client) BanUser(ctx context.Context, userEmail, reason string) error {
	return c.do(ctx, request{
		method: http.MethodPost,
		path:   "/users/ban",
		body: map[string]string{
			"userEmail": userEmail,
			"banReason": reason,
		},
		authed: true,
	}, nil)
}
