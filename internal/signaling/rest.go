package signaling

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RESTCandidate is one ICE candidate as exchanged over the REST rendezvous.
type RESTCandidate struct {
	Candidate     string `json:"candidate"`
	SDPMid        string `json:"sdp_mid"`
	SDPMLineIndex int    `json:"sdp_mline_index"`
}

// SessionCreateRequest is the body of POST /api/session.
type SessionCreateRequest struct {
	SessionID  string          `json:"session_id"`
	Offer      string          `json:"offer"`
	Candidates []RESTCandidate `json:"candidates"`
	PinHash    string          `json:"pin_hash,omitempty"`
	TTL        int             `json:"ttl"`
}

// SessionAnswerRequest is the body of POST /api/session/{id}/answer.
type SessionAnswerRequest struct {
	Answer     string          `json:"answer"`
	Candidates []RESTCandidate `json:"candidates"`
}

// SessionICERequest is the body of POST /api/session/{id}/ice.
type SessionICERequest struct {
	Role      string        `json:"role"` // "host" or "client"
	Candidate RESTCandidate `json:"candidate"`
}

// SessionGetResponse is the body of GET /api/session/{id}.
type SessionGetResponse struct {
	SessionID  string          `json:"session_id"`
	Offer      string          `json:"offer"`
	Answer     string          `json:"answer,omitempty"`
	Candidates []RESTCandidate `json:"candidates"`
}

type restSession struct {
	offer          string
	answer         string
	pinHash        string
	expiresAt      time.Time
	hostCandidates []RESTCandidate
	clientCandidates []RESTCandidate
}

// RESTServer is a stateless-rendezvous REST signaling endpoint: host
// registers an offer, a viewer fetches it and posts an answer, both sides
// trickle ICE candidates through it, and the session is torn down
// explicitly or on TTL expiry. Rate-limited per spec.md; the limiter is a
// single shared bucket, matching the pack's relay-session rate limiting.
type RESTServer struct {
	mu       sync.Mutex
	sessions map[string]*restSession
	limiter  *rate.Limiter
}

// NewRESTServer builds a REST rendezvous allowing ratePerSecond requests
// per second with a small burst.
func NewRESTServer(ratePerSecond float64) *RESTServer {
	return &RESTServer{
		sessions: make(map[string]*restSession),
		limiter:  rate.NewLimiter(rate.Limit(ratePerSecond), int(ratePerSecond)+1),
	}
}

func (s *RESTServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/session", s.handleSessionCollection)
	mux.HandleFunc("/api/session/", s.handleSessionItem)
	return mux
}

func (s *RESTServer) rateLimited(w http.ResponseWriter) bool {
	if s.limiter.Allow() {
		return false
	}
	w.WriteHeader(http.StatusTooManyRequests)
	fmt.Fprintln(w, `{"error":"rate limit exceeded"}`)
	return true
}

func (s *RESTServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	n := len(s.sessions)
	s.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status":"ok","clients":0,"rooms":%d}`, n)
}

func (s *RESTServer) handleSessionCollection(w http.ResponseWriter, r *http.Request) {
	if s.rateLimited(w) {
		return
	}
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req SessionCreateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ttl := time.Duration(req.TTL) * time.Second
	if ttl <= 0 {
		ttl = 300 * time.Second
	}

	s.mu.Lock()
	s.sessions[req.SessionID] = &restSession{
		offer:          req.Offer,
		pinHash:        req.PinHash,
		expiresAt:      time.Now().Add(ttl),
		hostCandidates: req.Candidates,
	}
	s.mu.Unlock()

	w.WriteHeader(http.StatusOK)
}

func (s *RESTServer) handleSessionItem(w http.ResponseWriter, r *http.Request) {
	if s.rateLimited(w) {
		return
	}
	id, sub := splitSessionPath(r.URL.Path)
	if id == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	s.mu.Lock()
	sess, ok := s.sessions[id]
	if ok && time.Now().After(sess.expiresAt) {
		delete(s.sessions, id)
		ok = false
		s.mu.Unlock()
		w.WriteHeader(http.StatusGone)
		return
	}
	s.mu.Unlock()

	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	switch {
	case sub == "" && r.Method == http.MethodGet:
		s.mu.Lock()
		resp := SessionGetResponse{SessionID: id, Offer: sess.offer, Answer: sess.answer, Candidates: append(sess.hostCandidates, sess.clientCandidates...)}
		s.mu.Unlock()
		writeJSON(w, resp)

	case sub == "" && r.Method == http.MethodDelete:
		s.mu.Lock()
		delete(s.sessions, id)
		s.mu.Unlock()
		w.WriteHeader(http.StatusOK)

	case sub == "answer" && r.Method == http.MethodPost:
		var req SessionAnswerRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		s.mu.Lock()
		sess.answer = req.Answer
		sess.clientCandidates = append(sess.clientCandidates, req.Candidates...)
		s.mu.Unlock()
		w.WriteHeader(http.StatusOK)

	case sub == "ice" && r.Method == http.MethodPost:
		var req SessionICERequest
		if !decodeJSON(w, r, &req) {
			return
		}
		s.mu.Lock()
		if req.Role == "host" {
			sess.hostCandidates = append(sess.hostCandidates, req.Candidate)
		} else {
			sess.clientCandidates = append(sess.clientCandidates, req.Candidate)
		}
		s.mu.Unlock()
		w.WriteHeader(http.StatusOK)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func splitSessionPath(path string) (id, sub string) {
	const prefix = "/api/session/"
	if len(path) <= len(prefix) {
		return "", ""
	}
	rest := path[len(prefix):]
	for i := 0; i < len(rest); i++ {
		if rest[i] == '/' {
			return rest[:i], rest[i+1:]
		}
	}
	return rest, ""
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return false
	}
	if err := json.Unmarshal(body, v); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(body)
}

// RESTClient is the remote rendezvous consumer side: it creates a session,
// polls/fetches it, posts the answer, and trickles ICE candidates.
type RESTClient struct {
	baseURL string
	http    *http.Client
}

// NewRESTClient builds a REST signaling client against baseURL (e.g.
// "https://relay.example.com").
func NewRESTClient(baseURL string) *RESTClient {
	return &RESTClient{baseURL: baseURL, http: &http.Client{Timeout: 10 * time.Second}}
}

func (c *RESTClient) CreateSession(req SessionCreateRequest) error {
	return c.post("/api/session", req, nil)
}

func (c *RESTClient) GetSession(id string) (*SessionGetResponse, error) {
	resp, err := c.http.Get(c.baseURL + "/api/session/" + id)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("signaling: get session: status %d", resp.StatusCode)
	}
	var out SessionGetResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *RESTClient) PostAnswer(id string, req SessionAnswerRequest) error {
	return c.post("/api/session/"+id+"/answer", req, nil)
}

func (c *RESTClient) PostICE(id string, req SessionICERequest) error {
	return c.post("/api/session/"+id+"/ice", req, nil)
}

func (c *RESTClient) DeleteSession(id string) error {
	r, err := http.NewRequest(http.MethodDelete, c.baseURL+"/api/session/"+id, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(r)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return nil
}

func (c *RESTClient) post(path string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	resp, err := c.http.Post(c.baseURL+path, "application/json", bytes.NewReader(data))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("signaling: rate limited")
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("signaling: status %d", resp.StatusCode)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
