// Package fakeportal is an in-process portal backend for tests.
package fakeportal

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/auditportal/auditportal/internal/models"
)

// User is an account known to the fake backend.
type User struct {
	Password    string
	CompanyID   string
	ProjectName string
	MustChange  bool
}

// Upload is one recorded multipart upload.
type Upload struct {
	Filename     string
	Categories   []string
	DocumentName string
	Content      []byte
}

// Request is one recorded request.
type Request struct {
	Method string
	Path   string
	Query  string
	Auth   string
}

type override struct {
	status int
	body   string
}

// Server is a fake backend. Fields may be changed between requests under
// Lock/Unlock or through the setters.
type Server struct {
	*httptest.Server

	mu         sync.Mutex
	users      map[string]User
	tokens     map[string]string // token -> username
	changes    map[string]string // change token -> username
	categories []models.CategoryRecord
	files      []models.FileRecord
	blobs      map[string]string // blobPath -> path served by this server
	blobData   map[string][]byte
	uploads    []Upload
	chats      map[string][]models.ChatMessage
	wrapChat   bool
	templates  []models.TemplateFile
	reports    []models.TemplateFile
	wrapReport bool
	dashboard  models.Dashboard
	overrides  map[string]override
	requests   []Request
	failures   map[string]int // route -> remaining 503 responses
}

// New starts a fake backend. Close it with s.Close().
func New() *Server {
	s := &Server{
		users:     make(map[string]User),
		tokens:    make(map[string]string),
		changes:   make(map[string]string),
		blobs:     make(map[string]string),
		blobData:  make(map[string][]byte),
		chats:     make(map[string][]models.ChatMessage),
		overrides: make(map[string]override),
		failures:  make(map[string]int),
	}
	s.Server = httptest.NewServer(s.router())
	return s
}

func (s *Server) router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.record)
	r.HandleFunc("/api/auth/login", s.handleLogin).Methods("POST")
	r.HandleFunc("/api/auth/password/change", s.handleChangePassword).Methods("POST")
	r.HandleFunc("/api/categories", s.authed(s.handleCategories)).Methods("GET")
	r.HandleFunc("/api/files", s.authed(s.handleFiles)).Methods("GET")
	r.HandleFunc("/api/files/url", s.authed(s.handleFileURL)).Methods("GET")
	r.HandleFunc("/api/files/upload", s.authed(s.handleUpload)).Methods("POST")
	r.HandleFunc("/api/dashboard/stats", s.authed(s.handleDashboard)).Methods("GET")
	r.HandleFunc("/api/chat/start", s.authed(s.handleChatStart)).Methods("POST")
	r.HandleFunc("/api/chat/history/{cid}", s.authed(s.handleChatHistory)).Methods("GET")
	r.HandleFunc("/api/chat/send", s.authed(s.handleChatSend)).Methods("POST")
	r.HandleFunc("/api/templates", s.authed(s.handleTemplates)).Methods("GET")
	r.HandleFunc("/api/report", s.authed(s.handleReports)).Methods("GET")
	r.HandleFunc("/blob/{name}", s.handleBlob).Methods("GET", "HEAD")
	return r
}

// record logs the request and applies overrides and injected failures.
func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Auth:   r.Header.Get("Authorization"),
		})
		key := r.Method + " " + r.URL.Path
		ov, hasOverride := s.overrides[key]
		fail := s.failures[key] > 0
		if fail {
			s.failures[key]--
		}
		s.mu.Unlock()

		if fail {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "try again"})
			return
		}
		if hasOverride {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(ov.status)
			io.WriteString(w, ov.body)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authed(h func(http.ResponseWriter, *http.Request, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		s.mu.Lock()
		username, ok := s.tokens[token]
		s.mu.Unlock()
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
			return
		}
		h(w, r, username)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// AddUser registers an account.
func (s *Server) AddUser(username string, u User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[username] = u
}

// IssueToken returns a valid bearer token for username without a login.
func (s *Server) IssueToken(username string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	token := "tok-" + uuid.NewString()
	s.tokens[token] = username
	return token
}

// SetCategories replaces the master category list.
func (s *Server) SetCategories(c []models.CategoryRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories = c
}

// SetFiles replaces the file list. /api/files filters it by userId.
func (s *Server) SetFiles(f []models.FileRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files = f
}

// AddBlob makes blobPath resolvable through /api/files/url and serves
// data at the returned URL.
func (s *Server) AddBlob(blobPath string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	name := uuid.NewString()
	s.blobs[blobPath] = "/blob/" + name
	s.blobData[name] = data
}

// BlobURL returns a direct URL that serves data, for templates and reports.
func (s *Server) BlobURL(data []byte) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	name := uuid.NewString()
	s.blobData[name] = data
	return s.URL + "/blob/" + name
}

// SetTemplates replaces the template list.
func (s *Server) SetTemplates(t []models.TemplateFile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates = t
}

// SetReports replaces the report list; wrapped selects the {files} shape.
func (s *Server) SetReports(r []models.TemplateFile, wrapped bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = r
	s.wrapReport = wrapped
}

// SetDashboard replaces the dashboard payload.
func (s *Server) SetDashboard(d models.Dashboard) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dashboard = d
}

// WrapChatHistory selects the {messages} history shape.
func (s *Server) WrapChatHistory(wrapped bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wrapChat = wrapped
}

// AddSupportReply appends an outbound message to a conversation.
func (s *Server) AddSupportReply(cid, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chats[cid] = append(s.chats[cid], models.ChatMessage{
		Direction: models.DirectionOutbound,
		Sender:    "support",
		Body:      text,
		CreatedAt: "2024-05-01T10:00:00Z",
	})
}

// Override makes method+path answer with a fixed status and raw body.
func (s *Server) Override(method, path string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides[method+" "+path] = override{status: status, body: body}
}

// ClearOverride removes an override.
func (s *Server) ClearOverride(method, path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.overrides, method+" "+path)
}

// FailNext makes the next n requests to method+path answer 503.
func (s *Server) FailNext(method, path string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method+" "+path] = n
}

// Uploads returns the recorded uploads.
func (s *Server) Uploads() []Upload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Upload(nil), s.uploads...)
}

// Requests returns the recorded requests.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Messages returns a conversation's messages.
func (s *Server) Messages(cid string) []models.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.ChatMessage(nil), s.chats[cid]...)
}

// PasswordOf returns the stored password of username.
func (s *Server) PasswordOf(username string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[username].Password
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad request"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[req.Username]
	if !ok || u.Password != req.Password || u.CompanyID != req.CompanyID {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid credentials"})
		return
	}
	info := models.UserInfo{Username: req.Username, ProjectName: u.ProjectName, CompanyID: u.CompanyID}
	if u.MustChange {
		change := "chg-" + uuid.NewString()
		s.changes[change] = req.Username
		writeJSON(w, http.StatusOK, models.LoginResponse{RequiresPasswordChange: true, ChangeToken: change, User: info})
		return
	}
	token := "tok-" + uuid.NewString()
	s.tokens[token] = req.Username
	writeJSON(w, http.StatusOK, models.LoginResponse{Token: token, User: info})
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	var req models.ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad request"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	username, ok := s.changes[token]
	if !ok {
		username, ok = s.tokens[token]
	}
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}
	u := s.users[username]
	if u.Password != req.CurrentPassword {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Current password is incorrect"})
		return
	}
	u.Password = req.NewPassword
	u.MustChange = false
	s.users[username] = u
	delete(s.changes, token)
	writeJSON(w, http.StatusOK, models.MessageResponse{Message: "Password changed"})
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request, _ string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.categories)
}

func (s *Server) handleFiles(w http.ResponseWriter, r *http.Request, _ string) {
	userID := r.URL.Query().Get("userId")
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.FileRecord{}
	for _, f := range s.files {
		if f.Username == userID {
			out = append(out, f)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleFileURL(w http.ResponseWriter, r *http.Request, _ string) {
	blobPath := r.URL.Query().Get("blobPath")
	s.mu.Lock()
	path, ok := s.blobs[blobPath]
	s.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "File not found"})
		return
	}
	writeJSON(w, http.StatusOK, models.FileURLResponse{URL: s.URL + path})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request, _ string) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No file uploaded"})
		return
	}
	defer file.Close()
	data, _ := io.ReadAll(file)

	up := Upload{
		Filename:     header.Filename,
		Categories:   r.MultipartForm.Value["categories[]"],
		DocumentName: r.FormValue("documentName"),
		Content:      data,
	}
	s.mu.Lock()
	s.uploads = append(s.uploads, up)
	id := len(s.uploads)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, models.UploadResponse{Message: "File uploaded", ID: int64(id)})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request, _ string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.dashboard)
}

func (s *Server) handleChatStart(w http.ResponseWriter, r *http.Request, username string) {
	var req models.StartChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad request"})
		return
	}
	cid := req.ConversationID
	if cid == "" {
		cid = fmt.Sprintf("conv-%s", username)
	}
	s.mu.Lock()
	if _, ok := s.chats[cid]; !ok {
		s.chats[cid] = []models.ChatMessage{}
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, models.StartChatResponse{ConversationID: cid})
}

func (s *Server) handleChatHistory(w http.ResponseWriter, r *http.Request, _ string) {
	cid := mux.Vars(r)["cid"]
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs, ok := s.chats[cid]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Conversation not found"})
		return
	}
	if s.wrapChat {
		writeJSON(w, http.StatusOK, map[string]interface{}{"messages": msgs})
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

func (s *Server) handleChatSend(w http.ResponseWriter, r *http.Request, username string) {
	var req models.SendChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Text) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "text is required"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.chats[req.ConversationID]; !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Conversation not found"})
		return
	}
	s.chats[req.ConversationID] = append(s.chats[req.ConversationID], models.ChatMessage{
		Direction: models.DirectionInbound,
		Sender:    username,
		Body:      req.Text,
		CreatedAt: "2024-05-01T09:00:00Z",
	})
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleTemplates(w http.ResponseWriter, r *http.Request, _ string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.templates)
}

func (s *Server) handleReports(w http.ResponseWriter, r *http.Request, _ string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.wrapReport {
		writeJSON(w, http.StatusOK, map[string]interface{}{"files": s.reports})
		return
	}
	writeJSON(w, http.StatusOK, s.reports)
}

func (s *Server) handleBlob(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	s.mu.Lock()
	data, ok := s.blobData[name]
	s.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", fmt.Sprint(len(data)))
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		w.Write(data)
	}
}
