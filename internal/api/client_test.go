package api

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/auditportal/auditportal/internal/config"
	"github.com/auditportal/auditportal/internal/models"
	"github.com/auditportal/auditportal/internal/testutil/fakeportal"
)

func newTestClient(t *testing.T, srv *fakeportal.Server, token string) *Client {
	t.Helper()
	cfg := config.Default()
	cfg.APIBaseURL = srv.URL
	client, err := NewClient(cfg, token, nil)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return client
}

func TestNewClientRejectsEmptyBaseURL(t *testing.T) {
	cfg := config.Default()
	cfg.APIBaseURL = ""

	_, err := NewClient(cfg, "", nil)
	if err == nil {
		t.Fatal("NewClient() should return error for empty APIBaseURL")
	}
	if !strings.Contains(err.Error(), "API base URL is empty") {
		t.Errorf("NewClient() error = %q, want error containing 'API base URL is empty'", err.Error())
	}
	if !errors.Is(err, config.ErrMissingAPIURL) {
		t.Errorf("NewClient() error = %v, want ErrMissingAPIURL", err)
	}
}

func TestNewClientTrimsTrailingSlash(t *testing.T) {
	cfg := config.Default()
	cfg.APIBaseURL = "https://portal.example.org/"

	client, err := NewClient(cfg, "", nil)
	if err != nil {
		t.Fatalf("NewClient() error = %v, want nil", err)
	}
	if got, want := client.BaseURL(), "https://portal.example.org"; got != want {
		t.Errorf("BaseURL() = %q, want %q", got, want)
	}
	if client.TransferClient() == nil {
		t.Error("TransferClient() returned nil")
	}
}

func TestLogin(t *testing.T) {
	srv := fakeportal.New()
	defer srv.Close()
	srv.AddUser("bold", fakeportal.User{Password: "Secret#123", CompanyID: "c1", ProjectName: "Annual audit"})

	client := newTestClient(t, srv, "")
	resp, err := client.Login(context.Background(), models.LoginRequest{CompanyID: "c1", Username: "bold", Password: "Secret#123"})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if resp.Token == "" {
		t.Error("Login() returned empty token")
	}
	if resp.User.Username != "bold" || resp.User.ProjectName != "Annual audit" {
		t.Errorf("Login() user = %+v", resp.User)
	}

	_, err = client.Login(context.Background(), models.LoginRequest{CompanyID: "c1", Username: "bold", Password: "wrong"})
	if !IsUnauthorized(err) {
		t.Errorf("Login() with wrong password error = %v, want unauthorized", err)
	}
	if got := StatusCode(err); got != 401 {
		t.Errorf("StatusCode() = %d, want 401", got)
	}
	if !strings.Contains(err.Error(), "Invalid credentials") {
		t.Errorf("error %q should carry backend message", err)
	}
}

func TestLoginPasswordChangeRequired(t *testing.T) {
	srv := fakeportal.New()
	defer srv.Close()
	srv.AddUser("saraa", fakeportal.User{Password: "temp1234", CompanyID: "c1", MustChange: true})

	client := newTestClient(t, srv, "")
	resp, err := client.Login(context.Background(), models.LoginRequest{CompanyID: "c1", Username: "saraa", Password: "temp1234"})
	if !errors.Is(err, ErrPasswordChangeRequired) {
		t.Fatalf("Login() error = %v, want ErrPasswordChangeRequired", err)
	}
	if resp == nil || resp.ChangeToken == "" {
		t.Fatalf("Login() response = %+v, want change token", resp)
	}

	msg, err := client.WithToken(resp.ChangeToken).ChangePassword(context.Background(), "temp1234", "NewPass#99")
	if err != nil {
		t.Fatalf("ChangePassword() error = %v", err)
	}
	if msg == "" {
		t.Error("ChangePassword() returned empty message")
	}
	if got := srv.PasswordOf("saraa"); got != "NewPass#99" {
		t.Errorf("stored password = %q, want NewPass#99", got)
	}

	// Signing in again now yields a session token.
	resp, err = client.Login(context.Background(), models.LoginRequest{CompanyID: "c1", Username: "saraa", Password: "NewPass#99"})
	if err != nil || resp.Token == "" {
		t.Errorf("Login() after change = %+v, %v", resp, err)
	}
}

func TestChangePasswordWrongCurrent(t *testing.T) {
	srv := fakeportal.New()
	defer srv.Close()
	srv.AddUser("bold", fakeportal.User{Password: "Secret#123", CompanyID: "c1"})
	client := newTestClient(t, srv, srv.IssueToken("bold"))

	_, err := client.ChangePassword(context.Background(), "nope", "Other#123")
	if got := StatusCode(err); got != 400 {
		t.Fatalf("StatusCode() = %d, want 400 (err %v)", got, err)
	}
	if IsUnauthorized(err) {
		t.Error("400 should not count as unauthorized")
	}
}

func TestListCategoriesAndFiles(t *testing.T) {
	srv := fakeportal.New()
	defer srv.Close()
	srv.SetCategories([]models.CategoryRecord{
		{CategoryName: "Tax", Status: "Баталсан"},
		{CategoryName: "Legal"},
	})
	srv.SetFiles([]models.FileRecord{
		{ID: 1, Category: "Tax;Legal", Filename: "a.pdf", Username: "bold"},
		{ID: 2, Category: "Tax", Filename: "b.pdf", Username: "other"},
	})
	client := newTestClient(t, srv, srv.IssueToken("bold"))
	ctx := context.Background()

	cats, err := client.ListCategories(ctx)
	if err != nil {
		t.Fatalf("ListCategories() error = %v", err)
	}
	if len(cats) != 2 || cats[0].CategoryName != "Tax" || cats[0].Status != "Баталсан" {
		t.Errorf("ListCategories() = %+v", cats)
	}

	files, err := client.ListFiles(ctx, "bold")
	if err != nil {
		t.Fatalf("ListFiles() error = %v", err)
	}
	if len(files) != 1 || files[0].Filename != "a.pdf" {
		t.Errorf("ListFiles() = %+v, want only a.pdf", files)
	}

	var sawQuery bool
	for _, r := range srv.Requests() {
		if r.Path == "/api/files" && r.Query == "userId=bold" {
			sawQuery = true
		}
	}
	if !sawQuery {
		t.Error("ListFiles() did not send userId query")
	}
}

func TestListDegradesOnBadShapes(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantErr   bool
		wantShape bool
	}{
		{name: "null body", status: 200, body: "null"},
		{name: "empty array", status: 200, body: "[]"},
		{name: "object", status: 200, body: `{"categories":[]}`, wantErr: true, wantShape: true},
		{name: "string", status: 200, body: `"nope"`, wantErr: true, wantShape: true},
		{name: "malformed", status: 200, body: `[{"CategoryName":`, wantErr: true, wantShape: true},
		{name: "server error", status: 500, body: `{"error":"db down"}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := fakeportal.New()
			defer srv.Close()
			srv.Override("GET", "/api/categories", tt.status, tt.body)
			client := newTestClient(t, srv, srv.IssueToken("bold"))

			cats, err := client.ListCategories(context.Background())
			if cats == nil {
				t.Fatal("ListCategories() returned nil slice, want empty")
			}
			if len(cats) != 0 {
				t.Errorf("ListCategories() = %+v, want empty", cats)
			}
			if (err != nil) != tt.wantErr {
				t.Fatalf("ListCategories() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantShape && !errors.Is(err, ErrUnexpectedShape) {
				t.Errorf("ListCategories() error = %v, want ErrUnexpectedShape", err)
			}
		})
	}
}

func TestListKeepsGoodRecordsAroundBadOnes(t *testing.T) {
	srv := fakeportal.New()
	defer srv.Close()
	srv.Override("GET", "/api/categories", 200,
		`[{"CategoryName":"Tax","status":"Баталсан"},{"CategoryName":42,"comment":"bad name"},"junk",{"CategoryName":"Legal"}]`)
	srv.Override("GET", "/api/files", 200,
		`[{"id":"7","category":"Tax","filename":"a.pdf","username":"bold"},{"id":8,"category":"Legal","filename":"b.pdf","username":"bold"}]`)
	client := newTestClient(t, srv, srv.IssueToken("bold"))
	ctx := context.Background()

	cats, err := client.ListCategories(ctx)
	if !errors.Is(err, ErrUnexpectedShape) {
		t.Errorf("ListCategories() error = %v, want ErrUnexpectedShape", err)
	}
	if len(cats) != 4 {
		t.Fatalf("ListCategories() returned %d records, want 4: %+v", len(cats), cats)
	}
	if cats[0].CategoryName != "Tax" || cats[0].Status != "Баталсан" {
		t.Errorf("cats[0] = %+v", cats[0])
	}
	if cats[1].CategoryName != "" || cats[1].Comment != "bad name" {
		t.Errorf("cats[1] = %+v, want empty name with comment kept", cats[1])
	}
	if cats[2] != (models.CategoryRecord{}) {
		t.Errorf("cats[2] = %+v, want zero record", cats[2])
	}
	if cats[3].CategoryName != "Legal" {
		t.Errorf("cats[3] = %+v", cats[3])
	}

	files, err := client.ListFiles(ctx, "bold")
	if !errors.Is(err, ErrUnexpectedShape) {
		t.Errorf("ListFiles() error = %v, want ErrUnexpectedShape", err)
	}
	if len(files) != 2 {
		t.Fatalf("ListFiles() returned %d records, want 2", len(files))
	}
	if files[0].ID != 0 || files[0].Filename != "a.pdf" || files[0].Category != "Tax" {
		t.Errorf("files[0] = %+v, want zero id and other fields kept", files[0])
	}
	if files[1].ID != 8 {
		t.Errorf("files[1] = %+v", files[1])
	}
}

func TestUnauthorizedWithoutToken(t *testing.T) {
	srv := fakeportal.New()
	defer srv.Close()
	client := newTestClient(t, srv, "")

	files, err := client.ListFiles(context.Background(), "bold")
	if !IsUnauthorized(err) {
		t.Errorf("ListFiles() error = %v, want unauthorized", err)
	}
	if files == nil || len(files) != 0 {
		t.Errorf("ListFiles() = %v, want empty slice", files)
	}
}

func TestRequestHeaders(t *testing.T) {
	srv := fakeportal.New()
	defer srv.Close()
	token := srv.IssueToken("bold")
	client := newTestClient(t, srv, token)

	if _, err := client.ListCategories(context.Background()); err != nil {
		t.Fatalf("ListCategories() error = %v", err)
	}
	reqs := srv.Requests()
	if len(reqs) != 1 {
		t.Fatalf("got %d requests, want 1", len(reqs))
	}
	if got, want := reqs[0].Auth, "Bearer "+token; got != want {
		t.Errorf("Authorization = %q, want %q", got, want)
	}
}

func TestFileURL(t *testing.T) {
	srv := fakeportal.New()
	defer srv.Close()
	srv.AddBlob("bold/a b.pdf", []byte("pdf"))
	client := newTestClient(t, srv, srv.IssueToken("bold"))

	u, err := client.FileURL(context.Background(), "bold/a b.pdf")
	if err != nil {
		t.Fatalf("FileURL() error = %v", err)
	}
	if !strings.HasPrefix(u, srv.URL+"/blob/") {
		t.Errorf("FileURL() = %q, want blob URL on test server", u)
	}

	_, err = client.FileURL(context.Background(), "missing")
	if got := StatusCode(err); got != 404 {
		t.Errorf("FileURL(missing) status = %d, want 404", got)
	}

	srv.Override("GET", "/api/files/url", 200, `{}`)
	_, err = client.FileURL(context.Background(), "bold/a b.pdf")
	if !errors.Is(err, ErrUnexpectedShape) {
		t.Errorf("FileURL() with empty url error = %v, want ErrUnexpectedShape", err)
	}
}

func TestUploadFile(t *testing.T) {
	srv := fakeportal.New()
	defer srv.Close()
	client := newTestClient(t, srv, srv.IssueToken("bold"))

	resp, err := client.UploadFile(context.Background(), UploadRequest{
		Filename:   "ledger.xlsx",
		Content:    strings.NewReader("rows"),
		Categories: []string{"Tax", "Legal"},
	})
	if err != nil {
		t.Fatalf("UploadFile() error = %v", err)
	}
	if resp.ID != 1 {
		t.Errorf("UploadFile() id = %d, want 1", resp.ID)
	}

	uploads := srv.Uploads()
	if len(uploads) != 1 {
		t.Fatalf("recorded %d uploads, want 1", len(uploads))
	}
	up := uploads[0]
	if up.Filename != "ledger.xlsx" || string(up.Content) != "rows" {
		t.Errorf("upload = %+v", up)
	}
	if strings.Join(up.Categories, ",") != "Tax,Legal" {
		t.Errorf("categories[] = %v, want [Tax Legal]", up.Categories)
	}
	if up.DocumentName != "" {
		t.Errorf("documentName = %q, want empty", up.DocumentName)
	}
}

func TestUploadFileDocumentName(t *testing.T) {
	srv := fakeportal.New()
	defer srv.Close()
	client := newTestClient(t, srv, srv.IssueToken("bold"))

	_, err := client.UploadFile(context.Background(), UploadRequest{
		Filename:     "form.pdf",
		Content:      strings.NewReader("x"),
		DocumentName: "AOUS-240",
	})
	if err != nil {
		t.Fatalf("UploadFile() error = %v", err)
	}
	if got := srv.Uploads()[0].DocumentName; got != "AOUS-240" {
		t.Errorf("documentName = %q, want AOUS-240", got)
	}
}

func TestUploadFileValidation(t *testing.T) {
	client := &Client{}
	if _, err := client.UploadFile(context.Background(), UploadRequest{Filename: "a"}); err == nil {
		t.Error("UploadFile() without content should fail")
	}
	if _, err := client.UploadFile(context.Background(), UploadRequest{Filename: "a", Content: strings.NewReader("")}); err == nil {
		t.Error("UploadFile() without categories or document name should fail")
	}
}

func TestDashboardStats(t *testing.T) {
	srv := fakeportal.New()
	defer srv.Close()
	due := "2024-06-30"
	srv.SetDashboard(models.Dashboard{
		Stats:        models.DashboardStats{TotalRequired: 5, CountMissing: 2, CountApproved: 3},
		MissingFiles: []models.MissingDocument{{CategoryName: "Tax", DueDate: &due}},
	})
	client := newTestClient(t, srv, srv.IssueToken("bold"))

	d, err := client.DashboardStats(context.Background())
	if err != nil {
		t.Fatalf("DashboardStats() error = %v", err)
	}
	if d.Stats.TotalRequired != 5 || d.Stats.CountMissing != 2 {
		t.Errorf("stats = %+v", d.Stats)
	}
	if len(d.MissingFiles) != 1 || *d.MissingFiles[0].DueDate != due {
		t.Errorf("missing = %+v", d.MissingFiles)
	}

	srv.Override("GET", "/api/dashboard/stats", 200, `{"stats":{}}`)
	d, err = client.DashboardStats(context.Background())
	if err != nil {
		t.Fatalf("DashboardStats() error = %v", err)
	}
	if d.MissingFiles == nil {
		t.Error("MissingFiles should be empty, not nil")
	}
}

func TestChat(t *testing.T) {
	for _, wrapped := range []bool{false, true} {
		srv := fakeportal.New()
		srv.WrapChatHistory(wrapped)
		client := newTestClient(t, srv, srv.IssueToken("bold"))
		ctx := context.Background()

		cid, err := client.StartChat(ctx, models.StartChatRequest{UserID: "bold", ProjectName: "Annual audit"})
		if err != nil {
			t.Fatalf("StartChat() error = %v", err)
		}
		if err := client.SendChat(ctx, models.SendChatRequest{ConversationID: cid, UserID: "bold", Text: "hello"}); err != nil {
			t.Fatalf("SendChat() error = %v", err)
		}
		srv.AddSupportReply(cid, "hi there")

		msgs, err := client.ChatHistory(ctx, cid)
		if err != nil {
			t.Fatalf("ChatHistory(wrapped=%v) error = %v", wrapped, err)
		}
		if len(msgs) != 2 {
			t.Fatalf("ChatHistory(wrapped=%v) = %d messages, want 2", wrapped, len(msgs))
		}
		if msgs[0].Direction != models.DirectionInbound || msgs[1].Direction != models.DirectionOutbound {
			t.Errorf("directions = %d,%d, want inbound then outbound", msgs[0].Direction, msgs[1].Direction)
		}
		srv.Close()
	}
}

func TestStartChatMissingID(t *testing.T) {
	srv := fakeportal.New()
	defer srv.Close()
	srv.Override("POST", "/api/chat/start", 200, `{}`)
	client := newTestClient(t, srv, srv.IssueToken("bold"))

	if _, err := client.StartChat(context.Background(), models.StartChatRequest{UserID: "bold"}); !errors.Is(err, ErrUnexpectedShape) {
		t.Errorf("StartChat() error = %v, want ErrUnexpectedShape", err)
	}
}

func TestTemplatesAndReports(t *testing.T) {
	srv := fakeportal.New()
	defer srv.Close()
	client := newTestClient(t, srv, srv.IssueToken("bold"))
	ctx := context.Background()

	srv.SetTemplates([]models.TemplateFile{{ID: "t1", Name: "Balance.xlsx", DownloadURL: srv.BlobURL([]byte("x"))}})
	tpl, err := client.ListTemplates(ctx)
	if err != nil || len(tpl) != 1 || !tpl[0].Downloadable() {
		t.Errorf("ListTemplates() = %+v, %v", tpl, err)
	}

	for _, wrapped := range []bool{false, true} {
		srv.SetReports([]models.TemplateFile{{ID: "r1", Name: "Q1.pdf"}, {ID: "r2", Name: "Q2.pdf"}}, wrapped)
		reports, err := client.ListReports(ctx)
		if err != nil {
			t.Fatalf("ListReports(wrapped=%v) error = %v", wrapped, err)
		}
		if len(reports) != 2 || reports[1].Name != "Q2.pdf" {
			t.Errorf("ListReports(wrapped=%v) = %+v", wrapped, reports)
		}
	}

	srv.Override("GET", "/api/report", 200, `{"items":[]}`)
	if _, err := client.ListReports(ctx); !errors.Is(err, ErrUnexpectedShape) {
		t.Errorf("ListReports() with unknown wrapper error = %v, want ErrUnexpectedShape", err)
	}
}

func TestRetriesWhenConfigured(t *testing.T) {
	srv := fakeportal.New()
	defer srv.Close()
	srv.SetCategories([]models.CategoryRecord{{CategoryName: "Tax"}})
	srv.FailNext("GET", "/api/categories", 1)

	cfg := config.Default()
	cfg.APIBaseURL = srv.URL
	cfg.MaxRetries = 2
	client, err := NewClient(cfg, srv.IssueToken("bold"), nil)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	cats, err := client.ListCategories(context.Background())
	if err != nil {
		t.Fatalf("ListCategories() error = %v", err)
	}
	if len(cats) != 1 {
		t.Errorf("ListCategories() = %+v, want 1 category", cats)
	}
}

func TestNoRetryByDefault(t *testing.T) {
	srv := fakeportal.New()
	defer srv.Close()
	srv.FailNext("GET", "/api/categories", 1)
	client := newTestClient(t, srv, srv.IssueToken("bold"))

	_, err := client.ListCategories(context.Background())
	if got := StatusCode(err); got != 503 {
		t.Errorf("StatusCode() = %d, want 503", got)
	}
}
