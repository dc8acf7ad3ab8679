package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nirmal8344/ScramblerKey/internal/auth"
	"github.com/nirmal8344/ScramblerKey/internal/keyboard"
	"github.com/nirmal8344/ScramblerKey/internal/session"
)

type testClient struct {
	t      *testing.T
	srv    *Server
	cookie *http.Cookie
}

func newTestClient(t *testing.T) *testClient {
	t.Helper()
	priv, _, err := auth.GenerateEd25519()
	if err != nil {
		t.Fatalf("GenerateEd25519: %v", err)
	}
	signer := auth.NewJWTSigner(priv, "scramblerkey-test", 15*time.Minute)
	logger := log.New(io.Discard, "", 0)
	srv := newServer(Config{}, auth.NewMemoryUserStore(), session.NewMemoryStore(session.DefaultTTL), signer, logger)
	return &testClient{t: t, srv: srv}
}

func (c *testClient) do(method, path string, body any, header http.Header) *httptest.ResponseRecorder {
	c.t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	rec := httptest.NewRecorder()
	c.srv.ServeHTTP(rec, req)
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == sessionCookie {
			c.cookie = ck
		}
	}
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

// keystroke posts one coordinate event aimed at the given grid cell,
// keeping the home (unscrambled) layout for the next stroke so tests
// can aim follow-up presses.
func (c *testClient) keystroke(row, col int, target string) *httptest.ResponseRecorder {
	c.t.Helper()
	g := testGeometry()
	p := testPoint(g, row, col)
	f := false
	body := map[string]any{
		"x":          p.X,
		"y":          p.Y,
		"width":      g.Width,
		"height":     g.Height,
		"keyWidths":  g.KeyWidths,
		"rowOffsets": g.RowOffsets,
		"scramble":   f,
	}
	if target != "" {
		body["targetField"] = target
	}
	return c.do(http.MethodPost, "/api/keyboard/input", body, nil)
}

func testGeometry() keyboard.Geometry {
	const unit = 40.0
	width := 16 * unit
	g := keyboard.Geometry{Width: width, Height: 300}
	for _, row := range keyboard.Keys {
		widths := make([]float64, len(row))
		total := 0.0
		for i := range widths {
			widths[i] = unit
			total += unit
		}
		g.KeyWidths = append(g.KeyWidths, widths)
		g.RowOffsets = append(g.RowOffsets, (width-total)/2)
	}
	return g
}

func testPoint(g keyboard.Geometry, row, col int) keyboard.Point {
	rowHeight := g.Height / float64(keyboard.Keys.Rows())
	x := g.RowOffsets[row]
	for i := 0; i < col; i++ {
		x += g.KeyWidths[row][i]
	}
	return keyboard.Point{X: x + g.KeyWidths[row][col]/2, Y: rowHeight*float64(row) + rowHeight/2}
}

func (c *testClient) resetLayout() {
	c.t.Helper()
	rec := c.do(http.MethodGet, "/api/keyboard/layout?scramble=false", nil, nil)
	if rec.Code != http.StatusOK {
		c.t.Fatalf("layout reset: status %d", rec.Code)
	}
}

func TestLayoutEndpointHomeLayout(t *testing.T) {
	c := newTestClient(t)
	rec := c.do(http.MethodGet, "/api/keyboard/layout?scramble=false", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if c.cookie == nil {
		t.Fatal("expected a session cookie")
	}
	resp := decodeBody[layoutResp](t, rec)
	if resp.Layout[0][1] != "1" || resp.Layout[1][1] != "Q" || resp.Layout[2][1] != "A" {
		t.Fatalf("unexpected home layout: %v %v %v", resp.Layout[0][1], resp.Layout[1][1], resp.Layout[2][1])
	}
	if resp.Layout[0][13] != keyboard.KeyBackspace {
		t.Fatalf("fixed label = %q", resp.Layout[0][13])
	}
}

func TestInputEndpointAppendsToIdentifier(t *testing.T) {
	c := newTestClient(t)
	c.resetLayout()

	rec := c.keystroke(0, 1, "") // home layout: "1"
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	resp := decodeBody[inputResp](t, rec)
	if resp.Key != "1" {
		t.Fatalf("key = %q", resp.Key)
	}
	if resp.Layout == nil {
		t.Fatal("expected a fresh layout")
	}
	if resp.Count == nil || *resp.Count != 1 {
		t.Fatalf("count = %v", resp.Count)
	}
	if resp.Value == nil || *resp.Value != "1" {
		t.Fatalf("value = %v", resp.Value)
	}
}

func TestInputEndpointSecretOmitsValue(t *testing.T) {
	c := newTestClient(t)
	c.resetLayout()

	rec := c.keystroke(1, 1, "secret") // home layout: "Q"
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), `"value"`) {
		t.Fatalf("secret text leaked: %s", rec.Body.String())
	}
	resp := decodeBody[inputResp](t, rec)
	if resp.Count == nil || *resp.Count != 1 {
		t.Fatalf("count = %v", resp.Count)
	}
}

func TestInputEndpointRowMiss(t *testing.T) {
	c := newTestClient(t)
	g := testGeometry()
	body := map[string]any{
		"x": 100.0, "y": -5.0,
		"width": g.Width, "height": g.Height,
		"keyWidths": g.KeyWidths, "rowOffsets": g.RowOffsets,
	}
	rec := c.do(http.MethodPost, "/api/keyboard/input", body, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	resp := decodeBody[inputResp](t, rec)
	if resp.Outcome != "invalid_row" {
		t.Fatalf("outcome = %q", resp.Outcome)
	}
}

func TestInputEndpointMalformedGeometry(t *testing.T) {
	c := newTestClient(t)
	body := map[string]any{"x": 1.0, "y": 1.0, "width": 100.0, "height": 100.0}
	rec := c.do(http.MethodPost, "/api/keyboard/input", body, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	resp := decodeBody[inputResp](t, rec)
	if resp.Outcome != "malformed_geometry" {
		t.Fatalf("outcome = %q", resp.Outcome)
	}
}

func TestClearAndBackspaceEndpoints(t *testing.T) {
	c := newTestClient(t)
	c.resetLayout()

	c.keystroke(2, 1, "") // "A"
	c.keystroke(0, 1, "") // "1"

	rec := c.do(http.MethodPost, "/api/keyboard/backspace", map[string]any{}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("backspace status = %d", rec.Code)
	}
	bresp := decodeBody[bufferResp](t, rec)
	if !bresp.OK || bresp.Count == nil || *bresp.Count != 1 || bresp.Value == nil || *bresp.Value != "A" {
		t.Fatalf("backspace resp = %s", rec.Body.String())
	}

	// Clear twice; both calls succeed and leave an empty buffer.
	for i := 0; i < 2; i++ {
		rec = c.do(http.MethodPost, "/api/keyboard/clear", map[string]any{}, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("clear #%d status = %d", i, rec.Code)
		}
	}
	rec = c.do(http.MethodPost, "/api/keyboard/backspace", map[string]any{}, nil)
	bresp = decodeBody[bufferResp](t, rec)
	if bresp.Count == nil || *bresp.Count != 0 {
		t.Fatalf("count after clear = %s", rec.Body.String())
	}
}

// typeWord drives the keyboard cell by cell on the home layout.
func (c *testClient) typeWord(word, target string) {
	c.t.Helper()
	c.resetLayout()
	for _, r := range word {
		row, col, ok := homeCell(string(r))
		if !ok {
			c.t.Fatalf("no home cell for %q", r)
		}
		rec := c.keystroke(row, col, target)
		if rec.Code != http.StatusOK {
			c.t.Fatalf("keystroke %q: status %d", r, rec.Code)
		}
	}
}

func homeCell(glyph string) (int, int, bool) {
	home := keyboard.Generate(false, true)
	for r, row := range home {
		for col, g := range row {
			if g == glyph {
				return r, col, true
			}
		}
	}
	return 0, 0, false
}

func TestAuthFlow(t *testing.T) {
	c := newTestClient(t)

	// Signup with identifier "AB" and secret "12".
	c.typeWord("AB", "identifier")
	c.typeWord("12", "secret")
	rec := c.do(http.MethodPost, "/api/auth", authReq{IsSignup: true}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("signup status = %d body=%s", rec.Code, rec.Body.String())
	}
	resp := decodeBody[authResp](t, rec)
	if resp.Outcome != "created" || resp.Token == "" {
		t.Fatalf("signup resp = %s", rec.Body.String())
	}

	// Duplicate signup.
	c.typeWord("AB", "identifier")
	c.typeWord("12", "secret")
	rec = c.do(http.MethodPost, "/api/auth", authReq{IsSignup: true}, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("dup signup status = %d", rec.Code)
	}

	// Login with the right secret. The taken-identifier attempt left
	// the buffers in place, so clear them first.
	c.do(http.MethodPost, "/api/keyboard/clear", bufferReq{TargetField: "identifier"}, nil)
	c.do(http.MethodPost, "/api/keyboard/clear", bufferReq{TargetField: "secret"}, nil)
	c.typeWord("AB", "identifier")
	c.typeWord("12", "secret")
	rec = c.do(http.MethodPost, "/api/auth", authReq{IsSignup: false}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d body=%s", rec.Code, rec.Body.String())
	}
	resp = decodeBody[authResp](t, rec)
	if resp.Outcome != "authenticated" || resp.Token == "" {
		t.Fatalf("login resp = %s", rec.Body.String())
	}

	// Wrong secret and unknown identifier report identically.
	c.typeWord("AB", "identifier")
	c.typeWord("99", "secret")
	wrong := c.do(http.MethodPost, "/api/auth", authReq{IsSignup: false}, nil)
	c.typeWord("ZZ", "identifier")
	c.typeWord("12", "secret")
	unknown := c.do(http.MethodPost, "/api/auth", authReq{IsSignup: false}, nil)
	if wrong.Code != http.StatusUnauthorized || unknown.Code != http.StatusUnauthorized {
		t.Fatalf("failure codes = %d / %d", wrong.Code, unknown.Code)
	}
	wr := decodeBody[authResp](t, wrong)
	ur := decodeBody[authResp](t, unknown)
	if wr.Outcome != ur.Outcome || wr.Message != ur.Message {
		t.Fatalf("failure bodies differ: %s vs %s", wrong.Body.String(), unknown.Body.String())
	}
}

func TestAuthMissingCredentials(t *testing.T) {
	c := newTestClient(t)
	rec := c.do(http.MethodPost, "/api/auth", authReq{IsSignup: false}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	resp := decodeBody[authResp](t, rec)
	if resp.Outcome != "missing_credentials" {
		t.Fatalf("outcome = %q", resp.Outcome)
	}
}

func TestAdminUsersRequiresAdminToken(t *testing.T) {
	c := newTestClient(t)

	rec := c.do(http.MethodGet, "/api/admin/users", nil, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token: status = %d", rec.Code)
	}

	userTok, _, err := c.srv.signer.IssueToken("alice", []auth.Role{auth.RoleUser})
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	h := http.Header{}
	h.Set("Authorization", fmt.Sprintf("Bearer %s", userTok))
	rec = c.do(http.MethodGet, "/api/admin/users", nil, h)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("user token: status = %d", rec.Code)
	}

	if err := c.srv.users.Add(&auth.User{Identifier: "alice", SecretHash: "x"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	adminTok, _, err := c.srv.signer.IssueToken("root", []auth.Role{auth.RoleAdmin})
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	h.Set("Authorization", fmt.Sprintf("Bearer %s", adminTok))
	rec = c.do(http.MethodGet, "/api/admin/users", nil, h)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin token: status = %d", rec.Code)
	}
	users := decodeBody[[]adminUserResp](t, rec)
	if len(users) != 1 || users[0].Identifier != "alice" {
		t.Fatalf("users = %s", rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "hash") {
		t.Fatalf("digest material leaked: %s", rec.Body.String())
	}
}
