package main

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/AZX-215/GravityCapture/pkg/ocr"
	"github.com/AZX-215/GravityCapture/pkg/tribelog"
)

// helper to perform requests with auth token
func performRequest(r http.Handler, method, path string, body io.Reader, token string, contentType string) *httptest.ResponseRecorder {
	// allow callers to pass nil for body safely
	req, _ := http.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func setupTestServer(t *testing.T) *gin.Engine {
	// integration tests are opt-in. Set DB_DSN_TEST=1 and DB_DSN to run them.
	if os.Getenv("DB_DSN_TEST") != "1" {
		t.Skip("integration tests are disabled; set DB_DSN_TEST=1 to enable")
	}
	gin.SetMode(gin.TestMode)
	jwtSecret = []byte("test-secret")
	ocrOptions = ocr.DefaultOptions()
	ocrRouter = ocr.NewRouter(ocrOptions)
	logConfig = tribelog.DefaultConfig()
	initDB()
	tmp := t.TempDir()
	_ = os.Setenv("UPLOAD_BASE", tmp)
	seedDB()
	r := gin.Default()
	setupRoutes(r)
	return r
}

// tinyScreenshotPNG builds a small decodable image. It carries no readable
// text, so the pipeline should report zero events without failing.
func tinyScreenshotPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 64, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.NRGBA{R: 20, G: 10, B: 15, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestFullFlow(t *testing.T) {
	r := setupTestServer(t)

	// 1. Register user
	regBody, _ := json.Marshal(map[string]string{"username": "user1", "password": "pass12"})
	resp := performRequest(r, http.MethodPost, "/register", bytes.NewBuffer(regBody), "", "application/json")
	if resp.Code != 200 && resp.Code != 409 {
		b := resp.Body.String()
		t.Fatalf("register failed status=%d body=%s", resp.Code, b)
	}

	// 2. Login
	loginBody, _ := json.Marshal(map[string]string{"username": "user1", "password": "pass12"})
	resp = performRequest(r, http.MethodPost, "/login", bytes.NewBuffer(loginBody), "", "application/json")
	if resp.Code != 200 {
		b := resp.Body.String()
		t.Fatalf("login failed status=%d body=%s", resp.Code, b)
	}
	var loginResp map[string]any
	_ = json.Unmarshal(resp.Body.Bytes(), &loginResp)
	token, _ := loginResp["token"].(string)
	if token == "" {
		t.Fatalf("empty token in login response: %+v", loginResp)
	}

	// 3. Ingest a screenshot (multipart)
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	_ = mw.WriteField("server", "NA-PVP-Ragnarok")
	_ = mw.WriteField("tribe", "TestTribe")
	_ = mw.WriteField("fast", "1")
	w, _ := mw.CreateFormFile("screenshot", "shot.png")
	_, _ = w.Write(tinyScreenshotPNG(t))
	_ = mw.Close()
	resp = performRequest(r, http.MethodPost, "/ingest", buf, token, mw.FormDataContentType())
	if resp.Code != 200 {
		b := resp.Body.String()
		t.Fatalf("ingest failed status=%d body=%s", resp.Code, b)
	}

	// 4. Extract (debug, no persistence)
	buf = &bytes.Buffer{}
	mw = multipart.NewWriter(buf)
	_ = mw.WriteField("fast", "1")
	w, _ = mw.CreateFormFile("screenshot", "shot.png")
	_, _ = w.Write(tinyScreenshotPNG(t))
	_ = mw.Close()
	resp = performRequest(r, http.MethodPost, "/extract", buf, token, mw.FormDataContentType())
	if resp.Code != 200 {
		b := resp.Body.String()
		t.Fatalf("extract failed status=%d body=%s", resp.Code, b)
	}

	// 5. List events
	resp = performRequest(r, http.MethodGet, "/events", nil, token, "")
	if resp.Code != 200 {
		b := resp.Body.String()
		t.Fatalf("list events failed status=%d body=%s", resp.Code, b)
	}

	// 6. List captures
	resp = performRequest(r, http.MethodGet, "/captures", nil, token, "")
	if resp.Code != 200 {
		b := resp.Body.String()
		t.Fatalf("list captures failed status=%d body=%s", resp.Code, b)
	}

	// 7. Unauthorized access to protected endpoint should be 401
	unauth := performRequest(r, http.MethodGet, "/events", nil, "", "")
	if unauth.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unauthorized list events got %d", unauth.Code)
	}
}

func TestMigrateCommand(t *testing.T) {
	if os.Getenv("DB_DSN_TEST") != "1" {
		t.Skip("integration tests are disabled; set DB_DSN_TEST=1 to enable")
	}
	initDB()
}
