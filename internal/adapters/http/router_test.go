package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/meetclone/backend/internal/config"
	"github.com/meetclone/backend/internal/core"
	"github.com/meetclone/backend/internal/recording"
)

type noopRunner struct{}

func (noopRunner) Run(context.Context, string, ...string) error { return nil }

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Mode:          "test",
		RecordingsDir: t.TempDir(),
		MaxSegmentMB:  1,
		ReadLimit:     65536,
		PingPeriod:    time.Minute,
		CORSOrigins:   []string{"*"},
	}
}

func newTestRouter(t *testing.T) (*gin.Engine, *core.Registry, *config.Config) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := testConfig(t)
	reg := core.NewRegistry()
	store := recording.NewStore(cfg.RecordingsDir)
	finalizer := &recording.Finalizer{Store: store, Runner: noopRunner{}, FFmpeg: "ffmpeg"}
	return SetupRouter(context.Background(), cfg, reg, store, finalizer), reg, cfg
}

func do(t *testing.T, r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return m
}

func TestHealth(t *testing.T) {
	r, _, _ := newTestRouter(t)
	w := do(t, r, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK || decodeBody(t, w)["status"] != "ok" {
		t.Fatalf("health = %d %s", w.Code, w.Body.String())
	}
}

func TestRooms_CreateThenList(t *testing.T) {
	r, _, _ := newTestRouter(t)

	w := do(t, r, httptest.NewRequest(http.MethodPost, "/api/rooms", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("create = %d %s", w.Code, w.Body.String())
	}
	roomID, _ := decodeBody(t, w)["roomId"].(string)
	if roomID == "" {
		t.Fatal("missing roomId")
	}

	w = do(t, r, httptest.NewRequest(http.MethodGet, "/api/rooms/"+roomID, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("get room = %d %s", w.Code, w.Body.String())
	}
	if participants := decodeBody(t, w)["participants"].([]any); len(participants) != 0 {
		t.Fatalf("participants = %v, want empty", participants)
	}
}

func TestRooms_UnknownRoomNotFound(t *testing.T) {
	r, _, _ := newTestRouter(t)
	w := do(t, r, httptest.NewRequest(http.MethodGet, "/api/rooms/missing", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("code = %d, want 404", w.Code)
	}
}

func uploadRequest(t *testing.T, meeting, user, seq string, chunk []byte) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	_ = mw.WriteField("meetingId", meeting)
	_ = mw.WriteField("userId", user)
	_ = mw.WriteField("seq", seq)
	fw, err := mw.CreateFormFile("chunk", "chunk.webm")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	if _, err := fw.Write(chunk); err != nil {
		t.Fatalf("write chunk: %v", err)
	}
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/upload-audio", body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUpload_StoresChunk(t *testing.T) {
	r, _, _ := newTestRouter(t)

	w := do(t, r, uploadRequest(t, "m1", "u1", "3", []byte("chunkdata")))
	if w.Code != http.StatusOK {
		t.Fatalf("upload = %d %s", w.Code, w.Body.String())
	}
	path, _ := decodeBody(t, w)["path"].(string)
	if !strings.HasSuffix(path, "000000003.webm") {
		t.Fatalf("path = %q", path)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "chunkdata" {
		t.Fatalf("stored = %q err = %v", data, err)
	}
}

func TestUpload_OversizedChunkRejected(t *testing.T) {
	r, _, cfg := newTestRouter(t)

	big := bytes.Repeat([]byte("x"), int(cfg.MaxSegmentBytes())+1)
	w := do(t, r, uploadRequest(t, "m1", "u1", "0", big))
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("code = %d, want 413", w.Code)
	}
}

func TestUpload_BadSeqRejected(t *testing.T) {
	r, _, _ := newTestRouter(t)
	w := do(t, r, uploadRequest(t, "m1", "u1", "abc", []byte("x")))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("code = %d, want 400", w.Code)
	}
}

func finalizeRequest(meeting, user string) *http.Request {
	form := url.Values{"meetingId": {meeting}, "userId": {user}}
	req := httptest.NewRequest(http.MethodPost, "/api/finalize", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestFinalize_NoUploadsNotFound(t *testing.T) {
	r, _, _ := newTestRouter(t)
	w := do(t, r, finalizeRequest("m1", "u1"))
	if w.Code != http.StatusNotFound {
		t.Fatalf("code = %d, want 404", w.Code)
	}
}

func TestFinalize_ReturnsArtifactLocations(t *testing.T) {
	r, _, _ := newTestRouter(t)

	for seq := 0; seq < 3; seq++ {
		w := do(t, r, uploadRequest(t, "m1", "u1", fmt.Sprint(seq), []byte("x")))
		if w.Code != http.StatusOK {
			t.Fatalf("upload %d = %d", seq, w.Code)
		}
	}

	w := do(t, r, finalizeRequest("m1", "u1"))
	if w.Code != http.StatusOK {
		t.Fatalf("finalize = %d %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if !strings.HasSuffix(body["webm"].(string), "merged.webm") {
		t.Fatalf("webm = %v", body["webm"])
	}
	if !strings.HasSuffix(body["wav"].(string), "merged.wav") {
		t.Fatalf("wav = %v", body["wav"])
	}
}
