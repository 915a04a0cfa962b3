package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	scs "github.com/alexedwards/scs/v2"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/briangreenhill/voicept/internal/guidance"
	"github.com/briangreenhill/voicept/internal/session"
	"github.com/briangreenhill/voicept/internal/store"
)

type staticGuide struct {
	res guidance.Result
	err error
}

func (g staticGuide) RequestGuidance(context.Context, guidance.Prompt) (guidance.Result, error) {
	return g.res, g.err
}

const profileJSON = `{
	"height": 180,
	"weight": 80,
	"waistCircumference": 85,
	"diastolicBloodPressure": 80,
	"systolicBloodPressure": 120,
	"fitnessGoals": "Build strength"
}`

type testClient struct {
	t        *testing.T
	srv      *httptest.Server
	client   *http.Client
	sessions *session.Manager
}

func newTestServer(t *testing.T, guide guidance.Client) *testClient {
	t.Helper()
	sessions := session.NewManager(session.Deps{
		Guide:  guide,
		Cache:  store.NewProfileCache(store.NewMemoryKV(), zerolog.Nop()),
		Logger: zerolog.Nop(),
	})
	t.Cleanup(sessions.Shutdown)

	s := New(ServerOptions{Sess: scs.New(), Sessions: sessions, Logger: zerolog.Nop()})
	srv := httptest.NewServer(s.Router)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &testClient{t: t, srv: srv, client: &http.Client{Jar: jar}, sessions: sessions}
}

func (c *testClient) do(method, path, body string) (int, []byte) {
	c.t.Helper()
	var rdr *bytes.Reader
	if body != "" {
		rdr = bytes.NewReader([]byte(body))
	} else {
		rdr = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, c.srv.URL+path, rdr)
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.client.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(c.t, err)
	return resp.StatusCode, buf.Bytes()
}

func (c *testClient) state() map[string]any {
	c.t.Helper()
	code, body := c.do(http.MethodGet, "/api/guide", "")
	require.Equal(c.t, http.StatusOK, code)
	var st map[string]any
	require.NoError(c.t, json.Unmarshal(body, &st))
	return st
}

func (c *testClient) waitPhase(phase string) map[string]any {
	c.t.Helper()
	var st map[string]any
	require.Eventually(c.t, func() bool {
		st = c.state()
		return st["phase"] == phase
	}, 2*time.Second, 10*time.Millisecond)
	return st
}

func TestHealthz(t *testing.T) {
	c := newTestServer(t, staticGuide{})
	code, body := c.do(http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", string(body))
}

func TestProfileLifecycle(t *testing.T) {
	c := newTestServer(t, staticGuide{})

	code, _ := c.do(http.MethodGet, "/api/program", "")
	assert.Equal(t, http.StatusNotFound, code)

	code, body := c.do(http.MethodPost, "/api/profile", `{"height": 0, "fitnessGoals": "short"}`)
	require.Equal(t, http.StatusUnprocessableEntity, code)
	var verr errorResponse
	require.NoError(t, json.Unmarshal(body, &verr))
	assert.NotEmpty(t, verr.Fields)

	code, _ = c.do(http.MethodPost, "/api/profile", `{"height":`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = c.do(http.MethodPost, "/api/profile", profileJSON)
	require.Equal(t, http.StatusCreated, code)
	var created struct {
		Profile map[string]any   `json:"profile"`
		Program []map[string]any `json:"program"`
	}
	require.NoError(t, json.Unmarshal(body, &created))
	assert.InDelta(t, 24.69, created.Profile["bmi"], 0.01)
	require.Len(t, created.Program, 7)
	assert.Equal(t, "Rest Day", created.Program[3]["workoutName"])

	code, body = c.do(http.MethodGet, "/api/program", "")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body), "Full Body Strength A")

	code, _ = c.do(http.MethodGet, "/api/profile", "")
	assert.Equal(t, http.StatusOK, code)

	code, _ = c.do(http.MethodDelete, "/api/profile", "")
	assert.Equal(t, http.StatusNoContent, code)
	code, _ = c.do(http.MethodGet, "/api/profile", "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestGuideFlow(t *testing.T) {
	c := newTestServer(t, staticGuide{res: guidance.Result{VoiceGuidance: "Great job...", ClosedCaptions: "Caption text"}})

	code, _ := c.do(http.MethodPost, "/api/guide/days/monday", "")
	assert.Equal(t, http.StatusConflict, code, "no profile yet")

	code, _ = c.do(http.MethodPost, "/api/profile", profileJSON)
	require.Equal(t, http.StatusCreated, code)

	code, _ = c.do(http.MethodPost, "/api/guide/days/thursday", "")
	assert.Equal(t, http.StatusConflict, code)
	code, _ = c.do(http.MethodPost, "/api/guide/days/3/exercises/0", "")
	assert.Equal(t, http.StatusConflict, code)
	code, _ = c.do(http.MethodPost, "/api/guide/days/someday", "")
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = c.do(http.MethodPost, "/api/guide/days/0/exercises/9", "")
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = c.do(http.MethodPost, "/api/guide/days/monday", "")
	require.Equal(t, http.StatusAccepted, code)
	st := c.waitPhase("Ready")
	assert.Equal(t, "Caption text", st["captions"])

	// No speech engine is configured, so play fails but captions stay.
	code, body := c.do(http.MethodPost, "/api/guide/play", "")
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(body, &st))
	assert.Equal(t, "Failed", st["phase"])
	assert.Equal(t, "SpeechUnavailable", st["failure"])
	assert.Equal(t, "Caption text", st["captions"])

	code, body = c.do(http.MethodPost, "/api/guide/close", "")
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(body, &st))
	assert.Equal(t, "Idle", st["phase"])
	assert.NotContains(t, st, "captions")

	code, _ = c.do(http.MethodPost, "/api/guide/days/1/exercises/0", "")
	require.Equal(t, http.StatusAccepted, code)
	st = c.waitPhase("Ready")
	target := st["target"].(map[string]any)
	assert.Equal(t, "Running/Jogging", target["exercise"].(map[string]any)["name"])
}

func TestGuideWebsocket(t *testing.T) {
	c := newTestServer(t, staticGuide{err: &guidance.Error{Backend: "test", Err: assert.AnError}})
	code, _ := c.do(http.MethodPost, "/api/profile", profileJSON)
	require.Equal(t, http.StatusCreated, code)

	wsURL := "ws" + strings.TrimPrefix(c.srv.URL, "http") + "/api/guide/ws"
	header := http.Header{}
	for _, ck := range c.client.Jar.Cookies(mustURL(t, c.srv.URL)) {
		header.Add("Cookie", ck.String())
	}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err)
	defer conn.Close()

	var first guideWSOutMessage
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, "phase", first.Type)
	require.NotNil(t, first.State)

	code, _ = c.do(http.MethodPost, "/api/guide/days/0", "")
	require.Equal(t, http.StatusAccepted, code)

	var sawNotice, sawFailed bool
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for !(sawNotice && sawFailed) {
		var m map[string]any
		require.NoError(t, conn.ReadJSON(&m))
		switch m["type"] {
		case "notice":
			sawNotice = true
			notice := m["notice"].(map[string]any)
			assert.Equal(t, "Could not load AI trainer guidance. Please try again.", notice["message"])
		case "phase":
			if m["state"].(map[string]any)["phase"] == "Failed" {
				sawFailed = true
			}
		}
	}
}

func (c *testClient) dialGuide() *websocket.Conn {
	c.t.Helper()
	wsURL := "ws" + strings.TrimPrefix(c.srv.URL, "http") + "/api/guide/ws"
	header := http.Header{}
	for _, ck := range c.client.Jar.Cookies(mustURL(c.t, c.srv.URL)) {
		header.Add("Cookie", ck.String())
	}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.NoError(c.t, err)
	c.t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestGuideWebsocketCommandsKeepSessionAlive(t *testing.T) {
	c := newTestServer(t, staticGuide{res: guidance.Result{VoiceGuidance: "Go", ClosedCaptions: "Go"}})
	code, _ := c.do(http.MethodPost, "/api/profile", profileJSON)
	require.Equal(t, http.StatusCreated, code)
	code, _ = c.do(http.MethodPost, "/api/guide/days/0", "")
	require.Equal(t, http.StatusAccepted, code)
	c.waitPhase("Ready")

	conn := c.dialGuide()
	var first guideWSOutMessage
	require.NoError(t, conn.ReadJSON(&first))

	time.Sleep(200 * time.Millisecond)
	require.NoError(t, conn.WriteJSON(map[string]string{"type": "play"}))

	// No speech engine is configured, so play fails straight away.
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		var m map[string]any
		require.NoError(t, conn.ReadJSON(&m))
		if m["type"] == "phase" && m["state"].(map[string]any)["phase"] == "Failed" {
			break
		}
	}

	assert.Equal(t, 0, c.sessions.Sweep(150*time.Millisecond), "websocket traffic counts as activity")
	assert.Equal(t, 1, c.sessions.Sweep(0))
}

func TestGuideWebsocketRequiresSession(t *testing.T) {
	c := newTestServer(t, staticGuide{})
	wsURL := "ws" + strings.TrimPrefix(c.srv.URL, "http") + "/api/guide/ws"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}
