package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aura-events/backend/internal/auth"
	"github.com/aura-events/backend/internal/models"
	"github.com/aura-events/backend/pkg/apperr"
)

type fakeTokens map[string]uuid.UUID

func (f fakeTokens) Validate(token string) (*auth.Claims, error) {
	id, ok := f[token]
	if !ok {
		return nil, auth.ErrInvalidToken
	}
	return &auth.Claims{UserID: id}, nil
}

type fakeActors map[uuid.UUID]*models.User

func (f fakeActors) LoadActor(_ context.Context, id uuid.UUID) (*models.User, error) {
	u, ok := f[id]
	if !ok {
		return nil, apperr.NotFound("user", "")
	}
	return u, nil
}

// fakeViewer lets creator watch and forbids everyone else.
type fakeViewer struct {
	eventID, creator uuid.UUID
}

func (v fakeViewer) AuthorizeView(_ context.Context, actor *models.User, id uuid.UUID) error {
	if id != v.eventID {
		return apperr.NotFound("event", "")
	}
	if actor.ID != v.creator {
		return apperr.Forbidden("")
	}
	return nil
}

func newTestServer(t *testing.T) (*httptest.Server, *Hub, uuid.UUID) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	owner, stranger := uuid.New(), uuid.New()
	eventID := uuid.New()
	hub := NewHub(nil, nil, nil)

	r := gin.New()
	r.GET("/ws", ServeWs(hub, nil,
		fakeTokens{"owner": owner, "stranger": stranger, "ghost": uuid.New()},
		fakeActors{owner: {ID: owner}, stranger: {ID: stranger}},
		fakeViewer{eventID: eventID, creator: owner}))
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, hub, eventID
}

func TestServeWs_RejectsBeforeUpgrade(t *testing.T) {
	srv, _, eventID := newTestServer(t)
	cases := []struct {
		query string
		want  int
	}{
		{"", http.StatusBadRequest},
		{"event_id=" + eventID.String() + "&token=bad", http.StatusUnauthorized},
		{"event_id=" + eventID.String() + "&token=ghost", http.StatusUnauthorized},
		{"event_id=" + eventID.String() + "&token=stranger", http.StatusForbidden},
		{"event_id=" + uuid.NewString() + "&token=owner", http.StatusNotFound},
		{"event_id=nope&token=owner", http.StatusNotFound},
	}
	for _, tc := range cases {
		resp, err := http.Get(srv.URL + "/ws?" + tc.query)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, tc.want, resp.StatusCode, tc.query)
	}
}

func TestServeWs_DeliversUpdates(t *testing.T) {
	srv, hub, eventID := newTestServer(t)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?event_id=" + eventID.String() + "&token=owner"

	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	resp.Body.Close()
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Watchers(eventID) == 1 }, 2*time.Second, 10*time.Millisecond)
	hub.NotifyEvent(eventID, "event_updated", map[string]string{"status": "published"})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg WSMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "event_updated", msg.Event)
	assert.JSONEq(t, `{"status":"published"}`, string(msg.Data))

	require.NoError(t, conn.WriteJSON(WSMessage{Event: "ping"}))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "pong", msg.Event)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.Watchers(eventID) == 0 }, 2*time.Second, 10*time.Millisecond)
}

