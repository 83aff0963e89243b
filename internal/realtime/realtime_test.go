package realtime

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/centrifugal/centrifuge"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/avenida-stickers/internal/auth"
	"github.com/user/avenida-stickers/internal/models"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type publisherSpy struct {
	events []string
	err    error
}

func (p *publisherSpy) Publish(eventType string, _ any) error {
	p.events = append(p.events, eventType)
	return p.err
}

func TestNotifier(t *testing.T) {
	spy := &publisherSpy{}
	n := NewNotifier(spy, discard())

	n.Notify(context.Background(), models.EventPersonalizedCreated, nil)
	spy.err = errors.New("broker down")
	n.Notify(context.Background(), models.EventPersonalizedDeleted, nil)

	assert.Equal(t, []string{models.EventPersonalizedCreated, models.EventPersonalizedDeleted}, spy.events)

	var nilNotifier *Notifier
	assert.NotPanics(t, func() { nilNotifier.Notify(context.Background(), "X", nil) })
}

type sourceStub struct {
	list   []*models.PersonalizedSticker
	counts map[models.PersonalizedStatus]int
	err    error
}

func (s sourceStub) ListVisible(context.Context, time.Time) ([]*models.PersonalizedSticker, error) {
	return s.list, s.err
}

func (s sourceStub) CountByStatus(context.Context) (map[models.PersonalizedStatus]int, error) {
	return s.counts, s.err
}

func TestProvider(t *testing.T) {
	stub := sourceStub{
		list:   []*models.PersonalizedSticker{{DisplayID: "P0001"}},
		counts: map[models.PersonalizedStatus]int{models.StatusTemporary: 1, models.StatusActive: 0},
	}
	state, err := NewProvider(stub).GetReadyState(context.Background())
	require.NoError(t, err)
	assert.Len(t, state.Stickers, 1)
	assert.Equal(t, 1, state.Counts[models.StatusTemporary])

	_, err = NewProvider(sourceStub{err: errors.New("db down")}).GetReadyState(context.Background())
	assert.Error(t, err)
}

func TestEncodeEvent(t *testing.T) {
	raw, err := encodeEvent(models.EventPersonalizedExpired, models.PersonalizedExpiredEvent{Deleted: 3})
	require.NoError(t, err)

	var decoded struct {
		Type string         `json:"type"`
		Data map[string]int `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, models.EventPersonalizedExpired, decoded.Type)
	assert.Equal(t, 3, decoded.Data["deleted"])
}

func TestNode_AuthenticateAndPublish(t *testing.T) {
	tokens := auth.NewTokenService("s3cret", time.Hour)
	node, err := NewNode(tokens, NewProvider(sourceStub{}), discard())
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		node.Shutdown(ctx)
	})

	token, _, err := tokens.GenerateAdminToken()
	require.NoError(t, err)

	reply, err := node.authenticate(token)
	require.NoError(t, err)
	assert.Equal(t, auth.AdminSubject, reply.Credentials.UserID)

	_, err = node.authenticate("")
	assert.Equal(t, centrifuge.DisconnectInvalidToken, err)
	_, err = node.authenticate("s3cret")
	assert.Equal(t, centrifuge.DisconnectInvalidToken, err, "the raw key is not a connect token")

	// no subscribers is not an error
	assert.NoError(t, node.Publish(models.EventPersonalizedCreated, map[string]string{"display_id": "P0001"}))
	assert.Zero(t, node.Connections())
}

func TestLogHandler_KeepsLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	handle := logHandler(logger)

	cases := []struct {
		level centrifuge.LogLevel
		want  string
	}{
		{centrifuge.LogLevelError, "ERROR"},
		{centrifuge.LogLevelWarn, "WARN"},
		{centrifuge.LogLevelInfo, "INFO"},
		{centrifuge.LogLevelDebug, "DEBUG"},
		{centrifuge.LogLevelTrace, "DEBUG"},
	}
	for _, tc := range cases {
		buf.Reset()
		handle(centrifuge.LogEntry{Level: tc.level, Message: "entry", Fields: map[string]any{"client": "c1"}})

		var line map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
		assert.Equal(t, tc.want, line["level"])
		assert.Equal(t, "centrifuge: entry", line["msg"])
	}
}
