package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/centrifugal/centrifuge"

	"github.com/user/avenida-stickers/internal/auth"
	"github.com/user/avenida-stickers/internal/models"
)

// AdminChannel carries personalized sticker events to the admin panel.
const AdminChannel = "admin:personalized"

// DataProvider loads the state an admin panel starts from.
type DataProvider interface {
	GetReadyState(ctx context.Context) (*models.AdminReadyEvent, error)
}

type Node struct {
	node         *centrifuge.Node
	tokenService *auth.TokenService
	dataProvider DataProvider
	logger       *slog.Logger

	connections atomic.Int64
}

func logHandler(logger *slog.Logger) centrifuge.LogHandler {
	return func(e centrifuge.LogEntry) {
		logger.Log(context.Background(), slogLevel(e.Level), "centrifuge: "+e.Message, slog.Any("fields", e.Fields))
	}
}

func slogLevel(l centrifuge.LogLevel) slog.Level {
	switch l {
	case centrifuge.LogLevelError:
		return slog.LevelError
	case centrifuge.LogLevelWarn:
		return slog.LevelWarn
	case centrifuge.LogLevelInfo:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}

func NewNode(tokenService *auth.TokenService, dataProvider DataProvider, logger *slog.Logger) (*Node, error) {
	logger = logger.With(slog.String("component", "realtime"))

	node, err := centrifuge.New(centrifuge.Config{
		LogLevel:   centrifuge.LogLevelInfo,
		LogHandler: logHandler(logger),
	})
	if err != nil {
		return nil, err
	}

	n := &Node{
		node:         node,
		tokenService: tokenService,
		dataProvider: dataProvider,
		logger:       logger,
	}

	// Auth via admin session token in connect request
	node.OnConnecting(func(ctx context.Context, e centrifuge.ConnectEvent) (centrifuge.ConnectReply, error) {
		return n.authenticate(e.Token)
	})

	node.OnConnect(func(client *centrifuge.Client) {
		n.connections.Add(1)
		n.logger.Info("admin panel connected", slog.String("client", client.ID()))

		client.OnSubscribe(func(e centrifuge.SubscribeEvent, cb centrifuge.SubscribeCallback) {
			if e.Channel != AdminChannel {
				cb(centrifuge.SubscribeReply{}, centrifuge.ErrorPermissionDenied)
				return
			}

			// READY rides on the subscribe reply
			ready, err := n.readyPayload(client.Context())
			if err != nil {
				n.logger.Error("failed to load ready state", slog.String("error", err.Error()))
				cb(centrifuge.SubscribeReply{}, centrifuge.ErrorInternal)
				return
			}

			cb(centrifuge.SubscribeReply{Options: centrifuge.SubscribeOptions{Data: ready}}, nil)
		})

		client.OnDisconnect(func(e centrifuge.DisconnectEvent) {
			n.connections.Add(-1)
			n.logger.Info("admin panel disconnected",
				slog.String("client", client.ID()),
				slog.String("reason", e.Reason),
			)
		})
	})

	if err := node.Run(); err != nil {
		return nil, err
	}

	return n, nil
}

func (n *Node) authenticate(token string) (centrifuge.ConnectReply, error) {
	if token == "" {
		return centrifuge.ConnectReply{}, centrifuge.DisconnectInvalidToken
	}

	claims, err := n.tokenService.ValidateToken(token)
	if err != nil {
		return centrifuge.ConnectReply{}, centrifuge.DisconnectInvalidToken
	}

	return centrifuge.ConnectReply{
		Credentials: &centrifuge.Credentials{
			UserID: claims.Subject,
		},
	}, nil
}

func (n *Node) readyPayload(ctx context.Context) ([]byte, error) {
	state, err := n.dataProvider.GetReadyState(ctx)
	if err != nil {
		return nil, err
	}
	return encodeEvent(models.EventReady, state)
}

// Connections is the number of connected admin panels.
func (n *Node) Connections() int {
	return int(n.connections.Load())
}

func (n *Node) Shutdown(ctx context.Context) error {
	return n.node.Shutdown(ctx)
}

func (n *Node) WebsocketHandler() http.Handler {
	wsHandler := centrifuge.NewWebsocketHandler(n.node, centrifuge.WebsocketConfig{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	})
	return wsHandler
}

// Publish sends an event to every subscribed admin panel.
func (n *Node) Publish(eventType string, data any) error {
	payload, err := encodeEvent(eventType, data)
	if err != nil {
		return err
	}
	_, err = n.node.Publish(AdminChannel, payload)
	return err
}

func encodeEvent(eventType string, data any) ([]byte, error) {
	return json.Marshal(map[string]any{
		"type": eventType,
		"data": data,
	})
}
