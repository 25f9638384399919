package server

import (
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	jsoniter "github.com/json-iterator/go"

	"github.com/morezero/rosbridge/pkg/db"
	"github.com/morezero/rosbridge/pkg/dispatcher"
	"github.com/morezero/rosbridge/pkg/envelope"
	"github.com/morezero/rosbridge/pkg/msgs"
	"github.com/morezero/rosbridge/pkg/topics"
)

type bridgeStatus interface {
	Registry() *topics.Registry
	Stats() dispatcher.Stats
}

type gatewayStatus interface {
	IsConnected() bool
	ConnectionID() string
}

type pinger interface {
	Ping(ctx context.Context) error
}

type commsStatus interface {
	IsConnected() bool
}

type messageLister interface {
	ListMessages(ctx context.Context, params db.ListMessagesParams) ([]db.MessageRecord, error)
	CountMessages(ctx context.Context, topic string) (int64, error)
}

// HealthChecks reports each configured dependency. Database and Comms are
// nil when the feature is disabled.
type HealthChecks struct {
	Gateway  bool  `json:"gateway"`
	Database *bool `json:"database,omitempty"`
	Comms    *bool `json:"comms,omitempty"`
}

// HealthOutput is the body of GET /health.
type HealthOutput struct {
	Status       string       `json:"status"`
	ConnectionID string       `json:"connectionId,omitempty"`
	Checks       HealthChecks `json:"checks"`
	Timestamp    string       `json:"timestamp"`
}

// SubscriptionView is a subscription as listed by GET /topics.
type SubscriptionView struct {
	ID      string                    `json:"id"`
	Topic   string                    `json:"topic"`
	Type    string                    `json:"type"`
	Options envelope.SubscribeOptions `json:"options"`
}

// PublicationView is a publication as listed by GET /topics.
type PublicationView struct {
	ID      string                    `json:"id"`
	Topic   string                    `json:"topic"`
	Type    string                    `json:"type"`
	Options envelope.AdvertiseOptions `json:"options"`
}

// TopicsOutput is the body of GET /topics.
type TopicsOutput struct {
	Subscriptions []SubscriptionView `json:"subscriptions"`
	Publications  []PublicationView  `json:"publications"`
}

// RecordedMessage is a recorded message as listed by GET /messages.
type RecordedMessage struct {
	ID             int64               `json:"id"`
	Topic          string              `json:"topic"`
	Type           string              `json:"type"`
	SubscriptionID string              `json:"subscriptionId,omitempty"`
	Msg            jsoniter.RawMessage `json:"msg"`
	ReceivedAt     time.Time           `json:"receivedAt"`
}

// MessagesOutput is the body of GET /messages. Total counts every recorded
// message matching the topic filter, ignoring limit and since.
type MessagesOutput struct {
	Messages []RecordedMessage `json:"messages"`
	Total    int64             `json:"total"`
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/", s.handleHome())
	r.Get("/health", s.handleHealth())
	r.Get("/ready", s.handleReady())
	r.Get("/topics", s.handleTopics())
	r.Get("/stats", s.handleStats())
	r.Get("/catalog", s.handleCatalog())
	r.Get("/messages", s.handleMessages())
	return r
}

func (s *Server) health(ctx context.Context) *HealthOutput {
	out := &HealthOutput{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if s.gateway != nil {
		out.Checks.Gateway = s.gateway.IsConnected()
		out.ConnectionID = s.gateway.ConnectionID()
	}
	healthy := out.Checks.Gateway
	if s.db != nil {
		ok := s.db.Ping(ctx) == nil
		out.Checks.Database = &ok
		healthy = healthy && ok
	}
	if s.comms != nil {
		ok := s.comms.IsConnected()
		out.Checks.Comms = &ok
		healthy = healthy && ok
	}
	if !healthy {
		out.Status = "unhealthy"
	}
	return out
}

func (s *Server) topicsOutput() *TopicsOutput {
	out := &TopicsOutput{
		Subscriptions: []SubscriptionView{},
		Publications:  []PublicationView{},
	}
	reg := s.client.Registry()
	for _, sub := range reg.Subscriptions() {
		out.Subscriptions = append(out.Subscriptions, SubscriptionView{ID: sub.ID, Topic: sub.Topic, Type: sub.Type, Options: sub.Options})
	}
	for _, pub := range reg.Publications() {
		out.Publications = append(out.Publications, PublicationView{ID: pub.ID, Topic: pub.Topic, Type: pub.Type, Options: pub.Options})
	}
	return out
}

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), s.cfg.HealthCheckTimeout)
		defer cancel()
		h := s.health(ctx)
		status := http.StatusOK
		if h.Status != "healthy" {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, h)
	}
}

func (s *Server) handleReady() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.gateway == nil || !s.gateway.IsConnected() {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func (s *Server) handleTopics() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, s.topicsOutput())
	}
}

func (s *Server) handleStats() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, s.client.Stats())
	}
}

func (s *Server) handleCatalog() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string][]string{"types": msgs.Types()})
	}
}

func (s *Server) handleMessages() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.recordings == nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "recording is disabled"})
			return
		}
		params, err := parseListParams(r)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		records, err := s.recordings.ListMessages(r.Context(), params)
		if err != nil {
			slog.Error(fmt.Sprintf("%s - list messages: %v", logPrefix, err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list messages"})
			return
		}
		total, err := s.recordings.CountMessages(r.Context(), params.Topic)
		if err != nil {
			slog.Error(fmt.Sprintf("%s - count messages: %v", logPrefix, err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to count messages"})
			return
		}
		out := make([]RecordedMessage, 0, len(records))
		for _, rec := range records {
			out = append(out, RecordedMessage{
				ID:             rec.ID,
				Topic:          rec.Topic,
				Type:           rec.Type,
				SubscriptionID: rec.SubscriptionID,
				Msg:            jsoniter.RawMessage(rec.Payload),
				ReceivedAt:     rec.ReceivedAt,
			})
		}
		writeJSON(w, http.StatusOK, MessagesOutput{Messages: out, Total: total})
	}
}

func parseListParams(r *http.Request) (db.ListMessagesParams, error) {
	q := r.URL.Query()
	params := db.ListMessagesParams{Topic: q.Get("topic")}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return params, fmt.Errorf("limit must be a positive integer")
		}
		params.Limit = n
	}
	if v := q.Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return params, fmt.Errorf("since must be an RFC3339 timestamp")
		}
		params.Since = t
	}
	return params, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(w).Encode(v); err != nil {
		slog.Error(fmt.Sprintf("%s - json encode: %v", logPrefix, err))
	}
}

// homePageTemplate is the HTML for the bridge status page.
const homePageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>rosbridge</title>
  <style>
    * { box-sizing: border-box; }
    body { background: #fff; color: #000; font-family: system-ui, sans-serif; margin: 0; padding: 2rem; line-height: 1.5; }
    h1, h2 { color: #0066cc; }
    .status-healthy { color: #0066cc; font-weight: bold; }
    .status-unhealthy { color: #cc0000; font-weight: bold; }
    table { border-collapse: collapse; width: 100%; max-width: 900px; margin-top: 0.5rem; }
    th, td { text-align: left; padding: 0.5rem 0.75rem; border: 1px solid #ccc; }
    th { background: #f0f4f8; color: #0066cc; }
    .stat { font-weight: bold; color: #0066cc; }
    section { margin-bottom: 2rem; }
  </style>
</head>
<body>
  <h1>rosbridge</h1>

  <section>
    <h2>Health</h2>
    <p>Status: <span class="status-{{.Health.Status}}">{{.Health.Status}}</span></p>
    <p>Gateway: {{if .Health.Checks.Gateway}}<span class="stat">connected</span> {{.Health.ConnectionID}}{{else}}<span class="status-unhealthy">disconnected</span>{{end}}</p>
    <p>Timestamp: {{.Health.Timestamp}}</p>
  </section>

  <section>
    <h2>Statistics</h2>
    <p>Frames: <span class="stat">{{.Stats.Frames}}</span>, delivered: <span class="stat">{{.Stats.Delivered}}</span>, orphans: <span class="stat">{{.Stats.Orphans}}</span></p>
    <p>Errors: envelope {{.Stats.EnvelopeErrors}}, message {{.Stats.MessageErrors}}, callback {{.Stats.CallbackErrors}}</p>
  </section>

  <section>
    <h2>Subscriptions</h2>
    {{if not .Topics.Subscriptions}}
    <p>No subscriptions.</p>
    {{else}}
    <table>
      <thead><tr><th>Topic</th><th>Type</th><th>ID</th></tr></thead>
      <tbody>
        {{range .Topics.Subscriptions}}<tr><td>{{.Topic}}</td><td>{{.Type}}</td><td>{{.ID}}</td></tr>{{end}}
      </tbody>
    </table>
    {{end}}
  </section>

  <section>
    <h2>Publications</h2>
    {{if not .Topics.Publications}}
    <p>No publications.</p>
    {{else}}
    <table>
      <thead><tr><th>Topic</th><th>Type</th><th>ID</th></tr></thead>
      <tbody>
        {{range .Topics.Publications}}<tr><td>{{.Topic}}</td><td>{{.Type}}</td><td>{{.ID}}</td></tr>{{end}}
      </tbody>
    </table>
    {{end}}
  </section>
</body>
</html>
`

type homeData struct {
	Health *HealthOutput
	Stats  dispatcher.Stats
	Topics *TopicsOutput
}

// handleHome returns an HTTP handler for the status page.
func (s *Server) handleHome() http.HandlerFunc {
	tmpl := template.Must(template.New("home").Parse(homePageTemplate))
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), s.cfg.HealthCheckTimeout)
		defer cancel()

		data := homeData{
			Health: s.health(ctx),
			Stats:  s.client.Stats(),
			Topics: s.topicsOutput(),
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := tmpl.Execute(w, data); err != nil {
			slog.Error(fmt.Sprintf("%s - home template execute: %v", logPrefix, err))
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
	}
}
