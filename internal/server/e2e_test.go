package server

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	commsserver "github.com/nats-io/nats-server/v2/server"
	comms "github.com/nats-io/nats.go"

	"github.com/morezero/rosbridge/internal/config"
	"github.com/morezero/rosbridge/pkg/commsutil"
	"github.com/morezero/rosbridge/pkg/events"
	"github.com/morezero/rosbridge/pkg/topicfile"
)

// startNATS starts an embedded NATS server on a random port and returns its URL.
func startNATS(t *testing.T) string {
	t.Helper()
	ns, err := commsserver.NewServer(&commsserver.Options{
		Host:   "127.0.0.1",
		Port:   commsserver.RANDOM_PORT,
		NoLog:  true,
		NoSigs: true,
	})
	if err != nil {
		t.Fatalf("%s - failed to create NATS server: %v", serverTestPrefix, err)
	}
	go ns.Start()
	if !ns.ReadyForConnections(10 * time.Second) {
		t.Fatalf("%s - NATS server failed to start", serverTestPrefix)
	}
	t.Cleanup(func() {
		ns.Shutdown()
		ns.WaitForShutdown()
	})
	return ns.ClientURL()
}

// TestE2E_GatewayToNATS drives frames from a fake gateway through the bridge
// and checks they are republished on NATS subjects.
func TestE2E_GatewayToNATS(t *testing.T) {
	natsURL := startNATS(t)
	nc, err := commsutil.Connect(natsURL, "rosbridge-e2e", commsutil.ConnectOptions{Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("%s - connect NATS: %v", serverTestPrefix, err)
	}
	t.Cleanup(nc.Close)

	messages := make(chan *events.MessageEvent, 4)
	msgSub, err := nc.Subscribe("fleet.robot.pose", func(m *comms.Msg) {
		var ev events.MessageEvent
		if err := json.Unmarshal(m.Data, &ev); err == nil {
			messages <- &ev
		}
	})
	if err != nil {
		t.Fatalf("%s - subscribe: %v", serverTestPrefix, err)
	}
	defer msgSub.Unsubscribe()

	statuses := make(chan *events.StatusEvent, 4)
	statusSub, err := nc.Subscribe(commsutil.BuildStatusSubject("fleet"), func(m *comms.Msg) {
		var ev events.StatusEvent
		if err := json.Unmarshal(m.Data, &ev); err == nil {
			statuses <- &ev
		}
	})
	if err != nil {
		t.Fatalf("%s - subscribe status: %v", serverTestPrefix, err)
	}
	defer statusSub.Unsubscribe()
	if err := nc.Flush(); err != nil {
		t.Fatalf("%s - flush: %v", serverTestPrefix, err)
	}

	g := newFakeGateway(t)
	cfg := &config.Config{
		GatewayURL:    "ws" + strings.TrimPrefix(g.srv.URL, "http"),
		ReconnectWait: 10 * time.Millisecond,
		WriteTimeout:  time.Second,
	}
	publisher := events.MultiPublisher{
		events.NewCommsPublisher(nc, &events.CommsPublisherOpts{SubjectPrefix: "fleet"}),
	}
	client, conn := newBridge(context.Background(), cfg, publisher)
	if err := conn.Connect(context.Background()); err != nil {
		t.Fatalf("%s - connect gateway: %v", serverTestPrefix, err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	gw := <-g.conns

	file := &topicfile.File{Topics: []topicfile.Entry{{Topic: "/robot/pose", Type: "geometry_msgs/PoseWithCovarianceStamped"}}}
	subscribeTopics(client, file)
	g.next(t)

	frames := []string{
		posePublish,
		`{"op":"publish","topic":"/unknown","msg":{}}`,
		`{"op":"status","level":"warning","msg":"throttled"}`,
	}
	for _, f := range frames {
		if err := gw.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
			t.Fatalf("%s - gateway write: %v", serverTestPrefix, err)
		}
	}

	select {
	case ev := <-messages:
		if ev.Topic != "/robot/pose" || ev.Type != "geometry_msgs/PoseWithCovarianceStamped" {
			t.Errorf("%s - unexpected message event %+v", serverTestPrefix, ev)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("%s - no message event on NATS", serverTestPrefix)
	}

	select {
	case ev := <-statuses:
		if ev.Level != "warning" || ev.Msg != "throttled" {
			t.Errorf("%s - unexpected status event %+v", serverTestPrefix, ev)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("%s - no status event on NATS", serverTestPrefix)
	}

	stats := client.Stats()
	if stats.Orphans != 1 {
		t.Errorf("%s - orphans = %d, want 1", serverTestPrefix, stats.Orphans)
	}
}
