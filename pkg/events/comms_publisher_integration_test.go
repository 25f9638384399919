package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	commsserver "github.com/nats-io/nats-server/v2/server"
	comms "github.com/nats-io/nats.go"
)

const commsTestPrefix = "events:comms_publisher_integration_test"

// startTestServer starts an in-process NATS server on a random port.
func startTestServer(t *testing.T) *comms.Conn {
	t.Helper()

	ns, err := commsserver.NewServer(&commsserver.Options{
		Host:   "127.0.0.1",
		Port:   commsserver.RANDOM_PORT,
		NoLog:  true,
		NoSigs: true,
	})
	if err != nil {
		t.Fatalf("%s - failed to create server: %v", commsTestPrefix, err)
	}

	go ns.Start()
	if !ns.ReadyForConnections(10 * time.Second) {
		t.Fatalf("%s - server failed to start", commsTestPrefix)
	}

	nc, err := comms.Connect(ns.ClientURL(), comms.Timeout(5*time.Second))
	if err != nil {
		ns.Shutdown()
		t.Fatalf("%s - failed to connect: %v", commsTestPrefix, err)
	}

	t.Cleanup(func() {
		nc.Close()
		ns.Shutdown()
		ns.WaitForShutdown()
	})
	return nc
}

func TestCommsPublisher_PublishMessage_TopicSubject(t *testing.T) {
	nc := startTestServer(t)
	publisher := NewCommsPublisher(nc, nil)

	received := make(chan *MessageEvent, 1)
	sub, err := nc.Subscribe("ros.robot.pose", func(msg *comms.Msg) {
		var event MessageEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			t.Errorf("%s - failed to unmarshal: %v", commsTestPrefix, err)
			return
		}
		received <- &event
	})
	if err != nil {
		t.Fatalf("%s - failed to subscribe: %v", commsTestPrefix, err)
	}
	defer sub.Unsubscribe()

	event := &MessageEvent{
		Topic:          "/robot/pose",
		Type:           "geometry_msgs/PoseStamped",
		SubscriptionID: "subscribe:/robot/pose:abc",
		Msg:            map[string]any{"pose": map[string]any{"position": map[string]any{"x": 1.5}}},
		ReceivedAt:     time.Now().UTC(),
	}
	if err := publisher.PublishMessage(context.Background(), event); err != nil {
		t.Fatalf("%s - PublishMessage failed: %v", commsTestPrefix, err)
	}
	nc.Flush()

	select {
	case got := <-received:
		if got.Topic != "/robot/pose" {
			t.Errorf("%s - Topic = %q, want /robot/pose", commsTestPrefix, got.Topic)
		}
		if got.Type != "geometry_msgs/PoseStamped" {
			t.Errorf("%s - Type = %q", commsTestPrefix, got.Type)
		}
		x := got.Msg.(map[string]any)["pose"].(map[string]any)["position"].(map[string]any)["x"]
		if x != 1.5 {
			t.Errorf("%s - pose.position.x = %v, want 1.5", commsTestPrefix, x)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("%s - timeout waiting for relayed message", commsTestPrefix)
	}
}

func TestCommsPublisher_CustomPrefixAndStatus(t *testing.T) {
	nc := startTestServer(t)
	publisher := NewCommsPublisher(nc, &CommsPublisherOpts{SubjectPrefix: "fleet.r1"})

	got := make(chan string, 2)
	sub, err := nc.Subscribe("fleet.r1.>", func(msg *comms.Msg) {
		got <- msg.Subject
	})
	if err != nil {
		t.Fatalf("%s - failed to subscribe: %v", commsTestPrefix, err)
	}
	defer sub.Unsubscribe()

	ctx := context.Background()
	if err := publisher.PublishMessage(ctx, &MessageEvent{Topic: "/cmd_vel", Msg: map[string]any{}}); err != nil {
		t.Fatalf("%s - PublishMessage failed: %v", commsTestPrefix, err)
	}
	if err := publisher.PublishStatus(ctx, &StatusEvent{Level: "warning", Msg: "throttled"}); err != nil {
		t.Fatalf("%s - PublishStatus failed: %v", commsTestPrefix, err)
	}
	nc.Flush()

	want := map[string]bool{"fleet.r1.cmd_vel": false, "fleet.r1._status": false}
	for range want {
		select {
		case s := <-got:
			if _, ok := want[s]; !ok {
				t.Errorf("%s - unexpected subject %q", commsTestPrefix, s)
			}
			want[s] = true
		case <-time.After(5 * time.Second):
			t.Fatalf("%s - timeout, received %v", commsTestPrefix, want)
		}
	}
}
