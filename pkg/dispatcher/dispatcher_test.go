package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/morezero/rosbridge/pkg/envelope"
	"github.com/morezero/rosbridge/pkg/events"
	"github.com/morezero/rosbridge/pkg/message"
	"github.com/morezero/rosbridge/pkg/msgs/geometrymsgs"
	"github.com/morezero/rosbridge/pkg/msgs/stdmsgs"
	"github.com/morezero/rosbridge/pkg/topics"
)

type harness struct {
	reg      *topics.Registry
	d        *Dispatcher
	reported []error
	oob      []*envelope.Envelope
	msgs     []*events.MessageEvent
	statuses []*events.StatusEvent
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{reg: topics.NewRegistry()}
	h.d = NewDispatcher(NewDispatcherParams{
		Registry: h.reg,
		OutOfBand: func(_ context.Context, env *envelope.Envelope) {
			h.oob = append(h.oob, env)
		},
		Reporter: func(err error) { h.reported = append(h.reported, err) },
		Publisher: &events.CallbackPublisher{
			OnMessage: func(_ context.Context, e *events.MessageEvent) error {
				h.msgs = append(h.msgs, e)
				return nil
			},
			OnStatus: func(_ context.Context, e *events.StatusEvent) error {
				h.statuses = append(h.statuses, e)
				return nil
			},
		},
	})
	return h
}

func (h *harness) subscribe(t *testing.T, topic, typeTag string, parser message.Parser, cb topics.Callback) {
	t.Helper()
	_, err := h.reg.Subscribe(topics.Subscription{Topic: topic, Type: typeTag, Parser: parser, Callback: cb})
	require.NoError(t, err)
}

func (h *harness) frame(t *testing.T, raw string) error {
	t.Helper()
	return h.d.HandleFrame(context.Background(), []byte(raw))
}

func stringParser() message.Parser {
	return message.ParserFor(stdmsgs.DecodeString)
}

func recorder(into *[]string, name string) topics.Callback {
	return func(m message.Message) error {
		*into = append(*into, name+":"+m.(stdmsgs.String).Data)
		return nil
	}
}

func publishString(topic, data string) string {
	return fmt.Sprintf(`{"op":"publish","topic":%q,"msg":{"data":%q}}`, topic, data)
}

func TestDispatch_IsolationBetweenTopics(t *testing.T) {
	h := newHarness(t)
	var calls []string
	h.subscribe(t, "a", stdmsgs.TypeString, stringParser(), recorder(&calls, "a"))
	h.subscribe(t, "b", stdmsgs.TypeString, stringParser(), recorder(&calls, "b"))

	require.NoError(t, h.frame(t, publishString("a", "x")))
	assert.Equal(t, []string{"a:x"}, calls)

	require.NoError(t, h.frame(t, publishString("b", "y")))
	assert.Equal(t, []string{"a:x", "b:y"}, calls)
}

func TestDispatch_UnknownTopicIsSilent(t *testing.T) {
	h := newHarness(t)
	var calls []string
	h.subscribe(t, "a", stdmsgs.TypeString, stringParser(), recorder(&calls, "a"))

	err := h.frame(t, publishString("/never/subscribed", "x"))
	assert.NoError(t, err)
	assert.Empty(t, calls)
	assert.Empty(t, h.reported)
	assert.Equal(t, uint64(1), h.d.Stats().Orphans)
}

func TestDispatch_UnsubscribedTopicIsSilent(t *testing.T) {
	h := newHarness(t)
	var calls []string
	h.subscribe(t, "a", stdmsgs.TypeString, stringParser(), recorder(&calls, "a"))
	h.reg.Unsubscribe("a")

	assert.NoError(t, h.frame(t, publishString("a", "late")))
	assert.Empty(t, calls)
	assert.Empty(t, h.reported)
}

func TestDispatch_ResubscribeReplacesCallback(t *testing.T) {
	h := newHarness(t)
	var calls []string
	h.subscribe(t, "a", stdmsgs.TypeString, stringParser(), recorder(&calls, "old"))
	h.subscribe(t, "a", stdmsgs.TypeString, stringParser(), recorder(&calls, "new"))

	require.NoError(t, h.frame(t, publishString("a", "x")))
	assert.Equal(t, []string{"new:x"}, calls)
}

func TestDispatch_MalformedFrameDoesNotBlockNext(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		stage Stage
	}{
		{"invalid json", `{"op":"publish","topic":}`, StageEnvelope},
		{"unknown op", `{"op":"fragment","id":"1"}`, StageEnvelope},
		{"missing topic", `{"op":"publish","msg":{"data":"x"}}`, StageEnvelope},
		{"bad payload", `{"op":"publish","topic":"a","msg":{"data":7}}`, StageMessage},
		{"missing payload", `{"op":"publish","topic":"a"}`, StageMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			var calls []string
			h.subscribe(t, "a", stdmsgs.TypeString, stringParser(), recorder(&calls, "a"))

			err := h.frame(t, tt.frame)
			var fe *FrameError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tt.stage, fe.Stage)
			require.Len(t, h.reported, 1)

			require.NoError(t, h.frame(t, publishString("a", "next")))
			assert.Equal(t, []string{"a:next"}, calls)
		})
	}
}

func TestDispatch_UnknownOperationIsReported(t *testing.T) {
	h := newHarness(t)
	err := h.frame(t, `{"op":"png"}`)
	require.ErrorIs(t, err, message.ErrUnknownOperation)
	var de *message.DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "png", de.Tag)
	assert.Equal(t, uint64(1), h.d.Stats().EnvelopeErrors)
}

func TestDispatch_ParserErrorAttributedToTopicAndType(t *testing.T) {
	h := newHarness(t)
	h.subscribe(t, "/odom/pose", geometrymsgs.TypePoseWithCovariance,
		message.ParserFor(geometrymsgs.DecodePoseWithCovariance),
		func(message.Message) error { t.Fatal("callback must not run"); return nil })

	pose := geometrymsgs.Pose{Orientation: geometrymsgs.IdentityQuaternion}.Encode()
	value := map[string]any{
		"op":    "publish",
		"topic": "/odom/pose",
		"msg": map[string]any{
			"pose":       pose,
			"covariance": message.Float64s(make([]float64, 35)),
		},
	}
	err := h.d.Dispatch(context.Background(), value)
	require.ErrorIs(t, err, message.ErrShapeMismatch)

	var fe *FrameError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "/odom/pose", fe.Topic)
	assert.Equal(t, geometrymsgs.TypePoseWithCovariance, fe.Type)
	assert.Equal(t, uint64(1), h.d.Stats().MessageErrors)
}

func TestDispatch_CallbackFailureIsIsolated(t *testing.T) {
	h := newHarness(t)
	boom := errors.New("boom")
	var calls []string
	h.subscribe(t, "err", stdmsgs.TypeString, stringParser(), func(message.Message) error { return boom })
	h.subscribe(t, "panic", stdmsgs.TypeString, stringParser(), func(message.Message) error { panic("kaboom") })
	h.subscribe(t, "ok", stdmsgs.TypeString, stringParser(), recorder(&calls, "ok"))

	err := h.frame(t, publishString("err", "x"))
	require.ErrorIs(t, err, ErrCallbackFailure)
	require.ErrorIs(t, err, boom)

	err = h.frame(t, publishString("panic", "x"))
	require.ErrorIs(t, err, ErrCallbackFailure)
	var ce *CallbackError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, CodeCallbackFailure, ce.Code)
	assert.Equal(t, "kaboom", ce.Panic)
	assert.True(t, strings.Contains(ce.Error(), "panicked"))

	require.NoError(t, h.frame(t, publishString("ok", "y")))
	assert.Equal(t, []string{"ok:y"}, calls)

	// the failing entries stay registered
	assert.Len(t, h.reg.Subscriptions(), 3)
	assert.Equal(t, uint64(2), h.d.Stats().CallbackErrors)
	assert.Len(t, h.msgs, 1)
}

func TestDispatch_ParserPanicIsIsolated(t *testing.T) {
	h := newHarness(t)
	var calls []string
	panicking := func(any) (message.Message, error) {
		var xs []int
		_ = xs[3]
		return nil, nil
	}
	h.subscribe(t, "/a", stdmsgs.TypeString, panicking, func(message.Message) error {
		t.Fatal("callback must not run")
		return nil
	})
	h.subscribe(t, "/b", stdmsgs.TypeString, stringParser(), recorder(&calls, "b"))

	var err error
	require.NotPanics(t, func() { err = h.frame(t, publishString("/a", "x")) })
	require.ErrorIs(t, err, ErrParserPanic)

	var fe *FrameError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, StageMessage, fe.Stage)
	assert.Equal(t, "/a", fe.Topic)
	assert.Equal(t, stdmsgs.TypeString, fe.Type)
	assert.Contains(t, err.Error(), "index out of range")

	require.NoError(t, h.frame(t, publishString("/b", "y")))
	assert.Equal(t, []string{"b:y"}, calls)

	stats := h.d.Stats()
	assert.Equal(t, uint64(1), stats.MessageErrors)
	assert.Equal(t, uint64(1), stats.Delivered)
	assert.Len(t, h.reported, 1)
}

func TestDispatch_CallbackMayUnsubscribeItself(t *testing.T) {
	h := newHarness(t)
	var calls int
	h.subscribe(t, "once", stdmsgs.TypeString, stringParser(), func(message.Message) error {
		calls++
		h.reg.Unsubscribe("once")
		return nil
	})

	require.NoError(t, h.frame(t, publishString("once", "1")))
	require.NoError(t, h.frame(t, publishString("once", "2")))
	assert.Equal(t, 1, calls)
}

func TestDispatch_OutOfBand(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.frame(t, `{"op":"status","level":"warning","msg":"unknown type","id":"s1"}`))
	require.NoError(t, h.frame(t, `{"op":"service_response","service":"/reset","id":"c1","result":true,"values":{}}`))

	require.Len(t, h.oob, 2)
	assert.Equal(t, envelope.OpStatus, h.oob[0].Op)
	assert.Equal(t, envelope.OpServiceResponse, h.oob[1].Op)

	require.Len(t, h.statuses, 1)
	assert.Equal(t, "warning", h.statuses[0].Level)
	assert.Equal(t, "unknown type", h.statuses[0].Msg)
	assert.Equal(t, "s1", h.statuses[0].ID)
	assert.Equal(t, uint64(2), h.d.Stats().OutOfBand)
}

func TestDispatch_PublishesMessageEvents(t *testing.T) {
	h := newHarness(t)
	_, err := h.reg.Subscribe(topics.Subscription{
		ID: "subscribe:/chatter:1", Topic: "/chatter", Type: stdmsgs.TypeString,
		Parser: stringParser(), Callback: func(message.Message) error { return nil },
	})
	require.NoError(t, err)

	require.NoError(t, h.frame(t, publishString("/chatter", "hi")))
	require.Len(t, h.msgs, 1)
	assert.Equal(t, "/chatter", h.msgs[0].Topic)
	assert.Equal(t, "subscribe:/chatter:1", h.msgs[0].SubscriptionID)
	assert.Equal(t, map[string]any{"data": "hi"}, h.msgs[0].Msg)
	assert.False(t, h.msgs[0].ReceivedAt.IsZero())
}

func TestDispatch_RobotPoseScenario(t *testing.T) {
	h := newHarness(t)
	var got []geometrymsgs.PoseStamped
	h.subscribe(t, "/robot/pose", geometrymsgs.TypePoseStamped,
		message.ParserFor(geometrymsgs.DecodePoseStamped),
		func(m message.Message) error {
			got = append(got, m.(geometrymsgs.PoseStamped))
			return nil
		})

	const frame = `{"op":"publish","topic":"/robot/pose","msg":{
		"header":{"seq":3,"stamp":{"secs":1700000000,"nsecs":250},"frame_id":"map"},
		"pose":{"position":{"x":1.5,"y":-2,"z":0},"orientation":{"x":0,"y":0,"z":0.7071,"w":0.7071}}}}`
	require.NoError(t, h.frame(t, frame))

	want := geometrymsgs.PoseStamped{
		Header: stdmsgs.Header{Seq: 3, Stamp: stdmsgs.Time{Secs: 1700000000, Nsecs: 250}, FrameID: "map"},
		Pose: geometrymsgs.Pose{
			Position:    geometrymsgs.Point{X: 1.5, Y: -2, Z: 0},
			Orientation: geometrymsgs.Quaternion{Z: 0.7071, W: 0.7071},
		},
	}
	require.Len(t, got, 1)
	assert.Equal(t, want, got[0])

	const noPose = `{"op":"publish","topic":"/robot/pose","msg":{
		"header":{"seq":4,"stamp":{"secs":1700000001,"nsecs":0},"frame_id":"map"}}}`
	err := h.frame(t, noPose)
	require.ErrorIs(t, err, message.ErrMissingField)
	var de *message.DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "pose", de.Field)
	assert.Len(t, got, 1)
}

func TestNewDispatcher_Defaults(t *testing.T) {
	d := NewDispatcher(NewDispatcherParams{Registry: topics.NewRegistry()})
	// default reporter and publisher must not panic
	assert.Error(t, d.HandleFrame(context.Background(), []byte("not json")))
	assert.NoError(t, d.HandleFrame(context.Background(), []byte(`{"op":"status","level":"error","msg":"x"}`)))
	assert.Equal(t, uint64(2), d.Stats().Frames)
}
