package mqtt

import (
	"context"

	"github.com/kilianp07/blackout/core/cascade"
	"github.com/kilianp07/blackout/core/dispatch"
	"github.com/kilianp07/blackout/core/events"
	coremqtt "github.com/kilianp07/blackout/core/mqtt"
	"github.com/kilianp07/blackout/infra/logger"
	"github.com/kilianp07/blackout/internal/eventbus"
)

// Notifier publishes cascade results and dispatch progress as JSON.
type Notifier struct {
	pub    coremqtt.Publisher
	prefix string
	logger logger.Logger
}

// NewNotifier wraps pub. An empty prefix defaults to "blackout".
func NewNotifier(pub coremqtt.Publisher, prefix string) *Notifier {
	if prefix == "" {
		prefix = "blackout"
	}
	return &Notifier{pub: pub, prefix: prefix, logger: logger.New("mqtt_notifier")}
}

// NotifyCascade publishes res on the scenario topic.
func (n *Notifier) NotifyCascade(res cascade.Result) error {
	return PublishJSON(n.pub, coremqtt.CascadeTopic(n.prefix, res.Scenario), res)
}

// NotifyStatus publishes st on the session status topic.
func (n *Notifier) NotifyStatus(st dispatch.Status) error {
	return PublishJSON(n.pub, coremqtt.DispatchStatusTopic(n.prefix, st.SessionID), st)
}

type eventMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Forward relays assignment and transition events from bus to the session
// event topics until ctx is cancelled or the bus closes.
func (n *Notifier) Forward(ctx context.Context, bus eventbus.EventBus) {
	ch := bus.Subscribe()
	go func() {
		defer bus.Unsubscribe(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-ch:
				if !ok {
					return
				}
				n.forward(ev)
			}
		}
	}()
}

func (n *Notifier) forward(ev eventbus.Event) {
	var (
		session string
		msg     eventMessage
	)
	switch e := ev.(type) {
	case events.AssignmentEvent:
		session, msg = e.SessionID, eventMessage{Type: "assignment", Data: e}
	case events.TransitionEvent:
		session, msg = e.SessionID, eventMessage{Type: "transition", Data: e}
	default:
		return
	}
	if err := PublishJSON(n.pub, coremqtt.DispatchEventTopic(n.prefix, session), msg); err != nil {
		n.logger.Errorf("forward %s event: %v", msg.Type, err)
	}
}
