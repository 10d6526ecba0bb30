package events

import "context"

// Event types
const (
	EventCampaignLaunched  = "campaign_launched"
	EventCampaignProgress  = "campaign_progress"
	EventCampaignCompleted = "campaign_completed"
)

// StreamCampaign carries launch lifecycle events; the websocket hub
// relays it to connected dashboards.
const StreamCampaign = "events:campaign"

type Event struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

type Publisher interface {
	Publish(ctx context.Context, stream string, event Event) error
}

type Subscriber interface {
	Subscribe(ctx context.Context, stream string, handler func(Event)) error
}
