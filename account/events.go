package account

import "github.com/dahromy/socialauth/provider"

// Topics published after a resolution commits.
const (
	TopicCreated = "account.created"
	TopicLinked  = "account.linked"
)

// Publisher receives account lifecycle events. *eventbus.Bus satisfies it.
type Publisher interface {
	Publish(topic string, data any)
}

// Event is the payload of TopicCreated and TopicLinked.
type Event struct {
	AccountID  string
	Provider   provider.Name
	ProviderID string
	Contact    string
}
