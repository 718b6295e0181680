package models

import "time"

// Subscription links a subscriber to a channel (both users).
type Subscription struct {
	ID         string
	Subscriber string
	Channel    string
	CreatedAt  time.Time
}
