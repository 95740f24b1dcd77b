package entity

import "time"

// Agent is a travel agent that curates hotel options for requests
type Agent struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Email          string     `json:"email"`
	LarkOpenID     string     `json:"lark_open_id,omitempty"`
	Active         bool       `json:"active"`
	LastAssignedAt *time.Time `json:"last_assigned_at,omitempty"`
}
