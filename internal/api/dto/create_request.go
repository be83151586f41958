package dto

// CreateRequest is the body of a schedule request. The delivery channel
// comes from the route, not the body.
type CreateRequest struct {
	RecipientID   string `json:"recipient_id" validate:"required"`
	Content       string `json:"content" validate:"required"`
	Timezone      string `json:"timezone"`
	ScheduledTime string `json:"scheduled_time"`
	Priority      int    `json:"priority"`
}
