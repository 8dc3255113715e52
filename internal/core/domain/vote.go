package domain

// Vote is a single ballot as it is handed to downstream consumers.
// ID is generated by the server, OptionID is passed through as sent by the client.
type Vote struct {
	ID       string `json:"id"`
	OptionID string `json:"optionId"`
}
