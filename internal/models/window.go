package models

type Window struct {
	WindowID         string   `json:"window_id"`
	Department       string   `json:"department"`
	Name             string   `json:"name"`
	IsOpen           bool     `json:"is_open"`
	IsServing        bool     `json:"is_serving"`
	AssignedServices []string `json:"assigned_services,omitempty"`
	PreviousTicketID *string  `json:"previous_ticket_id,omitempty"`
}

type Department struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type Service struct {
	ServiceID  string `json:"service_id"`
	Department string `json:"department"`
	Name       string `json:"name"`
	Active     bool   `json:"active"`
}
