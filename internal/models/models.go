package models

import "time"

type Ticket struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Gender    string    `json:"gender,omitempty"`
	Segment   string    `json:"segment"`
	Country   string    `json:"country"`
	Region    string    `json:"region"`
	City      string    `json:"city"`
	Street    string    `json:"street"`
	House     string    `json:"house"`
	Message   string    `json:"message"`
}

// LocationQuery carries the raw location fields of a ticket. Any subset
// may be blank; it is built once per ticket and never mutated.
type LocationQuery struct {
	City    string
	Region  string
	Country string
	Street  string
	House   string
}

func (t Ticket) Location() LocationQuery {
	return LocationQuery{
		City:    t.City,
		Region:  t.Region,
		Country: t.Country,
		Street:  t.Street,
		House:   t.House,
	}
}

type Manager struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Position    string    `json:"position"`
	Office      string    `json:"office"`
	Skills      []string  `json:"skills"`
	CurrentLoad int       `json:"current_load"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type BusinessUnit struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Address string  `json:"address,omitempty"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// Analysis is the classifier output for a ticket plus the resolved
// location the routing engine derived from it.
type Analysis struct {
	TicketID       string    `json:"ticket_id"`
	Type           string    `json:"type"`
	Sentiment      string    `json:"sentiment"`
	Priority       int       `json:"priority"`
	Language       string    `json:"language"`
	Summary        string    `json:"summary"`
	Recommendation string    `json:"recommendation"`
	ClientLat      *float64  `json:"client_lat"`
	ClientLon      *float64  `json:"client_lon"`
	ModelVersion   string    `json:"model_version"`
	CreatedAt      time.Time `json:"created_at"`
}

type Assignment struct {
	TicketID      string    `json:"ticket_id"`
	ManagerID     *string   `json:"manager_id"`
	Office        string    `json:"office"`
	RotationIndex int       `json:"rotation_index"`
	Status        string    `json:"status"`
	ReasonCode    string    `json:"reason_code"`
	ReasonText    string    `json:"reason_text"`
	AssignedAt    time.Time `json:"assigned_at"`
}

type Run struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Status     string    `json:"status"`
	Summary    []byte    `json:"summary"`
}
