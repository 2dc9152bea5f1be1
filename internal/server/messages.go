package server

import "encoding/json"

// Message types exchanged over the websocket.
const (
	TypeConnected          = "connected"
	TypeButtonPress        = "button_press"
	TypeLaunchSimulation   = "launch_simulation"
	TypeDeleteSimulation   = "delete_simulation"
	TypeUpdateStep         = "update_step"
	TypeSimulationFinished = "simulation_finished"
	TypeSimulationError    = "simulation_error"
	TypeError              = "error"
)

// Message is the envelope of every websocket message in both directions.
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type outbound struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

type Connected struct {
	UserID string `json:"user_id"`
}

type ButtonPress struct {
	Direction string `json:"direction"`
	IsPressed bool   `json:"is_pressed"`
}

type Finished struct {
	Status string `json:"status"`
	Steps  int    `json:"steps"`
}

type ErrorData struct {
	Message string `json:"message"`
}

// Status is the body of every HTTP response.
type Status struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type userRef struct {
	UserID string `json:"user_id"`
}
