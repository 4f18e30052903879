package api

// InjectHazardRequest creates an active hazard.
type InjectHazardRequest struct {
	Kind     string `json:"kind" binding:"required,hazardkind"`
	AssetID  string `json:"asset_id" binding:"required"`
	KP       int    `json:"kp" binding:"min=0"`
	Severity string `json:"severity" binding:"required,hazardseverity"`
}

// DispatchInvestigationRequest launches an investigation AUV.
type DispatchInvestigationRequest struct {
	AssetID string `json:"asset_id" binding:"required"`
	KP      int    `json:"kp" binding:"min=0"`
}

// SetDilationRequest adjusts simulated-time scaling.
type SetDilationRequest struct {
	Factor float64 `json:"factor" binding:"required,gt=0"`
}

// IDResponse returns the identifier of a created resource.
type IDResponse struct {
	ID string `json:"id"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusResponse acknowledges a command with no created resource.
type StatusResponse struct {
	Status string `json:"status"`
}

// ClockResponse reports the simulation clock state.
type ClockResponse struct {
	SimTime  float64 `json:"sim_time"`
	Dilation float64 `json:"dilation"`
}
