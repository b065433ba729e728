package dto

type WorkItemResponse struct {
	ManifestID string `json:"manifest_id"`
	LoadA      int    `json:"load_a"`
	LoadB      int    `json:"load_b"`
}

type WorklistResponse struct {
	View      string             `json:"view"`
	Operator  string             `json:"operator,omitempty"`
	Operators []string           `json:"operators,omitempty"`
	Names     []string           `json:"names,omitempty"`
	Items     []WorkItemResponse `json:"items"`
}

type ObservationRequest struct {
	LoadA int    `json:"load_a"`
	LoadB int    `json:"load_b"`
	Text  string `json:"text"`
}

type SubmissionRequest struct {
	Action      string              `json:"action"`
	ManifestID  string              `json:"manifest_id"`
	ActorName   string              `json:"actor_name,omitempty"`
	Observation *ObservationRequest `json:"observation,omitempty"`
}

type BatchRequest struct {
	Action      string   `json:"action"`
	ManifestIDs []string `json:"manifest_ids"`
	ActorName   string   `json:"actor_name,omitempty"`
}
