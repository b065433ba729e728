package dto

type CreateSessionRequest struct {
	Role     string `json:"role"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
}

type SessionResponse struct {
	Token     string `json:"token"`
	Role      string `json:"role"`
	ActorName string `json:"actor_name,omitempty"`
}

type NamesResponse struct {
	Names []string `json:"names"`
}

type AddOperatorRequest struct {
	Name string `json:"name"`
}
