package dto

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type OAuthLoginRequest struct {
	Provider  string `json:"provider"` // "google" is the only supported value
	SubjectID string `json:"subjectId"`
	Email     string `json:"email"`
	Name      string `json:"name,omitempty"`
	Picture   string `json:"picture,omitempty"`
}
