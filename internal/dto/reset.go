package dto

type ResetInitiateRequest struct {
	Identifier string `json:"identifier"` // Owner email or Jeweler phone number
}

type ResetInitiateResponse struct {
	Message string `json:"message"`
}

type ResetVerifyRequest struct {
	Identifier string `json:"identifier"`
	OTP        string `json:"otp"`
}

type ResetVerifyResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
}

type ResetPasswordRequest struct {
	Identifier      string `json:"identifier"`
	Token           string `json:"token"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}
