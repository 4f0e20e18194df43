package dto

type OTPRequest struct {
	PhoneNumber string `json:"phoneNumber"`
}

type OTPRequestResponse struct {
	Message string `json:"message"`
}

type OTPVerifyRequest struct {
	PhoneNumber string `json:"phoneNumber"`
	OTP         string `json:"otp"`
}
