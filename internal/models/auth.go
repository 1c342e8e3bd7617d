package models

// UserInfo describes the signed-in user as reported by the auth backend.
type UserInfo struct {
	Username    string `json:"username"`
	ProjectName string `json:"projectName"`
	CompanyID   string `json:"companyId"`
}

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	CompanyID string `json:"companyId"`
	Username  string `json:"username"`
	Password  string `json:"password"`
}

// LoginResponse covers both shapes the backend returns on success:
// a session token, or a first-login password change requirement.
type LoginResponse struct {
	Token                  string   `json:"token,omitempty"`
	RequiresPasswordChange bool     `json:"requiresPasswordChange,omitempty"`
	ChangeToken            string   `json:"changeToken,omitempty"`
	User                   UserInfo `json:"user"`
}

// ChangePasswordRequest is the body of POST /api/auth/password/change.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// MessageResponse is the generic {message} acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is the error body shape used by the backend.
// Some endpoints use "error", others "message".
type ErrorResponse struct {
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}
