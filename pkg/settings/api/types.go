package api

// Flash levels
const (
	LevelSuccess = "success"
	LevelWarning = "warning"
)

// Redirect targets
const (
	PathSettings    = "/settings"
	PathSecurity    = "/settings/security"
	PathTotpEnable  = "/settings/security/2fa/otp/enable"
	PathTotpDisable = "/settings/security/2fa/otp/disable"
	PathPgpEnable   = "/settings/security/2fa/pgp/enable"
)

// FlashResponse is returned by every state-changing endpoint
type FlashResponse struct {
	Level    string `json:"level"`
	Message  string `json:"message"`
	Redirect string `json:"redirect"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// ValidationErrorResponse lists field level messages
type ValidationErrorResponse struct {
	Message string                 `json:"message"`
	Errors  map[string]interface{} `json:"errors"`
}

// PgpKeyFormResponse tells the client which key format is expected
type PgpKeyFormResponse struct {
	Field  string `json:"field"`
	Format string `json:"format"`
}
