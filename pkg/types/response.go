package types

type SuccessEnvelope struct {
	Data any `json:"data"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// WebhookEnvelope is the uniform response the external POS sender expects:
// {status, data, error, count}. The authoritative outcome lives here, not in
// the HTTP status line, so bulk partial failures still parse on their side.
type WebhookEnvelope struct {
	Status string  `json:"status"`
	Data   any     `json:"data"`
	Error  *string `json:"error"`
	Count  int     `json:"count"`
}
