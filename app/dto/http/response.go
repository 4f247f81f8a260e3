package http

// SuccessResponse and ErrorResponse are the only two envelopes the HTTP API
// writes.
type SuccessResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type MessageData struct {
	Message string `json:"message"`
}

type TokenMessageData struct {
	Message string `json:"message"`
	Token   string `json:"token,omitempty"`
}

type UserMessageData struct {
	Message string `json:"message"`
	User    any    `json:"user"`
}

type UserData struct {
	User any `json:"user"`
}

func Success(data any) SuccessResponse {
	return SuccessResponse{Success: true, Data: data}
}

func Error(message string) ErrorResponse {
	return ErrorResponse{Success: false, Message: message}
}
