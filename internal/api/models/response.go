package models

// PageResponse describes the view a page path resolves to. It is served when
// no built front-end is available.
type PageResponse struct {
	Name   string            `json:"name"`
	Path   string            `json:"path"`
	Params map[string]string `json:"params"`
}

// RouteInfo describes one entry of the page-route table.
type RouteInfo struct {
	Path string `json:"path"`
	Name string `json:"name"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
