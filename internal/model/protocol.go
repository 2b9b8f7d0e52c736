package model

import "encoding/json"

// MethodExecute asks the sandbox to run a snippet and return its output.
const MethodExecute = "execute"

// Request is sent to the sandbox, one JSON document per line.
type Request struct {
	ID     string `json:"id"`
	Method string `json:"method"`
	Code   string `json:"code"`
}

// Response is the sandbox reply correlated to a Request by ID.
type Response struct {
	ID    string          `json:"id"`
	OK    bool            `json:"ok"`
	Value json.RawMessage `json:"value,omitempty"`
	Error json.RawMessage `json:"error,omitempty"`
}
