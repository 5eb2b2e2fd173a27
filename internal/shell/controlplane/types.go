package controlplane

import "encoding/json"

// =============================================================================
// Response Envelope
// =============================================================================

// ResponseMetadata is the envelope header every control-plane response
// carries.
type ResponseMetadata struct {
	RequestId string         `json:"RequestId"`
	Action    string         `json:"Action"`
	Version   string         `json:"Version"`
	Service   string         `json:"Service"`
	Region    string         `json:"Region"`
	Error     *ResponseError `json:"Error,omitempty"`
}

// ResponseError is the embedded error detail inside ResponseMetadata.
type ResponseError struct {
	Code    string `json:"Code"`
	Message string `json:"Message"`
}

// envelope is the uniform response shape. A response is failed whenever the
// transport status is not 2xx or Result is absent, regardless of the Error
// contents.
type envelope struct {
	ResponseMetadata ResponseMetadata `json:"ResponseMetadata"`
	Result           json.RawMessage  `json:"Result,omitempty"`
}

// =============================================================================
// Function Types
// =============================================================================

// Function is the remote platform's addressable compute unit.
type Function struct {
	Id         string `json:"Id"`
	Name       string `json:"Name"`
	Source     string `json:"Source,omitempty"`
	SourceType string `json:"SourceType,omitempty"`
}

// =============================================================================
// Action Parameters
// =============================================================================

type listFunctionsParams struct {
	PageNumber int    `json:"PageNumber"`
	PageSize   int    `json:"PageSize"`
	Name       string `json:"Name,omitempty"`
}

type listFunctionsResult struct {
	Items []Function `json:"Items"`
	Total int        `json:"Total"`
}

type getFunctionParams struct {
	Id string `json:"Id"`
}

type updateFunctionParams struct {
	Id         string `json:"Id"`
	Source     string `json:"Source"`
	SourceType string `json:"SourceType"`
}

type releaseParams struct {
	FunctionId          string `json:"FunctionId"`
	RevisionNumber      int    `json:"RevisionNumber"`
	TargetTrafficWeight int    `json:"TargetTrafficWeight"`
	RollingStep         int    `json:"RollingStep"`
	Description         string `json:"Description"`
}

type getReleaseStatusParams struct {
	FunctionId string `json:"FunctionId"`
}

type getImageSyncStatusParams struct {
	FunctionId string `json:"FunctionId"`
	Source     string `json:"Source"`
}

// =============================================================================
// Poll Result
// =============================================================================

// PollResult is one observed status of a long-running remote operation.
// Ephemeral - not persisted beyond the call that produced it.
type PollResult struct {
	Status      string `json:"Status"`
	Description string `json:"Description,omitempty"`
}
