package http_utils

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

type BaseResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type DataResponse[T any] struct {
	BaseResponse
	Data T `json:"data"`
}

type ValidationErrorResponse struct {
	BaseResponse
	Errors []string `json:"errors"`
}

func NewErrorResponse(msg string) BaseResponse {
	return BaseResponse{
		Status:  StatusError,
		Message: msg,
	}
}

func NewDataResponse[T any](msg string, data T) DataResponse[T] {
	return DataResponse[T]{
		BaseResponse: BaseResponse{
			Status:  StatusSuccess,
			Message: msg,
		},
		Data: data,
	}
}
