package presentationhandler

import (
	"encoding/json"

	"slidecollabgo/internal/services/presentation"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type CreatePresentationBody struct {
	Title       string `json:"title" binding:"required,min=1"`
	Description string `json:"description"`
}

type UpdatePresentationBody struct {
	Title       *string         `json:"title"`
	Description *string         `json:"description"`
	Theme       json.RawMessage `json:"theme"`
	IsPublic    *bool           `json:"is_public"`
}

type ReplaceSlidesBody struct {
	Slides []presentation.SlideDTO `json:"slides" binding:"required"`
}

type DuplicateResponse struct {
	ID string `json:"id"`
}
