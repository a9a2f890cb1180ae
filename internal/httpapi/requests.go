package httpapi

import (
	"github.com/LamboYu/codever/internal/identity"
	"github.com/LamboYu/codever/internal/snippets"
	"github.com/LamboYu/codever/internal/validation"
)

type LoginDTO struct {
	User  identity.User `json:"user"`
	Token string        `json:"token"`
}

func (r *LoginDTO) Validate() error {
	if err := validation.Struct(r); err != nil {
		return validation.Message(err, validation.Messages{
			"ID": {
				"required": "user id is required",
				"notblank": "user id is required",
			},
			"Email": {
				"email": "invalid email",
			},
		}, "invalid request")
	}
	return nil
}

type SnippetCreateDTO struct {
	snippets.CreateRequest
	Pin       bool `json:"pin"`
	ReadLater bool `json:"readLater"`
}

type SnippetUpdateDTO struct {
	snippets.CreateRequest
}

type SearchDTO struct {
	Text   string `json:"text" validate:"required,notblank,max=500"`
	Domain string `json:"searchDomain" validate:"required,oneof=personal public"`
}

func (r *SearchDTO) Validate() error {
	if err := validation.Struct(r); err != nil {
		return validation.Message(err, validation.Messages{
			"Text": {
				"required": "search text is required",
				"notblank": "search text is required",
				"max":      "search text is too long",
			},
			"Domain": {
				"*": "search domain must be personal or public",
			},
		}, "invalid request")
	}
	return nil
}

type SearchSavedDTO struct {
	SearchDTO
	Saved bool `json:"saved"`
}

type ToggleDTO struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

func (r *ToggleDTO) Validate() error {
	if err := validation.Struct(r); err != nil {
		return validation.Message(err, validation.Messages{
			"Enabled": {"required": "enabled is required"},
		}, "invalid request")
	}
	return nil
}
