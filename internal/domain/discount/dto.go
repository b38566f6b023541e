// internal/domain/discount/dto.go
package discount

import "time"

type ValidateRequest struct {
	Code  string `json:"code" binding:"required,max=64"`
	Email string `json:"email" binding:"required,email"`
	Kind  string `json:"kind" binding:"required"`
}

type ValidateResponse struct {
	Valid       bool   `json:"valid"`
	Percent     int    `json:"percent,omitempty"`
	Description string `json:"description,omitempty"`
	CodeID      int64  `json:"code_id,omitempty"`
	Error       string `json:"error,omitempty"`
}

type CreateCodeRequest struct {
	Code            string     `json:"code" binding:"required,max=64"`
	Percent         int        `json:"percent" binding:"required,min=1,max=100"`
	Description     string     `json:"description"`
	ValidFrom       *time.Time `json:"valid_from"`
	ValidUntil      *time.Time `json:"valid_until"`
	ApplicableKinds []string   `json:"applicable_kinds"`
	MaxRedemptions  *int32     `json:"max_redemptions" binding:"omitempty,min=1"`
}
