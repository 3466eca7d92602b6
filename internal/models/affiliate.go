package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Affiliate представляет зарегистрированного партнера
type Affiliate struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Referrer  string    `json:"referrer,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Metadata возвращает сведения о партнере для передачи в ссылку
func (a *Affiliate) Metadata() AffiliateMetadata {
	return AffiliateMetadata{
		ID:    a.ID,
		Code:  a.Code,
		Name:  a.Name,
		Email: a.Email,
	}
}

// SignupRequest - заявка на регистрацию партнера
type SignupRequest struct {
	Name     string `json:"name" validate:"required,max=120"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"required,min=10,max=15"`
	Referrer string `json:"referrer,omitempty" validate:"max=32"`
}

// AffiliateUpdate - частичное обновление профиля. Пустые поля не меняются.
type AffiliateUpdate struct {
	Name  *string `json:"name,omitempty" validate:"omitempty,max=120"`
	Email *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone *string `json:"phone,omitempty" validate:"omitempty,min=10,max=15"`
}

// Link - сохраненная отслеживаемая ссылка партнера
type Link struct {
	ID           string    `json:"id"`
	AffiliateID  string    `json:"affiliate_id"`
	TemplateID   string    `json:"template_id"`
	VendorLinkID string    `json:"vendor_link_id"`
	Unilink      string    `json:"unilink"`
	Name         string    `json:"name"`
	Campaign     string    `json:"campaign,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// AffiliateClaims представляет собой данные, хранящиеся в JWT токене сессии партнера
type AffiliateClaims struct {
	AffiliateID string `json:"affiliate_id"`
	jwt.RegisteredClaims
}
