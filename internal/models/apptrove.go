package models

// Template представляет шаблон UniLink в том виде, в котором его вернул поставщик.
type Template map[string]any

// Attempt описывает одну выполненную попытку обращения к поставщику
type Attempt struct {
	Endpoint   string `json:"endpoint"`
	Credential string `json:"credential"`
	Status     int    `json:"status,omitempty"`
}

// TemplatesResult - ответ на запрос списка шаблонов.
// Templates никогда не равен nil: при сбое возвращается пустой список.
type TemplatesResult struct {
	Success   bool       `json:"success"`
	Templates []Template `json:"templates"`
	Error     string     `json:"error,omitempty"`
}

// StatsResult - ответ на запрос статистики по ссылке.
type StatsResult struct {
	Success bool           `json:"success"`
	Stats   map[string]any `json:"stats"`
	Error   string         `json:"error,omitempty"`
}

// LinkPayload - параметры создаваемой ссылки
type LinkPayload struct {
	Name     string         `json:"name" validate:"required,max=200"`
	Campaign string         `json:"campaign,omitempty" validate:"max=200"`
	Channel  string         `json:"channel,omitempty" validate:"max=100"`
	DeepLink string         `json:"deep_link,omitempty" validate:"omitempty,url"`
	Params   map[string]any `json:"params,omitempty"`
}

// AffiliateMetadata - сведения о партнере, которые передаются в ссылку
type AffiliateMetadata struct {
	ID    string `json:"id,omitempty"`
	Code  string `json:"code,omitempty"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty" validate:"omitempty,email"`
}

// CreateLinkRequest - запрос на создание отслеживаемой ссылки.
type CreateLinkRequest struct {
	TemplateID string            `json:"template_id" validate:"required"`
	Link       LinkPayload       `json:"link"`
	Affiliate  AffiliateMetadata `json:"affiliate"`
}

// CreateLinkResult - ответ на создание ссылки.
// При неудаче Unilink и LinkID всегда пусты.
type CreateLinkResult struct {
	Success  bool      `json:"success"`
	Unilink  string    `json:"unilink,omitempty"`
	LinkID   string    `json:"link_id,omitempty"`
	Error    string    `json:"error,omitempty"`
	Attempts []Attempt `json:"attempts,omitempty"`
}
