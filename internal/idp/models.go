// Пакет idp — HTTP-клиент к Admin API Identity Provider.
// models.go — модели данных провайдера.
package idp

import "time"

// TokenResponse — ответ на запрос токена через Client Credentials flow.
type TokenResponse struct {
	AccessToken string `json:"access_token"` //nolint:gosec // G117: структура токена OAuth2
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// User — пользователь у Identity Provider.
type User struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Email         string `json:"email"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Enabled       bool   `json:"enabled"`
	EmailVerified bool   `json:"email_verified"`
	CreatedAt     int64  `json:"created_at"`
}

// CreatedAtTime возвращает CreatedAt как time.Time.
// Провайдер хранит timestamp в миллисекундах.
func (u *User) CreatedAtTime() time.Time {
	return time.UnixMilli(u.CreatedAt)
}

// Organization — организация (магазин) у Identity Provider.
type Organization struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// OrganizationMembership — членство пользователя в организации.
// Role — строка в формате провайдера ("org:admin", "org:member");
// нормализация — забота потребителя (rbac.Normalize).
type OrganizationMembership struct {
	Organization Organization `json:"organization"`
	UserID       string       `json:"user_id"`
	Role         string       `json:"role"`
}

// Invitation — приглашение в организацию.
type Invitation struct {
	ID             string `json:"id"`
	Email          string `json:"email_address"`
	Role           string `json:"role"`
	Status         string `json:"status"`
	OrganizationID string `json:"organization_id"`
}

// InstanceInfo — краткая информация об инстансе провайдера.
type InstanceInfo struct {
	ID          string `json:"id"`
	Environment string `json:"environment"`
}

// invitationCreateRequest — запрос на создание приглашения.
type invitationCreateRequest struct {
	Email string `json:"email_address"`
	Role  string `json:"role"`
}

// organizationCreateRequest — запрос на создание организации.
type organizationCreateRequest struct {
	Name string `json:"name"`
}

// membershipUpdateRequest — запрос на смену роли участника.
type membershipUpdateRequest struct {
	Role string `json:"role"`
}
