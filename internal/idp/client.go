// client.go — HTTP-клиент к Admin API Identity Provider.
// Реализует автоматическое получение service token через Client Credentials flow,
// кэширование токена (обновление за 30s до expiration).
// Операции: GetUser, ListUserMemberships, ListOrgMembers, CreateOrganization,
// CreateInvitation, UpdateMembershipRole, RemoveMember, InstanceInfo.
package idp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// ErrNotFound — ресурс у провайдера не найден (HTTP 404).
var ErrNotFound = fmt.Errorf("ресурс у Identity Provider не найден")

// Client — HTTP-клиент к Admin API Identity Provider.
type Client struct {
	baseURL      string // Базовый URL провайдера (без trailing slash)
	clientID     string // Client ID для Client Credentials flow
	clientSecret string // Client Secret

	httpClient *http.Client
	logger     *slog.Logger

	// Кэш токена доступа
	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// New создаёт клиент к Admin API Identity Provider.
// baseURL — базовый URL провайдера (например, https://idp.cardflux.dev).
// clientID, clientSecret — credentials для Client Credentials flow.
// httpClient — HTTP-клиент (может содержать TLS конфигурацию).
func New(baseURL, clientID, clientSecret string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   httpClient,
		logger:       logger.With(slog.String("component", "idp_client")),
	}
}

// --- Аутентификация ---

// tokenEndpoint возвращает URL endpoint'а получения токена.
func (c *Client) tokenEndpoint() string {
	return c.baseURL + "/oauth/token"
}

// adminBaseURL возвращает базовый URL Admin API.
func (c *Client) adminBaseURL() string {
	return c.baseURL + "/v1"
}

// getToken возвращает актуальный access token, обновляя при необходимости.
// Токен обновляется за 30 секунд до истечения.
func (c *Client) getToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Проверяем кэш: если токен валиден ещё 30 секунд — используем его
	if c.accessToken != "" && time.Now().Add(30*time.Second).Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	token, err := c.requestToken(ctx)
	if err != nil {
		return "", err
	}

	c.accessToken = token.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)

	c.logger.Debug("токен Identity Provider обновлён",
		slog.Time("expires_at", c.tokenExpiry),
	)

	return c.accessToken, nil
}

// requestToken выполняет Client Credentials flow.
func (c *Client) requestToken(ctx context.Context) (*TokenResponse, error) {
	data := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenEndpoint(), strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("создание запроса токена: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("запрос токена Identity Provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("Identity Provider вернул статус %d при запросе токена: %s", resp.StatusCode, string(body))
	}

	var token TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return nil, fmt.Errorf("декодирование токена Identity Provider: %w", err)
	}

	return &token, nil
}

// --- HTTP helpers ---

// doAuthorized выполняет HTTP-запрос к Admin API с авторизацией.
func (c *Client) doAuthorized(ctx context.Context, method, path string, body any) (*http.Response, error) {
	token, err := c.getToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("получение токена: %w", err)
	}

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("сериализация тела запроса: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	reqURL := c.adminBaseURL() + path
	req, err := http.NewRequestWithContext(ctx, method, reqURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("создание запроса %s %s: %w", method, path, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("запрос %s %s: %w", method, path, err)
	}

	return resp, nil
}

// decodeResponse декодирует успешный ответ или возвращает ошибку по статусу.
func decodeResponse(resp *http.Response, out any) error {
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("Identity Provider вернул статус %d: %s", resp.StatusCode, string(body))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("декодирование ответа Identity Provider: %w", err)
	}
	return nil
}

// --- Операции ---

// GetUser возвращает пользователя по id (sub).
func (c *Client) GetUser(ctx context.Context, userID string) (*User, error) {
	resp, err := c.doAuthorized(ctx, http.MethodGet, "/users/"+url.PathEscape(userID), nil)
	if err != nil {
		return nil, err
	}

	var user User
	if err := decodeResponse(resp, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ListUserMemberships возвращает все членства пользователя в организациях.
// Роль в каждом членстве — сырая строка провайдера ("org:admin").
func (c *Client) ListUserMemberships(ctx context.Context, userID string) ([]OrganizationMembership, error) {
	path := "/users/" + url.PathEscape(userID) + "/organization_memberships"
	resp, err := c.doAuthorized(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var memberships []OrganizationMembership
	if err := decodeResponse(resp, &memberships); err != nil {
		return nil, err
	}
	return memberships, nil
}

// ListOrgMembers возвращает членства всех участников организации.
func (c *Client) ListOrgMembers(ctx context.Context, orgID string) ([]OrganizationMembership, error) {
	path := "/organizations/" + url.PathEscape(orgID) + "/memberships"
	resp, err := c.doAuthorized(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var memberships []OrganizationMembership
	if err := decodeResponse(resp, &memberships); err != nil {
		return nil, err
	}
	return memberships, nil
}

// CreateOrganization создаёт организацию у провайдера.
// Возвращает id созданной организации.
func (c *Client) CreateOrganization(ctx context.Context, name string) (string, error) {
	resp, err := c.doAuthorized(ctx, http.MethodPost, "/organizations", organizationCreateRequest{Name: name})
	if err != nil {
		return "", err
	}

	var org Organization
	if err := decodeResponse(resp, &org); err != nil {
		return "", err
	}
	if org.ID == "" {
		return "", fmt.Errorf("Identity Provider не вернул id организации")
	}
	return org.ID, nil
}

// CreateInvitation создаёт приглашение в организацию.
// role — роль в формате провайдера (rbac.ProviderRoleString).
func (c *Client) CreateInvitation(ctx context.Context, orgID, email, role string) (*Invitation, error) {
	path := "/organizations/" + url.PathEscape(orgID) + "/invitations"
	resp, err := c.doAuthorized(ctx, http.MethodPost, path, invitationCreateRequest{
		Email: email,
		Role:  role,
	})
	if err != nil {
		return nil, err
	}

	var inv Invitation
	if err := decodeResponse(resp, &inv); err != nil {
		return nil, err
	}
	return &inv, nil
}

// UpdateMembershipRole меняет роль участника организации.
// role — роль в формате провайдера (rbac.ProviderRoleString).
func (c *Client) UpdateMembershipRole(ctx context.Context, orgID, userID, role string) error {
	path := "/organizations/" + url.PathEscape(orgID) + "/memberships/" + url.PathEscape(userID)
	resp, err := c.doAuthorized(ctx, http.MethodPatch, path, membershipUpdateRequest{Role: role})
	if err != nil {
		return err
	}
	return decodeResponse(resp, nil)
}

// RemoveMember удаляет участника из организации.
func (c *Client) RemoveMember(ctx context.Context, orgID, userID string) error {
	path := "/organizations/" + url.PathEscape(orgID) + "/memberships/" + url.PathEscape(userID)
	resp, err := c.doAuthorized(ctx, http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	return decodeResponse(resp, nil)
}

// InstanceInfo возвращает краткую информацию об инстансе провайдера.
// Используется readiness-проверкой.
func (c *Client) InstanceInfo(ctx context.Context) (*InstanceInfo, error) {
	resp, err := c.doAuthorized(ctx, http.MethodGet, "/instance", nil)
	if err != nil {
		return nil, err
	}

	var info InstanceInfo
	if err := decodeResponse(resp, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// --- Readiness ---

// ReadinessChecker — проверка готовности Identity Provider для health endpoint.
// Реализует интерфейс handlers.ReadinessChecker.
type ReadinessChecker struct {
	client *Client
}

// NewReadinessChecker создаёт проверку готовности провайдера.
func NewReadinessChecker(client *Client) *ReadinessChecker {
	return &ReadinessChecker{client: client}
}

// CheckReady проверяет доступность Admin API провайдера.
// Возвращает статус ("ok", "fail") и сообщение.
func (c *ReadinessChecker) CheckReady() (status string, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if _, err := c.client.InstanceInfo(ctx); err != nil {
		return "fail", fmt.Sprintf("Identity Provider недоступен: %v", err)
	}
	return "ok", "подключение активно"
}
