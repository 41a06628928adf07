package session

// MeResponse es la respuesta de GET /yandex-id/me.
type MeResponse struct {
	AccountID string `json:"account_id"`
	Username  string `json:"username"`
}
