package entity

import "time"

// Permission bits combined into role masks.
const (
	PermissionUse            = 1
	PermissionBroadcast      = 2
	PermissionSettingsManage = 4
	PermissionUsersManage    = 8
	PermissionShopManage     = 16
	PermissionAdminsManage   = 32
	PermissionOwn            = 64
)

const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
	RoleOwner = "OWNER"
)

type Role struct {
	ID          int
	Name        string
	Default     bool
	Permissions int
}

func (r *Role) Has(permission int) bool {
	return r.Permissions&permission == permission
}

// User balance is in minor currency units and is mutated only by the
// settlement and purchase engines.
type User struct {
	TelegramID       int64     `json:"telegram_id"`
	RoleID           int       `json:"role_id"`
	Balance          int64     `json:"balance"`
	ReferrerID       *int64    `json:"referrer_id,omitempty"`
	RegistrationDate time.Time `json:"registration_date"`
}
