package domain

// DirectoryUser represents a tenant member resolved from Entra ID (Azure AD).
// The Graph user id (a GUID) is stored as a string to avoid UUID parsing
// pitfalls with non-user directory objects. Users are never deleted; members
// that leave the tracked group are soft-deactivated.
type DirectoryUser struct {
	BaseModel
	AADUserID   string  `gorm:"type:varchar(64);not null;uniqueIndex:uq_directory_users_aad_user_id" json:"aad_user_id"`
	DisplayName string  `gorm:"type:varchar(255);index:idx_directory_users_display_name" json:"display_name"`
	Email       *string `gorm:"type:varchar(255);index:idx_directory_users_email" json:"email"`
	IsActive    bool    `gorm:"not null;default:true;index:idx_directory_users_is_active" json:"is_active"`
}

// TableName specifies the table name for DirectoryUser
func (DirectoryUser) TableName() string {
	return "directory_users"
}
