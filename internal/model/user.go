package model

import (
	"time"
)

const (
	RoleParent = "parent"
	RoleChild  = "child"
)

func ValidRole(role string) bool {
	return role == RoleParent || role == RoleChild
}

type User struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string    `gorm:"type:varchar(150);uniqueIndex;not null" json:"username"`
	PasswordHash string    `gorm:"type:varchar(255);not null" json:"-"`
	Role         string    `gorm:"type:varchar(10);index;not null" json:"role"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// FamilyLink ties a parent to a child. A child may have several parents.
type FamilyLink struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ParentID  int64     `gorm:"uniqueIndex:idx_family_parent_child;not null" json:"parent_id"`
	ChildID   int64     `gorm:"uniqueIndex:idx_family_parent_child;index;not null" json:"child_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (FamilyLink) TableName() string {
	return "family_link"
}
