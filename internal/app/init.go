package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/reelcraft/reelcraft-server/internal/models"
	"github.com/reelcraft/reelcraft-server/internal/security"
	internalsettings "github.com/reelcraft/reelcraft-server/internal/settings"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Bootstrap admin environment variables.
const (
	EnvBootstrapAdminUsername = "ADMIN_USERNAME"
	EnvBootstrapAdminPassword = "ADMIN_PASSWORD"
)

// HasAdminInitialized reports whether the system has at least one admin account.
func HasAdminInitialized(conn *gorm.DB) (bool, error) {
	if conn == nil {
		return false, fmt.Errorf("nil db")
	}
	if !conn.Migrator().HasTable(&models.Admin{}) {
		return false, nil
	}
	var count int64
	if errCount := conn.Model(&models.Admin{}).Count(&count).Error; errCount != nil {
		return false, errCount
	}
	return count > 0, nil
}

// EnsureBootstrapAdmin creates the first admin account from environment
// variables when no admin exists yet. A missing env pair is not an error;
// the management API simply stays locked until one is provisioned.
func EnsureBootstrapAdmin(conn *gorm.DB) error {
	initialized, errInit := HasAdminInitialized(conn)
	if errInit != nil {
		return errInit
	}
	if initialized {
		return nil
	}

	username := strings.TrimSpace(os.Getenv(EnvBootstrapAdminUsername))
	password := os.Getenv(EnvBootstrapAdminPassword)
	if username == "" || password == "" {
		log.Info("no admin account and no bootstrap credentials, skipping admin creation")
		return nil
	}
	if errCreate := CreateAdminUserWithConn(conn, username, password, internalsettings.DefaultSiteName); errCreate != nil {
		return errCreate
	}
	log.WithField("username", username).Info("bootstrap admin account created")
	return nil
}

// CreateAdminUserWithConn creates the first admin user and seeds the site name.
func CreateAdminUserWithConn(conn *gorm.DB, username, password, siteName string) error {
	if conn == nil {
		return fmt.Errorf("open database: nil connection")
	}

	hashedPassword, errHash := security.HashPassword(password)
	if errHash != nil {
		return fmt.Errorf("hash password: %w", errHash)
	}

	now := time.Now().UTC()
	admin := models.Admin{
		Username:  username,
		Password:  hashedPassword,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if errCreate := conn.Create(&admin).Error; errCreate != nil {
		return fmt.Errorf("create admin: %w", errCreate)
	}

	if siteName = strings.TrimSpace(siteName); siteName == "" {
		siteName = internalsettings.DefaultSiteName
	}
	if errSite := internalsettings.SetDBConfigValue(conn, internalsettings.SiteNameKey, siteName); errSite != nil {
		return fmt.Errorf("seed site name setting: %w", errSite)
	}
	return nil
}
