package db

import (
	"encoding/json"
	"fmt"

	"github.com/reelcraft/reelcraft-server/internal/models"
	internalsettings "github.com/reelcraft/reelcraft-server/internal/settings"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Migrate runs schema migrations and seeds reference data.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}

	if errAutoMigrate := conn.AutoMigrate(
		&models.Admin{},
		&models.Subscription{},
		&models.PlanLimit{},
		&models.Usage{},
		&models.UsageLog{},
		&models.WebhookEvent{},
		&models.Setting{},
	); errAutoMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errAutoMigrate)
	}

	if errSeed := ensureDefaultPlanLimits(conn); errSeed != nil {
		return errSeed
	}
	if errSeed := ensureRateLimitSettings(conn); errSeed != nil {
		return errSeed
	}
	return nil
}

// defaultPlanLimits returns the seed rows for the built-in tiers.
// -1 means unlimited.
func defaultPlanLimits() []models.PlanLimit {
	return []models.PlanLimit{
		{Plan: models.PlanFree, ScriptsPerMonth: 5, ImagesPerMonth: 3, VideosPerMonth: 1, DescriptionsPerMonth: 10},
		{Plan: models.PlanStarter, ScriptsPerMonth: 50, ImagesPerMonth: 25, VideosPerMonth: 5, DescriptionsPerMonth: 100},
		{Plan: models.PlanPro, ScriptsPerMonth: 200, ImagesPerMonth: 100, VideosPerMonth: 20, DescriptionsPerMonth: 500},
		{
			Plan:                 models.PlanEnterprise,
			ScriptsPerMonth:      models.UnlimitedQuota,
			ImagesPerMonth:       models.UnlimitedQuota,
			VideosPerMonth:       models.UnlimitedQuota,
			DescriptionsPerMonth: models.UnlimitedQuota,
		},
	}
}

// ensureDefaultPlanLimits inserts missing tier rows without touching
// operator-edited values.
func ensureDefaultPlanLimits(conn *gorm.DB) error {
	for _, row := range defaultPlanLimits() {
		if errCreate := conn.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "plan"}},
			DoNothing: true,
		}).Create(&row).Error; errCreate != nil {
			return fmt.Errorf("db: seed plan limits: %w", errCreate)
		}
	}
	return nil
}

// ensureRateLimitSettings seeds the rate limit settings keys when absent.
func ensureRateLimitSettings(conn *gorm.DB) error {
	defaults := map[string]any{
		internalsettings.RateLimitMaxRequestsKey:   internalsettings.DefaultRateLimitMaxRequests,
		internalsettings.RateLimitWindowSecondsKey: internalsettings.DefaultRateLimitWindowSeconds,
		internalsettings.RateLimitRedisEnabledKey:  false,
		internalsettings.RateLimitRedisPrefixKey:   internalsettings.DefaultRateLimitRedisPrefix,
	}
	for key, value := range defaults {
		encoded, errMarshal := json.Marshal(value)
		if errMarshal != nil {
			return fmt.Errorf("db: encode setting %s: %w", key, errMarshal)
		}
		row := models.Setting{Key: key, Value: encoded}
		if errCreate := conn.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoNothing: true,
		}).Create(&row).Error; errCreate != nil {
			return fmt.Errorf("db: seed setting %s: %w", key, errCreate)
		}
	}
	return nil
}
