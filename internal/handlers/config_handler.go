package handlers

import (
	"encoding/json"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/sportsgig/backend/internal/models"
)

const (
	publicConfigCacheKey = "config:public"
	publicConfigCacheTTL = 5 * time.Minute
)

// Hard-coded defaults for unset config keys.
var configDefaults = map[string]string{
	models.ConfigClientCommission:     "10",
	models.ConfigFreelancerCommission: "10",
	models.ConfigCurrency:             "INR",
	models.ConfigPlatformName:         "SportsGig",
}

type ConfigHandler struct {
	DB  *gorm.DB
	RDB *redis.Client
}

func NewConfigHandler(db *gorm.DB, rdb *redis.Client) *ConfigHandler {
	return &ConfigHandler{DB: db, RDB: rdb}
}

// buildPublicConfig merges stored rows over the defaults and types the
// values.
func (h *ConfigHandler) buildPublicConfig() (fiber.Map, error) {
	values := map[string]string{}
	for k, v := range configDefaults {
		values[k] = v
	}

	var rows []models.SystemConfig
	if err := h.DB.Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		if _, known := configDefaults[row.Key]; known {
			values[row.Key] = row.Value
		}
	}

	clientCommission, err := strconv.ParseFloat(values[models.ConfigClientCommission], 64)
	if err != nil {
		clientCommission, _ = strconv.ParseFloat(configDefaults[models.ConfigClientCommission], 64)
	}
	freelancerCommission, err := strconv.ParseFloat(values[models.ConfigFreelancerCommission], 64)
	if err != nil {
		freelancerCommission, _ = strconv.ParseFloat(configDefaults[models.ConfigFreelancerCommission], 64)
	}

	return fiber.Map{
		"clientCommission":     clientCommission,
		"freelancerCommission": freelancerCommission,
		"currency":             values[models.ConfigCurrency],
		"platformName":         values[models.ConfigPlatformName],
	}, nil
}

// GetPublic serves the public config, cache-aside through Redis.
func (h *ConfigHandler) GetPublic(c *fiber.Ctx) error {
	if h.RDB != nil {
		if cached, err := h.RDB.Get(c.Context(), publicConfigCacheKey).Result(); err == nil {
			var data fiber.Map
			if json.Unmarshal([]byte(cached), &data) == nil {
				return c.JSON(fiber.Map{
					"success": true,
					"data":    data,
				})
			}
		}
	}

	data, err := h.buildPublicConfig()
	if err != nil {
		log.Println("Error building public config:", err)
		return c.Status(500).JSON(fiber.Map{
			"success": false,
			"message": "Failed to load config",
		})
	}

	if h.RDB != nil {
		if raw, err := json.Marshal(data); err == nil {
			// Cache failures only cost the next read a DB trip.
			_ = h.RDB.Set(c.Context(), publicConfigCacheKey, raw, publicConfigCacheTTL).Err()
		}
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    data,
	})
}

type SetConfigReq struct {
	Value string `json:"value"`
}

// Set upserts a config key (admin only) and drops the cache.
func (h *ConfigHandler) Set(c *fiber.Ctx) error {
	key := strings.TrimSpace(c.Params("key"))
	if _, known := configDefaults[key]; !known {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Unknown config key",
		})
	}

	var req SetConfigReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	value := strings.TrimSpace(req.Value)
	if value == "" {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Value is required",
		})
	}

	switch key {
	case models.ConfigClientCommission, models.ConfigFreelancerCommission:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || f < 0 || f > 100 {
			return c.Status(400).JSON(fiber.Map{
				"success": false,
				"message": "Commission must be a percentage between 0 and 100",
			})
		}
	}

	row := models.SystemConfig{Key: key, Value: value}
	if err := h.DB.Save(&row).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{
			"success": false,
			"message": "Failed to save config",
		})
	}

	if h.RDB != nil {
		_ = h.RDB.Del(c.Context(), publicConfigCacheKey).Err()
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Config updated",
	})
}
