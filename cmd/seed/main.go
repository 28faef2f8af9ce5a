package main

import (
	"context"
	"log"
	"time"

	"digi-shop/internal/entity"
	"digi-shop/internal/repo/persistent"
	"digi-shop/pkg/config"
	"digi-shop/pkg/database"
)

// Seeds the role table and promotes the configured owner account.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.NewPostgresDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	store := persistent.NewLedger(db)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	roles := []entity.Role{
		{
			ID:          1,
			Name:        entity.RoleUser,
			Default:     true,
			Permissions: entity.PermissionUse,
		},
		{
			ID:   2,
			Name: entity.RoleAdmin,
			Permissions: entity.PermissionUse | entity.PermissionBroadcast |
				entity.PermissionSettingsManage | entity.PermissionUsersManage |
				entity.PermissionShopManage,
		},
		{
			ID:   3,
			Name: entity.RoleOwner,
			Permissions: entity.PermissionUse | entity.PermissionBroadcast |
				entity.PermissionSettingsManage | entity.PermissionUsersManage |
				entity.PermissionShopManage | entity.PermissionAdminsManage |
				entity.PermissionOwn,
		},
	}

	for _, role := range roles {
		if err := store.UpsertRole(ctx, &role); err != nil {
			log.Fatalf("Failed to seed role %s: %v", role.Name, err)
		}
		log.Printf("Seeded role %s", role.Name)
	}

	if cfg.OwnerID != 0 {
		owner := &entity.User{TelegramID: cfg.OwnerID, RoleID: 3}
		if err := store.CreateUser(ctx, owner); err != nil {
			log.Fatalf("Failed to create owner account: %v", err)
		}
		if err := store.SetRole(ctx, cfg.OwnerID, 3); err != nil {
			log.Fatalf("Failed to promote owner: %v", err)
		}
		log.Printf("Owner %d holds the OWNER role", cfg.OwnerID)
	}

	log.Println("Seed complete")
}
