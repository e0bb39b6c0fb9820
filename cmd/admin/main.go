package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"strings"

	"gorm.io/gorm"

	"portfolioSaaS/internal/config"
	"portfolioSaaS/internal/database"
	"portfolioSaaS/internal/subscription"
)

// admin 用于运营侧手动调整用户的订阅档位（例如线下开通企业版）。
func main() {
	var (
		email  = flag.String("email", "", "目标用户邮箱（必填）")
		plan   = flag.String("plan", "", "目标档位：FREE / PRO / ENTERPRISE（必填）")
		status = flag.String("status", string(subscription.StatusActive), "订阅状态：ACTIVE / PAST_DUE / CANCELED")
	)
	flag.Parse()

	addr := strings.ToLower(strings.TrimSpace(*email))
	if addr == "" {
		log.Fatal("missing required flag: --email")
	}
	targetPlan, err := subscription.ParsePlan(*plan)
	if err != nil {
		log.Fatalf("parse --plan: %v", err)
	}
	targetStatus, err := subscription.ParseStatus(*status)
	if err != nil {
		log.Fatalf("parse --status: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("migrate database: %v", err)
	}

	var user database.User
	switch err := db.Where("email = ?", addr).First(&user).Error; {
	case err == nil:
	case errors.Is(err, gorm.ErrRecordNotFound):
		log.Fatalf("user %q not found", addr)
	default:
		log.Fatalf("query user: %v", err)
	}

	sub, err := subscription.NewLedger(db).SetPlan(context.Background(), user.ID, targetPlan, targetStatus)
	if err != nil {
		log.Fatalf("set plan: %v", err)
	}

	fmt.Printf("已更新订阅：\n")
	fmt.Printf("用户: %s (id=%d)\n", user.Email, user.ID)
	fmt.Printf("档位: %s\n", sub.Plan)
	fmt.Printf("状态: %s\n", sub.Status)
}
