package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"telegram-fieldops-dispatch/internal/config"
	"telegram-fieldops-dispatch/internal/domain/model"
	"telegram-fieldops-dispatch/internal/domain/ports/repository"
	pg "telegram-fieldops-dispatch/internal/infra/db/postgres"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, false)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 4)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	adminRepo := pg.NewPostgresAdminRepo(pool)
	technicianRepo := pg.NewPostgresTechnicianRepo(pool)

	// If technicians already exist, do nothing
	count, err := technicianRepo.Count(ctx, repository.NoTX)
	if err != nil {
		log.Fatalf("count technicians: %v", err)
	}
	if count > 0 {
		fmt.Printf("%d technicians already present. No changes.\n", count)
		return
	}

	admin := model.NewAdminUser("dispatcher", model.RoleSuperAdmin)
	if err := adminRepo.Save(ctx, repository.NoTX, admin); err != nil {
		log.Fatalf("seed admin: %v", err)
	}
	fmt.Printf("seeded admin: %s (id=%s)\n", admin.Username, admin.ID)

	seed := []struct {
		Name  string
		Phone string
	}{
		{"Sample Technician A", "+15550100001"},
		{"Sample Technician B", "+15550100002"},
	}
	for _, s := range seed {
		tech, err := model.NewTechnician("", s.Name, s.Phone, 0)
		if err != nil {
			log.Fatalf("build technician %q: %v", s.Name, err)
		}
		if err := technicianRepo.Save(ctx, repository.NoTX, tech); err != nil {
			log.Fatalf("seed technician %q: %v", s.Name, err)
		}
		fmt.Printf("seeded technician: %s (id=%s)\n", tech.FullName, tech.ID)
	}

	fmt.Println("✅ Seeding complete.")
}
