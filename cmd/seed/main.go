package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/Temutjin2k/ride-lifecycle/config"
	pgrepo "github.com/Temutjin2k/ride-lifecycle/internal/adapter/postgres"
	"github.com/Temutjin2k/ride-lifecycle/internal/domain/models"
	"github.com/Temutjin2k/ride-lifecycle/internal/domain/types"
	"github.com/Temutjin2k/ride-lifecycle/internal/service/auth"
	"github.com/Temutjin2k/ride-lifecycle/internal/service/profile"
	"github.com/Temutjin2k/ride-lifecycle/pkg/configparser"
	"github.com/Temutjin2k/ride-lifecycle/pkg/logger"
	"github.com/Temutjin2k/ride-lifecycle/pkg/postgres"
	"github.com/Temutjin2k/ride-lifecycle/pkg/trm"
)

var (
	configPath = flag.String("config-path", "config.yaml", "Path to the config yaml file")
)

type demoUser struct {
	ID        string
	Role      types.UserRole
	Passenger *models.PassengerAttributes
	Driver    *models.DriverAttributes
}

var users = []demoUser{
	{
		ID:        "demo-passenger",
		Role:      types.RolePassenger,
		Passenger: &models.PassengerAttributes{DisplayName: "Salma", Phone: "01512345678", Region: "Cairo", Subregion: "Maadi"},
	},
	{
		ID:   "demo-driver",
		Role: types.RoleDriver,
		Driver: &models.DriverAttributes{
			DisplayName: "Amr",
			Phone:       "01012345678",
			Region:      "Cairo",
			Subregion:   "Maadi",
			VehicleType: types.VehicleCar,
			VehicleCode: "CAR-101",
		},
	},
	{
		ID:   "demo-tuktuk",
		Role: types.RoleDriver,
		Driver: &models.DriverAttributes{
			DisplayName: "Adel",
			Phone:       "01112345678",
			Region:      "Cairo",
			Subregion:   "Maadi",
			VehicleType: types.VehicleTuktuk,
			VehicleCode: "TK-7",
		},
	},
}

// seed creates demo profiles in postgres and prints dev tokens for them.
func main() {
	flag.Parse()

	cfg := config.Config{}
	if err := configparser.LoadAndParseYaml(*configPath, &cfg); err != nil {
		log.Fatal(err)
	}
	if cfg.Auth.JWTSecret == "" {
		log.Fatal("AUTH_JWT_SECRET is required to issue dev tokens")
	}

	// short timeout for seed operations
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := postgres.New(ctx, cfg.Database)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Pool.Close()

	profiles := profile.New(pgrepo.NewProfileRepo(db.Pool), trm.New(db.Pool), logger.Nop())
	tokens := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.AccessTokenTTL)

	for _, u := range users {
		if err := seedUser(ctx, profiles, u); err != nil {
			log.Fatalf("seed %s: %v", u.ID, err)
		}

		token, expires, err := tokens.Issue(u.ID)
		if err != nil {
			log.Fatalf("issue token %s: %v", u.ID, err)
		}
		fmt.Printf("%s (%s) expires %s\n  %s\n", u.ID, u.Role, expires.Format(time.RFC3339), token)
	}

	log.Printf("seed: ensured %d demo profiles", len(users))
}

func seedUser(ctx context.Context, profiles *profile.Service, u demoUser) error {
	if _, err := profiles.EnsureProfile(ctx, u.ID); err != nil {
		return err
	}
	if _, err := profiles.UpdateAttributes(ctx, u.ID, profile.UpdateAttributesRequest{
		Passenger: u.Passenger,
		Driver:    u.Driver,
	}); err != nil {
		return err
	}
	_, err := profiles.SwitchRole(ctx, u.ID, u.Role)
	return err
}
