package profile

import (
	"context"
	"errors"
	"testing"

	"github.com/Temutjin2k/ride-lifecycle/internal/adapter/memory"
	"github.com/Temutjin2k/ride-lifecycle/internal/domain/models"
	"github.com/Temutjin2k/ride-lifecycle/internal/domain/types"
	"github.com/Temutjin2k/ride-lifecycle/pkg/logger"
)

func newService() (*Service, *memory.ProfileRepo) {
	db := memory.New()
	repo := memory.NewProfileRepo(db)
	return New(repo, db, logger.Nop()), repo
}

func TestEnsureProfile(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	p, err := svc.EnsureProfile(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if p.ActiveRole != types.RolePassenger || p.CreatedAt.IsZero() {
		t.Fatalf("first profile = %+v", p)
	}

	again, err := svc.EnsureProfile(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if !again.CreatedAt.Equal(p.CreatedAt) {
		t.Error("second EnsureProfile recreated the profile")
	}
}

func TestEnsureProfile_NormalizesLegacy(t *testing.T) {
	svc, repo := newService()
	ctx := context.Background()

	if err := repo.Save(ctx, models.RawProfile{ID: "old", Role: types.RoleDriver, Name: "Adel", DriverVehicleType: types.VehicleTuktuk, VehicleCode: "TK-7"}); err != nil {
		t.Fatal(err)
	}

	p, err := svc.EnsureProfile(ctx, "old")
	if err != nil {
		t.Fatal(err)
	}
	if p.ActiveRole != types.RoleDriver || !p.CanListPendingWork() {
		t.Fatalf("legacy profile = %+v", p)
	}
}

func TestUpdateAttributes(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()
	if _, err := svc.EnsureProfile(ctx, "u1"); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		req   UpdateAttributesRequest
		field string
	}{
		{"empty", UpdateAttributesRequest{}, "profile"},
		{"bad passenger phone", UpdateAttributesRequest{Passenger: &models.PassengerAttributes{DisplayName: "A", Phone: "12345"}}, "passenger.phone"},
		{"driver without code", UpdateAttributesRequest{Driver: &models.DriverAttributes{DisplayName: "A", Phone: "01012345678", Region: "r", Subregion: "s", VehicleType: types.VehicleCar}}, "driver.vehicle_code"},
		{"driver unknown vehicle", UpdateAttributesRequest{Driver: &models.DriverAttributes{DisplayName: "A", Phone: "01012345678", Region: "r", Subregion: "s", VehicleType: "jet", VehicleCode: "J"}}, "driver.vehicle_type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.UpdateAttributes(ctx, "u1", tt.req)
			var fe types.FieldErrors
			if !errors.As(err, &fe) {
				t.Fatalf("err = %v, want field errors", err)
			}
			if _, ok := fe[tt.field]; !ok {
				t.Errorf("field errors = %v, want %q", fe, tt.field)
			}
		})
	}

	p, err := svc.UpdateAttributes(ctx, "u1", UpdateAttributesRequest{
		Passenger: &models.PassengerAttributes{DisplayName: "Salma", Phone: "01512345678"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if p.Phone(types.RolePassenger) != "01512345678" {
		t.Errorf("phone = %q", p.Phone(types.RolePassenger))
	}
}

func TestSwitchRole(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()
	if _, err := svc.EnsureProfile(ctx, "u1"); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.SwitchRole(ctx, "u1", "admin"); !errors.Is(err, types.ErrInvalidRole) {
		t.Fatalf("unknown role err = %v", err)
	}
	if _, err := svc.SwitchRole(ctx, "u1", types.RoleDriver); !errors.Is(err, types.ErrMissingAttributes) {
		t.Fatalf("driver without attributes err = %v", err)
	}

	_, err := svc.UpdateAttributes(ctx, "u1", UpdateAttributesRequest{Driver: &models.DriverAttributes{
		DisplayName: "Amr", Phone: "01012345678", Region: "Alex", Subregion: "Sidi Gaber", VehicleType: types.VehicleMicrobus, VehicleCode: "MB-3",
	}})
	if err != nil {
		t.Fatal(err)
	}

	p, err := svc.SwitchRole(ctx, "u1", types.RoleDriver)
	if err != nil {
		t.Fatal(err)
	}
	if p.ActiveRole != types.RoleDriver {
		t.Fatalf("role = %q", p.ActiveRole)
	}

	got, _ := svc.Get(ctx, "u1")
	if got.ActiveRole != types.RoleDriver {
		t.Fatalf("stored role = %q", got.ActiveRole)
	}
}

func TestGet_NotFound(t *testing.T) {
	svc, _ := newService()
	if _, err := svc.Get(context.Background(), "ghost"); !errors.Is(err, types.ErrProfileNotFound) {
		t.Fatalf("err = %v", err)
	}
}
