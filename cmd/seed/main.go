package main

import (
	"context"
	"errors"
	"log"
	"os"
	"time"

	"prodstudio/internal/config"
	"prodstudio/internal/database"
	"prodstudio/internal/domain"
	"prodstudio/internal/modules/auth"
	"prodstudio/internal/modules/booking"
	"prodstudio/internal/pkg/jwt"
	"prodstudio/internal/pkg/lock"
	"prodstudio/internal/repository"
)

type seedUser struct {
	name, username, email, password string
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("refusing to seed a production database")
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("DB connection failed: %v", err)
	}
	log.Println("Running AutoMigrate...")
	if err := database.Migrate(db); err != nil {
		log.Fatalf("AutoMigrate failed: %v", err)
	}

	ctx := context.Background()
	users := repository.NewUserRepository(db)
	tokens := jwt.New(cfg.JWTSecret, cfg.JWTRefreshSecret, cfg.JWTAccessTTL, cfg.JWTRefreshTTL)
	authService := auth.NewService(users, tokens, nil, cfg.AdminEmail, cfg.GoogleExchangeTimeout)
	bookingService := booking.NewService(repository.NewBookingRepository(db), lock.NewMemoryLocker(), nil)

	adminEmail := cfg.AdminEmail
	if adminEmail == "" {
		adminEmail = "admin@prodstudio.local"
		log.Printf("ADMIN_EMAIL is empty, the seeded admin will not get admin rights at signup")
	}
	adminPassword := os.Getenv("SEED_ADMIN_PASSWORD")
	if adminPassword == "" {
		adminPassword = "admin123"
	}

	admin := ensureUser(ctx, authService, users, seedUser{"Studio Admin", "admin", adminEmail, adminPassword})
	artists := []*domain.User{
		ensureUser(ctx, authService, users, seedUser{"Aru Beats", "arubeats", "aru@prodstudio.local", "artist123"}),
		ensureUser(ctx, authService, users, seedUser{"Timur Keys", "timurkeys", "timur@prodstudio.local", "artist123"}),
	}
	log.Printf("Users ready: admin=%s artists=%d", admin.Email, len(artists))

	tomorrow := time.Now().UTC().AddDate(0, 0, 1).Format(domain.DateLayout)
	nextWeek := time.Now().UTC().AddDate(0, 0, 7).Format(domain.DateLayout)
	notes := "Vocal tracking, bring stems"
	samples := []struct {
		owner *domain.User
		req   booking.BookingRequest
	}{
		{artists[0], booking.BookingRequest{Date: tomorrow, StartTime: "10:00", EndTime: "12:00", Notes: &notes}},
		{artists[1], booking.BookingRequest{Date: tomorrow, StartTime: "12:00", EndTime: "14:30"}},
		{artists[0], booking.BookingRequest{Date: nextWeek, StartTime: "18:00", EndTime: "21:00"}},
	}

	created := 0
	for _, s := range samples {
		b, err := bookingService.CreateBooking(ctx, s.owner.ID, s.req)
		if errors.Is(err, booking.ErrSlotTaken) {
			continue
		}
		if err != nil {
			log.Fatalf("seed booking failed: %v", err)
		}
		created++
		log.Printf("Booking created: id=%s date=%s %s-%s", b.ID, s.req.Date, s.req.StartTime, s.req.EndTime)
	}
	log.Printf("Seed completed: bookings_created=%d", created)
}

func ensureUser(ctx context.Context, svc *auth.Service, users domain.UserStore, u seedUser) *domain.User {
	created, err := svc.Signup(ctx, auth.SignupRequest{Name: u.name, Username: u.username, Email: u.email, Password: u.password})
	if err == nil {
		log.Printf("User created: %s / %s", u.username, u.password)
		return created
	}
	if !errors.Is(err, auth.ErrUsernameTaken) && !errors.Is(err, auth.ErrEmailTaken) && !errors.Is(err, auth.ErrAlreadyExists) {
		log.Fatalf("seed user %s failed: %v", u.username, err)
	}
	existing, err := users.GetByUsername(ctx, u.username)
	if err != nil {
		log.Fatalf("load existing user %s: %v", u.username, err)
	}
	return existing
}
