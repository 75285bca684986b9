package repository

import (
	"time"

	"prodstudio/internal/domain"
)

type userModel struct {
	ID           string    `gorm:"column:id;primaryKey;size:36"`
	Name         string    `gorm:"column:name;not null"`
	Username     *string   `gorm:"column:username;uniqueIndex"`
	Email        string    `gorm:"column:email;uniqueIndex;not null"`
	PasswordHash *string   `gorm:"column:password_hash"`
	GoogleID     *string   `gorm:"column:google_id;uniqueIndex"`
	IsAdmin      bool      `gorm:"column:is_admin;not null"`
	Provider     string    `gorm:"column:provider;size:16;not null"`
	AvatarURL    *string   `gorm:"column:avatar_url"`
	CreatedAt    time.Time `gorm:"column:created_at"`
}

func (userModel) TableName() string { return "users" }

type bookingModel struct {
	ID        string     `gorm:"column:id;primaryKey;size:36"`
	UserID    string     `gorm:"column:user_id;index;not null;size:36"`
	Date      time.Time  `gorm:"column:date;index;not null"`
	StartTime string     `gorm:"column:start_time;size:5;not null"`
	EndTime   string     `gorm:"column:end_time;size:5;not null"`
	Notes     *string    `gorm:"column:notes;size:300"`
	Status    string     `gorm:"column:status;index;size:16;not null"`
	CreatedAt time.Time  `gorm:"column:created_at;index"`
	UpdatedAt time.Time  `gorm:"column:updated_at"`
	User      *userModel `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

func (bookingModel) TableName() string { return "bookings" }

// Models lists the tables owned by this package, in dependency order.
func Models() []any {
	return []any{&userModel{}, &bookingModel{}}
}

func toDomainUser(m userModel) *domain.User {
	return &domain.User{
		ID:           m.ID,
		Name:         m.Name,
		Username:     m.Username,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		GoogleID:     m.GoogleID,
		IsAdmin:      m.IsAdmin,
		Provider:     domain.AuthProvider(m.Provider),
		AvatarURL:    m.AvatarURL,
		CreatedAt:    m.CreatedAt,
	}
}

func toUserModel(u *domain.User) userModel {
	provider := u.Provider
	if provider == "" {
		provider = domain.ProviderLocal
	}
	return userModel{
		ID:           u.ID,
		Name:         u.Name,
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		GoogleID:     u.GoogleID,
		IsAdmin:      u.IsAdmin,
		Provider:     string(provider),
		AvatarURL:    u.AvatarURL,
		CreatedAt:    u.CreatedAt,
	}
}

func toDomainBooking(m bookingModel) *domain.Booking {
	b := &domain.Booking{
		ID:        m.ID,
		UserID:    m.UserID,
		Date:      m.Date.UTC(),
		StartTime: m.StartTime,
		EndTime:   m.EndTime,
		Notes:     m.Notes,
		Status:    domain.BookingStatus(m.Status),
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
	if m.User != nil {
		b.User = &domain.OwnerSummary{ID: m.User.ID, Name: m.User.Name, Email: m.User.Email}
	}
	return b
}

func toBookingModel(b *domain.Booking) bookingModel {
	return bookingModel{
		ID:        b.ID,
		UserID:    b.UserID,
		Date:      domain.NormalizeDate(b.Date),
		StartTime: b.StartTime,
		EndTime:   b.EndTime,
		Notes:     b.Notes,
		Status:    string(b.Status),
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}

func toDomainBookings(rows []bookingModel) []domain.Booking {
	out := make([]domain.Booking, 0, len(rows))
	for _, r := range rows {
		out = append(out, *toDomainBooking(r))
	}
	return out
}

func statusStrings(statuses []domain.BookingStatus) []string {
	out := make([]string, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, string(s))
	}
	return out
}
