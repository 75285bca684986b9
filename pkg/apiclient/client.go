package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// APIError is a non-2xx answer decoded from the error envelope.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d %s: %s", e.StatusCode, e.Code, e.Message)
}

type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Username  string    `json:"username,omitempty"`
	Email     string    `json:"email"`
	Image     string    `json:"image,omitempty"`
	IsAdmin   bool      `json:"isAdmin"`
	CreatedAt time.Time `json:"createdAt"`
}

type Owner struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type Booking struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Date      time.Time `json:"date"`
	StartTime string    `json:"startTime"`
	EndTime   string    `json:"endTime"`
	Notes     *string   `json:"notes,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	User      *Owner    `json:"user,omitempty"`
}

type Slot struct {
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

type SignupInput struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// BookingInput is the body of create and reschedule. Date is "YYYY-MM-DD", times are "HH:MM".
type BookingInput struct {
	Date      string  `json:"date"`
	StartTime string  `json:"startTime"`
	EndTime   string  `json:"endTime"`
	Notes     *string `json:"notes,omitempty"`
}

// Client exposes the studio API as typed calls over a Gateway.
type Client struct {
	gw *Gateway
}

func New(gw *Gateway) *Client {
	return &Client{gw: gw}
}

func (c *Client) Gateway() *Gateway { return c.gw }

func (c *Client) Signup(ctx context.Context, in SignupInput) (*User, error) {
	var out struct {
		User User `json:"user"`
	}
	if err := c.call(ctx, http.MethodPost, "/auth/signup", in, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

// Login stores the session cookies in the gateway's jar.
func (c *Client) Login(ctx context.Context, username, password string) (*User, error) {
	in := map[string]string{"username": username, "password": password}
	var out struct {
		User User `json:"user"`
	}
	if err := c.call(ctx, http.MethodPost, "/auth/login", in, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

// Me reports whether the current access cookie is valid and for which user.
func (c *Client) Me(ctx context.Context) (string, bool, error) {
	var out struct {
		Success bool   `json:"success"`
		UserID  string `json:"userId"`
	}
	if err := c.call(ctx, http.MethodGet, "/auth/me", nil, &out); err != nil {
		return "", false, err
	}
	return out.UserID, out.Success, nil
}

func (c *Client) Profile(ctx context.Context) (*User, error) {
	var out struct {
		User User `json:"user"`
	}
	if err := c.call(ctx, http.MethodGet, "/user", nil, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

func (c *Client) Logout(ctx context.Context) error {
	return c.call(ctx, http.MethodPost, "/auth/logout", nil, nil)
}

func (c *Client) CreateBooking(ctx context.Context, in BookingInput) (*Booking, error) {
	return c.bookingCall(ctx, http.MethodPost, "/booking", in)
}

func (c *Client) RescheduleBooking(ctx context.Context, id string, in BookingInput) (*Booking, error) {
	return c.bookingCall(ctx, http.MethodPatch, "/booking/"+url.PathEscape(id), in)
}

func (c *Client) ApproveBooking(ctx context.Context, id string) (*Booking, error) {
	return c.bookingCall(ctx, http.MethodPatch, "/booking/"+url.PathEscape(id)+"/approve", nil)
}

func (c *Client) GetBooking(ctx context.Context, id string) (*Booking, error) {
	return c.bookingCall(ctx, http.MethodGet, "/booking/"+url.PathEscape(id), nil)
}

func (c *Client) DeleteBooking(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodDelete, "/booking/"+url.PathEscape(id), nil, nil)
}

func (c *Client) OccupiedSlots(ctx context.Context, date string) ([]Slot, error) {
	var out struct {
		OccupiedSlots []Slot `json:"occupiedSlots"`
	}
	path := "/booking/occupied-slots?date=" + url.QueryEscape(date)
	if err := c.call(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.OccupiedSlots, nil
}

func (c *Client) MyBookings(ctx context.Context, userID string) ([]Booking, error) {
	return c.listCall(ctx, "/booking/"+url.PathEscape(userID)+"/my-bookings")
}

// AllBookings is admin only. The server completes elapsed bookings before listing.
func (c *Client) AllBookings(ctx context.Context) ([]Booking, error) {
	return c.listCall(ctx, "/booking")
}

func (c *Client) bookingCall(ctx context.Context, method, path string, in any) (*Booking, error) {
	var out struct {
		Booking Booking `json:"booking"`
	}
	if err := c.call(ctx, method, path, in, &out); err != nil {
		return nil, err
	}
	return &out.Booking, nil
}

func (c *Client) listCall(ctx context.Context, path string) ([]Booking, error) {
	var out struct {
		Count    int       `json:"count"`
		Bookings []Booking `json:"bookings"`
	}
	if err := c.call(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Bookings, nil
}

func (c *Client) call(ctx context.Context, method, path string, in, out any) error {
	var body []byte
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = b
	}

	req, err := c.gw.NewRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	resp, err := c.gw.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode, Code: http.StatusText(resp.StatusCode)}
	var payload struct {
		Message string `json:"message"`
		Error   struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil {
		if payload.Error.Code != "" {
			apiErr.Code = payload.Error.Code
		}
		apiErr.Message = payload.Error.Message
		if apiErr.Message == "" {
			apiErr.Message = payload.Message
		}
	}
	return apiErr
}
