package validation

import (
	"errors"
	"fmt"
	"strings"

	"AthleteAPI/internal/apperr"

	"github.com/goccy/go-json"
	"golang.org/x/crypto/bcrypt"
)

// Validator checks a raw request body and returns the fields to persist.
type Validator interface {
	Validate(body map[string]any) (map[string]any, error)
}

// Func adapts a plain function to Validator.
type Func func(body map[string]any) (map[string]any, error)

func (f Func) Validate(body map[string]any) (map[string]any, error) { return f(body) }

// Payload is a typed request that knows its column values.
type Payload interface {
	Fields() map[string]any
}

// Normalizer runs before validation (trimming).
type Normalizer interface {
	Normalize()
}

// Preparer runs after validation, before Fields (hashing).
type Preparer interface {
	Prepare() error
}

// Struct builds a Validator that decodes the body into T and validates its tags.
func Struct[T any, PT interface {
	*T
	Payload
}]() Validator {
	return Func(func(body map[string]any) (map[string]any, error) {
		var v T
		if err := Decode(body, &v); err != nil {
			return nil, err
		}
		p := PT(&v)
		if n, ok := any(p).(Normalizer); ok {
			n.Normalize()
		}
		if err := ValidateStruct(p); err != nil {
			return nil, err
		}
		if pr, ok := any(p).(Preparer); ok {
			if err := pr.Prepare(); err != nil {
				return nil, err
			}
		}
		return p.Fields(), nil
	})
}

// Decode re-encodes a generic body into dst; type mismatches become validation errors.
func Decode(body map[string]any, dst any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return apperr.BadRequest(fmt.Errorf("encode body: %w", err))
	}
	return DecodeJSON(raw, dst)
}

// DecodeJSON decodes raw JSON into dst.
func DecodeJSON(raw []byte, dst any) error {
	if err := json.Unmarshal(raw, dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			field := typeErr.Field
			if field == "" {
				field = "body"
			}
			return apperr.Validation(fmt.Sprintf("%s must be of type %s", field, typeErr.Type), map[string]any{
				"fields": []FieldError{{Field: field, Tag: "type", Message: fmt.Sprintf("%s must be of type %s", field, typeErr.Type)}},
			})
		}
		return apperr.BadRequest(fmt.Errorf("invalid JSON body: %w", err))
	}
	return nil
}

// ListParams are the query parameters of list endpoints.
type ListParams struct {
	Page        int    `json:"page" validate:"min=1,max=1000000"`
	Limit       int    `json:"limit" validate:"min=1,max=100"`
	Search      string `json:"search" validate:"max=200"`
	SearchField string `json:"search_field" validate:"max=63"`
	Filters     string `json:"filters" validate:"max=2000"`
	Sort        string `json:"sort" validate:"max=64"`
	Relations   string `json:"relations" validate:"max=500"`
}

// WithDefaults fills page 1 and limit 10 when unset.
func (p ListParams) WithDefaults() ListParams {
	if p.Page == 0 {
		p.Page = 1
	}
	if p.Limit == 0 {
		p.Limit = 10
	}
	return p
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

func (r *LoginRequest) Normalize() {
	r.Email = strings.TrimSpace(r.Email)
}

// Metric is one sensor sample sent along a finalized session.
type Metric struct {
	Timestamp    string   `json:"timestamp" validate:"required"`
	Speed        *float64 `json:"speed" validate:"required"`
	HeartRate    *float64 `json:"heart_rate" validate:"required"`
	Acceleration *float64 `json:"acceleration" validate:"required"`
	Distance     *float64 `json:"distance" validate:"required"`
}

type SleepInput struct {
	AthleteID       string   `json:"athlete_id" validate:"required,uuid"`
	StartTime       string   `json:"start_time" validate:"required"`
	EndTime         string   `json:"end_time" validate:"required"`
	MeanRecoveryHrs *float64 `json:"mean_recovery_hrs" validate:"required"`
	Strain          *float64 `json:"strain" validate:"required"`
	Metrics         []Metric `json:"metrics" validate:"required,dive"`
	Notes           string   `json:"notes,omitempty"`
}

type InjuryRiskInput struct {
	AthleteID     string   `json:"athlete_id" validate:"required,uuid"`
	StartTime     string   `json:"start_time" validate:"required"`
	EndTime       string   `json:"end_time" validate:"required"`
	ACWR          *float64 `json:"acwr" validate:"required"`
	DeltaHRV      *float64 `json:"delta_hrv" validate:"required"`
	SleepAdequacy *float64 `json:"sleep_adequacy" validate:"required"`
	GSRSpikes     *float64 `json:"gsr_spikes" validate:"required"`
	Metrics       []Metric `json:"metrics" validate:"required,dive"`
	Notes         string   `json:"notes,omitempty"`
}

// FinalizeSessionRequest is forwarded to the AI service as is, plus user_id.
type FinalizeSessionRequest struct {
	SleepInput      *SleepInput      `json:"sleep_input" validate:"required"`
	InjuryRiskInput *InjuryRiskInput `json:"injury_risk_input" validate:"required"`
	UserID          string           `json:"user_id,omitempty" validate:"-"`
}

type CreateUser struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	FullName string `json:"fullName" validate:"required"`
	RoleID   int64  `json:"roleId" validate:"required,gt=0"`
}

func (u *CreateUser) Normalize() {
	u.Email = strings.TrimSpace(u.Email)
	u.FullName = strings.TrimSpace(u.FullName)
}

func (u *CreateUser) Prepare() error {
	hash, err := hashPassword(u.Password)
	if err != nil {
		return err
	}
	u.Password = hash
	return nil
}

func (u *CreateUser) Fields() map[string]any {
	return map[string]any{
		"email":     u.Email,
		"password":  u.Password,
		"full_name": u.FullName,
		"role_id":   u.RoleID,
	}
}

type UpdateUser struct {
	Email    *string `json:"email" validate:"omitempty,email"`
	Password *string `json:"password" validate:"omitempty,min=6"`
	FullName string  `json:"fullName" validate:"required"`
	RoleID   int64   `json:"roleId" validate:"required,gt=0"`
}

func (u *UpdateUser) Normalize() {
	u.FullName = strings.TrimSpace(u.FullName)
	if u.Email != nil {
		e := strings.TrimSpace(*u.Email)
		u.Email = &e
	}
}

func (u *UpdateUser) Prepare() error {
	if u.Password != nil {
		hash, err := hashPassword(*u.Password)
		if err != nil {
			return err
		}
		u.Password = &hash
	}
	return nil
}

func (u *UpdateUser) Fields() map[string]any {
	out := map[string]any{
		"full_name": u.FullName,
		"role_id":   u.RoleID,
	}
	if u.Email != nil {
		out["email"] = *u.Email
	}
	if u.Password != nil {
		out["password"] = *u.Password
	}
	return out
}

// OrderItem is one entry of a reorder batch.
type OrderItem struct {
	ID    int64 `json:"id" validate:"required,gt=0"`
	Order *int  `json:"order" validate:"required,gte=0"`
}

// OrderBatch wraps the batch so each item is validated.
type OrderBatch struct {
	Items []OrderItem `json:"items" validate:"required,min=1,dive"`
}

func hashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
