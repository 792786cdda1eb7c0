package patient

import (
	"time"

	"github.com/google/uuid"
)

// Patient maps to the patient table. Weight and height are kept as entered
// ("82,4 kg"); readers parse them when they need numbers.
type Patient struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	Name      string     `db:"name" json:"name"`
	Email     *string    `db:"email" json:"email,omitempty"`
	Phone     *string    `db:"phone" json:"phone,omitempty"`
	BirthDate *time.Time `db:"birth_date" json:"birth_date,omitempty"`
	Objective *string    `db:"objective" json:"objective,omitempty"`
	Weight    *string    `db:"weight" json:"weight,omitempty"`
	Height    *string    `db:"height" json:"height,omitempty"`
	Progress  int        `db:"progress" json:"progress"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

// CreateRequest is the body of POST /patients.
type CreateRequest struct {
	Name      string  `json:"name" validate:"required,max=200"`
	Email     *string `json:"email" validate:"omitempty,email"`
	Phone     *string `json:"phone" validate:"omitempty,max=40"`
	BirthDate *string `json:"birth_date" validate:"omitempty,datetime=2006-01-02"`
	Objective *string `json:"objective"`
	Weight    *string `json:"weight"`
	Height    *string `json:"height"`
	Progress  int     `json:"progress" validate:"min=0,max=100"`
}

func (r *CreateRequest) toPatient() (*Patient, error) {
	p := &Patient{
		Name:      r.Name,
		Email:     r.Email,
		Phone:     r.Phone,
		Objective: r.Objective,
		Weight:    r.Weight,
		Height:    r.Height,
		Progress:  r.Progress,
	}
	if r.BirthDate != nil && *r.BirthDate != "" {
		bd, err := time.Parse("2006-01-02", *r.BirthDate)
		if err != nil {
			return nil, err
		}
		p.BirthDate = &bd
	}
	return p, nil
}
