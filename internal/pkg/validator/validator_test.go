package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type slotInput struct {
	Date  string `validate:"required"`
	Start string `validate:"required,clock"`
	Notes string `validate:"max=5"`
}

func TestValidate(t *testing.T) {
	assert.Nil(t, Validate(slotInput{Date: "2026-11-02", Start: "09:30"}))

	errs := Validate(slotInput{Start: "9:30", Notes: "too long"})
	assert.Equal(t, "required", errs["Date"])
	assert.Equal(t, "clock", errs["Start"])
	assert.Equal(t, "max", errs["Notes"])

	errs = Validate(slotInput{Date: "x", Start: "24:00"})
	assert.Equal(t, "clock", errs["Start"])
}
