package domain

import (
	"encoding/json"
	"errors"
	"strings"
)

var ErrIncompleteAddress = errors.New("address is incomplete")

type Address struct {
	ID        string `json:"_id,omitempty"`
	UserID    string `json:"userId,omitempty"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Email     string `json:"email,omitempty"`
	Street    string `json:"street"`
	City      string `json:"city"`
	State     string `json:"state"`
	Country   string `json:"country"`
	ZipCode   string `json:"zipCode,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// UnmarshalJSON accepts the postal code under zipCode, zipcode or pincode;
// stored addresses use all three.
func (a *Address) UnmarshalJSON(data []byte) error {
	type plain Address
	var v struct {
		plain
		Zipcode string `json:"zipcode"`
		Pincode string `json:"pincode"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*a = Address(v.plain)
	if a.ZipCode == "" {
		a.ZipCode = v.Zipcode
	}
	if a.ZipCode == "" {
		a.ZipCode = v.Pincode
	}
	return nil
}

// Validate requires the fields the address form collects. Postal code and
// phone are optional.
func (a Address) Validate() error {
	var missing []string
	if strings.TrimSpace(a.Street) == "" {
		missing = append(missing, "street")
	}
	if strings.TrimSpace(a.City) == "" {
		missing = append(missing, "city")
	}
	if strings.TrimSpace(a.State) == "" {
		missing = append(missing, "state")
	}
	if strings.TrimSpace(a.Country) == "" {
		missing = append(missing, "country")
	}
	if len(missing) > 0 {
		return errors.Join(ErrIncompleteAddress, errors.New("missing "+strings.Join(missing, ", ")))
	}
	return nil
}
