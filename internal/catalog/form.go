package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrValidation is matched by every error returned from Form.Validate.
var ErrValidation = errors.New("invalid product form")

// Form is the modal form as submitted by the user. Values are kept exactly as typed;
// conversion to a Product happens once, in Form.Product.
type Form struct {
	Brand    string
	Model    string `validate:"required"`
	Quality  string `validate:"required"`
	Price    string `validate:"omitempty,numeric"`
	Stock    string `validate:"omitempty,number"`
	Currency string
	Vendor   string
	Photo    string
	Type     string
	Tags     string
	Specs    string
	Active   bool
}

// NewForm returns the blank form shown in create mode.
func NewForm() Form {
	return Form{
		Currency: DefaultCurrency,
		Active:   true,
	}
}

// FormFrom pre-fills a form from an existing record.
func FormFrom(p Product) Form {
	p = Resolve(p)
	return Form{
		Brand:    p.Brand,
		Model:    p.Model,
		Quality:  p.Quality,
		Price:    p.Price.String(),
		Stock:    strconv.FormatInt(int64(p.Stock), 10),
		Currency: p.Currency,
		Vendor:   p.Vendor,
		Photo:    p.Photo,
		Type:     p.Type,
		Tags:     p.Tags.Join(),
		Specs:    string(p.Specs),
		Active:   p.IsActive(),
	}
}

// ValidationError lists the form fields that failed and the rule each one broke.
type ValidationError struct {
	Fields map[string]string
}

// Error implements error.
func (e *ValidationError) Error() string {
	var required, other []string
	for field, rule := range e.Fields {
		if rule == "required" {
			required = append(required, field)
			continue
		}
		other = append(other, fmt.Sprintf("%s %s", field, ruleMessage(rule)))
	}
	sort.Strings(required)
	sort.Strings(other)

	var parts []string
	if len(required) > 0 {
		parts = append(parts, "please fill in "+strings.Join(required, ", "))
	}
	parts = append(parts, other...)
	return strings.Join(parts, "; ")
}

// Is makes errors.Is(err, ErrValidation) hold.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func ruleMessage(rule string) string {
	switch rule {
	case "numeric":
		return "must be a number"
	case "number":
		return "must be a whole number, zero or more"
	case "min":
		return "must not be negative"
	default:
		return "failed on rule: " + rule
	}
}

var formValidator = validator.New()

// normalized trims every value and switches the decimal comma to a dot, so validation and
// conversion see the same text.
func (f Form) normalized() Form {
	f.Brand = OneLine(f.Brand)
	f.Model = OneLine(f.Model)
	f.Quality = OneLine(f.Quality)
	f.Price = strings.ReplaceAll(strings.TrimSpace(f.Price), ",", ".")
	f.Stock = strings.TrimSpace(f.Stock)
	f.Currency = OneLine(f.Currency)
	f.Vendor = OneLine(f.Vendor)
	f.Photo = OneLine(f.Photo)
	f.Type = OneLine(f.Type)
	f.Specs = OneLine(f.Specs)
	return f
}

// Validate checks the required fields and the numeric ones. Model and quality must be
// filled in; price and stock may be left empty and then count as zero.
func (f Form) Validate() error {
	n := f.normalized()
	fields := make(map[string]string)
	if err := formValidator.Struct(n); err != nil {
		var validationErrors validator.ValidationErrors
		if !errors.As(err, &validationErrors) {
			return fmt.Errorf("%w: %v", ErrValidation, err)
		}
		for _, fieldErr := range validationErrors {
			fields[fieldErr.Field()] = fieldErr.Tag()
		}
	}
	if _, failed := fields["Price"]; !failed && n.Price != "" {
		if d, err := ParseDecimal(n.Price); err != nil {
			fields["Price"] = "numeric"
		} else if d.IsNegative() {
			fields["Price"] = "min"
		}
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// Product validates the form and converts it to the record sent to the API.
func (f Form) Product() (Product, error) {
	if err := f.Validate(); err != nil {
		return Product{}, err
	}
	n := f.normalized()

	p := Product{
		Brand:    n.Brand,
		Model:    n.Model,
		Quality:  n.Quality,
		Currency: n.Currency,
		Vendor:   n.Vendor,
		Photo:    n.Photo,
		Type:     n.Type,
		Tags:     SplitTags(n.Tags),
		Specs:    Specs(n.Specs),
	}
	if n.Price != "" {
		d, _ := ParseDecimal(n.Price)
		p.Price = NewPrice(d)
	}
	if n.Stock != "" {
		stock, err := strconv.ParseInt(n.Stock, 10, 64)
		if err != nil {
			return Product{}, &ValidationError{Fields: map[string]string{"Stock": "number"}}
		}
		p.Stock = Quantity(stock)
	}
	active := n.Active
	p.Active = &active
	return Resolve(p), nil
}
