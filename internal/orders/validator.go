package orders

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/ecommers/orderflow/internal/domain"
)

const (
	maxCustomerNameLength = 255
	maxSkuCodeLength      = 64
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every rule an OrderRequest broke.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Validator turns an OrderRequest into a pending domain order, or reports
// why it cannot.
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	return &Validator{validate: validator.New(validator.WithRequiredStructEnabled())}
}

func (v *Validator) Validate(req OrderRequest) (*domain.Order, error) {
	var fields []FieldError

	fields = v.check(fields, "customer_name", strings.TrimSpace(req.CustomerName), fmt.Sprintf("required,max=%d", maxCustomerNameLength))
	fields = v.check(fields, "customer_email", req.CustomerEmail, "required,email")

	if len(req.OrderLineItems) == 0 {
		fields = append(fields, FieldError{Field: "order_line_items", Message: "must contain at least one item"})
	}

	for i, item := range req.OrderLineItems {
		prefix := fmt.Sprintf("order_line_items[%d]", i)
		fields = v.check(fields, prefix+".sku_code", strings.TrimSpace(item.SkuCode), fmt.Sprintf("required,max=%d", maxSkuCodeLength))
		fields = v.check(fields, prefix+".quantity", item.Quantity, "min=1")
		if item.Price.IsNegative() {
			fields = append(fields, FieldError{Field: prefix + ".price", Message: "must not be negative"})
		}
	}

	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	items := make([]domain.OrderLineItem, len(req.OrderLineItems))
	total := decimal.Zero
	for i, item := range req.OrderLineItems {
		items[i] = domain.OrderLineItem{
			SkuCode:  item.SkuCode,
			Price:    item.Price,
			Quantity: item.Quantity,
		}
		total = total.Add(items[i].Subtotal())
	}

	return &domain.Order{
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		Items:         items,
		Total:         total,
		Status:        domain.OrderStatusPending,
	}, nil
}

func (v *Validator) check(fields []FieldError, name string, value any, tag string) []FieldError {
	err := v.validate.Var(value, tag)
	if err == nil {
		return fields
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return append(fields, FieldError{Field: name, Message: err.Error()})
	}

	for _, fe := range verrs {
		fields = append(fields, FieldError{Field: name, Message: describe(fe)})
	}
	return fields
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "min":
		return "must be at least " + fe.Param()
	default:
		return "failed " + fe.Tag() + " check"
	}
}
