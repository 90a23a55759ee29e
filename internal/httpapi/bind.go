package httpapi

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"
)

// newValidator returns the configured validator with the struct-level
// create-payment rule registered.
func newValidator() *validatorv10.Validate {
	v := validatorv10.New()
	v.RegisterStructValidation(createPaymentStructValidation, CreatePaymentRequest{})
	return v
}

// createPaymentStructValidation covers the cart shape constraints the field
// tags cannot express: negative quantities and blank-only carts.
func createPaymentStructValidation(sl validatorv10.StructLevel) {
	req := sl.Current().Interface().(CreatePaymentRequest)

	for i, item := range req.OrderData.Cart {
		if item.Quantity < 0 {
			sl.ReportError(item.Quantity, "quantity", "Quantity", "cart_quantity_negative",
				fmt.Sprintf("cart[%d]", i))
		}
	}
}

// bindAndValidate binds the JSON body into out and runs struct validation.
// On failure it writes a 400 itself and returns the error so the handler can
// short-circuit.
func bindAndValidate(c *gin.Context, out any, v *validatorv10.Validate) error {
	if err := c.ShouldBindJSON(out); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid_request_body",
			"msg":   err.Error(),
		})
		return err
	}

	if err := v.Struct(out); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":  "validation_failed",
			"fields": validationErrorsToMap(err),
		})
		return err
	}
	return nil
}

func validationErrorsToMap(err error) map[string]string {
	out := map[string]string{}
	if ve, ok := err.(validatorv10.ValidationErrors); ok {
		for _, fe := range ve {
			out[fe.StructNamespace()] = fe.Tag()
		}
	} else {
		out["error"] = err.Error()
	}
	return out
}
